package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"ms-reservations/internal/logger"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// StripeVerifier checks payment intents against Stripe.
type StripeVerifier struct {
	client *client.API
	log    *logger.Logger
}

func NewStripeVerifier(secretKey string, log *logger.Logger) (*StripeVerifier, error) {
	if secretKey == "" {
		log.Error("STRIPE", "Stripe secret key not configured")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(secretKey, nil)
	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeVerifier{client: sc, log: log}, nil
}

func (v *StripeVerifier) VerifyPaymentIntent(ctx context.Context, id string) (*PaymentVerification, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := v.client.PaymentIntents.Get(id, params)
	if err != nil {
		v.log.Error("STRIPE", fmt.Sprintf("failed to retrieve payment intent %s: %v", id, err))
		return nil, fmt.Errorf("stripe payment intent lookup failed: %w", err)
	}

	verification := &PaymentVerification{
		ID:       intent.ID,
		Status:   string(intent.Status),
		Amount:   intent.Amount,
		Currency: string(intent.Currency),
	}
	if intent.PaymentMethod != nil {
		verification.PaymentMethod = string(intent.PaymentMethod.Type)
	}

	v.log.Info("STRIPE", fmt.Sprintf("payment intent %s status %s, amount %d %s", intent.ID, intent.Status, intent.Amount, intent.Currency))
	return verification, nil
}
