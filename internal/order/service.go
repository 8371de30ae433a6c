package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"ms-reservations/internal/config"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrPaymentNotSucceeded = errors.New("payment has not succeeded")
	ErrAmountMismatch      = errors.New("cart total does not match authorized amount")
)

// amountEpsilon tolerates float rounding up to one minor currency unit.
const amountEpsilon = 0.01

// PaymentVerification is the provider's view of a payment intent.
type PaymentVerification struct {
	ID            string
	Status        string
	Amount        int64 // minor currency units
	Currency      string
	PaymentMethod string
}

type PaymentVerifier interface {
	VerifyPaymentIntent(ctx context.Context, id string) (*PaymentVerification, error)
}

type DBLayer interface {
	GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error)
	InsertOrderWithItems(ctx context.Context, order models.Order, items []models.OrderItem) error
	GetOrderWithItems(ctx context.Context, orderID string) (*models.OrderWithItems, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.OrderWithItems, error)
	IsUniqueViolation(err error) bool
}

type CartStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	ClearUser(ctx context.Context, userID string) error
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

// Service finalizes orders: exactly one order per payment reference,
// converting the cart snapshot into an immutable order with frozen prices.
type Service struct {
	DB       DBLayer
	Cart     CartStore
	Verifier PaymentVerifier
	Kafka    Publisher
	Topics   config.TopicConfig
	Logger   *logger.Logger
}

func NewService(db DBLayer, cart CartStore, verifier PaymentVerifier, kafka Publisher, topics config.TopicConfig, log *logger.Logger) *Service {
	return &Service{
		DB:       db,
		Cart:     cart,
		Verifier: verifier,
		Kafka:    kafka,
		Topics:   topics,
		Logger:   log,
	}
}

// Finalize converts the user's cart into an order, exactly once per payment
// intent. Safe against duplicate calls (webhook and client confirmation
// racing): the existing order id is returned unchanged.
func (s *Service) Finalize(ctx context.Context, paymentIntentID, userID string) (string, error) {
	verification, err := s.Verifier.VerifyPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return "", fmt.Errorf("failed to verify payment %s: %w", paymentIntentID, err)
	}
	if verification.Status != "succeeded" {
		return "", fmt.Errorf("%w: provider status %q", ErrPaymentNotSucceeded, verification.Status)
	}

	// Idempotent finalize: a previous call may already have recorded the order.
	existing, err := s.DB.GetOrderByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return "", fmt.Errorf("failed to check for existing order: %w", err)
	}
	if existing != nil {
		s.Logger.LogOrder("FINALIZE", existing.OrderID, "already finalized for this payment, returning existing order")
		return existing.OrderID, nil
	}

	items, err := s.Cart.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load cart for user %s: %w", userID, err)
	}
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}

	authorized := float64(verification.Amount) / 100.0
	if math.Abs(total-authorized) > amountEpsilon {
		s.Logger.Error("ORDER", fmt.Sprintf("amount mismatch for payment %s: cart total %.2f, authorized %.2f", paymentIntentID, total, authorized))
		return "", fmt.Errorf("%w: cart %.2f, authorized %.2f", ErrAmountMismatch, total, authorized)
	}

	orderID := uuid.NewString()
	newOrder := models.Order{
		OrderID:         orderID,
		UserID:          userID,
		Status:          models.OrderStatusCompleted,
		TotalAmount:     total,
		PaymentIntentID: paymentIntentID,
		PaymentMethod:   verification.PaymentMethod,
		CreatedAt:       time.Now(),
	}

	orderItems := make([]models.OrderItem, len(items))
	for i, item := range items {
		orderItems[i] = models.OrderItem{
			ID:              uuid.NewString(),
			OrderID:         orderID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.Price,
			ProductName:     item.ProductName,
			ProductImage:    item.ProductImage,
		}
	}

	// Order and items land in one transaction: no ghost order without items.
	if err := s.DB.InsertOrderWithItems(ctx, newOrder, orderItems); err != nil {
		// Concurrent finalize for the same payment: the unique constraint on
		// payment_intent_id is the safety net. Treat the loser as "already
		// finalized", not as a hard error.
		if s.DB.IsUniqueViolation(err) {
			winner, lookupErr := s.DB.GetOrderByPaymentIntent(ctx, paymentIntentID)
			if lookupErr == nil && winner != nil {
				s.Logger.LogOrder("FINALIZE", winner.OrderID, "lost insert race, returning winning order")
				return winner.OrderID, nil
			}
		}
		return "", fmt.Errorf("failed to persist order: %w", err)
	}

	s.Logger.LogOrder("FINALIZE", orderID, fmt.Sprintf("order created for payment %s, total %.2f, %d item(s)", paymentIntentID, total, len(orderItems)))

	// Cart clearing stays outside the transaction: the order is already the
	// source of truth, a stale cart is user-correctable.
	if err := s.Cart.ClearUser(ctx, userID); err != nil {
		s.Logger.Warn("ORDER", fmt.Sprintf("failed to clear cart for user %s after order %s: %v", userID, orderID, err))
	}

	s.publishFinalized(&newOrder)
	return orderID, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.OrderWithItems, error) {
	return s.DB.GetOrderWithItems(ctx, orderID)
}

func (s *Service) ListOrdersByUser(ctx context.Context, userID string) ([]models.OrderWithItems, error) {
	return s.DB.ListOrdersByUser(ctx, userID)
}

func (s *Service) publishFinalized(o *models.Order) {
	if s.Kafka == nil {
		return
	}
	payload, err := json.Marshal(models.OrderEvent{
		Type:            "order_finalized",
		OrderID:         o.OrderID,
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount,
		PaymentIntentID: o.PaymentIntentID,
		Timestamp:       time.Now(),
	})
	if err != nil {
		return
	}
	if err := s.Kafka.Publish(s.Topics.OrderFinalized, o.OrderID, payload); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish order_finalized for %s: %v", o.OrderID, err))
	}
}
