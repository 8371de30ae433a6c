package cart

import (
	"context"
	"fmt"

	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type DBLayer interface {
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	AddItem(ctx context.Context, userID string, input models.CartItemInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID string) error
	ClearUser(ctx context.Context, userID string) error

	ListByGuest(ctx context.Context, guestID string) ([]models.GuestCartItem, error)
	AddGuestItem(ctx context.Context, guestID string, input models.CartItemInput) (*models.GuestCartItem, error)
	RemoveGuestItem(ctx context.Context, guestID, itemID string) error
	ClearGuest(ctx context.Context, guestID string) error
}

type Service struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewService(db DBLayer, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

func (s *Service) List(ctx context.Context, userID string) ([]models.CartItem, error) {
	return s.DB.ListByUser(ctx, userID)
}

func (s *Service) Add(ctx context.Context, userID string, input models.CartItemInput) (*models.CartItem, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	return s.DB.AddItem(ctx, userID, input)
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	return s.DB.UpdateQuantity(ctx, userID, itemID, quantity)
}

func (s *Service) Remove(ctx context.Context, userID, itemID string) error {
	return s.DB.RemoveItem(ctx, userID, itemID)
}

func (s *Service) ListGuest(ctx context.Context, guestID string) ([]models.GuestCartItem, error) {
	return s.DB.ListByGuest(ctx, guestID)
}

func (s *Service) AddGuest(ctx context.Context, guestID string, input models.CartItemInput) (*models.GuestCartItem, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	return s.DB.AddGuestItem(ctx, guestID, input)
}

func (s *Service) RemoveGuest(ctx context.Context, guestID, itemID string) error {
	return s.DB.RemoveGuestItem(ctx, guestID, itemID)
}

// MergeGuestCart folds a guest cart into the account cart at login time.
// Quantities for the same product are summed; guest rows are deleted after
// the merge. Partial failure leaves the remaining guest rows in place so a
// retry converges.
func (s *Service) MergeGuestCart(ctx context.Context, guestID, userID string) error {
	guestItems, err := s.DB.ListByGuest(ctx, guestID)
	if err != nil {
		return fmt.Errorf("failed to load guest cart %s: %w", guestID, err)
	}
	if len(guestItems) == 0 {
		return nil
	}

	for _, item := range guestItems {
		input := models.CartItemInput{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Price:        item.Price,
			Quantity:     item.Quantity,
		}
		if _, err := s.DB.AddItem(ctx, userID, input); err != nil {
			return fmt.Errorf("failed to merge guest item %s: %w", item.ID, err)
		}
		if err := s.DB.RemoveGuestItem(ctx, guestID, item.ID); err != nil {
			return fmt.Errorf("failed to remove merged guest item %s: %w", item.ID, err)
		}
	}

	s.Logger.Info("CART", fmt.Sprintf("merged %d guest cart item(s) into user %s", len(guestItems), userID))
	return nil
}

func validateInput(input models.CartItemInput) error {
	if input.ProductID == "" {
		return fmt.Errorf("product_id is required")
	}
	if input.ProductName == "" {
		return fmt.Errorf("product_name is required")
	}
	if input.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if input.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	return nil
}
