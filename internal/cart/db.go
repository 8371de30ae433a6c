package cart

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-reservations/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- USER CARTS ----------------

func (d *DB) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddItem upserts a cart line: adding a product already in the cart bumps its
// quantity. Plain read-modify-write, last write wins across tabs.
func (d *DB) AddItem(ctx context.Context, userID string, input models.CartItemInput) (*models.CartItem, error) {
	var existing models.CartItem
	err := d.Bun.NewSelect().
		Model(&existing).
		Where("user_id = ? AND product_id = ?", userID, input.ProductID).
		Limit(1).
		Scan(ctx)

	now := time.Now()
	if err == nil {
		existing.Quantity += input.Quantity
		existing.UpdatedAt = now
		if _, err := d.Bun.NewUpdate().
			Model(&existing).
			Column("quantity", "updated_at").
			Where("id = ?", existing.ID).
			Exec(ctx); err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	item := models.CartItem{
		ID:           uuid.NewString(),
		UserID:       userID,
		ProductID:    input.ProductID,
		ProductName:  input.ProductName,
		ProductImage: input.ProductImage,
		Price:        input.Price,
		Quantity:     input.Quantity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := d.Bun.NewInsert().Model(&item).Exec(ctx); err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DB) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	result, err := d.Bun.NewUpdate().
		Model((*models.CartItem)(nil)).
		Set("quantity = ?", quantity).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND user_id = ?", itemID, userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (d *DB) RemoveItem(ctx context.Context, userID, itemID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.CartItem)(nil)).
		Where("id = ? AND user_id = ?", itemID, userID).
		Exec(ctx)
	return err
}

func (d *DB) ClearUser(ctx context.Context, userID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.CartItem)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

// ---------------- GUEST CARTS ----------------

func (d *DB) ListByGuest(ctx context.Context, guestID string) ([]models.GuestCartItem, error) {
	var items []models.GuestCartItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("guest_id = ?", guestID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (d *DB) AddGuestItem(ctx context.Context, guestID string, input models.CartItemInput) (*models.GuestCartItem, error) {
	var existing models.GuestCartItem
	err := d.Bun.NewSelect().
		Model(&existing).
		Where("guest_id = ? AND product_id = ?", guestID, input.ProductID).
		Limit(1).
		Scan(ctx)

	now := time.Now()
	if err == nil {
		existing.Quantity += input.Quantity
		existing.UpdatedAt = now
		if _, err := d.Bun.NewUpdate().
			Model(&existing).
			Column("quantity", "updated_at").
			Where("id = ?", existing.ID).
			Exec(ctx); err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	item := models.GuestCartItem{
		ID:           uuid.NewString(),
		GuestID:      guestID,
		ProductID:    input.ProductID,
		ProductName:  input.ProductName,
		ProductImage: input.ProductImage,
		Price:        input.Price,
		Quantity:     input.Quantity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := d.Bun.NewInsert().Model(&item).Exec(ctx); err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DB) RemoveGuestItem(ctx context.Context, guestID, itemID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.GuestCartItem)(nil)).
		Where("id = ? AND guest_id = ?", itemID, guestID).
		Exec(ctx)
	return err
}

func (d *DB) ClearGuest(ctx context.Context, guestID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.GuestCartItem)(nil)).
		Where("guest_id = ?", guestID).
		Exec(ctx)
	return err
}
