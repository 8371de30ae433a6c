package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-reservations/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetOrderByPaymentIntent returns the order tagged with a payment reference,
// or nil when none exists yet.
func (d *DB) GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("payment_intent_id = ?", paymentIntentID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// InsertOrderWithItems writes the order and all its items atomically.
func (d *DB) InsertOrderWithItems(ctx context.Context, order models.Order, items []models.OrderItem) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		if len(items) > 0 {
			if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) GetOrderWithItems(ctx context.Context, orderID string) (*models.OrderWithItems, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	var items []models.OrderItem
	err = d.Bun.NewSelect().
		Model(&items).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &models.OrderWithItems{Order: order, Items: items}, nil
}

func (d *DB) ListOrdersByUser(ctx context.Context, userID string) ([]models.OrderWithItems, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []models.OrderWithItems{}, nil
	}

	orderIDs := make([]string, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.OrderID
	}

	var items []models.OrderItem
	err = d.Bun.NewSelect().
		Model(&items).
		Where("order_id IN (?)", bun.In(orderIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	itemsByOrder := make(map[string][]models.OrderItem)
	for _, item := range items {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	result := make([]models.OrderWithItems, len(orders))
	for i, o := range orders {
		result[i] = models.OrderWithItems{Order: o, Items: itemsByOrder[o.OrderID]}
		if result[i].Items == nil {
			result[i].Items = []models.OrderItem{}
		}
	}
	return result, nil
}

// IsUniqueViolation recognizes duplicate-key failures from Postgres and from
// the SQLite driver used in tests.
func (d *DB) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
