package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-reservations/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateReservation inserts a new reservation row. The id is caller-generated;
// a duplicate surfaces as a primary-key violation from the database.
func (d *DB) CreateReservation(ctx context.Context, res models.Reservation) error {
	_, err := d.Bun.NewInsert().Model(&res).Exec(ctx)
	return err
}

func (d *DB) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	err := d.Bun.NewSelect().
		Model(&res).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (d *DB) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// UpdateQRCodeURL touches only the QR URL, never the status.
func (d *DB) UpdateQRCodeURL(ctx context.Context, id, url string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("qr_code_url = ?", url).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) ListReservationsByEmail(ctx context.Context, email string) ([]models.Reservation, error) {
	var list []models.Reservation
	err := d.Bun.NewSelect().
		Model(&list).
		Where("email = ?", email).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}
