package events

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-reservations/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListUpcoming returns events that have not started yet, soonest first.
func (d *DB) ListUpcoming(ctx context.Context) ([]models.Event, error) {
	var list []models.Event
	err := d.Bun.NewSelect().
		Model(&list).
		Where("start_time > ?", time.Now()).
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) ListFeatured(ctx context.Context) ([]models.Event, error) {
	var list []models.Event
	err := d.Bun.NewSelect().
		Model(&list).
		Where("featured = ?", true).
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// SetQRCodeURL back-fills the event's static check-in code URL.
func (d *DB) SetQRCodeURL(ctx context.Context, eventID, url string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("qr_code_url = ?", url).
		Where("id = ?", eventID).
		Exec(ctx)
	return err
}
