package identity

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-reservations/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetUserBySubject(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("auth_subject = ?", subject).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) CreateUser(ctx context.Context, user models.User) error {
	_, err := d.Bun.NewInsert().Model(&user).Exec(ctx)
	return err
}

func (d *DB) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("display_name = ?", update.DisplayName).
		Set("bio = ?", update.Bio).
		Set("phone = ?", update.Phone).
		Set("avatar_url = ?", update.AvatarURL).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	return err
}
