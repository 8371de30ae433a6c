package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID          string    `bun:"id,pk" json:"id"`
	AuthSubject string    `bun:"auth_subject,unique,notnull" json:"-"`
	Email       string    `bun:"email,notnull" json:"email"`
	DisplayName string    `bun:"display_name" json:"display_name"`
	Bio         string    `bun:"bio,nullzero" json:"bio,omitempty"`
	Phone       string    `bun:"phone,nullzero" json:"phone,omitempty"`
	AvatarURL   string    `bun:"avatar_url,nullzero" json:"avatar_url,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// ProfileUpdate carries the mutable profile fields.
type ProfileUpdate struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Phone       string `json:"phone"`
	AvatarURL   string `json:"avatar_url"`
}
