package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CartItem is a server-side cart row for an authenticated user. Name, price and
// image are denormalized at add time.
type CartItem struct {
	bun.BaseModel `bun:"table:cart_items"`

	ID           string    `bun:"id,pk" json:"id"`
	UserID       string    `bun:"user_id,notnull" json:"user_id"`
	ProductID    string    `bun:"product_id,notnull" json:"product_id"`
	ProductName  string    `bun:"product_name,notnull" json:"product_name"`
	ProductImage string    `bun:"product_image,nullzero" json:"product_image,omitempty"`
	Price        float64   `bun:"price,notnull" json:"price"`
	Quantity     int       `bun:"quantity,notnull" json:"quantity"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// GuestCartItem mirrors CartItem for anonymous sessions, keyed by guest id.
type GuestCartItem struct {
	bun.BaseModel `bun:"table:guest_cart_items"`

	ID           string    `bun:"id,pk" json:"id"`
	GuestID      string    `bun:"guest_id,notnull" json:"guest_id"`
	ProductID    string    `bun:"product_id,notnull" json:"product_id"`
	ProductName  string    `bun:"product_name,notnull" json:"product_name"`
	ProductImage string    `bun:"product_image,nullzero" json:"product_image,omitempty"`
	Price        float64   `bun:"price,notnull" json:"price"`
	Quantity     int       `bun:"quantity,notnull" json:"quantity"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type CartItemInput struct {
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image,omitempty"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
}
