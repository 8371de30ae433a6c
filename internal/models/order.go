package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	OrderStatusCompleted = "completed"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID         string    `bun:"order_id,pk" json:"order_id"`
	UserID          string    `bun:"user_id,notnull" json:"user_id"`
	Status          string    `bun:"status,notnull" json:"status"`
	TotalAmount     float64   `bun:"total_amount,notnull" json:"total_amount"`
	PaymentIntentID string    `bun:"payment_intent_id,unique,notnull" json:"payment_intent_id"`
	PaymentMethod   string    `bun:"payment_method,nullzero" json:"payment_method,omitempty"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
}

// OrderItem freezes product name, image and price at purchase time.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID              string  `bun:"id,pk" json:"id"`
	OrderID         string  `bun:"order_id,notnull" json:"order_id"`
	ProductID       string  `bun:"product_id,notnull" json:"product_id"`
	Quantity        int     `bun:"quantity,notnull" json:"quantity"`
	PriceAtPurchase float64 `bun:"price_at_purchase,notnull" json:"price_at_purchase"`
	ProductName     string  `bun:"product_name,notnull" json:"product_name"`
	ProductImage    string  `bun:"product_image,nullzero" json:"product_image,omitempty"`
}

type OrderWithItems struct {
	Order
	Items []OrderItem `json:"items"`
}

type FinalizeOrderRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	UserID          string `json:"userId"`
}

type FinalizeOrderResponse struct {
	OrderID string `json:"orderId"`
}

// OrderEvent is published to Kafka when an order is finalized.
type OrderEvent struct {
	Type            string    `json:"type"`
	OrderID         string    `json:"order_id"`
	UserID          string    `json:"user_id"`
	TotalAmount     float64   `json:"total_amount"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Timestamp       time.Time `json:"timestamp"`
}
