package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"

	ChannelEmail = "email"
	ChannelSMS   = "sms"

	DefaultTicketType = "General Admission"
)

type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID              string    `bun:"id,pk" json:"id"`
	EventID         string    `bun:"event_id,notnull" json:"event_id"`
	FullName        string    `bun:"full_name,notnull" json:"full_name"`
	Email           string    `bun:"email,notnull" json:"email"`
	Phone           string    `bun:"phone,notnull" json:"phone"`
	NumTickets      int       `bun:"num_tickets,notnull" json:"num_tickets"`
	TicketType      string    `bun:"ticket_type,notnull" json:"ticket_type"`
	DeliveryChannel string    `bun:"delivery_channel,notnull" json:"delivery_channel"`
	// Empty means "no code yet" - a valid, displayed state, not an error.
	QRCodeURL      string    `bun:"qr_code_url,nullzero" json:"qr_code_url,omitempty"`
	Status         string    `bun:"status,notnull" json:"status"`
	ExpirationTime time.Time `bun:"expiration_time,notnull" json:"expiration_time"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// ReservationRequest is the JSON body for the creation endpoint.
type ReservationRequest struct {
	ID              string     `json:"id"`
	EventID         string     `json:"event_id"`
	FullName        string     `json:"full_name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	NumTickets      int        `json:"num_tickets"`
	TicketType      string     `json:"ticket_type,omitempty"`
	DeliveryChannel string     `json:"delivery_channel,omitempty"`
	ExpirationTime  *time.Time `json:"expiration_time,omitempty"`
	QRCodeURL       string     `json:"qr_code_url,omitempty"`
}

type ReservationResponse struct {
	Success       bool         `json:"success"`
	ReservationID string       `json:"reservationId"`
	QRCodeURL     string       `json:"qrCodeUrl,omitempty"`
	Data          *Reservation `json:"data,omitempty"`
}

// ReservationEvent is published to Kafka on lifecycle changes.
type ReservationEvent struct {
	Type          string    `json:"type"`
	ReservationID string    `json:"reservation_id"`
	EventID       string    `json:"event_id"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}
