package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string    `bun:"id,pk" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Location    string    `bun:"location,nullzero" json:"location,omitempty"`
	StartTime   time.Time `bun:"start_time,notnull" json:"start_time"`
	Featured    bool      `bun:"featured" json:"featured"`
	// Static check-in code for the event itself, back-filled once.
	QRCodeURL      string    `bun:"qr_code_url,nullzero" json:"qr_code_url,omitempty"`
	MaxTickets     int       `bun:"max_tickets_per_reservation,nullzero" json:"max_tickets_per_reservation,omitempty"`
	TicketTypes    []string  `bun:"ticket_types,array" json:"ticket_types,omitempty"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
}

// DefaultMaxTickets caps a single reservation when the event has no configured limit.
const DefaultMaxTickets = 10

// MaxTicketsPerReservation returns the event's configured cap, or the default.
func (e *Event) MaxTicketsPerReservation() int {
	if e.MaxTickets > 0 {
		return e.MaxTickets
	}
	return DefaultMaxTickets
}
