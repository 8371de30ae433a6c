package qr

import (
	"context"
	"fmt"

	"github.com/skip2/go-qrcode"

	"ms-reservations/internal/logger"
)

// ObjectStore is the slice of the storage client the provisioner needs.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
	Remove(ctx context.Context, path string) error
}

// Provisioner renders confirmation URLs as QR images and uploads them to
// object storage. Provisioning the same (event, reservation) twice overwrites
// in place and returns the same public URL.
type Provisioner struct {
	Store       ObjectStore
	SiteBaseURL string
	Logger      *logger.Logger
}

func NewProvisioner(store ObjectStore, siteBaseURL string, log *logger.Logger) *Provisioner {
	return &Provisioner{
		Store:       store,
		SiteBaseURL: siteBaseURL,
		Logger:      log,
	}
}

// ReservationPath is the storage path for a reservation-level QR image.
// Event-level codes live one level up so the two namespaces cannot collide.
func ReservationPath(eventID, reservationID string) string {
	return fmt.Sprintf("qr-codes/event-%s/%s.png", eventID, reservationID)
}

// EventPath is the storage path for an event's static check-in QR image.
func EventPath(eventID string) string {
	return fmt.Sprintf("qr-codes/event-%s.png", eventID)
}

// ConfirmationURL is the destination every reservation QR encodes.
func (p *Provisioner) ConfirmationURL(eventID, reservationID string) string {
	return fmt.Sprintf("%s/reservations/confirmation?event=%s&reservation=%s", p.SiteBaseURL, eventID, reservationID)
}

// CheckinURL is the destination an event-level QR encodes.
func (p *Provisioner) CheckinURL(eventID string) string {
	return fmt.Sprintf("%s/events/checkin?event=%s", p.SiteBaseURL, eventID)
}

// ProvisionReservationQR renders and uploads the QR for one reservation and
// returns the public image URL.
func (p *Provisioner) ProvisionReservationQR(ctx context.Context, eventID, reservationID string) (string, error) {
	return p.provision(ctx, p.ConfirmationURL(eventID, reservationID), ReservationPath(eventID, reservationID))
}

// ProvisionEventQR renders and uploads the static check-in QR for an event.
func (p *Provisioner) ProvisionEventQR(ctx context.Context, eventID string) (string, error) {
	return p.provision(ctx, p.CheckinURL(eventID), EventPath(eventID))
}

func (p *Provisioner) provision(ctx context.Context, content, path string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to render QR image: %w", err)
	}

	if err := p.Store.Upload(ctx, path, png, "image/png"); err != nil {
		return "", fmt.Errorf("failed to upload QR image: %w", err)
	}

	publicURL := p.Store.PublicURL(path)
	p.Logger.LogStorage("PROVISION", path, fmt.Sprintf("QR ready at %s", publicURL))
	return publicURL, nil
}

// RemoveReservationQR deletes an uploaded reservation QR. Best-effort cleanup
// for the orphaned-upload case.
func (p *Provisioner) RemoveReservationQR(ctx context.Context, eventID, reservationID string) error {
	return p.Store.Remove(ctx, ReservationPath(eventID, reservationID))
}
