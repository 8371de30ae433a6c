package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"ms-reservations/internal/config"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type DBLayer interface {
	CreateReservation(ctx context.Context, res models.Reservation) error
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateQRCodeURL(ctx context.Context, id, url string) error
	ListReservationsByEmail(ctx context.Context, email string) ([]models.Reservation, error)
}

type QRProvisioner interface {
	ProvisionReservationQR(ctx context.Context, eventID, reservationID string) (string, error)
	RemoveReservationQR(ctx context.Context, eventID, reservationID string) error
}

type EventGetter interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type Notifier interface {
	DispatchConfirmation(ctx context.Context, event *models.Event, res *models.Reservation) error
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

// ValidationError reports the first invalid request field. It is raised before
// any side effect and maps to a 400 at the handler layer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var ErrCancelled = errors.New("reservation is cancelled")

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Loose 10-15 digit check, tolerant of common separators.
	phoneStrip   = regexp.MustCompile(`[\s\-().+]`)
	phonePattern = regexp.MustCompile(`^\d{10,15}$`)
)

type Service struct {
	DB       DBLayer
	Events   EventGetter
	QR       QRProvisioner
	Notifier Notifier
	Kafka    Publisher
	Topics   config.TopicConfig
	Logger   *logger.Logger
}

func NewService(db DBLayer, events EventGetter, qr QRProvisioner, notifier Notifier, kafka Publisher, topics config.TopicConfig, log *logger.Logger) *Service {
	return &Service{
		DB:       db,
		Events:   events,
		QR:       qr,
		Notifier: notifier,
		Kafka:    kafka,
		Topics:   topics,
		Logger:   log,
	}
}

// ComputeExpiration returns the later of (event start + 2h) and (now + 24h).
// Fixed at creation time, never recomputed.
func ComputeExpiration(eventStart, now time.Time) time.Time {
	afterEvent := eventStart.Add(2 * time.Hour)
	afterNow := now.Add(24 * time.Hour)
	if afterEvent.After(afterNow) {
		return afterEvent
	}
	return afterNow
}

// IssueReservation validates the request, provisions a QR code (best-effort)
// and persists the reservation as confirmed. QR provisioning failure degrades
// to an empty QR URL; persistence failure aborts the whole operation and
// removes any image that was already uploaded.
func (s *Service) IssueReservation(ctx context.Context, req models.ReservationRequest) (*models.Reservation, error) {
	if err := validateContact(req); err != nil {
		return nil, err
	}

	event, err := s.Events.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, &ValidationError{Field: "event_id", Reason: "event not found"}
	}

	if req.NumTickets > event.MaxTicketsPerReservation() {
		return nil, &ValidationError{
			Field:  "num_tickets",
			Reason: fmt.Sprintf("exceeds the maximum of %d tickets per reservation", event.MaxTicketsPerReservation()),
		}
	}

	reservationID := req.ID
	if reservationID == "" {
		reservationID = uuid.NewString()
	}

	// The QR payload is derived from the reservation id before the row exists,
	// so the id has to be fixed here, not assigned by the database.
	qrURL := req.QRCodeURL
	provisioned := false
	if qrURL == "" {
		qrURL, err = s.QR.ProvisionReservationQR(ctx, event.ID, reservationID)
		if err != nil {
			s.Logger.Warn("RESERVATION", fmt.Sprintf("QR provisioning failed for %s, continuing without code: %v", reservationID, err))
			qrURL = ""
		} else {
			provisioned = true
		}
	}

	now := time.Now()
	expiration := ComputeExpiration(event.StartTime, now)
	if req.ExpirationTime != nil {
		expiration = *req.ExpirationTime
	}

	ticketType := req.TicketType
	if ticketType == "" {
		ticketType = models.DefaultTicketType
	}
	channel := req.DeliveryChannel
	if channel == "" {
		channel = models.ChannelEmail
	}

	res := models.Reservation{
		ID:              reservationID,
		EventID:         event.ID,
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		NumTickets:      req.NumTickets,
		TicketType:      ticketType,
		DeliveryChannel: channel,
		QRCodeURL:       qrURL,
		Status:          models.ReservationStatusConfirmed,
		ExpirationTime:  expiration,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.DB.CreateReservation(ctx, res); err != nil {
		s.Logger.Error("RESERVATION", fmt.Sprintf("failed to persist reservation %s: %v", reservationID, err))
		if provisioned {
			if rmErr := s.QR.RemoveReservationQR(ctx, event.ID, reservationID); rmErr != nil {
				s.Logger.Warn("RESERVATION", fmt.Sprintf("failed to clean up orphaned QR for %s: %v", reservationID, rmErr))
			}
		}
		return nil, fmt.Errorf("failed to persist reservation: %w", err)
	}

	s.Logger.LogReservation("ISSUE", reservationID, fmt.Sprintf("confirmed for event %s, %d ticket(s), expires %s", event.ID, res.NumTickets, expiration.Format(time.RFC3339)))

	s.publishEvent(s.Topics.ReservationCreated, "reservation_created", &res)

	// Fire-and-forget: the reservation stays valid whatever happens here.
	if err := s.Notifier.DispatchConfirmation(ctx, event, &res); err != nil {
		s.Logger.Warn("RESERVATION", fmt.Sprintf("confirmation for %s not delivered: %v", reservationID, err))
	}

	return &res, nil
}

func (s *Service) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return s.DB.GetReservationByID(ctx, id)
}

func (s *Service) ListReservationsByEmail(ctx context.Context, email string) ([]models.Reservation, error) {
	return s.DB.ListReservationsByEmail(ctx, email)
}

// CancelReservation moves a reservation to cancelled. Cancelled is terminal:
// cancelling twice is rejected.
func (s *Service) CancelReservation(ctx context.Context, id string) error {
	res, err := s.DB.GetReservationByID(ctx, id)
	if err != nil {
		return fmt.Errorf("reservation %s not found: %w", id, err)
	}

	if res.Status == models.ReservationStatusCancelled {
		return ErrCancelled
	}

	if err := s.DB.UpdateStatus(ctx, id, models.ReservationStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel reservation %s: %w", id, err)
	}

	res.Status = models.ReservationStatusCancelled
	s.Logger.LogReservation("CANCEL", id, "reservation cancelled")
	s.publishEvent(s.Topics.ReservationCancelled, "reservation_cancelled", res)
	return nil
}

// RegenerateQR re-provisions the QR image for an existing reservation and
// updates only the stored URL. The upload overwrites in place, so retries are
// safe.
func (s *Service) RegenerateQR(ctx context.Context, id string) (string, error) {
	res, err := s.DB.GetReservationByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("reservation %s not found: %w", id, err)
	}
	if res.Status == models.ReservationStatusCancelled {
		return "", ErrCancelled
	}

	url, err := s.QR.ProvisionReservationQR(ctx, res.EventID, res.ID)
	if err != nil {
		return "", fmt.Errorf("failed to provision QR for reservation %s: %w", id, err)
	}

	if err := s.DB.UpdateQRCodeURL(ctx, id, url); err != nil {
		return "", fmt.Errorf("failed to store QR URL for reservation %s: %w", id, err)
	}

	s.Logger.LogReservation("REGENERATE_QR", id, "QR code re-provisioned")
	return url, nil
}

func (s *Service) publishEvent(topic, eventType string, res *models.Reservation) {
	if s.Kafka == nil {
		return
	}
	payload, err := json.Marshal(models.ReservationEvent{
		Type:          eventType,
		ReservationID: res.ID,
		EventID:       res.EventID,
		Status:        res.Status,
		Timestamp:     time.Now(),
	})
	if err != nil {
		return
	}
	if err := s.Kafka.Publish(topic, res.ID, payload); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish %s for reservation %s: %v", eventType, res.ID, err))
	}
}

func validateContact(req models.ReservationRequest) error {
	if req.EventID == "" {
		return &ValidationError{Field: "event_id", Reason: "required"}
	}
	if req.FullName == "" {
		return &ValidationError{Field: "full_name", Reason: "required"}
	}
	if req.Email == "" {
		return &ValidationError{Field: "email", Reason: "required"}
	}
	if !emailPattern.MatchString(req.Email) {
		return &ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	if req.Phone == "" {
		return &ValidationError{Field: "phone", Reason: "required"}
	}
	if !phonePattern.MatchString(phoneStrip.ReplaceAllString(req.Phone, "")) {
		return &ValidationError{Field: "phone", Reason: "must contain 10 to 15 digits"}
	}
	if req.NumTickets < 1 {
		return &ValidationError{Field: "num_tickets", Reason: "must be a positive integer"}
	}
	if req.DeliveryChannel != "" && req.DeliveryChannel != models.ChannelEmail && req.DeliveryChannel != models.ChannelSMS {
		return &ValidationError{Field: "delivery_channel", Reason: "must be email or sms"}
	}
	return nil
}
