package reservation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-reservations/internal/config"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/reservation"
)

// Mock implementations
type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateReservation(ctx context.Context, res models.Reservation) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *MockDBLayer) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockDBLayer) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDBLayer) UpdateQRCodeURL(ctx context.Context, id, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}

func (m *MockDBLayer) ListReservationsByEmail(ctx context.Context, email string) ([]models.Reservation, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

type MockQRProvisioner struct {
	mock.Mock
}

func (m *MockQRProvisioner) ProvisionReservationQR(ctx context.Context, eventID, reservationID string) (string, error) {
	args := m.Called(ctx, eventID, reservationID)
	return args.String(0), args.Error(1)
}

func (m *MockQRProvisioner) RemoveReservationQR(ctx context.Context, eventID, reservationID string) error {
	args := m.Called(ctx, eventID, reservationID)
	return args.Error(0)
}

type MockEventGetter struct {
	mock.Mock
}

func (m *MockEventGetter) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) DispatchConfirmation(ctx context.Context, event *models.Event, res *models.Reservation) error {
	args := m.Called(ctx, event, res)
	return args.Error(0)
}

type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) Publish(topic string, key string, value []byte) error {
	args := m.Called(topic, key, value)
	return args.Error(0)
}

var testTopics = config.TopicConfig{
	ReservationCreated:   "nightlife.reservation.created",
	ReservationCancelled: "nightlife.reservation.cancelled",
	OrderFinalized:       "nightlife.order.finalized",
}

func newTestService(db *MockDBLayer, events *MockEventGetter, qr *MockQRProvisioner, notifier *MockNotifier, kafka reservation.Publisher) *reservation.Service {
	return reservation.NewService(db, events, qr, notifier, kafka, testTopics, logger.NewLogger())
}

func validRequest() models.ReservationRequest {
	return models.ReservationRequest{
		EventID:    "event456",
		FullName:   "Jamie Rivera",
		Email:      "jamie@example.com",
		Phone:      "+1 (555) 123-4567",
		NumTickets: 2,
	}
}

// Tests start here
func TestIssueReservation(t *testing.T) {
	// Set up mocks
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	// Event far in the future: expiration must be start + 2h
	start := time.Now().Add(30 * 24 * time.Hour)
	event := &models.Event{ID: "event456", Title: "Warehouse Night", StartTime: start}

	mockEvents.On("GetEvent", mock.Anything, "event456").Return(event, nil)
	mockQR.On("ProvisionReservationQR", mock.Anything, "event456", mock.AnythingOfType("string")).
		Return("https://cdn.example.com/qr-codes/event-event456/res.png", nil)
	mockDB.On("CreateReservation", mock.Anything, mock.AnythingOfType("models.Reservation")).Return(nil)
	mockNotifier.On("DispatchConfirmation", mock.Anything, event, mock.AnythingOfType("*models.Reservation")).Return(nil)

	res, err := svc.IssueReservation(context.Background(), validRequest())

	assert.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, models.ReservationStatusConfirmed, res.Status)
	assert.Equal(t, models.DefaultTicketType, res.TicketType)
	assert.Equal(t, models.ChannelEmail, res.DeliveryChannel)
	assert.Equal(t, "https://cdn.example.com/qr-codes/event-event456/res.png", res.QRCodeURL)
	assert.Equal(t, start.Add(2*time.Hour), res.ExpirationTime)

	mockDB.AssertExpectations(t)
	mockQR.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}

func TestIssueReservationExpirationFloor(t *testing.T) {
	// An event that already started still leaves at least 24h of validity
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	event := &models.Event{ID: "event456", StartTime: time.Now().Add(-1 * time.Hour)}

	mockEvents.On("GetEvent", mock.Anything, "event456").Return(event, nil)
	mockQR.On("ProvisionReservationQR", mock.Anything, "event456", mock.AnythingOfType("string")).Return("https://cdn.example.com/qr.png", nil)
	mockDB.On("CreateReservation", mock.Anything, mock.AnythingOfType("models.Reservation")).Return(nil)
	mockNotifier.On("DispatchConfirmation", mock.Anything, event, mock.AnythingOfType("*models.Reservation")).Return(nil)

	before := time.Now()
	res, err := svc.IssueReservation(context.Background(), validRequest())
	after := time.Now()

	assert.NoError(t, err)
	assert.False(t, res.ExpirationTime.Before(before.Add(24*time.Hour)))
	assert.False(t, res.ExpirationTime.After(after.Add(24*time.Hour)))
}

func TestComputeExpiration(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	// Far-future event: start + 2h wins
	start := now.Add(72 * time.Hour)
	assert.Equal(t, start.Add(2*time.Hour), reservation.ComputeExpiration(start, now))

	// Imminent event: now + 24h wins
	start = now.Add(1 * time.Hour)
	assert.Equal(t, now.Add(24*time.Hour), reservation.ComputeExpiration(start, now))
}

func TestIssueReservationQRFailureDegrades(t *testing.T) {
	// QR provisioning failure must not block the reservation
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	event := &models.Event{ID: "event456", StartTime: time.Now().Add(48 * time.Hour)}

	mockEvents.On("GetEvent", mock.Anything, "event456").Return(event, nil)
	mockQR.On("ProvisionReservationQR", mock.Anything, "event456", mock.AnythingOfType("string")).
		Return("", errors.New("storage unavailable"))
	mockDB.On("CreateReservation", mock.Anything, mock.MatchedBy(func(r models.Reservation) bool {
		return r.QRCodeURL == "" && r.Status == models.ReservationStatusConfirmed
	})).Return(nil)
	mockNotifier.On("DispatchConfirmation", mock.Anything, event, mock.AnythingOfType("*models.Reservation")).Return(nil)

	res, err := svc.IssueReservation(context.Background(), validRequest())

	assert.NoError(t, err)
	assert.Empty(t, res.QRCodeURL)
	assert.Equal(t, models.ReservationStatusConfirmed, res.Status)

	// Nothing was uploaded, so nothing gets cleaned up
	mockQR.AssertNotCalled(t, "RemoveReservationQR", mock.Anything, mock.Anything, mock.Anything)
	mockDB.AssertExpectations(t)
}

func TestIssueReservationPersistFailureCleansUpQR(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	event := &models.Event{ID: "event456", StartTime: time.Now().Add(48 * time.Hour)}

	mockEvents.On("GetEvent", mock.Anything, "event456").Return(event, nil)
	mockQR.On("ProvisionReservationQR", mock.Anything, "event456", mock.AnythingOfType("string")).Return("https://cdn.example.com/qr.png", nil)
	mockDB.On("CreateReservation", mock.Anything, mock.AnythingOfType("models.Reservation")).Return(errors.New("connection reset"))
	mockQR.On("RemoveReservationQR", mock.Anything, "event456", mock.AnythingOfType("string")).Return(nil)

	res, err := svc.IssueReservation(context.Background(), validRequest())

	assert.Error(t, err)
	assert.Nil(t, res)

	// The orphaned upload must be removed and no notification sent
	mockQR.AssertCalled(t, "RemoveReservationQR", mock.Anything, "event456", mock.AnythingOfType("string"))
	mockNotifier.AssertNotCalled(t, "DispatchConfirmation", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssueReservationValidation(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	cases := []struct {
		name   string
		mutate func(*models.ReservationRequest)
		field  string
	}{
		{"missing event", func(r *models.ReservationRequest) { r.EventID = "" }, "event_id"},
		{"missing name", func(r *models.ReservationRequest) { r.FullName = "" }, "full_name"},
		{"bad email", func(r *models.ReservationRequest) { r.Email = "not-an-email" }, "email"},
		{"short phone", func(r *models.ReservationRequest) { r.Phone = "12345" }, "phone"},
		{"zero tickets", func(r *models.ReservationRequest) { r.NumTickets = 0 }, "num_tickets"},
		{"bad channel", func(r *models.ReservationRequest) { r.DeliveryChannel = "pigeon" }, "delivery_channel"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			_, err := svc.IssueReservation(context.Background(), req)

			var vErr *reservation.ValidationError
			assert.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}

	// Validation fires before any side effect
	mockEvents.AssertNotCalled(t, "GetEvent", mock.Anything, mock.Anything)
	mockDB.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestIssueReservationTicketCap(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	event := &models.Event{ID: "event456", StartTime: time.Now().Add(48 * time.Hour), MaxTickets: 4}
	mockEvents.On("GetEvent", mock.Anything, "event456").Return(event, nil)

	req := validRequest()
	req.NumTickets = 5

	_, err := svc.IssueReservation(context.Background(), req)

	var vErr *reservation.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, "num_tickets", vErr.Field)
	mockDB.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestIssueReservationUnknownEvent(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	mockEvents.On("GetEvent", mock.Anything, "event456").Return(nil, errors.New("not found"))

	_, err := svc.IssueReservation(context.Background(), validRequest())

	var vErr *reservation.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, "event_id", vErr.Field)
}

func TestIssueReservationNotificationFailureIsNonFatal(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	event := &models.Event{ID: "event456", StartTime: time.Now().Add(48 * time.Hour)}

	mockEvents.On("GetEvent", mock.Anything, "event456").Return(event, nil)
	mockQR.On("ProvisionReservationQR", mock.Anything, "event456", mock.AnythingOfType("string")).Return("https://cdn.example.com/qr.png", nil)
	mockDB.On("CreateReservation", mock.Anything, mock.AnythingOfType("models.Reservation")).Return(nil)
	mockNotifier.On("DispatchConfirmation", mock.Anything, event, mock.AnythingOfType("*models.Reservation")).
		Return(errors.New("smtp timeout"))

	res, err := svc.IssueReservation(context.Background(), validRequest())

	assert.NoError(t, err)
	assert.Equal(t, models.ReservationStatusConfirmed, res.Status)
}

func TestIssueReservationPublishesLifecycleEvent(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)
	mockKafka := new(MockKafkaProducer)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, mockKafka)

	event := &models.Event{ID: "event456", StartTime: time.Now().Add(48 * time.Hour)}

	mockEvents.On("GetEvent", mock.Anything, "event456").Return(event, nil)
	mockQR.On("ProvisionReservationQR", mock.Anything, "event456", mock.AnythingOfType("string")).Return("https://cdn.example.com/qr.png", nil)
	mockDB.On("CreateReservation", mock.Anything, mock.AnythingOfType("models.Reservation")).Return(nil)
	mockNotifier.On("DispatchConfirmation", mock.Anything, event, mock.AnythingOfType("*models.Reservation")).Return(nil)
	mockKafka.On("Publish", testTopics.ReservationCreated, mock.AnythingOfType("string"), mock.Anything).Return(nil)

	res, err := svc.IssueReservation(context.Background(), validRequest())

	assert.NoError(t, err)
	mockKafka.AssertCalled(t, "Publish", testTopics.ReservationCreated, res.ID, mock.Anything)
}

func TestCancelReservation(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	confirmed := &models.Reservation{ID: "res1", EventID: "event456", Status: models.ReservationStatusConfirmed}
	mockDB.On("GetReservationByID", mock.Anything, "res1").Return(confirmed, nil)
	mockDB.On("UpdateStatus", mock.Anything, "res1", models.ReservationStatusCancelled).Return(nil)

	err := svc.CancelReservation(context.Background(), "res1")
	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestCancelReservationIsTerminal(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	cancelled := &models.Reservation{ID: "res1", Status: models.ReservationStatusCancelled}
	mockDB.On("GetReservationByID", mock.Anything, "res1").Return(cancelled, nil)

	err := svc.CancelReservation(context.Background(), "res1")

	assert.ErrorIs(t, err, reservation.ErrCancelled)
	mockDB.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegenerateQR(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	res := &models.Reservation{ID: "res1", EventID: "event456", Status: models.ReservationStatusConfirmed}
	mockDB.On("GetReservationByID", mock.Anything, "res1").Return(res, nil)
	mockQR.On("ProvisionReservationQR", mock.Anything, "event456", "res1").Return("https://cdn.example.com/qr-codes/event-event456/res1.png", nil)
	mockDB.On("UpdateQRCodeURL", mock.Anything, "res1", "https://cdn.example.com/qr-codes/event-event456/res1.png").Return(nil)

	url, err := svc.RegenerateQR(context.Background(), "res1")

	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/qr-codes/event-event456/res1.png", url)
	mockDB.AssertExpectations(t)
}

func TestRegenerateQRRejectsCancelled(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockEvents := new(MockEventGetter)
	mockQR := new(MockQRProvisioner)
	mockNotifier := new(MockNotifier)

	svc := newTestService(mockDB, mockEvents, mockQR, mockNotifier, nil)

	cancelled := &models.Reservation{ID: "res1", EventID: "event456", Status: models.ReservationStatusCancelled}
	mockDB.On("GetReservationByID", mock.Anything, "res1").Return(cancelled, nil)

	_, err := svc.RegenerateQR(context.Background(), "res1")

	assert.ErrorIs(t, err, reservation.ErrCancelled)
	mockQR.AssertNotCalled(t, "ProvisionReservationQR", mock.Anything, mock.Anything, mock.Anything)
}
