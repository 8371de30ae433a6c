package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-reservations/internal/auth"
	"ms-reservations/internal/config"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/reservation"
	"ms-reservations/internal/reservation/api"
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

type testHarness struct {
	db       *MockDBLayer
	events   *MockEventGetter
	qr       *MockQRProvisioner
	notifier *MockNotifier
	router   *chi.Mux
}

func setupHandler() *testHarness {
	h := &testHarness{
		db:       new(MockDBLayer),
		events:   new(MockEventGetter),
		qr:       new(MockQRProvisioner),
		notifier: new(MockNotifier),
	}

	log := logger.NewLogger()
	svc := reservation.NewService(h.db, h.events, h.qr, h.notifier, nil, config.TopicConfig{}, log)
	handler := api.NewHandler(svc, log)

	r := chi.NewRouter()
	r.Post("/api/reservations", handler.CreateReservation)
	r.Get("/api/reservations/{reservationId}", handler.GetReservation)
	r.Get("/api/reservations", handler.ListReservations)
	r.Delete("/api/reservations/{reservationId}", handler.CancelReservation)
	r.Post("/api/reservations/{reservationId}/qr", handler.RegenerateQR)

	h.router = r
	return h
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateReservationHandler(t *testing.T) {
	h := setupHandler()

	event := &models.Event{ID: "event456", Title: "Warehouse Night", StartTime: time.Now().Add(48 * time.Hour)}
	h.events.On("GetEvent", mock.Anything, "event456").Return(event, nil)
	h.qr.On("ProvisionReservationQR", mock.Anything, "event456", mock.AnythingOfType("string")).
		Return("https://cdn.example.com/qr.png", nil)
	h.db.On("CreateReservation", mock.Anything, mock.AnythingOfType("models.Reservation")).Return(nil)
	h.notifier.On("DispatchConfirmation", mock.Anything, event, mock.AnythingOfType("*models.Reservation")).Return(nil)

	rec := postJSON(t, h.router, "/api/reservations", models.ReservationRequest{
		EventID:    "event456",
		FullName:   "Jamie Rivera",
		Email:      "jamie@example.com",
		Phone:      "5551234567",
		NumTickets: 2,
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.ReservationResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.ReservationID)
	assert.Equal(t, "https://cdn.example.com/qr.png", resp.QRCodeURL)
	assert.NotNil(t, resp.Data)
}

func TestCreateReservationHandlerValidation(t *testing.T) {
	h := setupHandler()

	rec := postJSON(t, h.router, "/api/reservations", models.ReservationRequest{
		EventID:    "event456",
		FullName:   "Jamie Rivera",
		Email:      "not-an-email",
		Phone:      "5551234567",
		NumTickets: 2,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "email")
}

func TestCreateReservationHandlerBadJSON(t *testing.T) {
	h := setupHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReservationHandlerNotFound(t *testing.T) {
	h := setupHandler()

	h.db.On("GetReservationByID", mock.Anything, "missing").Return(nil, errors.New("sql: no rows in result set"))

	req := httptest.NewRequest(http.MethodGet, "/api/reservations/missing", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReservationsHandlerRequiresEmail(t *testing.T) {
	h := setupHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelReservationHandlerHolderOnly(t *testing.T) {
	h := setupHandler()

	res := &models.Reservation{ID: "res1", EventID: "event456", Email: "jamie@example.com", Status: models.ReservationStatusConfirmed}
	h.db.On("GetReservationByID", mock.Anything, "res1").Return(res, nil)

	// Authenticated as someone else: forbidden
	req := httptest.NewRequest(http.MethodDelete, "/api/reservations/res1", nil)
	req = req.WithContext(auth.ContextWithClaims(req.Context(), "auth0|other", "other@example.com", "Other"))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	h.db.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelReservationHandler(t *testing.T) {
	h := setupHandler()

	res := &models.Reservation{ID: "res1", EventID: "event456", Email: "jamie@example.com", Status: models.ReservationStatusConfirmed}
	h.db.On("GetReservationByID", mock.Anything, "res1").Return(res, nil)
	h.db.On("UpdateStatus", mock.Anything, "res1", models.ReservationStatusCancelled).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/reservations/res1", nil)
	req = req.WithContext(auth.ContextWithClaims(req.Context(), "auth0|jamie", "jamie@example.com", "Jamie"))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCancelReservationHandlerAlreadyCancelled(t *testing.T) {
	h := setupHandler()

	res := &models.Reservation{ID: "res1", EventID: "event456", Email: "jamie@example.com", Status: models.ReservationStatusCancelled}
	h.db.On("GetReservationByID", mock.Anything, "res1").Return(res, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/reservations/res1", nil)
	req = req.WithContext(auth.ContextWithClaims(req.Context(), "auth0|jamie", "jamie@example.com", "Jamie"))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegenerateQRHandler(t *testing.T) {
	h := setupHandler()

	res := &models.Reservation{ID: "res1", EventID: "event456", Status: models.ReservationStatusConfirmed}
	h.db.On("GetReservationByID", mock.Anything, "res1").Return(res, nil)
	h.qr.On("ProvisionReservationQR", mock.Anything, "event456", "res1").Return("https://cdn.example.com/qr-v2.png", nil)
	h.db.On("UpdateQRCodeURL", mock.Anything, "res1", "https://cdn.example.com/qr-v2.png").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/reservations/res1/qr", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://cdn.example.com/qr-v2.png", resp["qrCodeUrl"])
}
