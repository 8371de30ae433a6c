package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-reservations/internal/events"
	"ms-reservations/internal/logger"
)

type Handler struct {
	Service *events.Service
	Logger  *logger.Logger
}

func NewHandler(service *events.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// ListEvents handles GET /api/events, optionally filtered to featured ones.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	var err error
	var list interface{}

	if r.URL.Query().Get("featured") == "true" {
		list, err = h.Service.ListFeatured(r.Context())
	} else {
		list, err = h.Service.ListUpcoming(r.Context())
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEvents: %v", err))
		http.Error(w, "Failed to list events", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetEvent handles GET /api/events/{eventId}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	event, err := h.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// BackfillQR handles POST /api/events/{eventId}/qr: provisions the event's
// static check-in code and stores its URL on the event row.
func (h *Handler) BackfillQR(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	url, err := h.Service.BackfillQR(r.Context(), eventID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("BackfillQR: %v", err))
		http.Error(w, "Failed to provision event QR code", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"qrCodeUrl": url})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
