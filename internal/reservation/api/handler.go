package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-reservations/internal/auth"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/reservation"
)

type Handler struct {
	Service *reservation.Service
	Logger  *logger.Logger
}

func NewHandler(service *reservation.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req models.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateReservation: failed to decode request body: %v", err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.Service.IssueReservation(r.Context(), req)
	if err != nil {
		var ve *reservation.ValidationError
		if errors.As(err, &ve) {
			h.Logger.Warn("API", fmt.Sprintf("CreateReservation: validation failed: %v", ve))
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		h.Logger.Error("API", fmt.Sprintf("CreateReservation: %v", err))
		writeError(w, http.StatusInternalServerError, "Failed to create reservation")
		return
	}

	writeJSON(w, http.StatusOK, models.ReservationResponse{
		Success:       true,
		ReservationID: res.ID,
		QRCodeURL:     res.QRCodeURL,
		Data:          res,
	})
}

// GetReservation handles GET /api/reservations/{reservationId}.
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reservationId")

	res, err := h.Service.GetReservation(r.Context(), id)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetReservation: %v", err))
		writeError(w, http.StatusNotFound, "Reservation not found")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ListReservations handles GET /api/reservations?email=...
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	list, err := h.Service.ListReservationsByEmail(r.Context(), email)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListReservations: %v", err))
		writeError(w, http.StatusInternalServerError, "Failed to list reservations")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// CancelReservation handles DELETE /api/reservations/{reservationId}. Only the
// holder (matched on the authenticated email claim) may cancel.
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reservationId")

	res, err := h.Service.GetReservation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Reservation not found")
		return
	}

	if email := auth.EmailFromContext(r.Context()); email == "" || email != res.Email {
		h.Logger.Warn("API", fmt.Sprintf("CancelReservation: holder mismatch for %s", id))
		writeError(w, http.StatusForbidden, "Only the reservation holder can cancel")
		return
	}

	if err := h.Service.CancelReservation(r.Context(), id); err != nil {
		if errors.Is(err, reservation.ErrCancelled) {
			writeError(w, http.StatusConflict, "Reservation is already cancelled")
			return
		}
		h.Logger.Error("API", fmt.Sprintf("CancelReservation: %v", err))
		writeError(w, http.StatusInternalServerError, "Failed to cancel reservation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegenerateQR handles POST /api/reservations/{reservationId}/qr. It repairs
// reservations left without a code by a degraded provisioning attempt.
func (h *Handler) RegenerateQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reservationId")

	url, err := h.Service.RegenerateQR(r.Context(), id)
	if err != nil {
		if errors.Is(err, reservation.ErrCancelled) {
			writeError(w, http.StatusConflict, "Reservation is cancelled")
			return
		}
		h.Logger.Error("API", fmt.Sprintf("RegenerateQR: %v", err))
		writeError(w, http.StatusInternalServerError, "Failed to regenerate QR code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"qrCodeUrl": url})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
