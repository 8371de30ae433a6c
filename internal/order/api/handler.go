package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-reservations/internal/identity"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/order"
)

type Handler struct {
	Service *order.Service
	Logger  *logger.Logger
}

func NewHandler(service *order.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// FinalizeOrder handles POST /api/orders/finalize.
func (h *Handler) FinalizeOrder(w http.ResponseWriter, r *http.Request) {
	var req models.FinalizeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.PaymentIntentID == "" || req.UserID == "" {
		http.Error(w, "paymentIntentId and userId are required", http.StatusBadRequest)
		return
	}

	// The caller can only finalize their own cart.
	if userID, ok := identity.UserIDFromContext(r.Context()); ok && userID != req.UserID {
		http.Error(w, "cannot finalize another user's order", http.StatusForbidden)
		return
	}

	orderID, err := h.Service.Finalize(r.Context(), req.PaymentIntentID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyCart):
			http.Error(w, "Your cart is empty", http.StatusBadRequest)
		case errors.Is(err, order.ErrPaymentNotSucceeded):
			http.Error(w, "Payment is not complete: "+err.Error(), http.StatusBadRequest)
		case errors.Is(err, order.ErrAmountMismatch):
			h.Logger.Error("API", fmt.Sprintf("FinalizeOrder: %v", err))
			http.Error(w, "Order total does not match the payment", http.StatusBadRequest)
		default:
			h.Logger.Error("API", fmt.Sprintf("FinalizeOrder: %v", err))
			http.Error(w, "Failed to finalize order", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, models.FinalizeOrderResponse{OrderID: orderID})
}

// GetOrder handles GET /api/orders/{orderId}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	result, err := h.Service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: %v", err))
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	if userID, ok := identity.UserIDFromContext(r.Context()); ok && userID != result.UserID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListOrders handles GET /api/orders for the authenticated user.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	orders, err := h.Service.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListOrders: %v", err))
		http.Error(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
