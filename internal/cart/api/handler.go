package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-reservations/internal/auth"
	"ms-reservations/internal/cart"
	"ms-reservations/internal/identity"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type Handler struct {
	Service *cart.Service
	Logger  *logger.Logger
}

func NewHandler(service *cart.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// ---------------- AUTHENTICATED CART ----------------

func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	items, err := h.Service.List(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListCart: %v", err))
		http.Error(w, "Failed to load cart", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var input models.CartItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.Service.Add(r.Context(), userID, input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	itemID := chi.URLParam(r, "itemId")

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.UpdateQuantity(r.Context(), userID, itemID, body.Quantity); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateCartItem: %v", err))
		http.Error(w, "Failed to update cart item", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	itemID := chi.URLParam(r, "itemId")

	if err := h.Service.Remove(r.Context(), userID, itemID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("RemoveCartItem: %v", err))
		http.Error(w, "Failed to remove cart item", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MergeCart folds the caller's guest cart into their account cart after login.
func (h *Handler) MergeCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var body struct {
		GuestID string `json:"guest_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.GuestID == "" {
		http.Error(w, "guest_id is required", http.StatusBadRequest)
		return
	}

	if err := h.Service.MergeGuestCart(r.Context(), body.GuestID, userID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("MergeCart: %v", err))
		http.Error(w, "Failed to merge guest cart", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- GUEST CART ----------------

func (h *Handler) ListGuestCart(w http.ResponseWriter, r *http.Request) {
	guestID, ok := auth.GuestIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing guest session", http.StatusUnauthorized)
		return
	}

	items, err := h.Service.ListGuest(r.Context(), guestID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListGuestCart: %v", err))
		http.Error(w, "Failed to load cart", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) AddToGuestCart(w http.ResponseWriter, r *http.Request) {
	guestID, ok := auth.GuestIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing guest session", http.StatusUnauthorized)
		return
	}

	var input models.CartItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.Service.AddGuest(r.Context(), guestID, input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) RemoveGuestCartItem(w http.ResponseWriter, r *http.Request) {
	guestID, ok := auth.GuestIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing guest session", http.StatusUnauthorized)
		return
	}
	itemID := chi.URLParam(r, "itemId")

	if err := h.Service.RemoveGuest(r.Context(), guestID, itemID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("RemoveGuestCartItem: %v", err))
		http.Error(w, "Failed to remove cart item", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
