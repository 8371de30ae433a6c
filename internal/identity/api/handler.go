package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-reservations/internal/identity"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type Handler struct {
	Resolver *identity.Resolver
	Logger   *logger.Logger
}

func NewHandler(resolver *identity.Resolver, log *logger.Logger) *Handler {
	return &Handler{Resolver: resolver, Logger: log}
}

// GetProfile handles GET /api/me.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	user, err := h.Resolver.DB.GetUserByID(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetProfile: %v", err))
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/me.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var update models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Resolver.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateProfile: %v", err))
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
