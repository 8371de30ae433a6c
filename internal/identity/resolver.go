package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ms-reservations/internal/auth"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type DBLayer interface {
	GetUserBySubject(ctx context.Context, subject string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) error
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) error
}

// Resolver maps an external auth identity to an internal user record, creating
// one lazily on first sight.
type Resolver struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewResolver(db DBLayer, log *logger.Logger) *Resolver {
	return &Resolver{DB: db, Logger: log}
}

// Resolve returns the internal user for an external subject, creating the row
// on first authenticated request. A concurrent first request can lose the
// insert race; the follow-up lookup makes that case converge on one row.
func (r *Resolver) Resolve(ctx context.Context, subject, email, name string) (*models.User, error) {
	if subject == "" {
		return nil, fmt.Errorf("empty auth subject")
	}

	user, err := r.DB.GetUserBySubject(ctx, subject)
	if err == nil && user != nil {
		return user, nil
	}

	now := time.Now()
	newUser := models.User{
		ID:          uuid.NewString(),
		AuthSubject: subject,
		Email:       email,
		DisplayName: name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.DB.CreateUser(ctx, newUser); err != nil {
		// Unique constraint on auth_subject: another request created the row first.
		if existing, lookupErr := r.DB.GetUserBySubject(ctx, subject); lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create user for subject %s: %w", subject, err)
	}

	r.Logger.Info("IDENTITY", fmt.Sprintf("created user %s for new auth subject", newUser.ID))
	return &newUser, nil
}

// UpdateProfile mutates the user's profile fields.
func (r *Resolver) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, error) {
	if err := r.DB.UpdateProfile(ctx, userID, update); err != nil {
		return nil, fmt.Errorf("failed to update profile for user %s: %w", userID, err)
	}
	return r.DB.GetUserByID(ctx, userID)
}

type userContextKey string

const userIDKey userContextKey = "user_id"

// Middleware resolves the authenticated subject to an internal user id and
// stores it in the request context. Must run after the OIDC middleware.
func (r *Resolver) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			subject, ok := auth.SubjectFromContext(req.Context())
			if !ok {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}

			user, err := r.Resolve(req.Context(), subject, auth.EmailFromContext(req.Context()), auth.NameFromContext(req.Context()))
			if err != nil {
				r.Logger.Error("IDENTITY", fmt.Sprintf("failed to resolve user: %v", err))
				http.Error(w, "failed to resolve user", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(req.Context(), userIDKey, user.ID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the resolved internal user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
