package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const guestIDKey contextKey = "guest_id"

var ErrInvalidGuestToken = errors.New("invalid guest token")

// GuestSession identifies an anonymous cart holder.
type GuestSession struct {
	GuestID   string    `json:"guest_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewGuestSession issues a fresh guest id and a signed 24h token for it.
func NewGuestSession(secret string) (*GuestSession, error) {
	guestID := "guest_" + randomHex(16)
	expiresAt := time.Now().Add(24 * time.Hour)

	claims := jwt.MapClaims{
		"guest_id": guestID,
		"role":     "guest",
		"exp":      expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign guest token: %w", err)
	}

	return &GuestSession{
		GuestID:   guestID,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyGuestToken parses and validates a guest token and returns the guest id.
func VerifyGuestToken(secret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidGuestToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidGuestToken
	}
	guestID, _ := claims["guest_id"].(string)
	if guestID == "" {
		return "", ErrInvalidGuestToken
	}
	return guestID, nil
}

// GuestMiddleware authenticates requests carrying a guest session token.
func GuestMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "missing guest token", http.StatusUnauthorized)
				return
			}

			guestID, err := VerifyGuestToken(secret, parts[1])
			if err != nil {
				http.Error(w, "invalid guest token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), guestIDKey, guestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GuestIDFromContext returns the verified guest session id.
func GuestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(guestIDKey).(string)
	return id, ok && id != ""
}

func randomHex(n int) string {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "rand_guest"
	}
	return hex.EncodeToString(bytes)
}
