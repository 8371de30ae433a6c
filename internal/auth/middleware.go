package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

type contextKey string

const (
	subjectKey contextKey = "auth_subject"
	emailKey   contextKey = "auth_email"
	nameKey    contextKey = "auth_name"
)

// Middleware verifies bearer tokens against the OIDC issuer and stashes the
// subject, email and name claims in the request context.
func Middleware(issuer string) func(http.Handler) http.Handler {
	if issuer == "" {
		panic("OIDC issuer not configured")
	}

	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		panic(fmt.Sprintf("Failed to create OIDC provider: %v", err))
	}

	// SkipClientIDCheck: tokens are issued for the public frontend client
	verifier := provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}
			rawToken := parts[1]

			idToken, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
				return
			}

			var claims struct {
				Sub   string `json:"sub"`
				Email string `json:"email"`
				Name  string `json:"name"`
			}
			if err := idToken.Claims(&claims); err != nil {
				http.Error(w, "failed to parse token claims", http.StatusUnauthorized)
				return
			}

			ctx := ContextWithClaims(r.Context(), claims.Sub, claims.Email, claims.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithClaims attaches verified identity claims to a context. Callers
// that authenticate out of band can use it in place of the middleware.
func ContextWithClaims(ctx context.Context, subject, email, name string) context.Context {
	ctx = context.WithValue(ctx, subjectKey, subject)
	ctx = context.WithValue(ctx, emailKey, email)
	return context.WithValue(ctx, nameKey, name)
}

// SubjectFromContext returns the verified external auth subject.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	return sub, ok && sub != ""
}

func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}

func NameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(nameKey).(string)
	return name
}
