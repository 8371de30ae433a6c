package identity_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-reservations/internal/identity"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

func setupResolver(t *testing.T) *identity.Resolver {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	if err := bunDB.ResetModel(context.Background(), (*models.User)(nil)); err != nil {
		t.Fatalf("Failed to create users table: %v", err)
	}

	return identity.NewResolver(&identity.DB{Bun: bunDB}, logger.NewLogger())
}

func TestResolveCreatesUserOnFirstSight(t *testing.T) {
	resolver := setupResolver(t)
	ctx := context.Background()

	user, err := resolver.Resolve(ctx, "auth0|abc123", "jamie@example.com", "Jamie Rivera")
	if err != nil {
		t.Fatalf("Failed to resolve new subject: %v", err)
	}

	if user.ID == "" {
		t.Error("Expected generated user id, got empty string")
	}
	if user.Email != "jamie@example.com" {
		t.Errorf("Expected email jamie@example.com, got %s", user.Email)
	}
	if user.DisplayName != "Jamie Rivera" {
		t.Errorf("Expected display name Jamie Rivera, got %s", user.DisplayName)
	}
}

func TestResolveIsStableAcrossRequests(t *testing.T) {
	resolver := setupResolver(t)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "auth0|abc123", "jamie@example.com", "Jamie Rivera")
	if err != nil {
		t.Fatalf("Failed to resolve subject: %v", err)
	}

	// Second request for the same subject returns the same row
	second, err := resolver.Resolve(ctx, "auth0|abc123", "jamie@example.com", "Jamie Rivera")
	if err != nil {
		t.Fatalf("Failed to resolve subject again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected same user id %s, got %s", first.ID, second.ID)
	}
}

func TestResolveRejectsEmptySubject(t *testing.T) {
	resolver := setupResolver(t)

	if _, err := resolver.Resolve(context.Background(), "", "jamie@example.com", "Jamie"); err == nil {
		t.Error("Expected error for empty subject, got nil")
	}
}

func TestUpdateProfile(t *testing.T) {
	resolver := setupResolver(t)
	ctx := context.Background()

	user, err := resolver.Resolve(ctx, "auth0|abc123", "jamie@example.com", "Jamie Rivera")
	if err != nil {
		t.Fatalf("Failed to resolve subject: %v", err)
	}

	updated, err := resolver.UpdateProfile(ctx, user.ID, models.ProfileUpdate{
		DisplayName: "DJ Jamie",
		Bio:         "Resident DJ",
		Phone:       "5551234567",
		AvatarURL:   "https://cdn.example.com/avatars/jamie.png",
	})
	if err != nil {
		t.Fatalf("Failed to update profile: %v", err)
	}

	if updated.DisplayName != "DJ Jamie" {
		t.Errorf("Expected display name DJ Jamie, got %s", updated.DisplayName)
	}
	if updated.Bio != "Resident DJ" {
		t.Errorf("Expected bio Resident DJ, got %s", updated.Bio)
	}
	if updated.Email != "jamie@example.com" {
		t.Errorf("Expected email untouched, got %s", updated.Email)
	}
}
