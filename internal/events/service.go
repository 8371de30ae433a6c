package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type DBLayer interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	ListUpcoming(ctx context.Context) ([]models.Event, error)
	ListFeatured(ctx context.Context) ([]models.Event, error)
	SetQRCodeURL(ctx context.Context, eventID, url string) error
}

type QRProvisioner interface {
	ProvisionEventQR(ctx context.Context, eventID string) (string, error)
}

// Service serves the read-mostly event catalog. Single-event reads go through
// a Redis cache; writes (QR backfill) invalidate it.
type Service struct {
	DB       DBLayer
	Cache    *redis.Client
	QR       QRProvisioner
	CacheTTL time.Duration
	Logger   *logger.Logger
}

func NewService(db DBLayer, cache *redis.Client, qr QRProvisioner, cacheTTL time.Duration, log *logger.Logger) *Service {
	return &Service{DB: db, Cache: cache, QR: qr, CacheTTL: cacheTTL, Logger: log}
}

func cacheKey(eventID string) string {
	return "event:" + eventID
}

func (s *Service) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx, cacheKey(id)).Result()
		if err == nil {
			var event models.Event
			if err := json.Unmarshal([]byte(cached), &event); err == nil {
				return &event, nil
			}
			// Bad cache entry, fall through to the database.
			s.Cache.Del(ctx, cacheKey(id))
		} else if err != redis.Nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("event cache read failed: %v", err))
		}
	}

	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("event %s not found: %w", id, err)
	}

	if s.Cache != nil {
		if data, err := json.Marshal(event); err == nil {
			if err := s.Cache.Set(ctx, cacheKey(id), data, s.CacheTTL).Err(); err != nil {
				s.Logger.Warn("CACHE", fmt.Sprintf("event cache write failed: %v", err))
			}
		}
	}

	return event, nil
}

func (s *Service) ListUpcoming(ctx context.Context) ([]models.Event, error) {
	return s.DB.ListUpcoming(ctx)
}

func (s *Service) ListFeatured(ctx context.Context) ([]models.Event, error) {
	return s.DB.ListFeatured(ctx)
}

// BackfillQR provisions the event's static check-in code, stores its URL on
// the event row and invalidates the cache. Safe to call repeatedly: the
// upload overwrites in place and returns the same URL.
func (s *Service) BackfillQR(ctx context.Context, eventID string) (string, error) {
	if _, err := s.DB.GetEventByID(ctx, eventID); err != nil {
		return "", fmt.Errorf("event %s not found: %w", eventID, err)
	}

	url, err := s.QR.ProvisionEventQR(ctx, eventID)
	if err != nil {
		return "", fmt.Errorf("failed to provision event QR: %w", err)
	}

	if err := s.DB.SetQRCodeURL(ctx, eventID, url); err != nil {
		return "", fmt.Errorf("failed to store event QR URL: %w", err)
	}

	if s.Cache != nil {
		s.Cache.Del(ctx, cacheKey(eventID))
	}

	s.Logger.Info("EVENTS", fmt.Sprintf("backfilled QR for event %s", eventID))
	return url, nil
}
