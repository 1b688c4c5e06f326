package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
	"inboxpilot/pkg/cache"
)

const processedKeyPrefix = "email:processed:"

// ProcessedStore mirrors classified emails into a per-user Redis hash for the
// dashboard's fast read path. Postgres stays the source of truth; every write
// refreshes the hash TTL so an idle user's mirror ages out.
type ProcessedStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

func NewProcessedStore(c *cache.RedisCache, ttl time.Duration) *ProcessedStore {
	return &ProcessedStore{cache: c, ttl: ttl}
}

func (s *ProcessedStore) Put(ctx context.Context, email *domain.ProcessedEmail) error {
	key := processedKeyPrefix + email.UserID.String()
	if err := s.cache.HSetJSON(ctx, key, email.GmailID, email, s.ttl); err != nil {
		return fmt.Errorf("mirror email %s: %w", email.GmailID, err)
	}
	return nil
}

func (s *ProcessedStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ProcessedEmail, error) {
	key := processedKeyPrefix + userID.String()

	var emails []domain.ProcessedEmail
	err := s.cache.HGetAllJSON(ctx, key, func(field string, data []byte) error {
		var email domain.ProcessedEmail
		if err := json.Unmarshal(data, &email); err != nil {
			return fmt.Errorf("decode mirrored email %s: %w", field, err)
		}
		emails = append(emails, email)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return emails, nil
}

var _ out.ProcessedStore = (*ProcessedStore)(nil)
