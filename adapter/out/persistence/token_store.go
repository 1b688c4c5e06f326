package persistence

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
	"inboxpilot/pkg/cache"
)

const tokenKeyPrefix = "user:token:"

// TokenStore keeps per-user OAuth tokens in Redis. Tokens are written at
// connect time and refreshed in place by the provider adapter; no TTL, the
// refresh token stays valid until the user revokes access.
type TokenStore struct {
	cache *cache.RedisCache
}

func NewTokenStore(c *cache.RedisCache) *TokenStore {
	return &TokenStore{cache: c}
}

func (s *TokenStore) TokenForUser(ctx context.Context, userID string) (*oauth2.Token, error) {
	var token oauth2.Token
	found, err := s.cache.GetJSON(ctx, tokenKeyPrefix+userID, &token)
	if err != nil {
		return nil, fmt.Errorf("load token for user %s: %w", userID, err)
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return &token, nil
}

func (s *TokenStore) SaveToken(ctx context.Context, userID string, token *oauth2.Token) error {
	return s.cache.SetJSON(ctx, tokenKeyPrefix+userID, token, 0)
}

var _ out.TokenStore = (*TokenStore)(nil)
