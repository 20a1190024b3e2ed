package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quizhub/ranking-api/internal/models"
)

const identityCachePrefix = "identity:"

// IdentityStore resolves users from the platform's users table, with an
// optional Redis cache in front. Strictly read-only: account lifecycle is
// owned elsewhere.
type IdentityStore struct {
	pool     *pgxpool.Pool
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *zap.SugaredLogger
}

// NewIdentityStore builds the identity lookup. redisClient may be nil, in
// which case every lookup goes straight to Postgres.
func NewIdentityStore(pool *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *IdentityStore {
	return &IdentityStore{
		pool:     pool,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		logger:   logger.Sugar(),
	}
}

// Exists reports whether the identity exists. Always hits Postgres; the
// engine's correctness check must not trust a stale cache.
func (s *IdentityStore) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`,
		userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Lookup returns the identity, or nil when it cannot be resolved. Cache
// failures fall through to Postgres silently.
func (s *IdentityStore) Lookup(ctx context.Context, userID string) (*models.Identity, error) {
	if cached := s.fromCache(ctx, userID); cached != nil {
		return cached, nil
	}

	var identity models.Identity
	err := s.pool.QueryRow(ctx,
		`SELECT id, display_name, email FROM users WHERE id = $1`,
		userID).Scan(&identity.UserID, &identity.DisplayName, &identity.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	s.toCache(ctx, &identity)
	return &identity, nil
}

func (s *IdentityStore) fromCache(ctx context.Context, userID string) *models.Identity {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, identityCachePrefix+userID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warnw("Identity cache read failed", "user_id", userID, "error", err)
		}
		return nil
	}
	var identity models.Identity
	if err := json.Unmarshal([]byte(data), &identity); err != nil {
		return nil
	}
	return &identity
}

func (s *IdentityStore) toCache(ctx context.Context, identity *models.Identity) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, identityCachePrefix+identity.UserID, data, s.cacheTTL).Err(); err != nil {
		s.logger.Warnw("Identity cache write failed", "user_id", identity.UserID, "error", err)
	}
}
