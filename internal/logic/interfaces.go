package logic

import (
	"context"

	"github.com/quizhub/ranking-api/internal/models"
)

// RankingStore is the data access surface of the score store. It exposes
// exactly the operations the engine uses; there is no generic CRUD layer.
type RankingStore interface {
	// Get returns the entry for userID, or nil when the user has no entry.
	Get(ctx context.Context, userID string) (*models.RankEntry, error)

	// CountScoreGreaterThan counts entries with a strictly higher score,
	// excluding userID itself.
	CountScoreGreaterThan(ctx context.Context, score int64, excludeUserID string) (int, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int, error)

	// Upsert writes the entry, inserting or replacing on user_id.
	Upsert(ctx context.Context, entry *models.RankEntry) error

	// LoadAllOrderedByScoreDesc returns every entry ordered by total_score
	// descending, ties broken by updated_at ascending.
	LoadAllOrderedByScoreDesc(ctx context.Context) ([]models.RankEntry, error)

	// SaveBatch persists the rank values of all given entries.
	SaveBatch(ctx context.Context, entries []models.RankEntry) error
}

// TxRunner runs fn inside a single storage transaction. The transaction
// commits when fn returns nil and rolls back otherwise, so a failed update
// or recalculation leaves no partial rank table behind.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx RankingStore) error) error
}

// ScoreStore combines the transactional boundary with direct read access
// for the query side.
type ScoreStore interface {
	RankingStore
	TxRunner
}

// IdentityLookup resolves user identity data. Read-only from this service's
// perspective.
type IdentityLookup interface {
	// Exists reports whether the identity exists at all.
	Exists(ctx context.Context, userID string) (bool, error)

	// Lookup returns the identity, or nil when it cannot be resolved.
	Lookup(ctx context.Context, userID string) (*models.Identity, error)
}

// RankingService is the write side: score updates and full recalculation.
type RankingService interface {
	UpdateUserScore(ctx context.Context, userID string, newScore int64) (*models.RankEntry, error)
	RecalculateAllRankings(ctx context.Context) error
}

// LeaderboardService is the read side built on the score store.
type LeaderboardService interface {
	GetUserRanking(ctx context.Context, userID string) (*models.RankedUser, error)
	GetAllRankings(ctx context.Context) ([]models.RankedUser, error)
	GetTopRankings(ctx context.Context, limit int) ([]models.RankedUser, error)
}

// ScoreHistoryService reads a user's score-change trail from the audit
// store.
type ScoreHistoryService interface {
	GetScoreHistory(ctx context.Context, userID string, limit int) ([]models.ScoreHistoryPoint, error)
}

// AuditSink receives score-change events for the ClickHouse audit trail.
// Implementations must never block the caller; a full queue drops the event.
type AuditSink interface {
	Enqueue(event *models.ScoreEvent) bool
}
