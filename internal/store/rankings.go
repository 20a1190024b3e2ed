package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizhub/ranking-api/internal/logic"
	"github.com/quizhub/ranking-api/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same store
// code serves direct reads and transactional writes.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// RankingStore is the Postgres-backed score store. One row per user in
// user_rankings; a unique constraint on user_id prevents duplicates.
type RankingStore struct {
	db   querier
	pool *pgxpool.Pool
}

// NewRankingStore builds the score store on a pgx connection pool.
func NewRankingStore(pool *pgxpool.Pool) *RankingStore {
	return &RankingStore{db: pool, pool: pool}
}

// WithTx runs fn against a store bound to a single transaction. fn returning
// an error rolls everything back, so concurrent readers only ever observe
// the pre- or post-transaction snapshot of the rank table.
func (s *RankingStore) WithTx(ctx context.Context, fn func(tx logic.RankingStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&RankingStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Get returns the entry for userID, or nil when the user has none.
func (s *RankingStore) Get(ctx context.Context, userID string) (*models.RankEntry, error) {
	var entry models.RankEntry
	err := s.db.QueryRow(ctx, `
		SELECT user_id, total_score, ranking, updated_at
		FROM user_rankings
		WHERE user_id = $1
	`, userID).Scan(&entry.UserID, &entry.TotalScore, &entry.Rank, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// CountScoreGreaterThan counts entries scoring strictly above score,
// excluding excludeUserID.
func (s *RankingStore) CountScoreGreaterThan(ctx context.Context, score int64, excludeUserID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_rankings
		WHERE total_score > $1 AND user_id <> $2
	`, score, excludeUserID).Scan(&count)
	return count, err
}

// Count returns the total number of ranked users.
func (s *RankingStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_rankings`).Scan(&count)
	return count, err
}

// Upsert inserts or replaces the entry keyed on user_id.
func (s *RankingStore) Upsert(ctx context.Context, entry *models.RankEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_rankings (user_id, total_score, ranking, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET
			total_score = EXCLUDED.total_score,
			ranking = EXCLUDED.ranking,
			updated_at = EXCLUDED.updated_at
	`, entry.UserID, entry.TotalScore, entry.Rank, entry.UpdatedAt)
	return err
}

// LoadAllOrderedByScoreDesc returns every entry, highest score first, ties
// broken by updated_at ascending so the earlier-achieved score ranks better.
func (s *RankingStore) LoadAllOrderedByScoreDesc(ctx context.Context) ([]models.RankEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, total_score, ranking, updated_at
		FROM user_rankings
		ORDER BY total_score DESC, updated_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.RankEntry
	for rows.Next() {
		var entry models.RankEntry
		if err := rows.Scan(&entry.UserID, &entry.TotalScore, &entry.Rank, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SaveBatch writes the rank values of all entries in one round trip.
func (s *RankingStore) SaveBatch(ctx context.Context, entries []models.RankEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range entries {
		batch.Queue(
			`UPDATE user_rankings SET ranking = $1 WHERE user_id = $2`,
			entries[i].Rank, entries[i].UserID,
		)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch rank update: %w", err)
		}
	}
	return nil
}
