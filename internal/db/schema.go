package db

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables owned by this service. Safe to call on
// every startup - uses IF NOT EXISTS. The users table belongs to the account
// service and is only read here, so it is not created.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("ensure postgres schema: %w", err)
	}
	return nil
}

// EnsureAuditSchema creates the ClickHouse score_events table backing the
// audit trail. Skipped entirely when ClickHouse is not configured.
func EnsureAuditSchema(ctx context.Context, conn driver.Conn) error {
	if err := conn.Exec(ctx, `CREATE DATABASE IF NOT EXISTS quiz_stats`); err != nil {
		return fmt.Errorf("ensure clickhouse database: %w", err)
	}
	if err := conn.Exec(ctx, chSchema); err != nil {
		return fmt.Errorf("ensure clickhouse schema: %w", err)
	}
	return nil
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS user_rankings (
    user_id TEXT PRIMARY KEY,
    total_score BIGINT NOT NULL DEFAULT 0 CHECK (total_score >= 0),
    ranking INTEGER NOT NULL CHECK (ranking > 0),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_user_rankings_score
    ON user_rankings (total_score DESC, updated_at ASC);
`

const chSchema = `
CREATE TABLE IF NOT EXISTS quiz_stats.score_events (
    event_id String,
    user_id String,
    old_score Int64,
    new_score Int64,
    old_rank Int32,
    new_rank Int32,
    recalculated UInt8,
    timestamp DateTime64(3, 'UTC')
)
ENGINE = MergeTree()
PARTITION BY toYYYYMM(timestamp)
ORDER BY (user_id, timestamp)
`
