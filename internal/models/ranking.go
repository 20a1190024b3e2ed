package models

import "time"

// RankEntry is one row of the leaderboard. Rank 1 is the highest score;
// ranks are dense (1..N with no gaps) after every successful update or
// recalculation.
type RankEntry struct {
	UserID     string    `json:"user_id"`
	TotalScore int64     `json:"total_score"`
	Rank       int       `json:"rank"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Identity is the read-only user record resolved via the platform's users
// table. The ranking service never writes identity data.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// RankedUser is a RankEntry enriched with identity fields for display.
// DisplayName and Email stay empty when the identity lookup fails; the
// leaderboard is returned complete regardless.
type RankedUser struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	TotalScore  int64     `json:"total_score"`
	Rank        int       `json:"rank"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateScoreRequest is the body of PUT /rankings/{userId}/score.
type UpdateScoreRequest struct {
	Score *int64 `json:"score" validate:"required,gte=0"`
}

// ScoreEvent is the audit record emitted after a successful score update.
// Events are batch-inserted into ClickHouse by the audit worker pool.
type ScoreEvent struct {
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	OldScore     int64     `json:"old_score"`
	NewScore     int64     `json:"new_score"`
	OldRank      int       `json:"old_rank"`
	NewRank      int       `json:"new_rank"`
	Recalculated bool      `json:"recalculated"`
	Timestamp    time.Time `json:"timestamp"`
}

// ScoreHistoryPoint is one step of a user's score history as read back from
// the audit trail.
type ScoreHistoryPoint struct {
	Score     int64     `json:"score"`
	Rank      int       `json:"rank"`
	Timestamp time.Time `json:"timestamp"`
}
