package logic

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/quizhub/ranking-api/internal/models"
)

type scoreHistoryService struct {
	ch driver.Conn
}

// NewScoreHistoryService builds the read side of the ClickHouse audit trail.
func NewScoreHistoryService(ch driver.Conn) ScoreHistoryService {
	return &scoreHistoryService{ch: ch}
}

// GetScoreHistory returns a user's score changes, most recent first.
func (s *scoreHistoryService) GetScoreHistory(ctx context.Context, userID string, limit int) ([]models.ScoreHistoryPoint, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.ch.Query(ctx, `
		SELECT new_score, new_rank, timestamp
		FROM quiz_stats.score_events
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("score history query: %w", err)
	}
	defer rows.Close()

	points := make([]models.ScoreHistoryPoint, 0)
	for rows.Next() {
		var p models.ScoreHistoryPoint
		var rank int32
		if err := rows.Scan(&p.Score, &rank, &p.Timestamp); err != nil {
			continue
		}
		p.Rank = int(rank)
		points = append(points, p)
	}
	return points, nil
}
