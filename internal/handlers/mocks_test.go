package handlers

import (
	"context"

	"github.com/quizhub/ranking-api/internal/models"
)

// MockRankingService
type MockRankingService struct {
	UpdateUserScoreFunc        func(ctx context.Context, userID string, newScore int64) (*models.RankEntry, error)
	RecalculateAllRankingsFunc func(ctx context.Context) error
}

func (m *MockRankingService) UpdateUserScore(ctx context.Context, userID string, newScore int64) (*models.RankEntry, error) {
	if m.UpdateUserScoreFunc != nil {
		return m.UpdateUserScoreFunc(ctx, userID, newScore)
	}
	return &models.RankEntry{UserID: userID, TotalScore: newScore, Rank: 1}, nil
}

func (m *MockRankingService) RecalculateAllRankings(ctx context.Context) error {
	if m.RecalculateAllRankingsFunc != nil {
		return m.RecalculateAllRankingsFunc(ctx)
	}
	return nil
}

// MockLeaderboardService
type MockLeaderboardService struct {
	GetUserRankingFunc func(ctx context.Context, userID string) (*models.RankedUser, error)
	GetAllRankingsFunc func(ctx context.Context) ([]models.RankedUser, error)
	GetTopRankingsFunc func(ctx context.Context, limit int) ([]models.RankedUser, error)
}

func (m *MockLeaderboardService) GetUserRanking(ctx context.Context, userID string) (*models.RankedUser, error) {
	if m.GetUserRankingFunc != nil {
		return m.GetUserRankingFunc(ctx, userID)
	}
	return &models.RankedUser{UserID: userID, Rank: 1}, nil
}

func (m *MockLeaderboardService) GetAllRankings(ctx context.Context) ([]models.RankedUser, error) {
	if m.GetAllRankingsFunc != nil {
		return m.GetAllRankingsFunc(ctx)
	}
	return []models.RankedUser{}, nil
}

func (m *MockLeaderboardService) GetTopRankings(ctx context.Context, limit int) ([]models.RankedUser, error) {
	if m.GetTopRankingsFunc != nil {
		return m.GetTopRankingsFunc(ctx, limit)
	}
	return []models.RankedUser{}, nil
}

// MockScoreHistoryService
type MockScoreHistoryService struct {
	GetScoreHistoryFunc func(ctx context.Context, userID string, limit int) ([]models.ScoreHistoryPoint, error)
}

func (m *MockScoreHistoryService) GetScoreHistory(ctx context.Context, userID string, limit int) ([]models.ScoreHistoryPoint, error) {
	if m.GetScoreHistoryFunc != nil {
		return m.GetScoreHistoryFunc(ctx, userID, limit)
	}
	return []models.ScoreHistoryPoint{}, nil
}
