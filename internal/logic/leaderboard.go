package logic

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quizhub/ranking-api/internal/models"
)

// enrichConcurrency caps parallel identity lookups per request.
const enrichConcurrency = 8

type leaderboardService struct {
	store    ScoreStore
	identity IdentityLookup
	logger   *zap.SugaredLogger
}

// NewLeaderboardService builds the read-side query service.
func NewLeaderboardService(store ScoreStore, identity IdentityLookup, logger *zap.Logger) LeaderboardService {
	return &leaderboardService{
		store:    store,
		identity: identity,
		logger:   logger.Sugar(),
	}
}

// GetUserRanking returns one user's entry enriched with identity data.
func (s *leaderboardService) GetUserRanking(ctx context.Context, userID string) (*models.RankedUser, error) {
	exists, err := s.identity.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("verify identity %q: %w", userID, err)
	}
	if !exists {
		return nil, fmt.Errorf("get ranking for %q: %w", userID, ErrUserNotFound)
	}

	entry, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load entry for %q: %w", userID, err)
	}
	if entry == nil {
		return nil, fmt.Errorf("get ranking for %q: %w", userID, ErrRankingNotFound)
	}

	users := []models.RankedUser{toRankedUser(entry)}
	s.enrichAll(ctx, users)
	return &users[0], nil
}

// GetAllRankings returns the full leaderboard, descending by score.
// Enrichment is best effort: entries whose identity cannot be resolved are
// still returned with empty display fields.
func (s *leaderboardService) GetAllRankings(ctx context.Context) ([]models.RankedUser, error) {
	entries, err := s.store.LoadAllOrderedByScoreDesc(ctx)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	users := make([]models.RankedUser, 0, len(entries))
	for i := range entries {
		users = append(users, toRankedUser(&entries[i]))
	}
	s.enrichAll(ctx, users)
	return users, nil
}

// GetTopRankings returns the first limit entries of the full ordered list.
// limit <= 0 yields an empty list; a limit beyond the table size yields the
// whole table. Only the returned window is enriched.
func (s *leaderboardService) GetTopRankings(ctx context.Context, limit int) ([]models.RankedUser, error) {
	if limit <= 0 {
		return []models.RankedUser{}, nil
	}

	entries, err := s.store.LoadAllOrderedByScoreDesc(ctx)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	if limit > len(entries) {
		limit = len(entries)
	}

	users := make([]models.RankedUser, 0, limit)
	for i := 0; i < limit; i++ {
		users = append(users, toRankedUser(&entries[i]))
	}
	s.enrichAll(ctx, users)
	return users, nil
}

// enrichAll fills identity fields in place, looking up users in parallel.
// Failed lookups leave the fields empty rather than dropping the entry.
func (s *leaderboardService) enrichAll(ctx context.Context, users []models.RankedUser) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for i := range users {
		i := i
		g.Go(func() error {
			identity, err := s.identity.Lookup(gctx, users[i].UserID)
			if err != nil {
				s.logger.Warnw("Identity lookup failed", "user_id", users[i].UserID, "error", err)
				return nil
			}
			if identity != nil {
				users[i].DisplayName = identity.DisplayName
				users[i].Email = identity.Email
			}
			return nil
		})
	}
	// Lookups never return errors, so Wait is only a join point.
	_ = g.Wait()
}

func toRankedUser(entry *models.RankEntry) models.RankedUser {
	return models.RankedUser{
		UserID:     entry.UserID,
		TotalScore: entry.TotalScore,
		Rank:       entry.Rank,
		UpdatedAt:  entry.UpdatedAt,
	}
}
