package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/quizhub/ranking-api/internal/models"
)

// Prometheus metrics
var (
	scoreUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizhub_score_updates_total",
		Help: "Total number of score updates applied",
	})

	recalculations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizhub_rank_recalculations_total",
		Help: "Total number of full rank recalculations",
	})

	recalcDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quizhub_rank_recalculation_duration_seconds",
		Help:    "Duration of full rank recalculations",
		Buckets: prometheus.DefBuckets,
	})

	auditDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizhub_audit_events_dropped_total",
		Help: "Total number of audit events dropped because the queue was full",
	})
)

type rankingService struct {
	store    ScoreStore
	identity IdentityLookup
	audit    AuditSink
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// NewRankingService builds the write-side ranking engine. audit may be nil
// when the ClickHouse trail is disabled.
func NewRankingService(store ScoreStore, identity IdentityLookup, audit AuditSink, logger *zap.Logger) RankingService {
	return &rankingService{
		store:    store,
		identity: identity,
		audit:    audit,
		logger:   logger.Sugar(),
		now:      time.Now,
	}
}

// UpdateUserScore sets the user's cumulative score and keeps the global
// ranking dense. The candidate rank is computed from a point-in-time count of
// strictly higher scores; whenever that candidate differs from the stored
// rank (or a new entry lands anywhere but last place) the whole table is
// re-ranked inside the same transaction, because a single local write leaves
// other entries' stored ranks stale.
func (s *rankingService) UpdateUserScore(ctx context.Context, userID string, newScore int64) (*models.RankEntry, error) {
	exists, err := s.identity.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("verify identity %q: %w", userID, err)
	}
	if !exists {
		return nil, fmt.Errorf("update score for %q: %w", userID, ErrUserNotFound)
	}

	var (
		result       *models.RankEntry
		prev         *models.RankEntry
		recalculated bool
	)

	err = s.store.WithTx(ctx, func(tx RankingStore) error {
		var txErr error
		prev, txErr = tx.Get(ctx, userID)
		if txErr != nil {
			return fmt.Errorf("load entry: %w", txErr)
		}

		higher, txErr := tx.CountScoreGreaterThan(ctx, newScore, userID)
		if txErr != nil {
			return fmt.Errorf("count higher scores: %w", txErr)
		}
		candidate := higher + 1

		entry := &models.RankEntry{
			UserID:     userID,
			TotalScore: newScore,
			Rank:       candidate,
			UpdatedAt:  s.now().UTC(),
		}
		if txErr = tx.Upsert(ctx, entry); txErr != nil {
			return fmt.Errorf("upsert entry: %w", txErr)
		}

		needRecalc, txErr := s.rankChanged(ctx, tx, prev, candidate)
		if txErr != nil {
			return txErr
		}
		if needRecalc {
			if txErr = s.recalculate(ctx, tx); txErr != nil {
				return txErr
			}
			recalculated = true
			// Re-read so the caller observes the final, consistent rank.
			entry, txErr = tx.Get(ctx, userID)
			if txErr != nil {
				return fmt.Errorf("reload entry: %w", txErr)
			}
		}

		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	scoreUpdates.Inc()
	s.emitAudit(prev, result, recalculated)
	return result, nil
}

// rankChanged decides whether the local write invalidated other entries'
// stored ranks. For an existing entry that is any change of rank; for a new
// entry, landing anywhere but dead last means every entry at or below the
// new score shifted down by one.
func (s *rankingService) rankChanged(ctx context.Context, tx RankingStore, prev *models.RankEntry, candidate int) (bool, error) {
	if prev != nil {
		return candidate != prev.Rank, nil
	}
	total, err := tx.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count entries: %w", err)
	}
	// total already includes the freshly inserted entry.
	return candidate != total, nil
}

// RecalculateAllRankings rewrites every entry's rank from a fresh sort of
// current scores: total_score descending, updated_at ascending on ties.
// Idempotent, and safe to invoke as a maintenance operation.
func (s *rankingService) RecalculateAllRankings(ctx context.Context) error {
	return s.store.WithTx(ctx, func(tx RankingStore) error {
		return s.recalculate(ctx, tx)
	})
}

func (s *rankingService) recalculate(ctx context.Context, tx RankingStore) error {
	start := time.Now()

	entries, err := tx.LoadAllOrderedByScoreDesc(ctx)
	if err != nil {
		return fmt.Errorf("load rankings: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	if err := tx.SaveBatch(ctx, entries); err != nil {
		return fmt.Errorf("save rankings: %w", err)
	}

	recalculations.Inc()
	recalcDuration.Observe(time.Since(start).Seconds())
	s.logger.Infow("Recalculated rankings", "entries", len(entries), "duration", time.Since(start))
	return nil
}

// emitAudit pushes a score-change event to the audit sink. Best effort only;
// a full queue or disabled sink never fails the update.
func (s *rankingService) emitAudit(prev, final *models.RankEntry, recalculated bool) {
	if s.audit == nil || final == nil {
		return
	}
	event := &models.ScoreEvent{
		EventID:      uuid.New().String(),
		UserID:       final.UserID,
		NewScore:     final.TotalScore,
		NewRank:      final.Rank,
		Recalculated: recalculated,
		Timestamp:    final.UpdatedAt,
	}
	if prev != nil {
		event.OldScore = prev.TotalScore
		event.OldRank = prev.Rank
	}
	if !s.audit.Enqueue(event) {
		auditDropped.Inc()
		s.logger.Warnw("Audit queue full, dropping score event", "user_id", final.UserID)
	}
}
