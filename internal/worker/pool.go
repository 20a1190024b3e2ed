// Package worker implements the buffered worker pool backing the score-change
// audit trail. It decouples score updates from ClickHouse writes, providing:
// - Non-blocking enqueue with load shedding
// - Batch inserts for efficient ClickHouse writes
// - Graceful shutdown with flush guarantees
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/quizhub/ranking-api/internal/models"
)

// Prometheus metrics
var (
	eventsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizhub_audit_events_enqueued_total",
		Help: "Total number of audit events accepted into the queue",
	})

	eventsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizhub_audit_events_written_total",
		Help: "Total number of audit events written to ClickHouse",
	})

	eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizhub_audit_events_failed_total",
		Help: "Total number of audit events that failed to write",
	})

	eventsLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizhub_audit_events_load_shed_total",
		Help: "Total number of audit events dropped because the queue was full",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quizhub_audit_queue_depth",
		Help: "Current depth of the audit queue",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quizhub_audit_batch_insert_duration_seconds",
		Help:    "Duration of batch inserts to ClickHouse",
		Buckets: prometheus.DefBuckets,
	})
)

// PoolConfig configures the audit worker pool
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	ClickHouse    driver.Conn
	Logger        *zap.Logger
}

// Pool manages the workers draining score events into ClickHouse
type Pool struct {
	config   PoolConfig
	jobQueue chan *models.ScoreEvent
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
}

// NewPool creates a new audit worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan *models.ScoreEvent, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Audit worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop gracefully shuts down the pool, flushing buffered events first
func (p *Pool) Stop() {
	p.logger.Info("Stopping audit worker pool...")
	p.cancel()
	close(p.jobQueue)
	p.wg.Wait()
	p.logger.Info("Audit worker pool stopped")
}

// Enqueue adds an event to the queue without blocking. Returns false when
// the queue is full or the pool has stopped; the event is dropped in both
// cases because the audit trail is best effort.
func (p *Pool) Enqueue(event *models.ScoreEvent) bool {
	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue audit event (pool stopped)", "error", r)
		}
	}()

	select {
	case p.jobQueue <- event:
		eventsEnqueued.Inc()
		return true
	default:
		eventsLoadShed.Inc()
		return false
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// worker drains the queue in batches
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]*models.ScoreEvent, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		if err := p.writeBatch(batch); err != nil {
			p.logger.Errorw("Audit batch insert failed",
				"worker", id,
				"batchSize", len(batch),
				"error", err,
			)
			eventsFailed.Add(float64(len(batch)))
		} else {
			eventsWritten.Add(float64(len(batch)))
		}
		batchInsertDuration.Observe(time.Since(start).Seconds())

		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-p.ctx.Done():
			// Drain whatever is already queued, then flush and exit.
			for {
				select {
				case event, ok := <-p.jobQueue:
					if !ok {
						flush()
						return
					}
					batch = append(batch, event)
					if len(batch) >= p.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// writeBatch inserts a batch of score events into ClickHouse
func (p *Pool) writeBatch(batch []*models.ScoreEvent) error {
	ctx := context.Background()

	chBatch, err := p.config.ClickHouse.PrepareBatch(ctx, `
		INSERT INTO quiz_stats.score_events (
			event_id, user_id, old_score, new_score,
			old_rank, new_rank, recalculated, timestamp
		)
	`)
	if err != nil {
		return err
	}

	for _, event := range batch {
		recalculated := uint8(0)
		if event.Recalculated {
			recalculated = 1
		}
		if err := chBatch.Append(
			event.EventID,
			event.UserID,
			event.OldScore,
			event.NewScore,
			int32(event.OldRank),
			int32(event.NewRank),
			recalculated,
			event.Timestamp,
		); err != nil {
			p.logger.Warnw("Failed to append audit event to batch", "error", err, "user_id", event.UserID)
			continue
		}
	}

	return chBatch.Send()
}

// reportQueueDepth updates the queue depth gauge periodically
func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
