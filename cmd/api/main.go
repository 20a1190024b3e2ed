package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quizhub/ranking-api/internal/config"
	"github.com/quizhub/ranking-api/internal/db"
	"github.com/quizhub/ranking-api/internal/handlers"
	"github.com/quizhub/ranking-api/internal/logic"
	"github.com/quizhub/ranking-api/internal/store"
	"github.com/quizhub/ranking-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		sugar.Fatalw("Failed to create postgres pool", "error", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		sugar.Fatalw("Failed to ping postgres", "error", err)
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		sugar.Fatalw("Failed to ensure schema", "error", err)
	}

	// Redis (optional identity cache)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			sugar.Fatalw("Invalid redis URL", "error", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			sugar.Warnw("Redis unreachable, identity cache degraded", "error", err)
		}
	}

	// ClickHouse (optional audit trail)
	var chConn driver.Conn
	var auditPool *worker.Pool
	if cfg.ClickHouseURL != "" {
		chOpts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
		if err != nil {
			sugar.Fatalw("Invalid clickhouse URL", "error", err)
		}
		chConn, err = clickhouse.Open(chOpts)
		if err != nil {
			sugar.Fatalw("Failed to open clickhouse", "error", err)
		}
		if err := db.EnsureAuditSchema(ctx, chConn); err != nil {
			sugar.Warnw("Failed to ensure audit schema", "error", err)
		}

		auditPool = worker.NewPool(worker.PoolConfig{
			WorkerCount:   cfg.AuditWorkerCount,
			QueueSize:     cfg.AuditQueueSize,
			BatchSize:     cfg.AuditBatchSize,
			FlushInterval: cfg.AuditFlushInterval,
			ClickHouse:    chConn,
			Logger:        logger,
		})
		auditPool.Start(ctx)
		defer auditPool.Stop()
	}

	// Stores and services
	scoreStore := store.NewRankingStore(pool)
	identity := store.NewIdentityStore(pool, redisClient, cfg.IdentityCacheTTL, logger)

	var audit logic.AuditSink
	if auditPool != nil {
		audit = auditPool
	}
	ranking := logic.NewRankingService(scoreStore, identity, audit, logger)
	leaderboard := logic.NewLeaderboardService(scoreStore, identity, logger)

	var history logic.ScoreHistoryService
	if chConn != nil {
		history = logic.NewScoreHistoryService(chConn)
	}

	var auditQueue handlers.AuditQueue
	if auditPool != nil {
		auditQueue = auditPool
	}
	h := handlers.New(handlers.Config{
		Postgres:       pool,
		ClickHouse:     chConn,
		Redis:          redisClient,
		AuditQueue:     auditQueue,
		Logger:         logger,
		AdminTokenHash: cfg.AdminTokenHash,
		Ranking:        ranking,
		Leaderboard:    leaderboard,
		History:        history,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h.Router(cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infow("Ranking API listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Server shutdown failed", "error", err)
	}
}
