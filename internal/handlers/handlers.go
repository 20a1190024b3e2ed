package handlers

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quizhub/ranking-api/internal/logic"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// AuditQueue exposes the audit worker pool state for readiness reporting
type AuditQueue interface {
	QueueDepth() int
}

type Config struct {
	Postgres   *pgxpool.Pool
	ClickHouse driver.Conn
	Redis      *redis.Client
	AuditQueue AuditQueue
	Logger     *zap.Logger
	// Admin token, stored hashed
	AdminTokenHash string
	// Services
	Ranking     logic.RankingService
	Leaderboard logic.LeaderboardService
	History     logic.ScoreHistoryService
}

type Handler struct {
	pg             *pgxpool.Pool
	ch             driver.Conn
	redis          *redis.Client
	auditQueue     AuditQueue
	logger         *zap.SugaredLogger
	validator      *validator.Validate
	adminTokenHash string
	ranking        logic.RankingService
	leaderboard    logic.LeaderboardService
	history        logic.ScoreHistoryService
}

func New(cfg Config) *Handler {
	return &Handler{
		pg:             cfg.Postgres,
		ch:             cfg.ClickHouse,
		redis:          cfg.Redis,
		auditQueue:     cfg.AuditQueue,
		logger:         cfg.Logger.Sugar(),
		validator:      validator.New(),
		adminTokenHash: cfg.AdminTokenHash,
		ranking:        cfg.Ranking,
		leaderboard:    cfg.Leaderboard,
		history:        cfg.History,
	}
}
