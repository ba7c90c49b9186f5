package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/orderdesk/internal/chatbot"
	"github.com/wolfman30/orderdesk/internal/compliance"
	appconfig "github.com/wolfman30/orderdesk/internal/config"
	"github.com/wolfman30/orderdesk/internal/observability/metrics"
	"github.com/wolfman30/orderdesk/internal/orders"
	"github.com/wolfman30/orderdesk/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; transcripts disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to DATABASE_URL. It returns nil without error
// when no URL is configured.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// BuildOrderStore returns the Postgres order store, or an empty in-memory
// store when no pool is available (local development only).
func BuildOrderStore(pool *pgxpool.Pool, cfg *appconfig.Config, logger *logging.Logger) orders.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Warn("DATABASE_URL not set; using empty in-memory order store")
		return orders.NewMemoryStore()
	}
	return orders.NewPostgresStore(pool, cfg.OrdersQueryTimeout)
}

// BuildAuditService wires the audit trail on top of the pgx pool. The
// returned *sql.DB must be closed by the caller; both are nil when auditing
// is disabled or no pool exists.
func BuildAuditService(pool *pgxpool.Pool, cfg *appconfig.Config, logger *logging.Logger) (*compliance.AuditService, *sql.DB) {
	if cfg == nil || !cfg.AuditEnabled || pool == nil {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	sqlDB := stdlib.OpenDBFromPool(pool)
	logger.Info("chatbot audit trail enabled")
	return compliance.NewAuditService(sqlDB), sqlDB
}

// BuildEngine wires the chatbot engine with the configured formatters.
func BuildEngine(cfg *appconfig.Config, store orders.Store, m *metrics.ChatbotMetrics, logger *logging.Logger) *chatbot.Engine {
	composer := chatbot.NewComposer(
		chatbot.NewCurrencyFormatter(cfg.ChatbotCurrency),
		chatbot.NewDateFormatter(cfg.ChatbotDateLayout, cfg.Location()),
	)
	return chatbot.NewEngine(chatbot.EngineConfig{
		Store:            store,
		Composer:         composer,
		Logger:           logger,
		Metrics:          m,
		PaymentScanLimit: cfg.ChatbotPaymentScanLimit,
	})
}

// BuildTranscriptStore returns the Redis-backed transcript store, nil when
// Redis is unavailable.
func BuildTranscriptStore(redisClient *redis.Client, cfg *appconfig.Config) *chatbot.TranscriptStore {
	return chatbot.NewTranscriptStore(redisClient, cfg.TranscriptTTL, cfg.TranscriptMaxMessages)
}
