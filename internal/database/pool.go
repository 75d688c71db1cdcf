package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/myorg/tempo/internal/config"
)

// Pool is the connection pool behind a TraceStore.
type Pool struct {
	pool *pgxpool.Pool
	host string
}

// PoolConfig holds pool-specific settings.
type PoolConfig struct {
	MaxConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	// ApplicationName is reported to the server as application_name.
	ApplicationName string
}

// DefaultPoolConfig returns the pool settings used for trace storage. A run
// writes from a single goroutine, so a handful of connections is enough.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:          4,
		MaxConnLifetime:   30 * time.Minute,
		MaxConnIdleTime:   time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ApplicationName:   "tempo",
	}
}

// NewPool creates a connection pool with the default settings. Connections
// are opened lazily.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	return NewPoolWithConfig(ctx, cfg, DefaultPoolConfig())
}

// NewPoolWithConfig creates a connection pool with custom pool settings.
func NewPoolWithConfig(ctx context.Context, cfg *config.DatabaseConfig, poolCfg PoolConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	pc.MaxConns = poolCfg.MaxConns
	pc.MaxConnLifetime = poolCfg.MaxConnLifetime
	pc.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	pc.HealthCheckPeriod = poolCfg.HealthCheckPeriod
	if poolCfg.ApplicationName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = poolCfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	return &Pool{pool: pool, host: cfg.Host}, nil
}

// Open connects to the database, checks that it answers and makes sure the
// trace tables exist. The returned store owns the pool; release it with
// TraceStore.Close.
func Open(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*TraceStore, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.HealthCheck(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	store := NewTraceStore(pool, log)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	store.log.Debug("trace store ready", slog.String("host", cfg.Host), slog.String("dbname", cfg.DBName))
	return store, nil
}

// Close closes all connections in the pool.
func (p *Pool) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// HealthCheck verifies that the server answers.
func (p *Pool) HealthCheck(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database %s: ping failed: %w", p.host, err)
	}
	return nil
}

// Exec executes a statement without returning rows.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := p.pool.Exec(ctx, sql, args...)
	return err
}

// Query runs a query on a pooled connection.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

// CopyFrom bulk-loads rows with the COPY protocol.
func (p *Pool) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	return p.pool.CopyFrom(ctx, table, columns, src)
}
