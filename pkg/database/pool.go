package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/campus-er/pkg/apperrors"
	"github.com/ekaya-inc/campus-er/pkg/logging"
	"github.com/ekaya-inc/campus-er/pkg/metrics"
	"github.com/ekaya-inc/campus-er/pkg/retry"
)

var errPoolClosed = errors.New("pool is closed")

// Rows is the subset of pgx.Rows read by repositories.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Conn is a connection borrowed from a pool. Release must be called exactly once.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Release()
}

// ConnSource hands out pooled connections.
type ConnSource interface {
	Acquire(ctx context.Context) (Conn, error)
}

type pooledConn struct {
	*pgxpool.Conn
}

func (c pooledConn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return c.Conn.Query(ctx, sql, args...)
}

// PoolManager owns the canonical timeline pool. The pool is created by Start
// when the server boots, or by the first Acquire if Start could not reach the
// database. Creation is serialized; the first successful caller wins.
type PoolManager struct {
	cfg      *Config
	retryCfg *retry.Config
	logger   *zap.Logger
	newPool  func(ctx context.Context, cfg *Config) (*pgxpool.Pool, error)

	mu     sync.Mutex
	pool   *pgxpool.Pool
	closed bool
}

// NewPoolManager creates a manager without connecting.
func NewPoolManager(cfg *Config, logger *zap.Logger) *PoolManager {
	return &PoolManager{
		cfg:      cfg,
		retryCfg: retry.DefaultConfig(),
		logger:   logger.Named("timeline-pool"),
		newPool:  NewPool,
	}
}

// Start warms the pool up, retrying transient connection errors.
// A failure is logged and returned; later Acquire calls try again.
func (m *PoolManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("%w: %w", apperrors.ErrConnection, errPoolClosed)
	}
	if m.pool != nil {
		return nil
	}

	pool, err := retry.DoWithResult(ctx, m.retryCfg, func() (*pgxpool.Pool, error) {
		return m.newPool(ctx, m.cfg)
	})
	if err != nil {
		m.logger.Warn("Timeline pool unavailable at startup, will retry on first request",
			zap.String("dsn", logging.SanitizeDSN(m.cfg.URL)),
			zap.String("error", logging.SanitizeError(err)))
		return fmt.Errorf("%w: %w", apperrors.ErrConnection, err)
	}

	m.pool = pool
	m.logger.Info("Timeline pool ready",
		zap.Int32("min_conns", pool.Config().MinConns),
		zap.Int32("max_conns", pool.Config().MaxConns))
	return nil
}

// Pool returns the pool, creating it on first use.
func (m *PoolManager) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrConnection, errPoolClosed)
	}
	if m.pool != nil {
		return m.pool, nil
	}

	pool, err := m.newPool(ctx, m.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrConnection, err)
	}
	m.pool = pool
	m.logger.Info("Timeline pool created on first use")
	return pool, nil
}

// Acquire borrows one connection from the pool.
func (m *PoolManager) Acquire(ctx context.Context) (Conn, error) {
	pool, err := m.Pool(ctx)
	if err != nil {
		metrics.RecordPoolError()
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		metrics.RecordPoolError()
		return nil, fmt.Errorf("%w: %w", apperrors.ErrConnection, err)
	}
	return pooledConn{Conn: conn}, nil
}

// Ping checks that the timeline database answers, creating the pool if needed.
func (m *PoolManager) Ping(ctx context.Context) error {
	pool, err := m.Pool(ctx)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrConnection, err)
	}
	return nil
}

// Close drains the pool. Subsequent Acquire calls fail.
func (m *PoolManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.pool != nil {
		m.pool.Close()
		m.pool = nil
	}
}

var _ ConnSource = (*PoolManager)(nil)
