// Package postgres implements the summary archive and governance
// state stores on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lending-risk-monitor/internal/observability"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// Exec runs a statement, recording duration and error outcome.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	started := time.Now()
	tag, err := p.Pool.Exec(ctx, sql, args...)
	observeQuery("exec", started, err)
	return tag, err
}

// Query runs a multi-row query, recording duration and error outcome.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	started := time.Now()
	rows, err := p.Pool.Query(ctx, sql, args...)
	observeQuery("query", started, err)
	return rows, err
}

// QueryRow runs a single-row query. Errors surface on Scan, so only
// the issue latency is recorded here.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	started := time.Now()
	row := p.Pool.QueryRow(ctx, sql, args...)
	observeQuery("query_row", started, nil)
	return row
}

func observeQuery(op string, started time.Time, err error) {
	observability.DefaultMetrics.DBQueryDuration.WithLabelValues("postgres", op).Observe(time.Since(started).Seconds())
	if err != nil {
		observability.DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", op).Inc()
	}
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}

	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
