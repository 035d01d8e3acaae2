package circuitbreaker

import (
	"context"
	"database/sql"

	"github.com/sony/gobreaker"
)

// Querier is the subset of *sql.DB the article store needs.
// Both *sql.DB and *StoreBreaker satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StoreBreaker wraps the archive database with circuit breaker protection.
// When Postgres is down the ingest pass fails fast on every source instead of
// waiting out a connect timeout per candidate.
type StoreBreaker struct {
	cb *CircuitBreaker
	db *sql.DB
}

// NewStoreBreaker wraps db with the StoreConfig breaker.
func NewStoreBreaker(db *sql.DB) *StoreBreaker {
	return NewStoreBreakerWithConfig(db, StoreConfig())
}

// NewStoreBreakerWithConfig wraps db with a breaker built from cfg.
func NewStoreBreakerWithConfig(db *sql.DB, cfg Config) *StoreBreaker {
	return &StoreBreaker{cb: New(cfg), db: db}
}

// QueryContext runs a query through the breaker.
func (s *StoreBreaker) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.db.QueryContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*sql.Rows), nil
}

// ExecContext runs a statement through the breaker.
func (s *StoreBreaker) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.db.ExecContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.(sql.Result), nil
}

// QueryRowContext is not protected: sql.Row defers its error until Scan.
// sql.ErrNoRows is the common outcome here and must not count as a failure.
func (s *StoreBreaker) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// State returns the current state of the circuit breaker.
func (s *StoreBreaker) State() gobreaker.State {
	return s.cb.State()
}

// IsOpen reports whether the store circuit is open.
func (s *StoreBreaker) IsOpen() bool {
	return s.cb.IsOpen()
}
