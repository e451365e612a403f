package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Store wraps the SQLite handle with a reentrant transaction controller.
//
// Begin returns true only when the call opened the physical transaction
// (depth 0 -> 1); nested calls just bump the depth. Commit issues the
// physical COMMIT only when the outermost pair closes. Rollback always
// issues a physical ROLLBACK and resets the depth, because a failure
// anywhere in a nested chain aborts the whole outer unit of work.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	depth int
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Begin opens the physical transaction when none is active and reports
// whether this call was the outermost one.
func (s *Store) Begin(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth == 0 {
		if _, err := s.db.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
			return false, fmt.Errorf("begin tx: %w", err)
		}
		s.depth = 1
		return true, nil
	}
	s.depth++
	return false, nil
}

// Commit closes one nesting level and issues the physical COMMIT when the
// outermost level closes. Committing with no open transaction is a
// programming error and panics.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth == 0 {
		panic("storage: commit without matching begin")
	}
	if s.depth == 1 {
		if _, err := s.db.ExecContext(ctx, `COMMIT`); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
	}
	s.depth--
	return nil
}

// Rollback aborts the physical transaction regardless of nesting depth.
// A no-op when no transaction is open, so it is safe in deferred cleanup.
func (s *Store) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth == 0 {
		return nil
	}
	s.depth = 0
	if _, err := s.db.ExecContext(ctx, `ROLLBACK`); err != nil {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

// InTransaction reports whether a transaction is currently open.
func (s *Store) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth > 0
}

func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// WithTx runs fn inside a (possibly nested) transaction. The physical
// commit happens only when the outermost WithTx returns without error.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, err := s.Begin(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		_ = s.Rollback(ctx)
		return err
	}
	return s.Commit(ctx)
}
