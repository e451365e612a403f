package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func countUsers(t *testing.T, store *Store) int {
	t.Helper()
	row := store.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM users`)
	var n int
	if err := row.Scan(&n); err != nil {
		t.Fatalf("count users: %v", err)
	}
	return n
}

func TestNestedBeginCollapsesToOneTransaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("outer begin: %v", err)
	}
	if !started {
		t.Fatal("outer begin should start a physical transaction")
	}

	started, err = store.Begin(ctx)
	if err != nil {
		t.Fatalf("inner begin: %v", err)
	}
	if started {
		t.Fatal("inner begin should join the open transaction")
	}

	if _, err := store.ExecContext(ctx, `INSERT INTO users (username) VALUES ('nested')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := store.Commit(ctx); err != nil {
		t.Fatalf("inner commit: %v", err)
	}
	if !store.InTransaction() {
		t.Fatal("inner commit must not close the physical transaction")
	}
	if err := store.Commit(ctx); err != nil {
		t.Fatalf("outer commit: %v", err)
	}
	if store.InTransaction() {
		t.Fatal("outer commit should close the transaction")
	}

	if got := countUsers(t, store); got != 1 {
		t.Fatalf("users after commit = %d, want 1", got)
	}
}

func TestRollbackDiscardsEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Begin(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := store.Begin(ctx); err != nil {
		t.Fatalf("nested begin: %v", err)
	}
	if _, err := store.ExecContext(ctx, `INSERT INTO users (username) VALUES ('doomed')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Rolling back at any depth aborts the whole transaction.
	if err := store.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if store.InTransaction() {
		t.Fatal("rollback should reset transaction state")
	}
	if got := countUsers(t, store); got != 0 {
		t.Fatalf("users after rollback = %d, want 0", got)
	}
}

func TestCommitWithoutBeginPanics(t *testing.T) {
	store := newTestStore(t)

	defer func() {
		if recover() == nil {
			t.Fatal("commit without begin should panic")
		}
	}()
	store.Commit(context.Background())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := store.ExecContext(ctx, `INSERT INTO users (username) VALUES ('ghost')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}
	if got := countUsers(t, store); got != 0 {
		t.Fatalf("users after failed tx = %d, want 0", got)
	}
}

func TestWithTxNestedJoinsOuter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := store.ExecContext(ctx, `INSERT INTO users (username) VALUES ('outer')`); err != nil {
			return err
		}
		return store.WithTx(ctx, func(ctx context.Context) error {
			_, err := store.ExecContext(ctx, `INSERT INTO users (username) VALUES ('inner')`)
			return err
		})
	})
	if err != nil {
		t.Fatalf("nested WithTx: %v", err)
	}
	if got := countUsers(t, store); got != 2 {
		t.Fatalf("users = %d, want 2", got)
	}
}
