package engine

import (
	"context"
	"path/filepath"
	"testing"

	"growthline/internal/storage"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := NewService(store)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	return svc, ctx
}

func mustCreateTask(t *testing.T, svc *Service, ctx context.Context, task Task) Task {
	t.Helper()
	created, err := svc.Tasks.CreateTask(ctx, task)
	if err != nil {
		t.Fatalf("create task %q: %v", task.Name, err)
	}
	return created
}

func currentUser(t *testing.T, svc *Service) User {
	t.Helper()
	u, err := svc.Ledger.Current()
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	return u
}

// fundWallet gives the session user spending money outside any task flow.
func fundWallet(t *testing.T, svc *Service, ctx context.Context, coins int) {
	t.Helper()
	if err := svc.Ledger.AddReward(ctx, coins, 0, AttributeSet{}); err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
}
