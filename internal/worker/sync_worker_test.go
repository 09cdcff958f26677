package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"haushalt/internal/amqp"
	"haushalt/internal/core"
	"haushalt/internal/storage"
)

type fakeMirror struct {
	appended []core.Transaction
	err      error
}

func (f *fakeMirror) AppendTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if f.err != nil {
		return core.Transaction{}, f.err
	}
	f.appended = append(f.appended, t)
	return t, nil
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	if err := storage.RunMigrations(dbPath); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func appendEntry(t *testing.T, repo *storage.SQLiteRepository, desc string) core.Transaction {
	t.Helper()
	saved, err := repo.AppendTransaction(context.Background(), core.Transaction{
		Kind:        core.KindExpense,
		Amount:      core.Money{Cents: 1000},
		Description: desc,
		Date:        core.NewDate(2026, 8, 30),
		PaidBy:      "alex",
		SplitWith:   core.SplitBoth,
		HouseholdID: "hh-1",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return saved
}

func TestHandleSyncMessage_MirrorsAndMarksSynced(t *testing.T) {
	repo := newTestRepo(t)
	mirror := &fakeMirror{}
	w := NewSyncWorker(repo, mirror, 10)
	ctx := context.Background()

	saved := appendEntry(t, repo, "Groceries")

	msg := amqp.NewTransactionSyncMessage(saved.ID, 1)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}

	if len(mirror.appended) != 1 || mirror.appended[0].ID != saved.ID {
		t.Fatalf("mirror got %+v", mirror.appended)
	}
	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("expected empty pending backlog, got %d", len(pending))
	}
}

func TestHandleSyncMessage_UnknownID(t *testing.T) {
	repo := newTestRepo(t)
	w := NewSyncWorker(repo, &fakeMirror{}, 10)

	msg := amqp.NewTransactionSyncMessage("999", 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for unknown transaction id")
	}
}

func TestProcessPendingTransactions_MirrorFailureKeepsBacklog(t *testing.T) {
	repo := newTestRepo(t)
	mirror := &fakeMirror{err: errors.New("sheets unreachable")}
	w := NewSyncWorker(repo, mirror, 10)
	ctx := context.Background()

	saved := appendEntry(t, repo, "Groceries")

	if err := w.ProcessPendingTransactions(ctx); err != nil {
		t.Fatalf("sweep must not fail outright: %v", err)
	}

	// Entry is marked errored, not synced; the startup check retries it.
	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != saved.ID {
		t.Fatalf("expected entry to stay in backlog, got %+v", pending)
	}

	mirror.err = nil
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	pending, _ = repo.GetPendingSync(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("backlog should be drained after retry, got %d", len(pending))
	}
}

func TestProcessPendingTransactions_EmptyBacklog(t *testing.T) {
	repo := newTestRepo(t)
	mirror := &fakeMirror{}
	w := NewSyncWorker(repo, mirror, 10)

	if err := w.ProcessPendingTransactions(context.Background()); err != nil {
		t.Fatalf("empty backlog: %v", err)
	}
	if len(mirror.appended) != 0 {
		t.Errorf("nothing should be mirrored, got %d", len(mirror.appended))
	}
}
