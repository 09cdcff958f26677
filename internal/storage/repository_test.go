package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"haushalt/internal/core"
	"haushalt/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTransaction(household string) core.Transaction {
	return core.Transaction{
		Kind:        core.KindExpense,
		Amount:      core.Money{Cents: 2349},
		Description: "Wocheneinkauf",
		Date:        core.NewDate(2025, 7, 21),
		PaidBy:      "alice",
		SplitWith:   core.SplitBoth,
		HouseholdID: household,
	}
}

func TestAppendAndListTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.AppendTransaction(ctx, testTransaction("hh-1"))
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("append did not assign id/timestamp: %+v", first)
	}

	second := testTransaction("hh-1")
	second.Kind = core.KindSettlement
	second.SplitWith = ""
	second.Date = core.NewDate(2025, 7, 22)
	if _, err := repo.AppendTransaction(ctx, second); err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}

	// other households stay invisible
	other := testTransaction("hh-2")
	if _, err := repo.AppendTransaction(ctx, other); err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}

	txns, err := repo.ListTransactions(ctx, "hh-1")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("listed %d transactions, want 2", len(txns))
	}
	// newest date first
	if txns[0].Kind != core.KindSettlement {
		t.Fatalf("display order wrong: %+v", txns)
	}
	if txns[1].Amount.Cents != 2349 || txns[1].PaidBy != "alice" {
		t.Fatalf("round-trip mismatch: %+v", txns[1])
	}
}

func TestAppendRejectsInvalidTransaction(t *testing.T) {
	repo := newTestRepo(t)

	bad := testTransaction("hh-1")
	bad.Amount = core.Money{}
	_, err := repo.AppendTransaction(context.Background(), bad)

	var se *store.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *store.StoreError", err)
	}
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("cause = %v, want ErrInvalidAmount", err)
	}
}

func TestSyncBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	appended, err := repo.AppendTransaction(ctx, testTransaction("hh-1"))
	if err != nil {
		t.Fatal(err)
	}

	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != appended.ID {
		t.Fatalf("pending = %+v", pending)
	}

	if err := repo.MarkSynced(ctx, appended.ID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	pending, err = repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("still pending after MarkSynced: %+v", pending)
	}

	got, err := repo.GetTransaction(ctx, appended.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Description != "Wocheneinkauf" {
		t.Fatalf("fetched = %+v", got)
	}
}
