package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"haushalt/internal/core"
	"haushalt/internal/store/memory"
)

func submitterFixture() (*AllocationSubmitter, *memory.Store) {
	mem := memory.New()
	ledger := NewLedgerService(mem, mem, nil)
	sub := NewAllocationSubmitter(ledger, "alex", "mara", "hh-1")
	sub.now = func() time.Time {
		return time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	}
	return sub, mem
}

func item(id string, cents int64, cat core.Category) core.LineItem {
	return core.LineItem{ID: id, Description: "ITEM " + id, Price: core.Money{Cents: cents}, Category: cat}
}

func TestSubmitAllocation_OneEntryPerCategory(t *testing.T) {
	sub, mem := submitterFixture()

	result, err := core.Aggregate([]core.LineItem{
		item("1", 300, core.CategoryShared),
		item("2", 150, core.CategoryShared),
		item("3", 500, core.CategoryOther),
		item("4", 250, core.CategorySelf),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sub.SubmitAllocation(context.Background(), result); err != nil {
		t.Fatalf("SubmitAllocation: %v", err)
	}

	txns, err := mem.ListTransactions(context.Background(), "hh-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txns))
	}

	bySplit := map[string]core.Transaction{}
	for _, tx := range txns {
		bySplit[tx.SplitWith] = tx
		if tx.Kind != core.KindExpense {
			t.Errorf("kind = %s, want expense", tx.Kind)
		}
		if tx.PaidBy != "alex" || tx.HouseholdID != "hh-1" {
			t.Errorf("unexpected payer/household: %+v", tx)
		}
		y, m, d := tx.Date.Date()
		if y != 2026 || int(m) != 8 || d != 30 {
			t.Errorf("date = %d-%d-%d", y, m, d)
		}
	}
	if got := bySplit[core.SplitBoth].Amount.Cents; got != 450 {
		t.Errorf("shared amount = %d, want 450", got)
	}
	if got := bySplit["mara"].Amount.Cents; got != 500 {
		t.Errorf("owed amount = %d, want 500", got)
	}
	if got := bySplit[""].Amount.Cents; got != 250 {
		t.Errorf("personal amount = %d, want 250", got)
	}
}

func TestSubmitAllocation_SkipsEmptyCategories(t *testing.T) {
	sub, mem := submitterFixture()

	result, err := core.Aggregate([]core.LineItem{
		item("1", 999, core.CategoryShared),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sub.SubmitAllocation(context.Background(), result); err != nil {
		t.Fatal(err)
	}

	txns, _ := mem.ListTransactions(context.Background(), "hh-1")
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	if txns[0].SplitWith != core.SplitBoth || txns[0].Amount.Cents != 999 {
		t.Errorf("unexpected transaction: %+v", txns[0])
	}
}

func TestSubmitAllocation_BalancesMatchShares(t *testing.T) {
	sub, mem := submitterFixture()
	ledger := NewLedgerService(mem, mem, nil)

	// 4.51 shared (odd), 2.00 for mara, 1.00 personal. Mara owes the
	// integer half of shared plus her items: 225 + 200 = 425.
	result, err := core.Aggregate([]core.LineItem{
		item("1", 451, core.CategoryShared),
		item("2", 200, core.CategoryOther),
		item("3", 100, core.CategorySelf),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sub.SubmitAllocation(context.Background(), result); err != nil {
		t.Fatal(err)
	}

	b, err := ledger.Balances(context.Background(), "hh-1", "alex")
	if err != nil {
		t.Fatal(err)
	}
	if b.Viewer.Cents != 425 {
		t.Errorf("alex is owed %d, want 425", b.Viewer.Cents)
	}
	if b.Viewer.Cents+b.Other.Cents != 0 {
		t.Errorf("balances must be zero-sum: %+v", b)
	}
}

// flakyStore appends successfully failAfter times, then refuses.
type flakyStore struct {
	*memory.Store
	failAfter int
	appends   int
}

func (f *flakyStore) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if f.appends >= f.failAfter {
		return core.Transaction{}, errors.New("store unavailable")
	}
	f.appends++
	return f.Store.AppendTransaction(ctx, t)
}

func TestSubmitAllocation_RetryDoesNotDuplicateLandedEntries(t *testing.T) {
	flaky := &flakyStore{Store: memory.New(), failAfter: 1}
	ledger := NewLedgerService(flaky, flaky.Store, nil)
	sub := NewAllocationSubmitter(ledger, "alex", "mara", "hh-1")
	sub.now = func() time.Time {
		return time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	}

	result, err := core.Aggregate([]core.LineItem{
		item("1", 450, core.CategoryShared),
		item("2", 500, core.CategoryOther),
		item("3", 250, core.CategorySelf),
	})
	if err != nil {
		t.Fatal(err)
	}

	// The first submission lands the shared entry and fails on the second.
	if err := sub.SubmitAllocation(context.Background(), result); err == nil {
		t.Fatal("expected partial failure")
	}
	txns, _ := flaky.Store.ListTransactions(context.Background(), "hh-1")
	if len(txns) != 1 {
		t.Fatalf("after partial failure: %d transactions, want 1", len(txns))
	}

	// The retry must write only the two missing entries.
	flaky.failAfter = 10
	if err := sub.SubmitAllocation(context.Background(), result); err != nil {
		t.Fatalf("retry: %v", err)
	}
	txns, _ = flaky.Store.ListTransactions(context.Background(), "hh-1")
	if len(txns) != 3 {
		t.Fatalf("after retry: %d transactions, want 3", len(txns))
	}
	shared := 0
	for _, tx := range txns {
		if tx.SplitWith == core.SplitBoth {
			shared++
		}
	}
	if shared != 1 {
		t.Errorf("shared entries = %d, want exactly 1", shared)
	}
}
