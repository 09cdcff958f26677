package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"haushalt/internal/core"
	"haushalt/internal/scan"
)

// AllocationSubmitter turns a confirmed receipt allocation into ledger
// entries for the scanning party. Each non-empty category becomes one
// expense: personal items carry no split, the other party's items are owed
// in full, shared items are split evenly.
type AllocationSubmitter struct {
	ledger      *LedgerService
	payer       core.PartyID
	otherParty  core.PartyID
	householdID string
	now         func() time.Time
}

var _ scan.TransactionSubmitter = (*AllocationSubmitter)(nil)

func NewAllocationSubmitter(ledger *LedgerService, payer, otherParty core.PartyID, householdID string) *AllocationSubmitter {
	return &AllocationSubmitter{
		ledger:      ledger,
		payer:       payer,
		otherParty:  otherParty,
		householdID: householdID,
		now:         time.Now,
	}
}

func (s *AllocationSubmitter) SubmitAllocation(ctx context.Context, result core.AllocationResult) error {
	today := s.now().UTC()
	date := core.NewDate(today.Year(), int(today.Month()), today.Day())

	// The up-to-three appends are not atomic. When a confirmation fails
	// halfway and is retried, entries that already landed must not be
	// written twice, so same-day entries from this payer with an identical
	// description and amount are skipped.
	existing, err := s.ledger.ListTransactions(ctx, s.householdID)
	if err != nil {
		return fmt.Errorf("submit allocation: %w", err)
	}
	landed := make(map[string]bool, len(existing))
	for _, t := range existing {
		if t.PaidBy == s.payer && t.Date.Equal(date.Time) {
			landed[entryKey(t.Description, t.Amount.Cents)] = true
		}
	}

	entries := []struct {
		amount    core.Money
		count     int
		desc      string
		splitWith string
	}{
		{result.Totals.Shared, len(result.Shared), "Receipt: shared items", core.SplitBoth},
		{result.Totals.Other, len(result.Other), fmt.Sprintf("Receipt: items for %s", s.otherParty), string(s.otherParty)},
		{result.Totals.Self, len(result.Self), "Receipt: personal items", ""},
	}

	for _, e := range entries {
		if e.amount.Cents == 0 {
			continue
		}
		desc := fmt.Sprintf("%s (%d)", e.desc, e.count)
		if landed[entryKey(desc, e.amount.Cents)] {
			slog.InfoContext(ctx, "Skipping already recorded allocation entry",
				"description", desc,
				"amount_cents", e.amount.Cents)
			continue
		}
		t := core.Transaction{
			Kind:        core.KindExpense,
			Amount:      e.amount,
			Description: desc,
			Date:        date,
			PaidBy:      s.payer,
			SplitWith:   e.splitWith,
			HouseholdID: s.householdID,
		}
		saved, err := s.ledger.AppendTransaction(ctx, t)
		if err != nil {
			return fmt.Errorf("submit allocation: %w", err)
		}
		slog.InfoContext(ctx, "Recorded receipt allocation entry",
			"transaction_id", saved.ID,
			"split_with", t.SplitWith,
			"amount_cents", t.Amount.Cents,
			"items", e.count)
	}
	return nil
}

func entryKey(description string, cents int64) string {
	return fmt.Sprintf("%s|%d", description, cents)
}
