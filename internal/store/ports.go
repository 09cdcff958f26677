// Package store defines the outbound ports for the shared transaction log
// and the error type surfaced across that boundary.
package store

import (
	"context"
	"fmt"

	"haushalt/internal/core"
)

// Ports for outbound adapters. The log is append-only: no port mutates or
// deletes existing entries.
type (
	// TransactionAppender persists one new ledger entry and returns it with
	// its assigned id and creation timestamp.
	TransactionAppender interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	// TransactionLister returns every entry of a household's log, ordered
	// for display (newest first).
	TransactionLister interface {
		ListTransactions(ctx context.Context, householdID string) ([]core.Transaction, error)
	}
)

// StoreError wraps connectivity or validation failures of a transaction
// store. Callers keep their in-memory state and may retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("transaction store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
