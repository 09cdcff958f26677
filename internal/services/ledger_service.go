// Package services orchestrates the ledger use cases: appending entries,
// recomputing balances, and turning confirmed receipt allocations into
// transactions.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"haushalt/internal/core"
	applog "haushalt/internal/log"
	"haushalt/internal/store"
)

// SyncPublisher announces a newly persisted transaction to the sync worker.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id string, version int64) error
}

// LedgerService couples the primary transaction store with the optional sync
// publisher. The store write is authoritative; a failed publish only delays
// the spreadsheet mirror.
type LedgerService struct {
	appender  store.TransactionAppender
	lister    store.TransactionLister
	publisher SyncPublisher
	slog      *applog.StructuredLogger
	closers   []io.Closer
}

func NewLedgerService(appender store.TransactionAppender, lister store.TransactionLister, publisher SyncPublisher, closers ...io.Closer) *LedgerService {
	return &LedgerService{
		appender:  appender,
		lister:    lister,
		publisher: publisher,
		slog:      applog.NewStructuredLogger(applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentLedger)),
		closers:   closers,
	}
}

// AppendTransaction persists one entry and schedules its mirror sync.
func (s *LedgerService) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	saved, err := s.appender.AppendTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.slog.LogTransactionAppended(ctx, saved.ID, string(saved.Kind), saved.Description, saved.Amount.Cents)

	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping sync message", "transaction_id", saved.ID)
		return saved, nil
	}
	if err := s.publisher.PublishTransactionSync(ctx, saved.ID, 1); err != nil {
		// The entry is saved; the worker's pending sweep catches up later.
		s.slog.LogError(ctx, "Failed to publish sync message", err,
			applog.ComponentLedger, applog.OpSync,
			applog.NewFields().WithTransaction(saved.ID, string(saved.Kind), saved.Description, saved.Amount.Cents))
	}
	return saved, nil
}

// ListTransactions returns a household's full log, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, householdID string) ([]core.Transaction, error) {
	return s.lister.ListTransactions(ctx, householdID)
}

// Balances recomputes who owes whom from the complete transaction log.
// Nothing is cached: every call folds over every entry.
func (s *LedgerService) Balances(ctx context.Context, householdID string, viewer core.PartyID) (core.Balance, error) {
	txns, err := s.lister.ListTransactions(ctx, householdID)
	if err != nil {
		return core.Balance{}, fmt.Errorf("load transaction log: %w", err)
	}
	return core.ComputeBalances(txns, viewer), nil
}

// Close releases the store and broker connections handed to the service.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
