// Package worker mirrors persisted ledger entries to the shared spreadsheet.
// It consumes sync messages from the broker and sweeps the pending-sync
// backlog so entries survive lost messages and worker downtime.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"haushalt/internal/amqp"
	"haushalt/internal/core"
	"haushalt/internal/storage"
	"haushalt/internal/store"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	mirror    store.TransactionAppender
	batchSize int
}

func NewSyncWorker(repo *storage.SQLiteRepository, mirror store.TransactionAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   repo,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage mirrors the single transaction named by one broker
// message. The message carries only the id; the database row is the source
// of truth.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"transaction_id", msg.ID,
		"version", msg.Version)

	t, err := w.storage.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.syncToMirror(ctx, t); err != nil {
		return fmt.Errorf("mirror transaction: %w", err)
	}
	return nil
}

// ProcessPendingTransactions sweeps one batch of entries that never made it
// to the mirror. This is the backup path for lost broker messages.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))
	for _, t := range pending {
		if err := w.syncToMirror(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending transaction",
				"transaction_id", t.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains the pending backlog when the worker boots, using a
// larger batch than the periodic sweep.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup", "count", len(pending))
	synced, failed := 0, 0
	for _, t := range pending {
		if err := w.syncToMirror(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during startup",
				"transaction_id", t.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

// RunPendingSweep re-checks the backlog on a fixed interval until ctx ends.
func (w *SyncWorker) RunPendingSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPendingTransactions(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) syncToMirror(ctx context.Context, t core.Transaction) error {
	if _, err := w.mirror.AppendTransaction(ctx, t); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"transaction_id", t.ID, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, t.ID); err != nil {
		// The mirror write worked; the pending sweep may re-append this
		// entry, which the mirror tolerates because rows keep their ids.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"transaction_id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored transaction",
		"transaction_id", t.ID,
		"description", t.Description,
		"amount_cents", t.Amount.Cents)
	return nil
}
