// Package storage is the local append-only transaction log backed by SQLite.
// Besides the log itself it keeps per-row sync bookkeeping so a worker can
// mirror entries to the shared household sheet.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"haushalt/internal/core"
	"haushalt/internal/store"

	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"

	// Entries that failed to mirror this many times stay in the log but
	// drop out of the retry backlog.
	maxSyncAttempts = 5
)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ store.TransactionAppender = (*SQLiteRepository)(nil)
	_ store.TransactionLister   = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AppendTransaction implements store.TransactionAppender. The entry gets its
// id and creation timestamp here; existing rows are never touched.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, &store.StoreError{Op: "append", Err: err}
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (kind, amount_cents, description, date, paid_by, split_with, household_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Kind), t.Amount.Cents, t.Description, t.Date.Format(dateLayout),
		string(t.PaidBy), t.SplitWith, t.HouseholdID, now)
	if err != nil {
		return core.Transaction{}, &store.StoreError{Op: "append", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, &store.StoreError{Op: "append", Err: err}
	}

	t.ID = strconv.FormatInt(id, 10)
	t.CreatedAt = now

	slog.InfoContext(ctx, "Transaction appended",
		"id", t.ID,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents,
		"household_id", t.HouseholdID)

	return t, nil
}

// ListTransactions implements store.TransactionLister.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, householdID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, amount_cents, description, date, paid_by, split_with, household_id, created_at
		FROM transactions
		WHERE household_id = ?`, householdID)
	if err != nil {
		return nil, &store.StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	txns, err := scanTransactions(rows)
	if err != nil {
		return nil, &store.StoreError{Op: "list", Err: err}
	}
	core.SortForDisplay(txns)
	return txns, nil
}

// GetTransaction retrieves a single entry by id, for sync messages.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, amount_cents, description, date, paid_by, split_with, household_id, created_at
		FROM transactions
		WHERE id = ?`, id)

	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, &store.StoreError{Op: "get", Err: err}
	}
	return t, nil
}

// GetPendingSync returns entries not yet mirrored to the shared sheet,
// oldest first. Errored entries are retried until maxSyncAttempts; this is
// the backup path for lost queue messages.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, amount_cents, description, date, paid_by, split_with, household_id, created_at
		FROM transactions
		WHERE sync_status != 'synced' AND sync_attempts < ?
		ORDER BY id
		LIMIT ?`, maxSyncAttempts, limit)
	if err != nil {
		return nil, &store.StoreError{Op: "pending sync", Err: err}
	}
	defer rows.Close()

	txns, err := scanTransactions(rows)
	if err != nil {
		return nil, &store.StoreError{Op: "pending sync", Err: err}
	}
	return txns, nil
}

// MarkSynced marks an entry as successfully mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return &store.StoreError{Op: "mark synced", Err: err}
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError records a failed mirror attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error', sync_attempts = sync_attempts + 1 WHERE id = ?`, id); err != nil {
		return &store.StoreError{Op: "mark sync error", Err: err}
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		id        int64
		kind      string
		cents     int64
		desc      string
		date      string
		paidBy    string
		splitWith string
		household string
		createdAt time.Time
	)
	if err := row.Scan(&id, &kind, &cents, &desc, &date, &paidBy, &splitWith, &household, &createdAt); err != nil {
		return core.Transaction{}, err
	}

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}

	return core.Transaction{
		ID:          strconv.FormatInt(id, 10),
		Kind:        core.TransactionKind(kind),
		Amount:      core.Money{Cents: cents},
		Description: desc,
		Date:        core.Date{Time: day},
		PaidBy:      core.PartyID(paidBy),
		SplitWith:   splitWith,
		HouseholdID: household,
		CreatedAt:   createdAt,
	}, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
