// Package backend selects and wires a transaction store at startup:
// in-memory, SQLite with optional broker sync, or the Google Sheets mirror
// used directly.
package backend

import (
	"context"

	"haushalt/internal/services"
	"haushalt/internal/store"
)

// Backend is the full store surface the server needs.
type Backend interface {
	store.TransactionAppender
	store.TransactionLister
}

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// BackendResult carries the created store, the sync publisher when the
// backend has one, and an optional cleanup function.
type BackendResult struct {
	Store     Backend
	Publisher services.SyncPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID   string
	GoogleLedgerSheetName string
	GoogleServiceAccount  string
	GoogleCredentialsFile string
}

// BackendType represents the type of backend.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
