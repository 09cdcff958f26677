// Package memory is an in-process transaction store used for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"haushalt/internal/core"
	"haushalt/internal/store"
)

type Store struct {
	mu   sync.Mutex
	log  []core.Transaction
	next int
}

var (
	_ store.TransactionAppender = (*Store)(nil)
	_ store.TransactionLister   = (*Store)(nil)
)

func New() *Store {
	return &Store{next: 1}
}

// AppendTransaction stores the entry and assigns a synthetic id.
func (s *Store) AppendTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, &store.StoreError{Op: "append", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = fmt.Sprintf("mem:%d", s.next)
	t.CreatedAt = time.Now().UTC()
	s.next++
	s.log = append(s.log, t)
	return t, nil
}

// ListTransactions returns the household's entries ordered for display.
func (s *Store) ListTransactions(_ context.Context, householdID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.log {
		if t.HouseholdID == householdID {
			out = append(out, t)
		}
	}
	core.SortForDisplay(out)
	return out, nil
}
