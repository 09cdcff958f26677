package scan

import (
	"errors"
	"sync"
)

// ErrScanInProgress is returned when a session already has an active scan.
var ErrScanInProgress = errors.New("a scan is already in progress for this session")

// Registry tracks at most one active workflow per session. Finished
// workflows (completed or cancelled) are replaced silently on the next start.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Workflow
	extractor TextExtractor
}

func NewRegistry(extractor TextExtractor) *Registry {
	return &Registry{
		sessions:  make(map[string]*Workflow),
		extractor: extractor,
	}
}

// Start creates a fresh workflow for the session. An unfinished existing
// workflow blocks the start; callers must cancel it first.
func (r *Registry) Start(sessionID string) (*Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[sessionID]; ok && !existing.State().Terminal() {
		return nil, ErrScanInProgress
	}
	w := New(r.extractor)
	r.sessions[sessionID] = w
	return w, nil
}

// Get returns the session's workflow, finished or not.
func (r *Registry) Get(sessionID string) (*Workflow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.sessions[sessionID]
	return w, ok
}

// Drop forgets the session's workflow without touching its state.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}
