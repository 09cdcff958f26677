// Package scan drives a receipt scan from image upload to a confirmed
// allocation. The workflow is an explicit state machine; illegal transitions
// are rejected with a TransitionError instead of being representable.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"haushalt/internal/core"
	"haushalt/internal/receipt"
)

// State names one stage of the scan workflow.
type State string

const (
	StateUpload       State = "upload"
	StateProcessing   State = "processing"
	StateReview       State = "review"
	StateCategorizing State = "categorizing"
	StateSummary      State = "summary"
	StateCompleted    State = "completed"
	StateCancelled    State = "cancelled"
)

// Terminal reports whether the workflow can still move from this state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

var (
	ErrNoImage       = errors.New("no image attached")
	ErrEmptyItemList = errors.New("item list is empty")
	ErrItemNotFound  = errors.New("item not found")
	ErrNothingToUndo = errors.New("no assignment to undo")
	ErrCancelled     = errors.New("workflow cancelled")
)

// TransitionError reports an operation attempted from the wrong state.
type TransitionError struct {
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s in state %q", e.Op, e.From)
}

// Workflow holds all in-memory state of one scan. All methods are safe for
// concurrent use; the mutex is released around the two blocking port calls so
// Cancel stays possible while OCR or submission is in flight.
type Workflow struct {
	mu        sync.Mutex
	state     State
	gen       int // bumped on cancel; stale async results are discarded
	image     []byte
	items     []core.LineItem
	nextID    int
	cursor    int
	allocated []core.LineItem
	result    *core.AllocationResult
	extractor TextExtractor
}

// New returns a workflow waiting for an image in the upload stage.
func New(extractor TextExtractor) *Workflow {
	return &Workflow{state: StateUpload, extractor: extractor, nextID: 1}
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// AttachImage stores the pending receipt image. Only valid while uploading;
// re-attaching replaces the previous image.
func (w *Workflow) AttachImage(image []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateUpload {
		return &TransitionError{Op: "attach image", From: w.state}
	}
	if len(image) == 0 {
		return ErrNoImage
	}
	w.image = image
	return nil
}

// Process runs the OCR capability and the receipt parser. On success the
// workflow moves to review with the parsed items (possibly none); on
// extraction failure it returns to upload and surfaces the error without
// retrying. A cancellation racing the in-flight call wins: the late result
// is discarded and ErrCancelled returned.
func (w *Workflow) Process(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateUpload {
		w.mu.Unlock()
		return &TransitionError{Op: "process", From: w.state}
	}
	if len(w.image) == 0 {
		w.mu.Unlock()
		return ErrNoImage
	}
	w.state = StateProcessing
	gen := w.gen
	image := w.image
	w.mu.Unlock()

	text, err := w.extractor.ExtractText(ctx, image)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen || w.state != StateProcessing {
		// cancelled while the call was in flight
		return ErrCancelled
	}
	if err != nil {
		w.state = StateUpload
		return fmt.Errorf("extract text: %w", err)
	}

	w.items = receipt.Parse(text)
	w.nextID = len(w.items) + 1
	w.state = StateReview
	slog.DebugContext(ctx, "Receipt processed", "items", len(w.items))
	return nil
}

// Items returns a copy of the current item list.
func (w *Workflow) Items() []core.LineItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.LineItem(nil), w.items...)
}

// AddItem appends a manually entered item during review. The amount is a
// decimal string as typed by the user; invalid input never enters the list.
func (w *Workflow) AddItem(description, amount string) (core.LineItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateReview {
		return core.LineItem{}, &TransitionError{Op: "add item", From: w.state}
	}
	item, err := w.buildItem(fmt.Sprintf("item-%d", w.nextID), description, amount)
	if err != nil {
		return core.LineItem{}, err
	}
	w.nextID++
	w.items = append(w.items, item)
	return item, nil
}

// UpdateItem replaces an item's description and price during review.
func (w *Workflow) UpdateItem(id, description, amount string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateReview {
		return &TransitionError{Op: "update item", From: w.state}
	}
	for i := range w.items {
		if w.items[i].ID == id {
			item, err := w.buildItem(id, description, amount)
			if err != nil {
				return err
			}
			w.items[i] = item
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItem deletes an item during review.
func (w *Workflow) RemoveItem(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateReview {
		return &TransitionError{Op: "remove item", From: w.state}
	}
	for i := range w.items {
		if w.items[i].ID == id {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (w *Workflow) buildItem(id, description, amount string) (core.LineItem, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return core.LineItem{}, core.ErrEmptyDescription
	}
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return core.LineItem{}, err
	}
	return core.LineItem{ID: id, Description: description, Price: core.Money{Cents: cents}}, nil
}

// BeginCategorizing closes the review stage. Requires at least one item.
func (w *Workflow) BeginCategorizing() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateReview {
		return &TransitionError{Op: "begin categorizing", From: w.state}
	}
	if len(w.items) == 0 {
		return ErrEmptyItemList
	}
	w.state = StateCategorizing
	w.cursor = 0
	w.allocated = w.allocated[:0]
	return nil
}

// Current returns the item under the cursor during categorization.
func (w *Workflow) Current() (core.LineItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateCategorizing || w.cursor >= len(w.items) {
		return core.LineItem{}, false
	}
	return w.items[w.cursor], true
}

// Progress reports how many items have been assigned and the total count.
func (w *Workflow) Progress() (assigned, total int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.allocated), len(w.items)
}

// Assign gives the current item a category and advances the cursor. When the
// last item is assigned the allocation is aggregated and the workflow moves
// to the summary stage; done reports that transition.
func (w *Workflow) Assign(category core.Category) (done bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateCategorizing {
		return false, &TransitionError{Op: "assign", From: w.state}
	}
	if !category.Valid() {
		return false, core.ErrInvalidCategory
	}

	item := w.items[w.cursor]
	item.Category = category
	w.allocated = append(w.allocated, item)
	w.cursor++

	if w.cursor < len(w.items) {
		return false, nil
	}

	result, err := core.Aggregate(w.allocated)
	if err != nil {
		// roll the last assignment back so the stage stays consistent
		w.allocated = w.allocated[:len(w.allocated)-1]
		w.cursor--
		return false, fmt.Errorf("aggregate allocation: %w", err)
	}
	w.result = &result
	w.state = StateSummary
	return true, nil
}

// Back undoes the most recent assignment and re-shows the previous item.
// Only the immediately preceding assignment can be undone.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateCategorizing {
		return &TransitionError{Op: "go back", From: w.state}
	}
	if w.cursor == 0 {
		return ErrNothingToUndo
	}
	w.cursor--
	w.allocated = w.allocated[:len(w.allocated)-1]
	return nil
}

// Result returns the aggregated allocation while in the summary stage.
func (w *Workflow) Result() (core.AllocationResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSummary || w.result == nil {
		return core.AllocationResult{}, &TransitionError{Op: "read result", From: w.state}
	}
	return *w.result, nil
}

// Confirm hands the allocation to the submitter and completes the workflow.
// A submission failure keeps the workflow in the summary stage so the user
// can retry without re-running categorization.
func (w *Workflow) Confirm(ctx context.Context, submitter TransactionSubmitter) error {
	w.mu.Lock()
	if w.state != StateSummary || w.result == nil {
		w.mu.Unlock()
		return &TransitionError{Op: "confirm", From: w.state}
	}
	gen := w.gen
	result := *w.result
	w.mu.Unlock()

	err := submitter.SubmitAllocation(ctx, result)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen || w.state != StateSummary {
		return ErrCancelled
	}
	if err != nil {
		return fmt.Errorf("submit allocation: %w", err)
	}
	w.state = StateCompleted
	return nil
}

// Cancel abandons the scan from any non-terminal state. All in-memory state
// is discarded and nothing is persisted; an OCR call still in flight
// completes against a stale generation and its result is dropped.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Terminal() {
		return &TransitionError{Op: "cancel", From: w.state}
	}
	w.gen++
	w.state = StateCancelled
	w.image = nil
	w.items = nil
	w.allocated = nil
	w.result = nil
	return nil
}
