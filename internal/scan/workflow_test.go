package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"haushalt/internal/core"
)

type fakeExtractor struct {
	text    string
	err     error
	release chan struct{} // when set, ExtractText blocks until closed
	calls   int
}

func (f *fakeExtractor) ExtractText(ctx context.Context, image []byte) (string, error) {
	f.calls++
	if f.release != nil {
		<-f.release
	}
	return f.text, f.err
}

type fakeSubmitter struct {
	mu      sync.Mutex
	err     error
	results []core.AllocationResult
}

func (f *fakeSubmitter) SubmitAllocation(ctx context.Context, result core.AllocationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.results = append(f.results, result)
	return nil
}

const receiptText = "KOERNER BALANCE EUR 2,49 B\nBIO EIER 10ER 3,29 B\nSUMME EUR 5,78"

func startReviewing(t *testing.T, text string) *Workflow {
	t.Helper()
	w := New(&fakeExtractor{text: text})
	if err := w.AttachImage([]byte("img")); err != nil {
		t.Fatalf("AttachImage: %v", err)
	}
	if err := w.Process(context.Background()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	return w
}

func TestWorkflowHappyPath(t *testing.T) {
	w := startReviewing(t, receiptText)
	if w.State() != StateReview {
		t.Fatalf("state = %q, want review", w.State())
	}

	items := w.Items()
	if len(items) != 2 {
		t.Fatalf("parsed %d items, want 2", len(items))
	}

	if err := w.BeginCategorizing(); err != nil {
		t.Fatalf("BeginCategorizing: %v", err)
	}

	if cur, ok := w.Current(); !ok || cur.ID != "item-1" {
		t.Fatalf("Current() = %+v, %v", cur, ok)
	}
	if done, err := w.Assign(core.CategorySelf); err != nil || done {
		t.Fatalf("first Assign: done=%v err=%v", done, err)
	}
	done, err := w.Assign(core.CategoryShared)
	if err != nil {
		t.Fatalf("second Assign: %v", err)
	}
	if !done || w.State() != StateSummary {
		t.Fatalf("expected summary after last item, state=%q", w.State())
	}

	result, err := w.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Totals.Self.Cents != 249 || result.Totals.Shared.Cents != 329 {
		t.Fatalf("totals = %+v", result.Totals)
	}

	sub := &fakeSubmitter{}
	if err := w.Confirm(context.Background(), sub); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if w.State() != StateCompleted {
		t.Fatalf("state = %q, want completed", w.State())
	}
	if len(sub.results) != 1 {
		t.Fatalf("submitter received %d results, want 1", len(sub.results))
	}
}

func TestProcessRequiresImage(t *testing.T) {
	w := New(&fakeExtractor{text: receiptText})
	if err := w.Process(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Fatalf("Process without image = %v, want ErrNoImage", err)
	}
}

func TestProcessFailureReturnsToUpload(t *testing.T) {
	ext := &fakeExtractor{err: errors.New("blurry")}
	w := New(ext)
	if err := w.AttachImage([]byte("img")); err != nil {
		t.Fatal(err)
	}
	err := w.Process(context.Background())
	if err == nil {
		t.Fatal("Process should surface the extraction error")
	}
	if w.State() != StateUpload {
		t.Fatalf("state after failure = %q, want upload", w.State())
	}
	// no automatic retry happened
	if ext.calls != 1 {
		t.Fatalf("extractor called %d times, want 1", ext.calls)
	}
}

func TestCancelDuringProcessingDiscardsResult(t *testing.T) {
	ext := &fakeExtractor{text: receiptText, release: make(chan struct{})}
	w := New(ext)
	if err := w.AttachImage([]byte("img")); err != nil {
		t.Fatal(err)
	}

	processErr := make(chan error, 1)
	go func() { processErr <- w.Process(context.Background()) }()

	// wait until the workflow reports processing
	for i := 0; w.State() != StateProcessing; i++ {
		if i > 100 {
			t.Fatal("workflow never entered processing")
		}
		time.Sleep(time.Millisecond)
	}
	if err := w.Cancel(); err != nil {
		t.Fatalf("Cancel during processing: %v", err)
	}
	close(ext.release)

	if err := <-processErr; !errors.Is(err, ErrCancelled) {
		t.Fatalf("Process after cancel = %v, want ErrCancelled", err)
	}
	if w.State() != StateCancelled {
		t.Fatalf("state = %q, want cancelled", w.State())
	}
	if len(w.Items()) != 0 {
		t.Fatal("cancelled workflow kept parsed items")
	}
}

func TestReviewEditing(t *testing.T) {
	w := startReviewing(t, receiptText)

	added, err := w.AddItem("  Brot  ", "1,89")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if added.ID != "item-3" || added.Description != "Brot" || added.Price.Cents != 189 {
		t.Fatalf("added = %+v", added)
	}

	if err := w.UpdateItem("item-1", "KOERNER", "2.99"); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if err := w.RemoveItem("item-2"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}

	items := w.Items()
	if len(items) != 2 {
		t.Fatalf("item count = %d, want 2", len(items))
	}
	if items[0].Description != "KOERNER" || items[0].Price.Cents != 299 {
		t.Fatalf("edited item = %+v", items[0])
	}

	// invalid input never enters the list
	if _, err := w.AddItem("", "1,00"); !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("empty description accepted: %v", err)
	}
	if _, err := w.AddItem("Saft", "abc"); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("non-numeric price accepted: %v", err)
	}
	if _, err := w.AddItem("Saft", "0"); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("zero price accepted: %v", err)
	}
	if err := w.UpdateItem("missing", "X", "1,00"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("UpdateItem on missing id = %v", err)
	}
}

func TestCategorizingRequiresItems(t *testing.T) {
	w := startReviewing(t, "nur rauschen hier")
	if len(w.Items()) != 0 {
		t.Fatal("expected an empty parse")
	}
	if err := w.BeginCategorizing(); !errors.Is(err, ErrEmptyItemList) {
		t.Fatalf("BeginCategorizing on empty list = %v", err)
	}
}

func TestBackUndoesLastAssignment(t *testing.T) {
	w := startReviewing(t, receiptText)
	if err := w.BeginCategorizing(); err != nil {
		t.Fatal(err)
	}

	if err := w.Back(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("Back at cursor 0 = %v", err)
	}

	if _, err := w.Assign(core.CategorySelf); err != nil {
		t.Fatal(err)
	}
	if err := w.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if assigned, _ := w.Progress(); assigned != 0 {
		t.Fatalf("assigned after undo = %d, want 0", assigned)
	}
	if cur, ok := w.Current(); !ok || cur.ID != "item-1" {
		t.Fatalf("Current after undo = %+v", cur)
	}

	// reassigning with a different category sticks
	if _, err := w.Assign(core.CategoryOther); err != nil {
		t.Fatal(err)
	}
	if done, err := w.Assign(core.CategoryShared); err != nil || !done {
		t.Fatalf("final Assign: done=%v err=%v", done, err)
	}
	result, err := w.Result()
	if err != nil {
		t.Fatal(err)
	}
	if result.Totals.Other.Cents != 249 {
		t.Fatalf("Other total = %d, want 249", result.Totals.Other.Cents)
	}
}

func TestConfirmFailureKeepsSummary(t *testing.T) {
	w := startReviewing(t, receiptText)
	if err := w.BeginCategorizing(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Assign(core.CategoryShared); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Assign(core.CategoryShared); err != nil {
		t.Fatal(err)
	}

	sub := &fakeSubmitter{err: errors.New("store unavailable")}
	if err := w.Confirm(context.Background(), sub); err == nil {
		t.Fatal("Confirm should surface the store error")
	}
	if w.State() != StateSummary {
		t.Fatalf("state after failed submit = %q, want summary", w.State())
	}

	// retry succeeds without redoing categorization
	sub.err = nil
	if err := w.Confirm(context.Background(), sub); err != nil {
		t.Fatalf("retry Confirm: %v", err)
	}
	if w.State() != StateCompleted {
		t.Fatalf("state = %q, want completed", w.State())
	}
}

func TestIllegalTransitions(t *testing.T) {
	w := New(&fakeExtractor{text: receiptText})

	var te *TransitionError
	if err := w.BeginCategorizing(); !errors.As(err, &te) {
		t.Fatalf("categorizing before review = %v", err)
	}
	if _, err := w.Assign(core.CategorySelf); !errors.As(err, &te) {
		t.Fatalf("assign in upload = %v", err)
	}
	if _, err := w.Result(); !errors.As(err, &te) {
		t.Fatalf("result in upload = %v", err)
	}
	if err := w.Confirm(context.Background(), &fakeSubmitter{}); !errors.As(err, &te) {
		t.Fatalf("confirm in upload = %v", err)
	}
}

func TestCancelIsTerminalAndPersistsNothing(t *testing.T) {
	sub := &fakeSubmitter{}
	w := startReviewing(t, receiptText)
	if err := w.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := w.Cancel(); err == nil {
		t.Fatal("Cancel on a cancelled workflow should fail")
	}
	if err := w.AttachImage([]byte("img")); err == nil {
		t.Fatal("cancelled workflow accepted an image")
	}
	if len(sub.results) != 0 {
		t.Fatal("cancelled workflow persisted transactions")
	}
}

func TestRegistrySingleActiveScan(t *testing.T) {
	reg := NewRegistry(&fakeExtractor{text: receiptText})

	w1, err := reg.Start("sess-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := reg.Start("sess-1"); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("second Start = %v, want ErrScanInProgress", err)
	}
	// other sessions are independent
	if _, err := reg.Start("sess-2"); err != nil {
		t.Fatalf("Start for second session: %v", err)
	}

	if err := w1.Cancel(); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Start("sess-1"); err != nil {
		t.Fatalf("Start after cancel: %v", err)
	}

	if got, ok := reg.Get("sess-2"); !ok || got == nil {
		t.Fatal("Get lost a session")
	}
	reg.Drop("sess-2")
	if _, ok := reg.Get("sess-2"); ok {
		t.Fatal("Drop did not remove the session")
	}
}
