package watcher

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
	"spyglass/collector/internal/entrylog/repository"
)

func newTestLog(t *testing.T) (*entrylog.Log, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore(0)
	return entrylog.NewLog(store, nil), store
}

func allEntries(t *testing.T, store *repository.MemoryStore) []*domain.Entry {
	t.Helper()
	page, err := store.List(context.Background(), domain.Query{Direction: domain.Forward, Limit: domain.MaxLimit}.Normalize())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return page.Entries
}

func singleEntry(t *testing.T, store *repository.MemoryStore) *domain.Entry {
	t.Helper()
	entries := allEntries(t, store)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want exactly 1", len(entries))
	}
	return entries[0]
}

type fakeRunner struct {
	result any
	err    error
	calls  int
}

func (f *fakeRunner) Process(ctx context.Context, name string, items []any) (any, error) {
	f.calls++
	return f.result, f.err
}

func items(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestBatchWatcher_StructuredResultCompleted(t *testing.T) {
	log, store := newTestLog(t)
	w := NewBatchWatcher(log, BatchOptions{})
	runner := &fakeRunner{result: map[string]any{"processed": 10, "failed": 0}}

	wrapped := w.Wrap(runner)
	result, err := wrapped.Process(context.Background(), "import", items(5))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !reflect.DeepEqual(result, runner.result) {
		t.Errorf("result = %#v, want the runner's result unchanged", result)
	}

	e := singleEntry(t, store)
	if e.Kind != domain.KindBatch {
		t.Errorf("kind = %s, want batch", e.Kind)
	}
	p := e.Payload
	if p["totalItems"] != 5 || p["processedItems"] != 10 || p["failedItems"] != 0 {
		t.Errorf("counts = total:%v processed:%v failed:%v, want 5/10/0", p["totalItems"], p["processedItems"], p["failedItems"])
	}
	if p["status"] != domain.StatusCompleted {
		t.Errorf("status = %v, want completed", p["status"])
	}
}

func TestBatchWatcher_PartialStatus(t *testing.T) {
	log, store := newTestLog(t)
	w := NewBatchWatcher(log, BatchOptions{})
	runner := &fakeRunner{result: map[string]any{"processed": 8, "failed": 2}}

	if _, err := w.Wrap(runner).Process(context.Background(), "import", items(10)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status := singleEntry(t, store).Payload["status"]; status != domain.StatusPartial {
		t.Errorf("status = %v, want partial", status)
	}
}

func TestBatchWatcher_ErrorRecordsFailureAndReraises(t *testing.T) {
	log, store := newTestLog(t)
	w := NewBatchWatcher(log, BatchOptions{})
	boom := errors.New("boom")
	runner := &fakeRunner{err: boom}

	_, err := w.Wrap(runner).Process(context.Background(), "import", items(3))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want the original error unchanged", err)
	}

	p := singleEntry(t, store).Payload
	if p["totalItems"] != 3 || p["processedItems"] != 0 || p["failedItems"] != 3 {
		t.Errorf("counts = total:%v processed:%v failed:%v, want 3/0/3", p["totalItems"], p["processedItems"], p["failedItems"])
	}
	if p["status"] != domain.StatusFailed {
		t.Errorf("status = %v, want failed", p["status"])
	}
	if got, want := p["errors"], []string{"boom"}; !reflect.DeepEqual(got, want) {
		t.Errorf("errors = %v, want %v", got, want)
	}
}

func TestBatchWatcher_NonRecordResultAssumesFullSuccess(t *testing.T) {
	log, store := newTestLog(t)
	w := NewBatchWatcher(log, BatchOptions{})
	runner := &fakeRunner{result: "ok"}

	result, err := w.Wrap(runner).Process(context.Background(), "import", items(5))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %v, want \"ok\"", result)
	}

	p := singleEntry(t, store).Payload
	if p["totalItems"] != 5 || p["processedItems"] != 5 || p["failedItems"] != 0 {
		t.Errorf("counts = total:%v processed:%v failed:%v, want 5/5/0", p["totalItems"], p["processedItems"], p["failedItems"])
	}
}

func TestBatchWatcher_BatchResultStruct(t *testing.T) {
	log, store := newTestLog(t)
	w := NewBatchWatcher(log, BatchOptions{})
	runner := &fakeRunner{result: BatchResult{Processed: 4, Failed: 1, Errors: []string{"row 3"}}}

	if _, err := w.Wrap(runner).Process(context.Background(), "sync", items(5)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	p := singleEntry(t, store).Payload
	if p["processedItems"] != 4 || p["failedItems"] != 1 {
		t.Errorf("counts = processed:%v failed:%v, want 4/1", p["processedItems"], p["failedItems"])
	}
	if p["status"] != domain.StatusPartial {
		t.Errorf("status = %v, want partial", p["status"])
	}
}

func TestBatchWatcher_ExactlyOneEntryPerCall(t *testing.T) {
	log, store := newTestLog(t)
	w := NewBatchWatcher(log, BatchOptions{})
	runner := &fakeRunner{result: map[string]any{"processed": 1, "failed": 0}}
	wrapped := w.Wrap(runner)

	for i := 0; i < 3; i++ {
		if _, err := wrapped.Process(context.Background(), "import", items(1)); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if got := len(allEntries(t, store)); got != 3 {
		t.Errorf("entries = %d, want 3 (one per call)", got)
	}
	if runner.calls != 3 {
		t.Errorf("runner calls = %d, want 3", runner.calls)
	}
}

func TestBatchWatcher_WrapIsIdempotent(t *testing.T) {
	log, _ := newTestLog(t)
	w := NewBatchWatcher(log, BatchOptions{})
	runner := &fakeRunner{result: "ok"}

	wrapped := w.Wrap(runner)
	if rewrapped := w.Wrap(wrapped); rewrapped != wrapped {
		t.Error("wrapping an already wrapped runner should return it unchanged")
	}
	other := NewBatchWatcher(log, BatchOptions{})
	if rewrapped := other.Wrap(wrapped); rewrapped != wrapped {
		t.Error("a different watcher must not stack a second decorator")
	}
}

func TestBatchWatcher_CancelledCallStillRecorded(t *testing.T) {
	log, store := newTestLog(t)
	w := NewBatchWatcher(log, BatchOptions{})
	runner := &fakeRunner{err: context.Canceled}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Wrap(runner).Process(ctx, "import", items(2))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	p := singleEntry(t, store).Payload
	if p["status"] != domain.StatusFailed {
		t.Errorf("status = %v, want failed (cancellation is a failure outcome)", p["status"])
	}
}

func TestBatchWatcher_TrackMemoryAddsDelta(t *testing.T) {
	log, store := newTestLog(t)
	w := NewBatchWatcher(log, BatchOptions{TrackMemory: true})
	runner := &fakeRunner{result: "ok"}

	if _, err := w.Wrap(runner).Process(context.Background(), "import", items(1)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, ok := singleEntry(t, store).Payload["memoryDeltaBytes"]; !ok {
		t.Error("memoryDeltaBytes should be recorded when TrackMemory is on")
	}
}

func TestBatchWatcher_ManualTrack(t *testing.T) {
	log, store := newTestLog(t)
	w := NewBatchWatcher(log, BatchOptions{})

	w.Track(context.Background(), "nightly", "process", 100, 90, 10, 1234, []string{"row 7"})

	p := singleEntry(t, store).Payload
	if p["name"] != "nightly" || p["totalItems"] != 100 {
		t.Errorf("payload = %#v, want manual fields recorded", p)
	}
	if p["status"] != domain.StatusPartial {
		t.Errorf("status = %v, want partial", p["status"])
	}
}

func TestDecodeBatchOutcome(t *testing.T) {
	tests := []struct {
		name          string
		result        any
		total         int
		wantProcessed int
		wantFailed    int
	}{
		{"explicit fields", map[string]any{"processed": 10, "failed": 0}, 5, 10, 0},
		{"successful alias", map[string]any{"successful": 7, "failed": 1}, 8, 7, 1},
		{"json numbers", map[string]any{"processed": float64(3), "failed": float64(2)}, 5, 3, 2},
		{"non-record", "done", 5, 5, 0},
		{"nil result", nil, 4, 4, 0},
		{"nil struct pointer", (*BatchResult)(nil), 2, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processed, failed, _ := decodeBatchOutcome(tt.result, tt.total)
			if processed != tt.wantProcessed || failed != tt.wantFailed {
				t.Errorf("decode = %d/%d, want %d/%d", processed, failed, tt.wantProcessed, tt.wantFailed)
			}
		})
	}
}

func TestBatchStatus(t *testing.T) {
	tests := []struct {
		processed, failed int
		want              string
	}{
		{10, 0, domain.StatusCompleted},
		{8, 2, domain.StatusPartial},
		{0, 3, domain.StatusFailed},
		{0, 0, domain.StatusCompleted},
	}
	for _, tt := range tests {
		if got := batchStatus(tt.processed, tt.failed); got != tt.want {
			t.Errorf("batchStatus(%d, %d) = %s, want %s", tt.processed, tt.failed, got, tt.want)
		}
	}
}
