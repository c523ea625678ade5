package watcher

import (
	"context"
	"fmt"
	"runtime"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// BatchRunner is the capability a batch-processing subsystem exposes.
// Items are opaque to the watcher; only their count matters.
type BatchRunner interface {
	Process(ctx context.Context, name string, items []any) (any, error)
}

// BatchResult is the structured outcome a runner may return. Runners
// returning anything else are treated by the extraction policy below.
type BatchResult struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// BatchOptions configures the batch watcher.
type BatchOptions struct {
	// TrackMemory records a process-wide heap delta across each run.
	// The reading is skewed by concurrent allocation from unrelated
	// goroutines; treat it as indicative, not precise.
	TrackMemory bool
}

// BatchWatcher instruments a BatchRunner. Each Process call appends one
// batch entry with item counts, duration, and a derived status.
type BatchWatcher struct {
	sub  *submitter
	opts BatchOptions
}

// NewBatchWatcher creates the watcher. The returned watcher can Wrap a
// runner or record entries manually via Track.
func NewBatchWatcher(log *entrylog.Log, opts BatchOptions) *BatchWatcher {
	return &BatchWatcher{sub: newSubmitter(log, nil), opts: opts}
}

// Wrap returns a runner that records an entry per call and otherwise
// behaves identically to target. Wrapping an already wrapped runner
// returns it unchanged.
func (w *BatchWatcher) Wrap(target BatchRunner) BatchRunner {
	if target == nil {
		return nil
	}
	if _, ok := target.(*batchDecorator); ok {
		return target
	}
	return &batchDecorator{watcher: w, next: target}
}

// Track records a batch outcome the host observed out-of-band, using the
// same payload shape as automatic instrumentation.
func (w *BatchWatcher) Track(ctx context.Context, name, operation string, totalItems, processed, failed int, elapsedMs int64, errs []string) {
	payload := batchPayload(name, operation, totalItems, processed, failed, elapsedMs, errs)
	w.sub.submit(ctx, domain.KindBatch, payload)
}

type batchDecorator struct {
	watcher *BatchWatcher
	next    BatchRunner
}

func (d *batchDecorator) Process(ctx context.Context, name string, items []any) (any, error) {
	w := d.watcher
	var memBefore uint64
	if w.opts.TrackMemory {
		memBefore = heapInUse()
	}
	start := w.sub.now()
	result, err := d.next.Process(ctx, name, items)
	elapsed := durationMs(w.sub.now().Sub(start))

	total := len(items)
	var processed, failed int
	var errs []string
	if err != nil {
		processed, failed = 0, total
		errs = errStrings(err)
	} else {
		processed, failed, errs = decodeBatchOutcome(result, total)
	}
	payload := batchPayload(name, "process", total, processed, failed, elapsed, errs)
	if w.opts.TrackMemory {
		payload["memoryDeltaBytes"] = int64(heapInUse()) - int64(memBefore)
	}
	w.sub.submit(ctx, domain.KindBatch, payload)
	return result, err
}

// decodeBatchOutcome derives item counts from a raw runner result.
// Structured results (BatchResult or a map with processed/failed fields)
// are read directly; anything else is taken as full success. Extraction
// never panics out to the caller.
func decodeBatchOutcome(result any, totalItems int) (processed, failed int, errs []string) {
	defer func() {
		if recover() != nil {
			processed, failed, errs = totalItems, 0, nil
		}
	}()
	switch r := result.(type) {
	case BatchResult:
		return r.Processed, r.Failed, r.Errors
	case *BatchResult:
		if r == nil {
			return totalItems, 0, nil
		}
		return r.Processed, r.Failed, r.Errors
	case map[string]any:
		return decodeBatchMap(r, totalItems)
	default:
		return totalItems, 0, nil
	}
}

func decodeBatchMap(m map[string]any, totalItems int) (processed, failed int, errs []string) {
	processed, okProcessed := intField(m, "processed", "successful", "success")
	failed, _ = intField(m, "failed")
	if !okProcessed {
		processed = totalItems
	}
	if raw, ok := m["errors"]; ok {
		switch list := raw.(type) {
		case []string:
			errs = list
		case []any:
			for _, v := range list {
				errs = append(errs, fmt.Sprint(v))
			}
		}
	}
	return processed, failed, errs
}

// intField returns the first of the named keys holding a numeric value.
func intField(m map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		}
	}
	return 0, false
}

// batchStatus derives the entry status from item counts.
func batchStatus(processed, failed int) string {
	switch {
	case failed == 0:
		return domain.StatusCompleted
	case processed > 0:
		return domain.StatusPartial
	default:
		return domain.StatusFailed
	}
}

func batchPayload(name, operation string, totalItems, processed, failed int, elapsedMs int64, errs []string) map[string]any {
	payload := map[string]any{
		"name":           name,
		"operation":      operation,
		"totalItems":     totalItems,
		"processedItems": processed,
		"failedItems":    failed,
		"durationMs":     elapsedMs,
		"status":         batchStatus(processed, failed),
	}
	if len(errs) > 0 {
		payload["errors"] = errs
	}
	return payload
}

func heapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapInuse
}
