package watcher

import (
	"context"
	"database/sql"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// QueryRunner is the capability a SQL execution layer exposes. *sql.DB
// satisfies it directly.
type QueryRunner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// QueryOptions configures the query watcher.
type QueryOptions struct {
	// SlowThresholdMs tags queries slower than this with "slow". Zero
	// disables the tag.
	SlowThresholdMs int64
}

// QueryWatcher instruments a QueryRunner. Each query or exec appends one
// query entry with the SQL text, duration, and row count when known.
type QueryWatcher struct {
	sub  *submitter
	opts QueryOptions
}

func NewQueryWatcher(log *entrylog.Log, opts QueryOptions) *QueryWatcher {
	return &QueryWatcher{sub: newSubmitter(log, nil), opts: opts}
}

// Wrap returns a runner that records an entry per statement. Wrapping an
// already wrapped runner returns it unchanged.
func (w *QueryWatcher) Wrap(target QueryRunner) QueryRunner {
	if target == nil {
		return nil
	}
	if _, ok := target.(*queryDecorator); ok {
		return target
	}
	return &queryDecorator{watcher: w, next: target}
}

// Track records a statement observed out-of-band.
func (w *QueryWatcher) Track(ctx context.Context, operation, query string, rowsAffected, elapsedMs int64, err error) {
	payload := queryPayload(operation, query, elapsedMs, err)
	if err == nil {
		payload["rowsAffected"] = rowsAffected
	}
	w.sub.submit(ctx, domain.KindQuery, payload, w.tags(elapsedMs)...)
}

func (w *QueryWatcher) tags(elapsedMs int64) []string {
	if w.opts.SlowThresholdMs > 0 && elapsedMs >= w.opts.SlowThresholdMs {
		return []string{"slow"}
	}
	return nil
}

type queryDecorator struct {
	watcher *QueryWatcher
	next    QueryRunner
}

func (d *queryDecorator) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	w := d.watcher
	start := w.sub.now()
	rows, err := d.next.QueryContext(ctx, query, args...)
	elapsed := durationMs(w.sub.now().Sub(start))
	w.sub.submit(ctx, domain.KindQuery, queryPayload("query", query, elapsed, err), w.tags(elapsed)...)
	return rows, err
}

func (d *queryDecorator) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	w := d.watcher
	start := w.sub.now()
	result, err := d.next.ExecContext(ctx, query, args...)
	elapsed := durationMs(w.sub.now().Sub(start))
	payload := queryPayload("exec", query, elapsed, err)
	if err == nil && result != nil {
		if affected, raErr := result.RowsAffected(); raErr == nil {
			payload["rowsAffected"] = affected
		}
	}
	w.sub.submit(ctx, domain.KindQuery, payload, w.tags(elapsed)...)
	return result, err
}

func queryPayload(operation, query string, elapsedMs int64, err error) map[string]any {
	payload := map[string]any{
		"operation":  operation,
		"sql":        query,
		"durationMs": elapsedMs,
		"status":     domain.StatusCompleted,
	}
	if err != nil {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errStrings(err)
	}
	return payload
}
