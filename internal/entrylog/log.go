// Package entrylog implements the central entry log service: validated
// appends with sequence assignment, cursor reads, resolve state for
// exception entries, and fan-out to configured exporters.
package entrylog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spyglass/collector/internal/apperr"
	"spyglass/collector/internal/entrylog/domain"
	"spyglass/collector/internal/entrylog/repository"
	"spyglass/collector/internal/export"
)

// Log is the single write path into the entry store. Watchers and the
// HTTP API both go through it.
type Log struct {
	store     repository.Store
	logger    *slog.Logger
	exporters []export.Exporter
}

// NewLog creates the service. exporters may be empty; nil entries are
// skipped.
func NewLog(store repository.Store, logger *slog.Logger, exporters ...export.Exporter) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	kept := make([]export.Exporter, 0, len(exporters))
	for _, e := range exporters {
		if e != nil {
			kept = append(kept, e)
		}
	}
	return &Log{store: store, logger: logger, exporters: kept}
}

// Append validates and stores a new entry, assigns its sequence, and
// forwards it asynchronously to every exporter. The stored entry (with
// sequence and UUID filled in) is returned.
func (l *Log) Append(ctx context.Context, kind domain.Kind, payload map[string]any, tags ...string) (*domain.Entry, error) {
	if !kind.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown entry kind %q", kind))
	}
	if payload == nil {
		payload = map[string]any{}
	}
	e := &domain.Entry{
		UUID:      uuid.NewString(),
		Kind:      kind,
		Payload:   payload,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}
	seq, err := l.store.Append(ctx, e)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "append entry", err)
	}
	e.Sequence = seq
	for _, exp := range l.exporters {
		export.Async(exp, e, l.logger)
	}
	return e, nil
}

// GetBySequence returns one entry or a NOT_FOUND error.
func (l *Log) GetBySequence(ctx context.Context, seq int64) (*domain.Entry, error) {
	e, err := l.store.GetBySequence(ctx, seq)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound(fmt.Sprintf("entry %d not found", seq))
	}
	return e, nil
}

// Entries returns one page of entries for the given cursor query.
func (l *Log) Entries(ctx context.Context, q domain.Query) (*domain.Page, error) {
	return l.store.List(ctx, q.Normalize())
}

// CheckNew reports how many matching entries exist after the cursor and
// the newest matching sequence, without returning the entries themselves.
func (l *Log) CheckNew(ctx context.Context, after int64, f *domain.Filter) (*domain.NewEntries, error) {
	count, newest, err := l.store.CountSince(ctx, after, f)
	if err != nil {
		return nil, err
	}
	return &domain.NewEntries{Count: count, NewestSequence: newest}, nil
}

// LatestSequence returns the highest sequence ever assigned, or 0 when
// the log has never held an entry.
func (l *Log) LatestSequence(ctx context.Context) (int64, error) {
	seq, ok, err := l.store.LatestSequence(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return seq, nil
}

// Resolve marks an exception entry resolved. Resolving an already
// resolved entry is a no-op. Only exception entries can be resolved.
func (l *Log) Resolve(ctx context.Context, seq int64) (*domain.Entry, error) {
	return l.setResolved(ctx, seq, true)
}

// Unresolve clears the resolved flag on an exception entry.
func (l *Log) Unresolve(ctx context.Context, seq int64) (*domain.Entry, error) {
	return l.setResolved(ctx, seq, false)
}

func (l *Log) setResolved(ctx context.Context, seq int64, resolved bool) (*domain.Entry, error) {
	e, err := l.store.GetBySequence(ctx, seq)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound(fmt.Sprintf("entry %d not found", seq))
	}
	if e.Kind != domain.KindException {
		return nil, apperr.InvalidOperation(fmt.Sprintf("entry %d is %s, only exception entries can be resolved", seq, e.Kind))
	}
	if e.Resolved == resolved {
		return e, nil
	}
	found, err := l.store.SetResolved(ctx, seq, resolved)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound(fmt.Sprintf("entry %d not found", seq))
	}
	e.Resolved = resolved
	return e, nil
}

// Clear removes matching entries (all when f is nil or zero). Sequence
// numbering continues where it left off.
func (l *Log) Clear(ctx context.Context, f *domain.Filter) (int64, error) {
	removed, err := l.store.Clear(ctx, f)
	if err != nil {
		return 0, err
	}
	l.logger.Info("entrylog: cleared entries", "removed", removed)
	return removed, nil
}

// Stats aggregates counts per kind and status over the filtered set.
func (l *Log) Stats(ctx context.Context, f *domain.Filter) (*domain.Stats, error) {
	return l.store.Stats(ctx, f)
}
