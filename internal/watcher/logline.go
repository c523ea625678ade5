package watcher

import (
	"context"
	"log/slog"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// internalMarker is attached to the collector's own diagnostic loggers so
// the log-line watcher never mirrors them back into the entry log.
const internalMarker = "spyglass_internal"

// InternalLogger tags a logger so the log-line watcher ignores its
// records. The collector's own components log through this.
func InternalLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(internalMarker, true)
}

// LogLineWatcher mirrors host log records at or above a minimum level
// into the entry log as log-line entries. It wraps an existing
// slog.Handler so the host's own log output is unchanged.
type LogLineWatcher struct {
	sub      *submitter
	minLevel slog.Level
}

func NewLogLineWatcher(log *entrylog.Log, minLevel slog.Level) *LogLineWatcher {
	return &LogLineWatcher{sub: newSubmitter(log, nil), minLevel: minLevel}
}

// Wrap returns a handler that forwards every record to next and also
// appends an entry for records at or above the watcher's minimum level.
// Wrapping an already wrapped handler returns it unchanged.
func (w *LogLineWatcher) Wrap(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	if _, ok := next.(*logLineHandler); ok {
		return next
	}
	return &logLineHandler{watcher: w, next: next}
}

type logLineHandler struct {
	watcher *LogLineWatcher
	next    slog.Handler
	// internal is set when the logger branch carries the internal marker
	// via WithAttrs; those records are never mirrored.
	internal bool
}

func (h *logLineHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *logLineHandler) Handle(ctx context.Context, rec slog.Record) error {
	err := h.next.Handle(ctx, rec)
	if h.internal || rec.Level < h.watcher.minLevel {
		return err
	}
	attrs := map[string]any{}
	skip := false
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == internalMarker {
			skip = true
			return false
		}
		attrs[a.Key] = a.Value.Any()
		return true
	})
	if skip {
		return err
	}
	payload := map[string]any{
		"level":   rec.Level.String(),
		"message": rec.Message,
		"status":  domain.StatusCompleted,
	}
	if rec.Level >= slog.LevelError {
		payload["status"] = domain.StatusFailed
	}
	if len(attrs) > 0 {
		payload["attrs"] = attrs
	}
	h.watcher.sub.submit(ctx, domain.KindLogLine, payload)
	return err
}

func (h *logLineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	internal := h.internal
	for _, a := range attrs {
		if a.Key == internalMarker {
			internal = true
		}
	}
	return &logLineHandler{watcher: h.watcher, next: h.next.WithAttrs(attrs), internal: internal}
}

func (h *logLineHandler) WithGroup(name string) slog.Handler {
	return &logLineHandler{watcher: h.watcher, next: h.next.WithGroup(name), internal: h.internal}
}
