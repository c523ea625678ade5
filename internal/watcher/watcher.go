// Package watcher wraps selected subsystems (batch processors, caches,
// query engines, mailers, job dispatchers, feature gates, HTTP clients,
// Redis clients) so every call emits exactly one telemetry entry, without
// changing the call's result, error, or calling convention. Each watcher
// also exposes a manual Track entry point for hosts whose target is
// absent at startup.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// submitter appends entries on behalf of watchers. Appends use a context
// detached from the instrumented call so a cancelled call still gets its
// entry recorded.
type submitter struct {
	log    *entrylog.Log
	logger *slog.Logger
	now    func() time.Time
}

func newSubmitter(log *entrylog.Log, logger *slog.Logger) *submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &submitter{log: log, logger: logger, now: time.Now}
}

// submit appends one entry. Failures are logged and swallowed; the
// instrumented call must never see them.
func (s *submitter) submit(ctx context.Context, kind domain.Kind, payload map[string]any, tags ...string) {
	if s == nil || s.log == nil {
		return
	}
	if _, err := s.log.Append(context.WithoutCancel(ctx), kind, payload, tags...); err != nil {
		s.logger.Warn("watcher: append failed", "kind", kind, "error", err)
	}
}

// durationMs converts an elapsed duration to whole milliseconds for entry
// payloads.
func durationMs(d time.Duration) int64 {
	return d.Milliseconds()
}

// errStrings converts errors to their string forms, skipping nils.
func errStrings(errs ...error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}
