// Package export forwards appended entries to external sinks (OTel logs,
// Kafka, Loki). Export is best-effort: failures are logged and never
// surface to the code path that produced the entry.
package export

import (
	"context"
	"log/slog"
	"time"

	"spyglass/collector/internal/entrylog/domain"
)

// exportTimeout is the max time allowed for a single async export. Used
// by Async and by ShutdownDrainDuration.
const exportTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the server stops before
// shutting down exporter backends, so in-flight async exports can finish.
// Must be >= exportTimeout.
const ShutdownDrainDuration = exportTimeout

// Exporter sends one entry to an external sink.
type Exporter interface {
	Export(ctx context.Context, e *domain.Entry) error
}

// Async runs Export in a goroutine with a short timeout so the caller is
// never blocked. The goroutine uses context.Background so request
// cancellation does not abort an in-flight export.
//
// exporter and e may be nil; Async returns immediately without starting a
// goroutine.
func Async(exporter Exporter, e *domain.Entry, logger *slog.Logger) {
	if exporter == nil || e == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()
		if err := exporter.Export(ctx, e); err != nil && logger != nil {
			logger.Warn("export: async export failed", "error", err)
		}
	}()
}
