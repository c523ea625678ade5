package otel

import (
	"context"
	"encoding/json"
	"strings"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"spyglass/collector/internal/entrylog/domain"
	"spyglass/collector/internal/export"
)

// NewExporter returns an Exporter that sends entries as OTel log records
// via the given LoggerProvider. If provider is nil, returns a no-op
// exporter.
func NewExporter(provider *sdklog.LoggerProvider) export.Exporter {
	if provider == nil {
		return noopExporter{}
	}
	return &otelExporter{logger: provider.Logger("spyglass.entries")}
}

type noopExporter struct{}

func (noopExporter) Export(context.Context, *domain.Entry) error { return nil }

type otelExporter struct {
	logger otellog.Logger
}

// Export converts the entry to an OTel log record and emits it.
func (e *otelExporter) Export(ctx context.Context, entry *domain.Entry) error {
	if entry == nil {
		return nil
	}
	rec := otellog.Record{}
	if !entry.CreatedAt.IsZero() {
		rec.SetTimestamp(entry.CreatedAt)
	}
	if entry.Payload != nil {
		if body, err := json.Marshal(entry.Payload); err == nil {
			rec.SetBody(otellog.BytesValue(body))
		}
	}
	rec.AddAttributes(
		otellog.Int64("sequence", entry.Sequence),
		otellog.String("kind", string(entry.Kind)),
	)
	if entry.UUID != "" {
		rec.AddAttributes(otellog.String("uuid", entry.UUID))
	}
	if len(entry.Tags) > 0 {
		rec.AddAttributes(otellog.String("tags", strings.Join(entry.Tags, ",")))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
