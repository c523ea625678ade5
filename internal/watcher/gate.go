package watcher

import (
	"context"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// GateChecker is the capability a feature-gate subsystem exposes.
type GateChecker interface {
	Enabled(ctx context.Context, gate, subject string) (bool, error)
}

// GateWatcher instruments a GateChecker. Each check appends one
// feature-gate entry with the gate name, subject, and decision.
type GateWatcher struct {
	sub *submitter
}

func NewGateWatcher(log *entrylog.Log) *GateWatcher {
	return &GateWatcher{sub: newSubmitter(log, nil)}
}

// Wrap returns a checker that records an entry per check. Wrapping an
// already wrapped checker returns it unchanged.
func (w *GateWatcher) Wrap(target GateChecker) GateChecker {
	if target == nil {
		return nil
	}
	if _, ok := target.(*gateDecorator); ok {
		return target
	}
	return &gateDecorator{watcher: w, next: target}
}

// Track records a gate decision observed out-of-band.
func (w *GateWatcher) Track(ctx context.Context, gate, subject string, enabled bool, elapsedMs int64, err error) {
	w.sub.submit(ctx, domain.KindFeatureGate, gatePayload(gate, subject, enabled, elapsedMs, err))
}

type gateDecorator struct {
	watcher *GateWatcher
	next    GateChecker
}

func (d *gateDecorator) Enabled(ctx context.Context, gate, subject string) (bool, error) {
	start := d.watcher.sub.now()
	enabled, err := d.next.Enabled(ctx, gate, subject)
	elapsed := durationMs(d.watcher.sub.now().Sub(start))
	d.watcher.sub.submit(ctx, domain.KindFeatureGate, gatePayload(gate, subject, enabled, elapsed, err))
	return enabled, err
}

func gatePayload(gate, subject string, enabled bool, elapsedMs int64, err error) map[string]any {
	payload := map[string]any{
		"gate":       gate,
		"subject":    subject,
		"enabled":    enabled,
		"durationMs": elapsedMs,
		"status":     domain.StatusCompleted,
	}
	if err != nil {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errStrings(err)
	}
	return payload
}
