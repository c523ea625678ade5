package watcher

import (
	"context"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// EventWatcher records the manual-only entry kinds: schedules,
// notifications, view renders, GraphQL operations, model events, and
// domain events. These have no wrappable target in the host; the host
// calls Track* where the event happens.
type EventWatcher struct {
	sub *submitter
}

func NewEventWatcher(log *entrylog.Log) *EventWatcher {
	return &EventWatcher{sub: newSubmitter(log, nil)}
}

// TrackSchedule records one run of a scheduled task.
func (w *EventWatcher) TrackSchedule(ctx context.Context, name string, elapsedMs int64, err error) {
	payload := map[string]any{
		"name":       name,
		"durationMs": elapsedMs,
		"status":     domain.StatusCompleted,
	}
	if err != nil {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errStrings(err)
	}
	w.sub.submit(ctx, domain.KindSchedule, payload)
}

// TrackNotification records a delivered notification.
func (w *EventWatcher) TrackNotification(ctx context.Context, channel, recipient string, err error) {
	payload := map[string]any{
		"channel":   channel,
		"recipient": recipient,
		"status":    domain.StatusCompleted,
	}
	if err != nil {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errStrings(err)
	}
	w.sub.submit(ctx, domain.KindNotification, payload)
}

// TrackViewRender records a template/view render.
func (w *EventWatcher) TrackViewRender(ctx context.Context, view string, elapsedMs int64, err error) {
	payload := map[string]any{
		"view":       view,
		"durationMs": elapsedMs,
		"status":     domain.StatusCompleted,
	}
	if err != nil {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errStrings(err)
	}
	w.sub.submit(ctx, domain.KindViewRender, payload)
}

// TrackGraphQL records one GraphQL operation execution.
func (w *EventWatcher) TrackGraphQL(ctx context.Context, operationName, operationType string, elapsedMs int64, errs []string) {
	payload := map[string]any{
		"operationName": operationName,
		"operationType": operationType,
		"durationMs":    elapsedMs,
		"status":        domain.StatusCompleted,
	}
	if len(errs) > 0 {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errs
	}
	w.sub.submit(ctx, domain.KindGraphQL, payload)
}

// TrackModelEvent records a created/updated/deleted event on a persisted
// model.
func (w *EventWatcher) TrackModelEvent(ctx context.Context, model, action, id string) {
	w.sub.submit(ctx, domain.KindModelEvent, map[string]any{
		"model":  model,
		"action": action,
		"id":     id,
		"status": domain.StatusCompleted,
	})
}

// TrackDomainEvent records an application-level event with an arbitrary
// payload.
func (w *EventWatcher) TrackDomainEvent(ctx context.Context, name string, fields map[string]any) {
	payload := map[string]any{
		"name":   name,
		"status": domain.StatusCompleted,
	}
	if len(fields) > 0 {
		payload["fields"] = fields
	}
	w.sub.submit(ctx, domain.KindDomainEvent, payload)
}
