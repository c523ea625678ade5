package watcher

import (
	"context"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// Dispatcher is the capability a background-job subsystem exposes.
type Dispatcher interface {
	Dispatch(ctx context.Context, queue, jobName string, payload any) error
}

// JobWatcher instruments a Dispatcher. Each dispatch appends one job
// entry with the queue, job name, and outcome.
type JobWatcher struct {
	sub *submitter
}

func NewJobWatcher(log *entrylog.Log) *JobWatcher {
	return &JobWatcher{sub: newSubmitter(log, nil)}
}

// Wrap returns a dispatcher that records an entry per dispatch. Wrapping
// an already wrapped dispatcher returns it unchanged.
func (w *JobWatcher) Wrap(target Dispatcher) Dispatcher {
	if target == nil {
		return nil
	}
	if _, ok := target.(*jobDecorator); ok {
		return target
	}
	return &jobDecorator{watcher: w, next: target}
}

// Track records a dispatch observed out-of-band.
func (w *JobWatcher) Track(ctx context.Context, queue, jobName string, elapsedMs int64, err error) {
	w.sub.submit(ctx, domain.KindJob, jobPayload(queue, jobName, elapsedMs, err))
}

type jobDecorator struct {
	watcher *JobWatcher
	next    Dispatcher
}

func (d *jobDecorator) Dispatch(ctx context.Context, queue, jobName string, payload any) error {
	start := d.watcher.sub.now()
	err := d.next.Dispatch(ctx, queue, jobName, payload)
	elapsed := durationMs(d.watcher.sub.now().Sub(start))
	d.watcher.sub.submit(ctx, domain.KindJob, jobPayload(queue, jobName, elapsed, err))
	return err
}

func jobPayload(queue, jobName string, elapsedMs int64, err error) map[string]any {
	payload := map[string]any{
		"queue":      queue,
		"name":       jobName,
		"durationMs": elapsedMs,
		"status":     domain.StatusCompleted,
	}
	if err != nil {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errStrings(err)
	}
	return payload
}
