package watcher

import (
	"context"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// Mailer is the capability an outbound mail subsystem exposes.
type Mailer interface {
	Send(ctx context.Context, to []string, subject string, body string) error
}

// MailWatcher instruments a Mailer. Each send appends one mail entry with
// recipients, subject, and outcome. Bodies are never recorded.
type MailWatcher struct {
	sub *submitter
}

func NewMailWatcher(log *entrylog.Log) *MailWatcher {
	return &MailWatcher{sub: newSubmitter(log, nil)}
}

// Wrap returns a mailer that records an entry per send. Wrapping an
// already wrapped mailer returns it unchanged.
func (w *MailWatcher) Wrap(target Mailer) Mailer {
	if target == nil {
		return nil
	}
	if _, ok := target.(*mailDecorator); ok {
		return target
	}
	return &mailDecorator{watcher: w, next: target}
}

// Track records a send observed out-of-band.
func (w *MailWatcher) Track(ctx context.Context, to []string, subject string, elapsedMs int64, err error) {
	w.sub.submit(ctx, domain.KindMail, mailPayload(to, subject, elapsedMs, err))
}

type mailDecorator struct {
	watcher *MailWatcher
	next    Mailer
}

func (d *mailDecorator) Send(ctx context.Context, to []string, subject string, body string) error {
	start := d.watcher.sub.now()
	err := d.next.Send(ctx, to, subject, body)
	elapsed := durationMs(d.watcher.sub.now().Sub(start))
	d.watcher.sub.submit(ctx, domain.KindMail, mailPayload(to, subject, elapsed, err))
	return err
}

func mailPayload(to []string, subject string, elapsedMs int64, err error) map[string]any {
	payload := map[string]any{
		"to":         append([]string(nil), to...),
		"subject":    subject,
		"durationMs": elapsedMs,
		"status":     domain.StatusCompleted,
	}
	if err != nil {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errStrings(err)
	}
	return payload
}
