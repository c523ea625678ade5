package watcher

import (
	"context"
	"fmt"
	"runtime"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// ExceptionWatcher records errors the host reports explicitly. There is
// no target to wrap; exceptions are always tracked manually.
type ExceptionWatcher struct {
	sub *submitter
}

func NewExceptionWatcher(log *entrylog.Log) *ExceptionWatcher {
	return &ExceptionWatcher{sub: newSubmitter(log, nil)}
}

// Report records err as an exception entry with its dynamic type as the
// class and the reporting goroutine's stack. Nil errors are ignored.
func (w *ExceptionWatcher) Report(ctx context.Context, err error, tags ...string) {
	if err == nil {
		return
	}
	buf := make([]byte, 16*1024)
	n := runtime.Stack(buf, false)
	payload := map[string]any{
		"class":   fmt.Sprintf("%T", err),
		"message": err.Error(),
		"stack":   string(buf[:n]),
		"status":  domain.StatusFailed,
	}
	w.sub.submit(ctx, domain.KindException, payload, tags...)
}

// ReportPanic records a recovered panic value. Intended for use in the
// host's recover handlers.
func (w *ExceptionWatcher) ReportPanic(ctx context.Context, recovered any, tags ...string) {
	if recovered == nil {
		return
	}
	buf := make([]byte, 16*1024)
	n := runtime.Stack(buf, false)
	payload := map[string]any{
		"class":   fmt.Sprintf("%T", recovered),
		"message": fmt.Sprint(recovered),
		"stack":   string(buf[:n]),
		"panic":   true,
		"status":  domain.StatusFailed,
	}
	w.sub.submit(ctx, domain.KindException, payload, tags...)
}
