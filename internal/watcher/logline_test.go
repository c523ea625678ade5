package watcher

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"spyglass/collector/internal/entrylog/domain"
)

func TestLogLineWatcher_MirrorsWarningsAndAbove(t *testing.T) {
	log, store := newTestLog(t)
	w := NewLogLineWatcher(log, slog.LevelWarn)

	var buf bytes.Buffer
	logger := slog.New(w.Wrap(slog.NewTextHandler(&buf, nil)))

	logger.Info("routine", "step", 1)
	logger.Warn("disk filling", "free", "2GB")
	logger.Error("write failed")

	entries := allEntries(t, store)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (warn and error only)", len(entries))
	}
	if entries[0].Payload["message"] != "disk filling" {
		t.Errorf("first entry = %v, want the warning", entries[0].Payload["message"])
	}
	if entries[1].Payload["status"] != domain.StatusFailed {
		t.Errorf("error-level record should be marked failed, got %v", entries[1].Payload["status"])
	}

	// Host log output is unchanged.
	out := buf.String()
	for _, want := range []string{"routine", "disk filling", "write failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("underlying handler output missing %q", want)
		}
	}
}

func TestLogLineWatcher_SkipsInternalLoggers(t *testing.T) {
	log, store := newTestLog(t)
	w := NewLogLineWatcher(log, slog.LevelWarn)

	var buf bytes.Buffer
	base := slog.New(w.Wrap(slog.NewTextHandler(&buf, nil)))
	internal := InternalLogger(base)

	internal.Warn("collector diagnostic")

	if entries := allEntries(t, store); len(entries) != 0 {
		t.Errorf("entries = %d, want 0; internal records must not be mirrored", len(entries))
	}
	if !strings.Contains(buf.String(), "collector diagnostic") {
		t.Error("internal records should still reach the underlying handler")
	}
}

func TestLogLineWatcher_WrapIsIdempotent(t *testing.T) {
	log, _ := newTestLog(t)
	w := NewLogLineWatcher(log, slog.LevelWarn)

	h := w.Wrap(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if again := w.Wrap(h); again != h {
		t.Error("wrapping an already wrapped handler should return it unchanged")
	}
}
