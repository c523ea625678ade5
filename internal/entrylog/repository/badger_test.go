package repository

import (
	"context"
	"reflect"
	"testing"

	"spyglass/collector/internal/entrylog/domain"
)

func openTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadgerStore(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func badgerAppendN(t *testing.T, s *BadgerStore, n int, kind domain.Kind) {
	t.Helper()
	for i := 0; i < n; i++ {
		e := &domain.Entry{Kind: kind, Payload: map[string]any{"status": domain.StatusCompleted}}
		if _, err := s.Append(context.Background(), e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
}

func TestBadgerStore_AppendAssignsAscendingSequences(t *testing.T) {
	s := openTestBadger(t)
	for want := int64(1); want <= 5; want++ {
		seq, err := s.Append(context.Background(), &domain.Entry{Kind: domain.KindJob, Payload: map[string]any{}})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if seq != want {
			t.Errorf("sequence = %d, want %d", seq, want)
		}
	}
}

func TestBadgerStore_CursorPaging(t *testing.T) {
	s := openTestBadger(t)
	badgerAppendN(t, s, 10, domain.KindRequest)

	forward, err := s.List(context.Background(), domain.Query{Direction: domain.Forward, Limit: 4}.Normalize())
	if err != nil {
		t.Fatalf("List forward: %v", err)
	}
	if got, want := pageSeqs(forward), []int64{1, 2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("forward page = %v, want %v", got, want)
	}
	if !forward.HasMore {
		t.Error("forward hasMore should be true")
	}

	cursor := int64(7)
	backward, err := s.List(context.Background(), domain.Query{Cursor: &cursor, Direction: domain.Backward, Limit: 3}.Normalize())
	if err != nil {
		t.Fatalf("List backward: %v", err)
	}
	if got, want := pageSeqs(backward), []int64{6, 5, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("backward page = %v, want %v", got, want)
	}
	if !backward.HasMore {
		t.Error("backward hasMore should be true with sequences 1..3 remaining")
	}
}

func TestBadgerStore_PayloadRoundTrip(t *testing.T) {
	s := openTestBadger(t)
	payload := map[string]any{
		"name":       "sync",
		"totalItems": float64(7),
		"errors":     []any{"x"},
	}
	seq, err := s.Append(context.Background(), &domain.Entry{Kind: domain.KindBatch, Payload: payload, Tags: []string{"slow"}})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.GetBySequence(context.Background(), seq)
	if err != nil {
		t.Fatalf("GetBySequence: %v", err)
	}
	if got == nil {
		t.Fatal("entry not found")
	}
	if !reflect.DeepEqual(got.Payload, payload) {
		t.Errorf("payload = %#v, want %#v", got.Payload, payload)
	}
	if !got.HasTag("slow") {
		t.Error("tags should survive the round trip")
	}
}

func TestBadgerStore_ClearKeepsNumbering(t *testing.T) {
	s := openTestBadger(t)
	badgerAppendN(t, s, 4, domain.KindRequest)

	removed, err := s.Clear(context.Background(), nil)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 4 {
		t.Errorf("removed = %d, want 4", removed)
	}

	seq, err := s.Append(context.Background(), &domain.Entry{Kind: domain.KindRequest, Payload: map[string]any{}})
	if err != nil {
		t.Fatalf("Append after clear: %v", err)
	}
	if seq != 5 {
		t.Errorf("sequence after clear = %d, want 5", seq)
	}
}

func TestBadgerStore_SetResolved(t *testing.T) {
	s := openTestBadger(t)
	badgerAppendN(t, s, 1, domain.KindException)

	found, err := s.SetResolved(context.Background(), 1, true)
	if err != nil || !found {
		t.Fatalf("SetResolved: found=%v err=%v", found, err)
	}
	e, err := s.GetBySequence(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetBySequence: %v", err)
	}
	if !e.Resolved {
		t.Error("entry should be resolved")
	}

	found, err = s.SetResolved(context.Background(), 99, true)
	if err != nil {
		t.Fatalf("SetResolved missing: %v", err)
	}
	if found {
		t.Error("missing sequence should report found=false")
	}
}

func TestBadgerStore_CountSinceAndStats(t *testing.T) {
	s := openTestBadger(t)
	badgerAppendN(t, s, 3, domain.KindRequest)
	badgerAppendN(t, s, 2, domain.KindCache)

	count, newest, err := s.CountSince(context.Background(), 3, nil)
	if err != nil {
		t.Fatalf("CountSince: %v", err)
	}
	if count != 2 || newest != 5 {
		t.Errorf("count=%d newest=%d, want 2 and 5", count, newest)
	}

	stats, err := s.Stats(context.Background(), &domain.Filter{Kinds: []domain.Kind{domain.KindRequest}})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("stats total = %d, want 3", stats.Total)
	}
	if stats.PerKind[domain.KindRequest] != 3 {
		t.Errorf("per-kind request = %d, want 3", stats.PerKind[domain.KindRequest])
	}
}
