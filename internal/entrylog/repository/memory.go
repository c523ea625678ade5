package repository

import (
	"context"
	"sort"
	"sync"

	"spyglass/collector/internal/apperr"
	"spyglass/collector/internal/entrylog/domain"
)

// MemoryStore is an in-memory Store implementation. It is the default
// backend: entries live for the process lifetime, bounded by MaxEntries.
type MemoryStore struct {
	mu sync.RWMutex
	// entries is kept in ascending sequence order; eviction pops the front.
	entries []*domain.Entry
	nextSeq int64
	// maxEntries bounds growth; 0 means unbounded.
	maxEntries int
}

// NewMemoryStore returns an in-memory store. maxEntries bounds retention
// (oldest entries are evicted first); 0 disables the bound.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{maxEntries: maxEntries}
}

// Append assigns the next sequence and stores a copy of e. The sequence
// counter only advances on success, so failed appends never burn numbers.
func (s *MemoryStore) Append(ctx context.Context, e *domain.Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperr.Wrap(apperr.CodeStorage, "append cancelled", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	stored := e.Clone()
	stored.Sequence = s.nextSeq
	s.entries = append(s.entries, stored)
	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		over := len(s.entries) - s.maxEntries
		s.entries = append(s.entries[:0:0], s.entries[over:]...)
	}
	e.Sequence = stored.Sequence
	return stored.Sequence, nil
}

// GetBySequence returns a copy of the entry for seq, or nil if missing.
func (s *MemoryStore) GetBySequence(ctx context.Context, seq int64) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.indexOf(seq); ok {
		return s.entries[i].Clone(), nil
	}
	return nil, nil
}

// List returns one page of entries for the normalized query q.
func (s *MemoryStore) List(ctx context.Context, q domain.Query) (*domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := &domain.Page{Entries: []*domain.Entry{}}
	collect := func(e *domain.Entry) bool {
		if len(page.Entries) == q.Limit {
			page.HasMore = true
			return false
		}
		page.Entries = append(page.Entries, e.Clone())
		return true
	}

	if q.Direction == domain.Forward {
		start := 0
		if q.Cursor != nil {
			start = s.searchAfter(*q.Cursor)
		}
		for i := start; i < len(s.entries); i++ {
			if !q.Filter.Matches(s.entries[i]) {
				continue
			}
			if !collect(s.entries[i]) {
				break
			}
		}
	} else {
		start := len(s.entries) - 1
		if q.Cursor != nil {
			// Last index with sequence strictly below the cursor.
			start = s.searchAfter(*q.Cursor-1) - 1
		}
		for i := start; i >= 0; i-- {
			if !q.Filter.Matches(s.entries[i]) {
				continue
			}
			if !collect(s.entries[i]) {
				break
			}
		}
	}

	fillBounds(page)
	return page, nil
}

// CountSince counts matching entries with sequence > since.
func (s *MemoryStore) CountSince(ctx context.Context, since int64, f *domain.Filter) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count, newest int64
	for i := s.searchAfter(since); i < len(s.entries); i++ {
		if f.Matches(s.entries[i]) {
			count++
			newest = s.entries[i].Sequence
		}
	}
	return count, newest, nil
}

// LatestSequence returns the highest sequence ever assigned.
func (s *MemoryStore) LatestSequence(ctx context.Context) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextSeq, s.nextSeq > 0, nil
}

// SetResolved flips the resolved flag for seq.
func (s *MemoryStore) SetResolved(ctx context.Context, seq int64, resolved bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.indexOf(seq); ok {
		s.entries[i].Resolved = resolved
		return true, nil
	}
	return false, nil
}

// Clear removes matching entries without resetting the sequence counter.
func (s *MemoryStore) Clear(ctx context.Context, f *domain.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.IsZero() {
		n := int64(len(s.entries))
		s.entries = nil
		return n, nil
	}
	kept := s.entries[:0:0]
	var removed int64
	for _, e := range s.entries {
		if f.Matches(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

// Stats aggregates counts over the filtered set.
func (s *MemoryStore) Stats(ctx context.Context, f *domain.Filter) (*domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.NewStats()
	for _, e := range s.entries {
		if f.Matches(e) {
			stats.Add(e)
		}
	}
	return stats, nil
}

// searchAfter returns the index of the first entry with sequence > seq.
func (s *MemoryStore) searchAfter(seq int64) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Sequence > seq
	})
}

func (s *MemoryStore) indexOf(seq int64) (int, bool) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Sequence >= seq
	})
	if i < len(s.entries) && s.entries[i].Sequence == seq {
		return i, true
	}
	return 0, false
}

func fillBounds(p *domain.Page) {
	for _, e := range p.Entries {
		if p.NewestSequence == 0 || e.Sequence > p.NewestSequence {
			p.NewestSequence = e.Sequence
		}
		if p.OldestSequence == 0 || e.Sequence < p.OldestSequence {
			p.OldestSequence = e.Sequence
		}
	}
}
