// Package repository defines persistence for telemetry entries and its
// memory, badger, and postgres implementations.
package repository

import (
	"context"

	"spyglass/collector/internal/entrylog/domain"
)

// Store defines persistence for telemetry entries. Sequence assignment is
// the store's responsibility: Append must be linearizable (no two appends
// observe the same next sequence) and sequence numbers are never reused,
// including after Clear.
type Store interface {
	// Append stores e, assigns its sequence, and returns it. The entry's
	// UUID, kind, payload, tags, and CreatedAt must already be set.
	Append(ctx context.Context, e *domain.Entry) (int64, error)

	// GetBySequence returns the entry for seq, or nil if not found.
	// It returns an error only for storage failures, not for missing rows.
	GetBySequence(ctx context.Context, seq int64) (*domain.Entry, error)

	// List returns one page of entries for the given cursor query. The
	// query must already be normalized.
	List(ctx context.Context, q domain.Query) (*domain.Page, error)

	// CountSince counts matching entries with sequence > since and
	// returns the newest matching sequence (0 when none).
	CountSince(ctx context.Context, since int64, f *domain.Filter) (count int64, newest int64, err error)

	// LatestSequence returns the highest sequence ever assigned and
	// whether any has been. The value does not shrink on Clear.
	LatestSequence(ctx context.Context) (int64, bool, error)

	// SetResolved updates the resolved flag for seq. Returns found=false
	// if the sequence does not exist.
	SetResolved(ctx context.Context, seq int64, resolved bool) (found bool, err error)

	// Clear removes matching entries (all when f is zero) and returns the
	// number removed. The sequence counter is not reset.
	Clear(ctx context.Context, f *domain.Filter) (int64, error)

	// Stats aggregates counts per kind and status over the filtered set.
	Stats(ctx context.Context, f *domain.Filter) (*domain.Stats, error)
}
