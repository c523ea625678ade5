package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"spyglass/collector/internal/apperr"
	"spyglass/collector/internal/entrylog/domain"
)

// PostgresStore is a Store backed by Postgres. The entries table uses a
// BIGSERIAL sequence column, so assignment is linearizable in the
// database and numbering survives both Clear and process restarts.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns an entry store that uses the given db for
// persistence. Run the embedded migrations (cmd/migrate) first.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = "sequence, uuid, kind, payload, tags, created_at, resolved"

// Append persists e and sets its database-assigned sequence.
func (s *PostgresStore) Append(ctx context.Context, e *domain.Entry) (int64, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeStorage, "encode payload", err)
	}
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeStorage, "encode tags", err)
	}
	var seq int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO entries (uuid, kind, payload, tags, created_at, resolved)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING sequence`,
		e.UUID, string(e.Kind), payload, tags, e.CreatedAt, e.Resolved,
	).Scan(&seq)
	if err != nil {
		return 0, storageErr("append entry", ctx, err)
	}
	e.Sequence = seq
	return seq, nil
}

// GetBySequence returns the entry for seq, or nil if not found.
func (s *PostgresStore) GetBySequence(ctx context.Context, seq int64) (*domain.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE sequence = $1`, seq)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get entry", ctx, err)
	}
	return e, nil
}

// List returns one page of entries for the normalized query q. Sequence
// bounds, ordering, and the page limit are pushed to SQL; the filter
// itself is applied while scanning, since most predicates live inside
// the JSON payload. A filtered query cannot bound the row count up
// front, so it scans without a LIMIT.
func (s *PostgresStore) List(ctx context.Context, q domain.Query) (*domain.Page, error) {
	query, args := listSQL(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list entries", ctx, err)
	}
	defer rows.Close()

	page := &domain.Page{Entries: []*domain.Entry{}}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr("list entries", ctx, err)
		}
		if !q.Filter.Matches(e) {
			continue
		}
		if len(page.Entries) == q.Limit {
			page.HasMore = true
			break
		}
		page.Entries = append(page.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list entries", ctx, err)
	}
	fillBounds(page)
	return page, nil
}

// CountSince counts matching entries with sequence > since.
func (s *PostgresStore) CountSince(ctx context.Context, since int64, f *domain.Filter) (int64, int64, error) {
	var count, newest int64
	err := s.scan(ctx, since, func(e *domain.Entry) {
		if f.Matches(e) {
			count++
			newest = e.Sequence
		}
	})
	if err != nil {
		return 0, 0, err
	}
	return count, newest, nil
}

// LatestSequence returns the highest value the entries sequence has
// issued, which does not shrink when rows are deleted.
func (s *PostgresStore) LatestSequence(ctx context.Context) (int64, bool, error) {
	var last int64
	var called bool
	err := s.db.QueryRowContext(ctx,
		`SELECT last_value, is_called FROM entries_sequence_seq`).Scan(&last, &called)
	if err != nil {
		return 0, false, storageErr("latest sequence", ctx, err)
	}
	if !called {
		return 0, false, nil
	}
	return last, true, nil
}

// SetResolved updates the resolved flag for seq.
func (s *PostgresStore) SetResolved(ctx context.Context, seq int64, resolved bool) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE entries SET resolved = $1 WHERE sequence = $2`, resolved, seq)
	if err != nil {
		return false, storageErr("set resolved", ctx, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("set resolved", ctx, err)
	}
	return n > 0, nil
}

// Clear removes matching entries; the BIGSERIAL sequence is untouched.
func (s *PostgresStore) Clear(ctx context.Context, f *domain.Filter) (int64, error) {
	if f.IsZero() {
		res, err := s.db.ExecContext(ctx, `DELETE FROM entries`)
		if err != nil {
			return 0, storageErr("clear entries", ctx, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, storageErr("clear entries", ctx, err)
		}
		return n, nil
	}

	var seqs []int64
	err := s.scan(ctx, 0, func(e *domain.Entry) {
		if f.Matches(e) {
			seqs = append(seqs, e.Sequence)
		}
	})
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, seq := range seqs {
		res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE sequence = $1`, seq)
		if err != nil {
			return removed, storageErr("clear entries", ctx, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			removed += n
		}
	}
	return removed, nil
}

// Stats aggregates counts over the filtered set.
func (s *PostgresStore) Stats(ctx context.Context, f *domain.Filter) (*domain.Stats, error) {
	stats := domain.NewStats()
	err := s.scan(ctx, 0, func(e *domain.Entry) {
		if f.Matches(e) {
			stats.Add(e)
		}
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// listSQL builds the paging query for List. When no filter is set it
// asks for one row past the limit, which is enough to decide HasMore.
func listSQL(q domain.Query) (string, []any) {
	query := `SELECT ` + entryColumns + ` FROM entries`
	var args []any
	if q.Cursor != nil {
		if q.Direction == domain.Forward {
			query += ` WHERE sequence > $1`
		} else {
			query += ` WHERE sequence < $1`
		}
		args = append(args, *q.Cursor)
	}
	if q.Direction == domain.Forward {
		query += ` ORDER BY sequence ASC`
	} else {
		query += ` ORDER BY sequence DESC`
	}
	if q.Filter.IsZero() {
		args = append(args, q.Limit+1)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	return query, args
}

func (s *PostgresStore) scan(ctx context.Context, after int64, fn func(*domain.Entry)) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE sequence > $1 ORDER BY sequence ASC`, after)
	if err != nil {
		return storageErr("scan entries", ctx, err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return storageErr("scan entries", ctx, err)
		}
		fn(e)
	}
	if err := rows.Err(); err != nil {
		return storageErr("scan entries", ctx, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		e       domain.Entry
		kind    string
		payload []byte
		tags    []byte
	)
	err := row.Scan(&e.Sequence, &e.UUID, &kind, &payload, &tags, &e.CreatedAt, &e.Resolved)
	if err != nil {
		return nil, err
	}
	e.Kind = domain.Kind(kind)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, err
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &e.Tags); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

// storageErr wraps a database failure into the storage taxonomy, using
// StorageTimeout when the context deadline was exceeded.
func storageErr(op string, ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeStorageTimeout, op+" timed out", err)
	}
	return apperr.Wrap(apperr.CodeStorage, op+" failed", err)
}
