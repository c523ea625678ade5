package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"spyglass/collector/internal/apperr"
	"spyglass/collector/internal/entrylog/domain"
)

// entryKeyPrefix precedes the 8-byte big-endian sequence in every key, so
// a prefix iteration walks entries in sequence order.
const entryKeyPrefix = "e"

// BadgerConfig configures the embedded badger store.
type BadgerConfig struct {
	// Path is the directory for database files. Ignored when InMemory.
	Path string
	// InMemory disables disk persistence; useful for tests.
	InMemory bool
	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
	// Logger receives badger's internal log output. Nil disables it.
	Logger *slog.Logger
}

// BadgerStore is a Store backed by an embedded BadgerDB. Entries are
// serialized as JSON under sequence-ordered keys; the sequence counter is
// seeded from the highest existing key at open and guarded by a mutex so
// assignment stays linearizable.
type BadgerStore struct {
	db *badger.DB

	mu      sync.Mutex
	nextSeq int64
}

// OpenBadgerStore opens (creating if needed) a badger-backed store.
// Caller must Close it when done.
func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger: path is required for persistent store")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("badger: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	s := &BadgerStore{db: db}
	if err := s.seedSequence(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) seedSequence() error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Reverse: true})
		defer it.Close()
		// Seek past the last possible entry key, then step back.
		it.Seek(entryKey(int64(^uint64(0) >> 1)))
		if it.ValidForPrefix([]byte(entryKeyPrefix)) {
			s.nextSeq = sequenceOf(it.Item().Key())
		}
		return nil
	})
}

// Append assigns the next sequence and persists e. A storage failure may
// leave a gap in the numbering; numbers are never reused either way.
func (s *BadgerStore) Append(ctx context.Context, e *domain.Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperr.Wrap(apperr.CodeStorage, "append cancelled", err)
	}
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	stored := e.Clone()
	stored.Sequence = seq
	val, err := json.Marshal(stored)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeStorage, "encode entry", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(seq), val)
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeStorage, "append entry", err)
	}
	e.Sequence = seq
	return seq, nil
}

// GetBySequence returns the entry for seq, or nil if missing.
func (s *BadgerStore) GetBySequence(ctx context.Context, seq int64) (*domain.Entry, error) {
	var out *domain.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(seq))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			e, err := decodeEntry(val)
			if err != nil {
				return err
			}
			out = e
			return nil
		})
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "get entry", err)
	}
	return out, nil
}

// List returns one page of entries for the normalized query q.
func (s *BadgerStore) List(ctx context.Context, q domain.Query) (*domain.Page, error) {
	page := &domain.Page{Entries: []*domain.Entry{}}
	err := s.db.View(func(txn *badger.Txn) error {
		reverse := q.Direction == domain.Backward
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, Reverse: reverse})
		defer it.Close()

		if q.Cursor == nil {
			if reverse {
				it.Seek(entryKey(int64(^uint64(0) >> 1)))
			} else {
				it.Seek([]byte(entryKeyPrefix))
			}
		} else if reverse {
			it.Seek(entryKey(*q.Cursor - 1))
		} else {
			it.Seek(entryKey(*q.Cursor + 1))
		}

		for ; it.ValidForPrefix([]byte(entryKeyPrefix)); it.Next() {
			var e *domain.Entry
			err := it.Item().Value(func(val []byte) error {
				var derr error
				e, derr = decodeEntry(val)
				return derr
			})
			if err != nil {
				return err
			}
			if !q.Filter.Matches(e) {
				continue
			}
			if len(page.Entries) == q.Limit {
				page.HasMore = true
				return nil
			}
			page.Entries = append(page.Entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "list entries", err)
	}
	fillBounds(page)
	return page, nil
}

// CountSince counts matching entries with sequence > since.
func (s *BadgerStore) CountSince(ctx context.Context, since int64, f *domain.Filter) (int64, int64, error) {
	var count, newest int64
	err := s.scan(since, func(e *domain.Entry) error {
		if f.Matches(e) {
			count++
			newest = e.Sequence
		}
		return nil
	})
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.CodeStorage, "count entries", err)
	}
	return count, newest, nil
}

// LatestSequence returns the highest sequence ever assigned.
func (s *BadgerStore) LatestSequence(ctx context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq, s.nextSeq > 0, nil
}

// SetResolved rewrites the stored entry with the new resolved flag.
func (s *BadgerStore) SetResolved(ctx context.Context, seq int64, resolved bool) (bool, error) {
	found := false
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(seq))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var e *domain.Entry
		if err := item.Value(func(val []byte) error {
			var derr error
			e, derr = decodeEntry(val)
			return derr
		}); err != nil {
			return err
		}
		e.Resolved = resolved
		val, err := json.Marshal(e)
		if err != nil {
			return err
		}
		found = true
		return txn.Set(entryKey(seq), val)
	})
	if err != nil {
		return false, apperr.Wrap(apperr.CodeStorage, "set resolved", err)
	}
	return found, nil
}

// Clear removes matching entries. The in-memory sequence counter is left
// untouched so future appends continue past the prior maximum.
func (s *BadgerStore) Clear(ctx context.Context, f *domain.Filter) (int64, error) {
	var keys [][]byte
	err := s.scan(0, func(e *domain.Entry) error {
		if f.IsZero() || f.Matches(e) {
			keys = append(keys, entryKey(e.Sequence))
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeStorage, "clear entries", err)
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, apperr.Wrap(apperr.CodeStorage, "clear entries", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, apperr.Wrap(apperr.CodeStorage, "clear entries", err)
	}
	return int64(len(keys)), nil
}

// Stats aggregates counts over the filtered set.
func (s *BadgerStore) Stats(ctx context.Context, f *domain.Filter) (*domain.Stats, error) {
	stats := domain.NewStats()
	err := s.scan(0, func(e *domain.Entry) error {
		if f.Matches(e) {
			stats.Add(e)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "stats", err)
	}
	return stats, nil
}

// scan walks entries with sequence > after in ascending order.
func (s *BadgerStore) scan(after int64, fn func(*domain.Entry) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true})
		defer it.Close()
		for it.Seek(entryKey(after + 1)); it.ValidForPrefix([]byte(entryKeyPrefix)); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				e, derr := decodeEntry(val)
				if derr != nil {
					return derr
				}
				return fn(e)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func entryKey(seq int64) []byte {
	key := make([]byte, len(entryKeyPrefix)+8)
	copy(key, entryKeyPrefix)
	binary.BigEndian.PutUint64(key[len(entryKeyPrefix):], uint64(seq))
	return key
}

func sequenceOf(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(entryKeyPrefix):]))
}

func decodeEntry(val []byte) (*domain.Entry, error) {
	var e domain.Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return &e, nil
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
