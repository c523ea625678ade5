package domain

// Direction selects which side of the cursor a page is read from.
type Direction string

const (
	// Forward reads entries with sequence strictly greater than the
	// cursor, oldest first. A nil cursor means "from the beginning".
	Forward Direction = "forward"
	// Backward reads entries with sequence strictly less than the cursor,
	// newest first. A nil cursor means "from the most recent".
	Backward Direction = "backward"
)

// Pagination bounds enforced on every read.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Query describes one cursor read against the entry log.
type Query struct {
	Cursor    *int64
	Direction Direction
	Limit     int
	Filter    *Filter
}

// Normalize clamps the limit to [1, MaxLimit] (DefaultLimit when unset)
// and defaults the direction to Forward.
func (q Query) Normalize() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Direction != Backward {
		q.Direction = Forward
	}
	return q
}

// Page is the result of a cursor read. NewestSequence and OldestSequence
// bound the returned entries (both zero when the page is empty); HasMore
// reports whether further matching entries remain past the page.
type Page struct {
	Entries        []*Entry `json:"entries"`
	NewestSequence int64    `json:"newestSequence"`
	OldestSequence int64    `json:"oldestSequence"`
	HasMore        bool     `json:"hasMore"`
}

// NewEntries is the result of a cheap polling check: how many matching
// entries exist after a cursor, and the newest sequence among them.
type NewEntries struct {
	Count          int64 `json:"count"`
	NewestSequence int64 `json:"newestSequence"`
}

// Stats aggregates counts over a filtered view of the log.
type Stats struct {
	Total     int64            `json:"total"`
	PerKind   map[Kind]int64   `json:"perKind"`
	PerStatus map[string]int64 `json:"perStatus"`
}

// NewStats returns an empty Stats with allocated maps.
func NewStats() *Stats {
	return &Stats{PerKind: make(map[Kind]int64), PerStatus: make(map[string]int64)}
}

// Add counts e into the aggregate.
func (s *Stats) Add(e *Entry) {
	s.Total++
	s.PerKind[e.Kind]++
	if st := payloadString(e, "status"); st != "" {
		s.PerStatus[st]++
	}
}
