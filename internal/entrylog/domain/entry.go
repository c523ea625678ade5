// Package domain defines telemetry entries and the filter/query types used
// to read them back from the entry log.
package domain

import "time"

// Kind identifies the subsystem an entry was recorded from. The set is
// closed; Append rejects kinds outside it.
type Kind string

const (
	KindRequest        Kind = "request"
	KindQuery          Kind = "query"
	KindCache          Kind = "cache"
	KindBatch          Kind = "batch"
	KindJob            Kind = "job"
	KindMail           Kind = "mail"
	KindNotification   Kind = "notification"
	KindRedisCommand   Kind = "redis-command"
	KindSchedule       Kind = "schedule"
	KindViewRender     Kind = "view-render"
	KindGraphQL        Kind = "graphql-operation"
	KindFeatureGate    Kind = "feature-gate"
	KindModelEvent     Kind = "model-event"
	KindDomainEvent    Kind = "domain-event"
	KindLogLine        Kind = "log-line"
	KindException      Kind = "exception"
	KindHTTPClientCall Kind = "http-client-call"
)

// Kinds lists every valid entry kind.
var Kinds = []Kind{
	KindRequest, KindQuery, KindCache, KindBatch, KindJob, KindMail,
	KindNotification, KindRedisCommand, KindSchedule, KindViewRender,
	KindGraphQL, KindFeatureGate, KindModelEvent, KindDomainEvent,
	KindLogLine, KindException, KindHTTPClientCall,
}

var kindSet = func() map[Kind]bool {
	m := make(map[Kind]bool, len(Kinds))
	for _, k := range Kinds {
		m[k] = true
	}
	return m
}()

// Valid reports whether k is one of the closed kind set.
func (k Kind) Valid() bool { return kindSet[k] }

// Status values used in entry payloads under the "status" key.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Entry is one recorded observation of a call or event. Sequence, Kind,
// CreatedAt, and Payload are immutable after append; only Resolved may
// change, and only on exception-kind entries.
type Entry struct {
	// Sequence is assigned by the store at append time, strictly
	// increasing and never reused.
	Sequence int64 `json:"sequence"`
	// UUID identifies the entry independently of its log position.
	UUID string `json:"uuid"`
	Kind Kind   `json:"kind"`
	// Payload is the kind-specific structured record.
	Payload map[string]any `json:"payload"`
	// Tags are free-form labels for cross-cutting filtering (e.g. "slow").
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	// Resolved is meaningful only for exception entries.
	Resolved bool `json:"resolved,omitempty"`
}

// Clone returns a deep copy so readers never share mutable state with the
// store or with concurrent writers.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.Payload = cloneValue(e.Payload).(map[string]any)
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	return &out
}

// HasTag reports whether the entry carries tag (exact match).
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return map[string]any(nil)
		}
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = cloneValue(inner)
		}
		return s
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
