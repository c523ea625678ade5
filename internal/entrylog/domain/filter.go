package domain

import "strings"

// Filter is a conjunction of per-field predicates. A zero Filter matches
// every entry. Within a multi-value field, membership is OR; string values
// compare case-insensitively. Boolean fields are tri-state: nil means no
// constraint.
type Filter struct {
	// Kinds restricts by entry kind.
	Kinds []Kind
	// Statuses matches the payload "status" value (completed, partial, failed).
	Statuses []string
	// Methods matches the payload "method" value (request and
	// http-client-call entries).
	Methods []string
	// Tags requires at least one of the given tags to be present.
	Tags []string
	// StatusCodes matches the numeric payload "statusCode" value.
	StatusCodes []int
	// ErrStatus extends StatusCodes with the non-numeric "ERR" sentinel:
	// it matches failed entries that carry no numeric status code.
	ErrStatus bool
	// Resolved constrains exception resolution state when non-nil.
	Resolved *bool
}

// IsZero reports whether the filter constrains nothing.
func (f *Filter) IsZero() bool {
	return f == nil || (len(f.Kinds) == 0 && len(f.Statuses) == 0 &&
		len(f.Methods) == 0 && len(f.Tags) == 0 &&
		len(f.StatusCodes) == 0 && !f.ErrStatus && f.Resolved == nil)
}

// Matches reports whether e satisfies every predicate of the filter.
func (f *Filter) Matches(e *Entry) bool {
	if f == nil || e == nil {
		return e != nil
	}
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, e.Kind) {
		return false
	}
	if len(f.Statuses) > 0 && !containsFold(f.Statuses, payloadString(e, "status")) {
		return false
	}
	if len(f.Methods) > 0 && !containsFold(f.Methods, payloadString(e, "method")) {
		return false
	}
	if len(f.Tags) > 0 && !hasAnyTag(e, f.Tags) {
		return false
	}
	if len(f.StatusCodes) > 0 || f.ErrStatus {
		if !f.matchesStatusCode(e) {
			return false
		}
	}
	if f.Resolved != nil && e.Resolved != *f.Resolved {
		return false
	}
	return true
}

func (f *Filter) matchesStatusCode(e *Entry) bool {
	code, ok := payloadInt(e, "statusCode")
	if ok {
		for _, c := range f.StatusCodes {
			if int64(c) == code {
				return true
			}
		}
		return false
	}
	// No numeric code on the entry: only the ERR sentinel can match.
	return f.ErrStatus && payloadString(e, "status") == StatusFailed
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, c := range list {
		if strings.EqualFold(c, v) {
			return true
		}
	}
	return false
}

func hasAnyTag(e *Entry, tags []string) bool {
	for _, t := range tags {
		if e.HasTag(t) {
			return true
		}
	}
	return false
}

// payloadString returns the payload value for key as a string, or "".
func payloadString(e *Entry, key string) string {
	if e.Payload == nil {
		return ""
	}
	s, _ := e.Payload[key].(string)
	return s
}

// payloadInt returns the payload value for key as an integer. Persistent
// stores round-trip payloads through JSON, so numbers may come back as
// float64.
func payloadInt(e *Entry, key string) (int64, bool) {
	if e.Payload == nil {
		return 0, false
	}
	switch v := e.Payload[key].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
