package handler

import (
	"fmt"
	"strconv"
	"strings"

	"spyglass/collector/internal/apperr"
	"spyglass/collector/internal/entrylog/domain"
)

// parseFilter builds a domain filter from raw query-string values.
// Comma-separated lists are split and deduplicated; status codes accept
// the non-numeric "ERR" sentinel; resolved is tri-state.
func parseFilter(get func(string) string) (*domain.Filter, error) {
	f := &domain.Filter{}

	for _, raw := range splitList(get("kind")) {
		k := domain.Kind(strings.ToLower(raw))
		if !k.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("unknown kind %q", raw))
		}
		f.Kinds = append(f.Kinds, k)
	}
	f.Statuses = splitList(get("status"))
	f.Methods = splitList(get("method"))
	f.Tags = splitList(get("tag"))

	for _, raw := range splitList(get("statusCode")) {
		if strings.EqualFold(raw, "ERR") {
			f.ErrStatus = true
			continue
		}
		code, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("invalid status code %q", raw))
		}
		f.StatusCodes = append(f.StatusCodes, code)
	}

	if raw := get("resolved"); raw != "" {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("invalid resolved value %q", raw))
		}
		f.Resolved = &resolved
	}

	return f, nil
}

// parseQuery builds a normalized cursor query from raw query-string
// values.
func parseQuery(get func(string) string) (domain.Query, error) {
	f, err := parseFilter(get)
	if err != nil {
		return domain.Query{}, err
	}
	q := domain.Query{Filter: f}

	if raw := get("cursor"); raw != "" {
		cursor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || cursor < 0 {
			return domain.Query{}, apperr.Validation(fmt.Sprintf("invalid cursor %q", raw))
		}
		q.Cursor = &cursor
	}

	switch dir := get("direction"); dir {
	case "", string(domain.Forward):
		q.Direction = domain.Forward
	case string(domain.Backward):
		q.Direction = domain.Backward
	default:
		return domain.Query{}, apperr.Validation(fmt.Sprintf("invalid direction %q", dir))
	}

	if raw := get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Query{}, apperr.Validation(fmt.Sprintf("invalid limit %q", raw))
		}
		q.Limit = limit
	}

	return q.Normalize(), nil
}

// splitList splits a comma-separated value into trimmed, deduplicated
// parts. Returns nil for an empty input.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
