package domain

import "testing"

func requestEntry(method string, statusCode int, status string, tags ...string) *Entry {
	return &Entry{
		Kind: KindRequest,
		Payload: map[string]any{
			"method":     method,
			"statusCode": statusCode,
			"status":     status,
		},
		Tags: tags,
	}
}

func TestFilter_ZeroMatchesEverything(t *testing.T) {
	var f *Filter
	if !f.Matches(requestEntry("GET", 200, StatusCompleted)) {
		t.Error("nil filter should match any entry")
	}
	empty := &Filter{}
	if !empty.Matches(&Entry{Kind: KindException}) {
		t.Error("zero filter should match any entry")
	}
	if !empty.IsZero() {
		t.Error("empty filter should be zero")
	}
}

func TestFilter_Conjunction(t *testing.T) {
	f := &Filter{
		Kinds:       []Kind{KindRequest},
		Methods:     []string{"GET"},
		StatusCodes: []int{200},
	}

	if !f.Matches(requestEntry("GET", 200, StatusCompleted)) {
		t.Error("entry satisfying all predicates should match")
	}
	if f.Matches(requestEntry("POST", 200, StatusCompleted)) {
		t.Error("wrong method should exclude the entry")
	}
	if f.Matches(requestEntry("GET", 500, StatusFailed)) {
		t.Error("wrong status code should exclude the entry")
	}
	queryEntry := &Entry{Kind: KindQuery, Payload: map[string]any{"method": "GET", "statusCode": 200}}
	if f.Matches(queryEntry) {
		t.Error("wrong kind should exclude the entry")
	}
}

func TestFilter_OrWithinField(t *testing.T) {
	f := &Filter{Methods: []string{"GET", "POST"}}
	if !f.Matches(requestEntry("POST", 201, StatusCompleted)) {
		t.Error("second listed method should match")
	}
	if f.Matches(requestEntry("DELETE", 200, StatusCompleted)) {
		t.Error("unlisted method should not match")
	}
}

func TestFilter_CaseInsensitiveStrings(t *testing.T) {
	f := &Filter{Methods: []string{"get"}, Statuses: []string{"COMPLETED"}}
	if !f.Matches(requestEntry("GET", 200, StatusCompleted)) {
		t.Error("string fields should compare case-insensitively")
	}
}

func TestFilter_ErrSentinel(t *testing.T) {
	f := &Filter{ErrStatus: true}

	failedNoCode := &Entry{Kind: KindHTTPClientCall, Payload: map[string]any{"status": StatusFailed}}
	if !f.Matches(failedNoCode) {
		t.Error("ERR should match a failed entry with no numeric code")
	}

	completedNoCode := &Entry{Kind: KindHTTPClientCall, Payload: map[string]any{"status": StatusCompleted}}
	if f.Matches(completedNoCode) {
		t.Error("ERR should not match a completed entry")
	}

	failedWithCode := requestEntry("GET", 502, StatusFailed)
	if f.Matches(failedWithCode) {
		t.Error("ERR alone should not match an entry carrying a numeric code")
	}

	both := &Filter{StatusCodes: []int{502}, ErrStatus: true}
	if !both.Matches(failedWithCode) {
		t.Error("numeric codes should still match alongside ERR")
	}
	if !both.Matches(failedNoCode) {
		t.Error("ERR should still match alongside numeric codes")
	}
}

func TestFilter_StatusCodeFromJSONNumber(t *testing.T) {
	// Persistent stores round-trip payloads through JSON, turning ints
	// into float64.
	e := &Entry{Kind: KindRequest, Payload: map[string]any{"statusCode": float64(404)}}
	f := &Filter{StatusCodes: []int{404}}
	if !f.Matches(e) {
		t.Error("float64 status code should match the numeric filter")
	}
}

func TestFilter_Tags(t *testing.T) {
	f := &Filter{Tags: []string{"slow", "critical"}}
	if !f.Matches(requestEntry("GET", 200, StatusCompleted, "slow")) {
		t.Error("any listed tag should match")
	}
	if f.Matches(requestEntry("GET", 200, StatusCompleted, "fast")) {
		t.Error("unlisted tag should not match")
	}
}

func TestFilter_ResolvedTriState(t *testing.T) {
	resolved := &Entry{Kind: KindException, Resolved: true}
	unresolved := &Entry{Kind: KindException}

	noConstraint := &Filter{}
	if !noConstraint.Matches(resolved) || !noConstraint.Matches(unresolved) {
		t.Error("absent resolved constraint should match both states")
	}

	wantResolved := true
	f := &Filter{Resolved: &wantResolved}
	if !f.Matches(resolved) {
		t.Error("resolved=true should match a resolved entry")
	}
	if f.Matches(unresolved) {
		t.Error("resolved=true should not match an unresolved entry")
	}
}

func TestKind_Valid(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("kind %q should be valid", k)
		}
	}
	if Kind("bogus").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestEntry_CloneIsDeep(t *testing.T) {
	e := &Entry{
		Kind:    KindBatch,
		Payload: map[string]any{"errors": []any{"a"}, "nested": map[string]any{"x": 1}},
		Tags:    []string{"t1"},
	}
	c := e.Clone()
	c.Payload["nested"].(map[string]any)["x"] = 2
	c.Tags[0] = "changed"
	if e.Payload["nested"].(map[string]any)["x"] != 1 {
		t.Error("clone should not share nested payload maps")
	}
	if e.Tags[0] != "t1" {
		t.Error("clone should not share the tag slice")
	}
}
