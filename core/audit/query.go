package audit

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultLimit bounds a history query without an explicit limit.
	DefaultLimit = 50
	// MaxLimit is the largest accepted limit.
	MaxLimit = 200
)

// Query selects facts. Every filter is optional; unset filters match all.
// Build it from predicates:
//
//	q := audit.NewQuery(audit.ForVehicle(3), audit.Between(from, to), audit.Limit(20))
type Query struct {
	VehicleID *int64
	ActorID   *int64
	Action    *Action
	// From and To bound OccurredAt as a half-open [From, To) window.
	From *time.Time
	To   *time.Time
	// Text is matched case-insensitively against the subject id and payload.
	Text  string
	Limit int
}

// Predicate narrows a Query.
type Predicate func(*Query)

// NewQuery applies the predicates in order and normalises the limit.
func NewQuery(preds ...Predicate) Query {
	var q Query
	for _, p := range preds {
		if p != nil {
			p(&q)
		}
	}
	q.Limit = clampLimit(q.Limit)
	return q
}

func ForVehicle(id int64) Predicate { return func(q *Query) { q.VehicleID = &id } }
func ByActor(id int64) Predicate    { return func(q *Query) { q.ActorID = &id } }
func WithAction(a Action) Predicate { return func(q *Query) { q.Action = &a } }
func Containing(s string) Predicate { return func(q *Query) { q.Text = strings.TrimSpace(s) } }
func Limit(n int) Predicate         { return func(q *Query) { q.Limit = n } }

// Between restricts facts to [from, to). A zero bound is left open.
func Between(from, to time.Time) Predicate {
	return func(q *Query) {
		if !from.IsZero() {
			f := from.UTC()
			q.From = &f
		}
		if !to.IsZero() {
			t := to.UTC()
			q.To = &t
		}
	}
}

// Normalized returns q with its limit clamped to (0, MaxLimit].
func (q Query) Normalized() Query {
	q.Limit = clampLimit(q.Limit)
	return q
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// Matches reports whether f satisfies every set filter.
func (q Query) Matches(f Fact) bool {
	if q.VehicleID != nil {
		if f.Payload == nil {
			return false
		}
		if v, _ := f.Payload.Cell(); v != *q.VehicleID {
			return false
		}
	}
	if q.ActorID != nil && f.Actor != *q.ActorID {
		return false
	}
	if q.Action != nil && f.Action != *q.Action {
		return false
	}
	if q.From != nil && f.OccurredAt.Before(*q.From) {
		return false
	}
	if q.To != nil && !f.OccurredAt.Before(*q.To) {
		return false
	}
	if q.Text != "" && !strings.Contains(strings.ToLower(searchText(f)), strings.ToLower(q.Text)) {
		return false
	}
	return true
}

// searchText is the text a free-text filter is matched against. SQL history
// stores persist it in their search column.
func searchText(f Fact) string {
	b, _ := json.Marshal(f.Payload)
	return strconv.FormatInt(f.SubjectID, 10) + " " + string(f.Action) + " " + string(b)
}

// SearchText exposes the free-text haystack of f.
func SearchText(f Fact) string { return searchText(f) }
