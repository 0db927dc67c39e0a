package render

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/worklog/core/ledger"
)

// PathID parses a positive integer URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ledger.ErrInvalidInput, name)
	}
	return id, nil
}

// QueryDay parses an optional YYYY-MM-DD query parameter. ok is false when
// the parameter is absent.
func QueryDay(r *http.Request, name string) (day time.Time, ok bool, err error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return time.Time{}, false, nil
	}
	day, err = ledger.ParseDay(s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %s must be YYYY-MM-DD", ledger.ErrInvalidInput, name)
	}
	return day, true, nil
}

// QueryInt parses an optional integer query parameter.
func QueryInt(r *http.Request, name string) (int64, bool, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer", ledger.ErrInvalidInput, name)
	}
	return n, true, nil
}

// QueryIDs collects vehicle ids given as repeated or comma separated values.
func QueryIDs(r *http.Request, name string) ([]int64, error) {
	var ids []int64
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("%w: %s must list positive integers", ledger.ErrInvalidInput, name)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
