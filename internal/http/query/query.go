// Package query parses the query-string parameters shared by the handlers.
package query

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
)

// Time parses key as RFC 3339 or as a date. A date given for an end bound
// covers the whole day.
func Time(r *http.Request, key string, end bool) (*time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return new(t.UTC()), nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: use YYYY-MM-DD or RFC 3339", key, s)
	}

	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}

	return new(t), nil
}

// Range parses start_date and end_date, defaulting to the last day when
// both are absent.
func Range(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	start, err := Time(r, "start_date", false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end, err := Time(r, "end_date", true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	switch {
	case start == nil && end == nil:
		return now.Add(-24 * time.Hour), now, nil
	case start == nil:
		return end.Add(-24 * time.Hour), *end, nil
	case end == nil:
		return *start, now, nil
	}

	return *start, *end, nil
}

func Int(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}

	return n, nil
}

// Page reads offset and limit. Normalization happens in the audit service.
func Page(r *http.Request) (audit.Page, error) {
	offset, err := Int(r, "offset", 0)
	if err != nil {
		return audit.Page{}, err
	}

	limit, err := Int(r, "limit", 0)
	if err != nil {
		return audit.Page{}, err
	}

	return audit.Page{Offset: offset, Limit: limit}, nil
}
