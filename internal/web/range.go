package web

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/denwilliams/go-ambient-match/internal/store"
)

const (
	defaultWindow = 24 * time.Hour
	defaultLimit  = 200
	maxLimit      = 2000
)

// Timestamps without a zone are read as UTC.
var rangeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseRange reads ?start=&end=&limit=&offset=. End defaults to now and start
// to a day before end. Limit is clamped to 1-2000 and offset to >= 0.
func ParseRange(q url.Values, now time.Time) (store.Range, error) {
	r := store.Range{End: now, Limit: defaultLimit}

	if s := q.Get("end"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			return r, fmt.Errorf("end: %w", err)
		}
		r.End = t
	}
	r.Start = r.End.Add(-defaultWindow)
	if s := q.Get("start"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			return r, fmt.Errorf("start: %w", err)
		}
		r.Start = t
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return r, fmt.Errorf("limit: %w", err)
		}
		r.Limit = min(max(n, 1), maxLimit)
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return r, fmt.Errorf("offset: %w", err)
		}
		r.Offset = max(n, 0)
	}
	return r, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range rangeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
