package timeutil

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedTimestamp is returned for input that matches none of the known
// layouts. Callers treat it as "unknown instant, assume not-after" rather
// than aborting the cycle.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// Layouts seen in the wild: Trello emits RFC3339 with millisecond precision,
// sqlite's CURRENT_TIMESTAMP emits "2006-01-02 15:04:05", and older rows may
// carry a zone-less ISO form.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse converts any instant representation emitted by Trello or by local
// persistence into a UTC instant suitable for ordering comparisons. Layouts
// without an explicit zone marker are assumed to already be UTC.
func Parse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrMalformedTimestamp)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}

// ParseOptional maps the empty string to nil (absence is absence, not epoch
// zero) and otherwise behaves like Parse.
func ParseOptional(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Equal compares two optional instants on their normalized value, so that
// representation drift between polls never registers as a transition.
func Equal(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UTC().Equal(b.UTC())
}

// StrictlyAfter reports whether a is strictly after b. Ties are not "after";
// the suppression rule deliberately favors delivery on equal instants.
func StrictlyAfter(a, b time.Time) bool {
	return a.UTC().After(b.UTC())
}
