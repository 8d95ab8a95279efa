// Package daterange provides a validated pair of calendar dates used to
// filter journal entries and to name compiled documents.
package daterange

import (
	"fmt"
	"time"

	"github.com/starford/daybook/internal/apperr"
)

// DateLayout is the fixed pattern of a journal entry's file name stem.
const DateLayout = "2006.01.02"

// Range is an immutable, inclusive span of calendar days with From < To.
type Range struct {
	from time.Time
	to   time.Time
}

// New returns the range [from, to]. Equal or inverted endpoints are rejected
// with apperr.ErrInvalidRange.
func New(from, to time.Time) (Range, error) {
	f, t := Day(from), Day(to)
	if !f.Before(t) {
		return Range{}, fmt.Errorf("%w: %s is not before %s", apperr.ErrInvalidRange, f.Format(DateLayout), t.Format(DateLayout))
	}
	return Range{from: f, to: t}, nil
}

// From returns the first day of the range.
func (r Range) From() time.Time { return r.from }

// To returns the last day of the range.
func (r Range) To() time.Time { return r.to }

// Includes reports whether d falls on or between both endpoints.
func (r Range) Includes(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.from) && !d.After(r.to)
}

// CanonicalName renders the range as a compiled document file name, e.g.
// "2017.01.02-2017.03.03.md" for extension ".md".
func (r Range) CanonicalName(ext string) string {
	return r.from.Format(DateLayout) + "-" + r.to.Format(DateLayout) + ext
}

func (r Range) String() string {
	return r.from.Format(DateLayout) + "-" + r.to.Format(DateLayout)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar day in UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
