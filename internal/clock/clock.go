// Package clock supplies "today" for resolving relative reminders.
package clock

import (
	"time"

	"github.com/starford/daybook/internal/daterange"
)

// Clock returns the current calendar day.
type Clock interface {
	Today() time.Time
}

// System reads the local wall clock.
type System struct{}

// Today returns the local calendar day.
func (System) Today() time.Time {
	return daterange.Day(time.Now())
}

// Fixed always returns the same day. Used in tests.
type Fixed time.Time

// Today returns the fixed day.
func (f Fixed) Today() time.Time {
	return daterange.Day(time.Time(f))
}
