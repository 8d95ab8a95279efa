// Package reminder parses readme expressions ("9/7/19", "3 weeks") and
// resolves them to absolute expiration dates against an anchor day.
package reminder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/daterange"
)

// TextLayout is the short date form used for canonical reminder text.
const TextLayout = "1/2/2006"

// Unit is the calendar unit of a relative expression.
type Unit int

const (
	Day Unit = iota
	Week
	Month
	Year
)

func (u Unit) String() string {
	switch u {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	}
	return "unknown"
}

var (
	unitRes = []struct {
		re   *regexp.Regexp
		unit Unit
	}{
		{regexp.MustCompile(`(?i)^days?$`), Day},
		{regexp.MustCompile(`(?i)^weeks?$`), Week},
		{regexp.MustCompile(`(?i)^months?$`), Month},
		{regexp.MustCompile(`(?i)^years?$`), Year},
	}
	absoluteRe = regexp.MustCompile(`^(\d{1,4})[/.\-\\](\d{1,2})[/.\-\\](\d{1,4})$`)
)

// Expression is either an exact date or a (unit, count) pair.
type Expression struct {
	exact   time.Time
	isExact bool
	unit    Unit
	count   int
}

// Resolved is an expression fixed to an absolute day.
type Resolved struct {
	Expiration time.Time
	Text       string
}

// Exact returns an expression for a fixed day.
func Exact(d time.Time) Expression {
	return Expression{exact: daterange.Day(d), isExact: true}
}

// Relative returns an expression for count units after the anchor.
func Relative(unit Unit, count int) Expression {
	return Expression{unit: unit, count: count}
}

// Parse classifies text as an absolute date or a relative duration.
func Parse(text string) (Expression, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Expression{}, apperr.ErrEmptyExpression
	}
	if d, ok := parseAbsolute(text); ok {
		return Exact(d), nil
	}

	countToken, unitToken, _ := strings.Cut(text, " ")
	count, err := strconv.Atoi(countToken)
	if err != nil || count <= 0 {
		return Expression{}, fmt.Errorf("%w: %q", apperr.ErrMalformedExpression, text)
	}
	unitToken = strings.TrimSpace(unitToken)
	for _, u := range unitRes {
		if u.re.MatchString(unitToken) {
			return Relative(u.unit, count), nil
		}
	}
	return Expression{}, fmt.Errorf("%w: %q", apperr.ErrUnsupportedUnit, unitToken)
}

// IsExact reports whether the expression names a fixed day.
func (e Expression) IsExact() bool { return e.isExact }

// Resolve fixes the expression to an absolute day. Exact expressions ignore
// the anchor.
func (e Expression) Resolve(anchor time.Time) Resolved {
	if e.isExact {
		return Resolved{Expiration: e.exact, Text: Format(e.exact)}
	}
	anchor = daterange.Day(anchor)
	var d time.Time
	switch e.unit {
	case Day:
		d = anchor.AddDate(0, 0, e.count)
	case Week:
		d = anchor.AddDate(0, 0, 7*e.count)
	case Month:
		d = addMonths(anchor, e.count)
	case Year:
		d = addMonths(anchor, 12*e.count)
	}
	return Resolved{Expiration: d, Text: Format(d)}
}

func (e Expression) String() string {
	if e.isExact {
		return Format(e.exact)
	}
	s := fmt.Sprintf("%d %s", e.count, e.unit)
	if e.count != 1 {
		s += "s"
	}
	return s
}

// Bake resolves raw reminder text against anchor in one step. A relative
// value stored on disk becomes the absolute date it denotes; the result's
// Text is what gets written back.
func Bake(raw string, anchor time.Time) (Resolved, error) {
	e, err := Parse(raw)
	if err != nil {
		return Resolved{}, err
	}
	return e.Resolve(anchor), nil
}

// Format renders d in the canonical short date form, e.g. 7/19/2021.
func Format(d time.Time) string {
	return d.Format(TextLayout)
}

// addMonths adds n months and clamps the day to the end of the target month.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// parseAbsolute accepts m/d/y or y/m/d with any of the / . - \ separators.
func parseAbsolute(text string) (time.Time, bool) {
	m := absoluteRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	c, _ := strconv.Atoi(m[3])

	var year, month, day int
	switch {
	case len(m[1]) == 4:
		year, month, day = a, b, c
	case len(m[1]) <= 2 && len(m[3]) == 4:
		month, day, year = a, b, c
	case len(m[1]) <= 2 && len(m[3]) <= 2:
		month, day, year = a, b, expandYear(c)
	default:
		return time.Time{}, false
	}

	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	if day > daysIn(first) {
		return time.Time{}, false
	}
	return daterange.Date(year, time.Month(month), day), true
}

// expandYear maps a two-digit year onto 1930-2029.
func expandYear(y int) int {
	if y < 30 {
		return 2000 + y
	}
	return 1900 + y
}
