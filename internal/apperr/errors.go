// Package apperr holds the failure kinds callers branch on with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidRange is returned when a date range does not satisfy from < to.
	ErrInvalidRange = errors.New("invalid date range")

	ErrEmptyExpression     = errors.New("empty reminder expression")
	ErrMalformedExpression = errors.New("malformed reminder expression")
	// ErrUnsupportedUnit is returned when the count parses but the unit is not
	// one of day, week, month or year.
	ErrUnsupportedUnit = errors.New("unsupported reminder unit")

	ErrEmptyLines        = errors.New("no lines to add")
	ErrTagNotFound       = errors.New("tag not found")
	ErrEmptyInput        = errors.New("at least two entries are required")
	ErrNoMatchingEntries = errors.New("no matching entries")
)
