package daterange

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/daybook/internal/apperr"
)

func TestNew_EqualEndpointsRejected(t *testing.T) {
	d := Date(2019, time.April, 25)
	if _, err := New(d, d); !errors.Is(err, apperr.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

func TestNew_InvertedEndpointsRejected(t *testing.T) {
	d1 := Date(2019, time.April, 25)
	d2 := Date(2019, time.April, 26)
	if _, err := New(d2, d1); !errors.Is(err, apperr.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

func TestIncludes_BothEndsInclusive(t *testing.T) {
	d1 := Date(2019, time.April, 25)
	d2 := Date(2019, time.May, 3)
	r, err := New(d1, d2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !r.Includes(d1) || !r.Includes(d2) {
		t.Error("endpoints should be included")
	}
	if !r.Includes(Date(2019, time.April, 30)) {
		t.Error("inner day should be included")
	}
	if r.Includes(Date(2019, time.April, 24)) || r.Includes(Date(2019, time.May, 4)) {
		t.Error("outer days should be excluded")
	}
}

func TestIncludes_IgnoresTimeOfDay(t *testing.T) {
	r, _ := New(Date(2020, time.January, 1), Date(2020, time.January, 2))
	late := time.Date(2020, time.January, 2, 23, 59, 0, 0, time.UTC)
	if !r.Includes(late) {
		t.Error("late evening on last day should be included")
	}
}

func TestCanonicalName(t *testing.T) {
	r, err := New(Date(2017, time.January, 2), Date(2017, time.March, 3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := r.CanonicalName(".md"); got != "2017.01.02-2017.03.03.md" {
		t.Errorf("name = %q, want %q", got, "2017.01.02-2017.03.03.md")
	}
}
