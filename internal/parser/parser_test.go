package parser

import (
	"testing"
	"time"

	"github.com/starford/daybook/internal/daterange"
	"github.com/starford/daybook/internal/frontmatter"
)

func TestSplit_BlockAndBody(t *testing.T) {
	block, ok, raw := Split([]byte("---\ntags:\n  - go\n---\n\n# Friday, July 19, 2019\n\nBody text.\n"))
	if !ok {
		t.Fatal("expected a block")
	}
	if block != "tags:\n  - go\n" {
		t.Errorf("block = %q", block)
	}
	if raw != "\n# Friday, July 19, 2019\n\nBody text.\n" {
		t.Errorf("body = %q", raw)
	}
}

func TestSplit_NoBlock(t *testing.T) {
	in := "# Just a heading\nSome text.\n"
	block, ok, raw := Split([]byte(in))
	if ok || block != "" || raw != in {
		t.Errorf("Split = %q, %v, %q", block, ok, raw)
	}
}

func TestSplit_UnclosedBlockIsBody(t *testing.T) {
	in := "---\ntags: [a]\nno closing line\n"
	_, ok, raw := Split([]byte(in))
	if ok || raw != in {
		t.Errorf("ok = %v, raw = %q", ok, raw)
	}
}

func TestSplit_DelimiterMustBeWholeLine(t *testing.T) {
	_, ok, _ := Split([]byte("----\ntags: [a]\n----\nbody"))
	if ok {
		t.Error("four dashes should not open a block")
	}
}

func TestSplit_CRLF(t *testing.T) {
	block, ok, raw := Split([]byte("---\r\ntags: [a]\r\n---\r\nbody"))
	if !ok || block != "tags: [a]\r\n" || raw != "body" {
		t.Errorf("Split = %q, %v, %q", block, ok, raw)
	}
}

func TestDateFromName(t *testing.T) {
	d, err := DateFromName("2019.04.25")
	if err != nil {
		t.Fatalf("DateFromName: %v", err)
	}
	if !d.Equal(daterange.Date(2019, time.April, 25)) {
		t.Errorf("date = %s", d)
	}
	if IsEntryName("notes") || IsEntryName("2019-04-25") {
		t.Error("non-entry stems accepted")
	}
}

func TestRangeFromName(t *testing.T) {
	r, err := RangeFromName("2017.01.02-2017.03.03")
	if err != nil {
		t.Fatalf("RangeFromName: %v", err)
	}
	if r.CanonicalName(".md") != "2017.01.02-2017.03.03.md" {
		t.Errorf("name = %q", r.CanonicalName(".md"))
	}
	if _, err := RangeFromName("2017.01.02"); err == nil {
		t.Error("expected error for single date")
	}
}

func TestEntryPath(t *testing.T) {
	got := EntryPath(daterange.Date(2019, time.April, 5), ".md")
	if got != "2019/04 April/2019.04.05.md" {
		t.Errorf("path = %q", got)
	}
	if Stem(got) != "2019.04.05" {
		t.Errorf("stem = %q", Stem(got))
	}
}

func TestParseEntry(t *testing.T) {
	data := []byte("---\ntags: [b, a]\nreadme: 1 year\n---\n\n# Thursday, April 25, 2019\n\nhello\n")
	e, err := ParseEntry("2019/04 April/2019.04.25.md", data)
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if e.Name != "2019.04.25" || !e.Date.Equal(daterange.Date(2019, time.April, 25)) {
		t.Errorf("identity = %q %s", e.Name, e.Date)
	}
	r, ok := e.Meta.Reminder()
	if !ok || r.Text != "4/25/2020" {
		t.Errorf("reminder = %+v", r)
	}
	if e.Body.Len() != 1 || e.Body.Segments()[0].Text != "hello" {
		t.Errorf("body = %q", e.Body.String())
	}
}

func TestParseEntry_BadName(t *testing.T) {
	if _, err := ParseEntry("README.md", []byte("x")); err == nil {
		t.Error("expected error for non-entry file name")
	}
}

func TestCompose_PreservesBody(t *testing.T) {
	raw := "\n  odd   spacing\n\n\n# H\n"
	meta := frontmatter.New([]string{"x"}, nil)
	out := Compose(meta, raw)
	_, ok, gotRaw := Split(out)
	if !ok || gotRaw != raw {
		t.Errorf("body after compose = %q, want %q", gotRaw, raw)
	}
}

func TestCompose_EmptyMeta(t *testing.T) {
	if got := string(Compose(frontmatter.New(nil, nil), "body")); got != "body" {
		t.Errorf("Compose = %q", got)
	}
}
