// Package body splits the prose of a journal entry into header-delimited
// segments and writes them back.
//
// Segments read from text remember the whitespace that surrounded them, so
// String reproduces the trimmed input exactly. Segments that are created or
// edited are written in canonical form: header, blank line, text, blank line.
package body

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/starford/daybook/internal/apperr"
)

// LongDateLayout is the format of a default (date) header.
const LongDateLayout = "Monday, January 2, 2006"

var headerRe = regexp.MustCompile(`^#{1,6} \S`)

// Segment is a header line and the text that follows it up to the next
// header. The first segment of a body may have an empty header.
type Segment struct {
	Header string
	Text   string

	raw  bool
	sep  string
	tail string
}

// Body is an ordered list of segments.
type Body struct {
	segs []Segment
}

// IsHeader reports whether line opens a new segment.
func IsHeader(line string) bool {
	return headerRe.MatchString(line)
}

// Parse splits raw into segments. Text with no header lines becomes a single
// segment with an empty header; empty input yields no segments.
func Parse(raw string) *Body {
	text := strings.TrimSpace(raw)
	b := &Body{}
	if text == "" {
		return b
	}

	starts := headerStarts(text)
	if len(starts) == 0 {
		b.segs = append(b.segs, Segment{Text: text, raw: true})
		return b
	}

	if lead := text[:starts[0]]; strings.TrimSpace(lead) != "" {
		t := strings.TrimRight(lead, " \t\r\n")
		b.segs = append(b.segs, Segment{Text: t, raw: true, tail: lead[len(t):]})
	}

	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		chunk := text[start:end]
		lineEnd := strings.IndexByte(chunk, '\n')
		if lineEnd < 0 {
			lineEnd = len(chunk)
		}
		header := strings.TrimRight(chunk[:lineEnd], " \t\r")
		rest := chunk[len(header):]

		seg := Segment{Header: header, raw: true}
		if content := strings.TrimSpace(rest); content == "" {
			seg.sep = rest
		} else {
			at := strings.Index(rest, content)
			seg.sep = rest[:at]
			seg.Text = content
			seg.tail = rest[at+len(content):]
		}
		b.segs = append(b.segs, seg)
	}
	return b
}

// headerStarts returns the byte offsets of every header line in text.
func headerStarts(text string) []int {
	var out []int
	pos := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if IsHeader(line) {
			out = append(out, pos)
		}
		pos += len(line)
	}
	return out
}

// Len returns the number of segments.
func (b *Body) Len() int { return len(b.segs) }

// Segments returns a copy of the segments in order.
func (b *Body) Segments() []Segment {
	out := make([]Segment, len(b.segs))
	copy(out, b.segs)
	return out
}

// String renders the body. It is the inverse of Parse for unedited bodies.
func (b *Body) String() string {
	var sb strings.Builder
	for _, s := range b.segs {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteString("\n\n")
		}
		if s.raw {
			sb.WriteString(s.Header)
			sb.WriteString(s.sep)
			sb.WriteString(s.Text)
			sb.WriteString(s.tail)
			continue
		}
		if s.Header != "" {
			sb.WriteString(s.Header)
			sb.WriteString("\n\n")
		}
		if s.Text != "" {
			sb.WriteString(s.Text)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimRight(sb.String(), " \t\r\n")
}

// DefaultHeader returns the header line for the entry dated d.
func DefaultHeader(d time.Time) string {
	return "# " + d.Format(LongDateLayout)
}

// IsDefaultHeader reports whether header names a calendar day in long form.
func IsDefaultHeader(header string) bool {
	v := strings.TrimLeft(header, "# ")
	if v == "" {
		return false
	}
	_, err := time.Parse(LongDateLayout, strings.TrimSpace(v))
	return err == nil
}

// AddOrAppendToDefaultHeader appends lines under the date header and moves
// that segment to the front. Without a date header a new one for date is
// inserted at the front.
func (b *Body) AddOrAppendToDefaultHeader(date time.Time, lines []string) error {
	if len(lines) == 0 {
		return apperr.ErrEmptyLines
	}
	text := joinLines(lines)

	for i, s := range b.segs {
		if !IsDefaultHeader(s.Header) {
			continue
		}
		s = s.appended(text)
		b.segs = append(b.segs[:i], b.segs[i+1:]...)
		b.segs = append([]Segment{s}, b.segs...)
		return nil
	}

	b.segs = append([]Segment{{Header: DefaultHeader(date), Text: text}}, b.segs...)
	return nil
}

// AddOrAppendToCustomHeader appends lines under header, in place, or adds a
// new segment at the end when no segment has exactly that header. A header
// given without leading '#' is treated as a level one header.
func (b *Body) AddOrAppendToCustomHeader(header string, lines []string) error {
	if len(lines) == 0 {
		return apperr.ErrEmptyLines
	}
	header = NormalizeHeader(header)
	if header == "" {
		return fmt.Errorf("body: header is required")
	}
	text := joinLines(lines)

	for i, s := range b.segs {
		if s.Header == header {
			b.segs[i] = s.appended(text)
			return nil
		}
	}
	b.segs = append(b.segs, Segment{Header: header, Text: text})
	return nil
}

// NormalizeHeader trims header and prefixes "# " when it is not already a
// header line.
func NormalizeHeader(header string) string {
	header = strings.TrimSpace(header)
	if header == "" || IsHeader(header) {
		return header
	}
	return "# " + strings.TrimLeft(header, "# ")
}

func (s Segment) appended(text string) Segment {
	if s.Text == "" {
		s.Text = text
	} else {
		s.Text += "\n\n" + text
	}
	s.raw, s.sep, s.tail = false, "", ""
	return s
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n\n")
}
