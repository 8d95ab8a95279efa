// Package parser reads journal documents: it separates the metadata block
// from the body, derives an entry's identity from its file name, and
// composes documents for writing.
package parser

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/daybook/internal/body"
	"github.com/starford/daybook/internal/daterange"
	"github.com/starford/daybook/internal/frontmatter"
	"github.com/starford/daybook/internal/models"
)

// Split separates the delimited metadata block (without its delimiter lines)
// from the body. The body is everything after the closing delimiter line,
// unmodified. Without a complete block the whole document is body.
func Split(data []byte) (block string, ok bool, rawBody string) {
	text := string(data)
	trimmed := strings.TrimLeft(text, "\r\n")

	first, rest, found := strings.Cut(trimmed, "\n")
	if !found || strings.TrimRight(first, "\r") != frontmatter.Delimiter {
		return "", false, text
	}

	pos := 0
	for pos <= len(rest) {
		line := rest[pos:]
		next := len(rest)
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
			next = pos + i + 1
		}
		if strings.TrimRight(line, "\r") == frontmatter.Delimiter {
			return rest[:pos], true, rest[next:]
		}
		if next == len(rest) {
			break
		}
		pos = next
	}
	return "", false, text
}

// Stem returns the file name of p without directory or extension.
func Stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// DateFromName parses an entry stem of the form yyyy.MM.dd.
func DateFromName(stem string) (time.Time, error) {
	d, err := time.Parse(daterange.DateLayout, stem)
	if err != nil {
		return time.Time{}, fmt.Errorf("parser: %q is not an entry name: %w", stem, err)
	}
	return d, nil
}

// IsEntryName reports whether stem names a daily entry.
func IsEntryName(stem string) bool {
	_, err := DateFromName(stem)
	return err == nil
}

// RangeFromName parses a compiled document stem of the form
// yyyy.MM.dd-yyyy.MM.dd.
func RangeFromName(stem string) (daterange.Range, error) {
	from, to, ok := strings.Cut(stem, "-")
	if !ok {
		return daterange.Range{}, fmt.Errorf("parser: %q is not a compiled name", stem)
	}
	f, err := DateFromName(from)
	if err != nil {
		return daterange.Range{}, err
	}
	t, err := DateFromName(to)
	if err != nil {
		return daterange.Range{}, err
	}
	return daterange.New(f, t)
}

// EntryPath returns the location of the entry for d relative to the
// journal root, e.g. "2019/04 April/2019.04.25.md".
func EntryPath(d time.Time, ext string) string {
	return d.Format("2006/01 January/"+daterange.DateLayout) + ext
}

// ParseEntry reads a whole document stored at p. The date in the file name
// anchors relative reminders.
func ParseEntry(p string, data []byte) (*models.Entry, error) {
	name := Stem(p)
	date, err := DateFromName(name)
	if err != nil {
		return nil, err
	}

	block, _, raw := Split(data)
	meta, err := frontmatter.Parse(block, date)
	if err != nil {
		return nil, fmt.Errorf("parser: %s: %w", p, err)
	}

	return &models.Entry{
		Name:    name,
		Date:    date,
		Path:    p,
		Meta:    meta,
		Body:    body.Parse(raw),
		RawBody: raw,
	}, nil
}

// Compose writes meta as a block followed by rawBody untouched. Empty
// metadata produces only the body.
func Compose(meta frontmatter.Metadata, rawBody string) []byte {
	block := meta.Serialize(true)
	if block == "" {
		return []byte(rawBody)
	}
	return []byte(block + "\n" + rawBody)
}

// ComposeBody renders a document from metadata and a segmented body, with a
// blank line between block and body and a trailing newline.
func ComposeBody(meta frontmatter.Metadata, b *body.Body) []byte {
	text := b.String()
	if text != "" {
		text += "\n"
	}
	if meta.Serialize(true) != "" {
		text = "\n" + text
	}
	return Compose(meta, text)
}
