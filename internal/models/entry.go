// Package models defines the domain types for daybook.
package models

import (
	"time"

	"github.com/starford/daybook/internal/body"
	"github.com/starford/daybook/internal/frontmatter"
)

// Entry is one journal document read as a whole: identity, metadata and body.
// Two entries are the same document when Name and Date match.
type Entry struct {
	Name string
	Date time.Time
	// Path is relative to the journal root.
	Path string
	Meta frontmatter.Metadata
	Body *body.Body
	// RawBody is the file content after the metadata block, byte for byte.
	RawBody string
}

// Same reports whether e and o identify the same document.
func (e *Entry) Same(o *Entry) bool {
	return e.Name == o.Name && e.Date.Equal(o.Date)
}

// Tags returns the entry's tags in first-seen order.
func (e *Entry) Tags() []string {
	return e.Meta.Tags()
}

// MetaView is the listing projection of an entry.
type MetaView struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
	Path string    `json:"path"`
	Tags []string  `json:"tags"`
}

// ReadmeView is the projection of an entry that carries a reminder.
type ReadmeView struct {
	Name       string    `json:"name"`
	Date       time.Time `json:"date"`
	Path       string    `json:"path"`
	Readme     string    `json:"readme"`
	Expiration time.Time `json:"expiration"`
}

// DetailView is the full projection including the body text.
type DetailView struct {
	MetaView
	Readme string `json:"readme,omitempty"`
	Body   string `json:"body"`
}

// MetaView returns the listing view.
func (e *Entry) MetaView() MetaView {
	tags := e.Meta.SortedTags()
	if tags == nil {
		tags = []string{}
	}
	return MetaView{Name: e.Name, Date: e.Date, Path: e.Path, Tags: tags}
}

// ReadmeView returns the reminder view and whether the entry has a reminder.
func (e *Entry) ReadmeView() (ReadmeView, bool) {
	r, ok := e.Meta.Reminder()
	if !ok {
		return ReadmeView{}, false
	}
	return ReadmeView{
		Name:       e.Name,
		Date:       e.Date,
		Path:       e.Path,
		Readme:     r.Text,
		Expiration: r.Expiration,
	}, true
}

// DetailView returns the full view.
func (e *Entry) DetailView() DetailView {
	d := DetailView{MetaView: e.MetaView(), Body: e.Body.String()}
	if r, ok := e.Meta.Reminder(); ok {
		d.Readme = r.Text
	}
	return d
}

// Expired reports whether the entry's reminder is due on or before today.
func (e *Entry) Expired(today time.Time) bool {
	r, ok := e.Meta.Reminder()
	return ok && !r.Expiration.After(today)
}

// EntryMetadata is a lightweight listing row returned by storage.
type EntryMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
