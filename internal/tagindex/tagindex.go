// Package tagindex groups journal entries by tag.
//
// An Index is a snapshot: it is built from a full scan and never updated in
// place. Rebuild it after editing entries.
package tagindex

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/daybook/internal/daterange"
	"github.com/starford/daybook/internal/models"
)

// Mode selects how required tags filter entries.
type Mode int

const (
	// Any keeps every entry and selects buckets by tag.
	Any Mode = iota
	// All keeps only entries carrying every required tag.
	All
)

func (m Mode) String() string {
	if m == All {
		return "all"
	}
	return "any"
}

// ParseMode maps "any" or "all" (case-insensitive, empty means any).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return Any, nil
	case "all":
		return All, nil
	}
	return Any, fmt.Errorf("tagindex: unknown mode %q", s)
}

// Filter restricts which entries are indexed.
type Filter struct {
	Range *daterange.Range
	Tags  []string
	Mode  Mode
}

// Bucket holds the entries carrying one tag.
type Bucket struct {
	Tag     string
	Entries []*models.Entry
}

// Paths returns the paths of the bucket's entries.
func (b *Bucket) Paths() []string {
	out := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = e.Path
	}
	return out
}

// Index maps tags to buckets in the order tags were first seen.
type Index struct {
	order   []string
	buckets map[string]*Bucket
	entries []*models.Entry
	filter  Filter
}

// Build scans entries in order. An entry passes when its date is inside
// f.Range (if set) and, in All mode, it carries every tag in f.Tags. Each
// passing entry is added to the bucket of every one of its tags.
func Build(entries []*models.Entry, f Filter) *Index {
	ix := &Index{buckets: make(map[string]*Bucket), filter: f}
	for _, e := range entries {
		if f.Range != nil && !f.Range.Includes(e.Date) {
			continue
		}
		if f.Mode == All && !hasAll(e, f.Tags) {
			continue
		}
		ix.entries = append(ix.entries, e)
		for _, tag := range e.Tags() {
			b, ok := ix.buckets[tag]
			if !ok {
				b = &Bucket{Tag: tag}
				ix.buckets[tag] = b
				ix.order = append(ix.order, tag)
			}
			b.Entries = append(b.Entries, e)
		}
	}
	return ix
}

func hasAll(e *models.Entry, tags []string) bool {
	for _, t := range tags {
		if !e.Meta.HasTag(t) {
			return false
		}
	}
	return true
}

// Len returns the number of buckets.
func (ix *Index) Len() int { return len(ix.order) }

// Tags returns bucket tags in first-seen order.
func (ix *Index) Tags() []string { return slices.Clone(ix.order) }

// Bucket returns the bucket for tag.
func (ix *Index) Bucket(tag string) (*Bucket, bool) {
	b, ok := ix.buckets[tag]
	return b, ok
}

// Buckets returns every bucket in first-seen order.
func (ix *Index) Buckets() []*Bucket {
	out := make([]*Bucket, len(ix.order))
	for i, tag := range ix.order {
		out[i] = ix.buckets[tag]
	}
	return out
}

// Select returns the buckets whose tag is in tags, in index order. With no
// tags every bucket is returned.
func (ix *Index) Select(tags []string) []*Bucket {
	if len(tags) == 0 {
		return ix.Buckets()
	}
	var out []*Bucket
	for _, tag := range ix.order {
		if slices.Contains(tags, tag) {
			out = append(out, ix.buckets[tag])
		}
	}
	return out
}

// Entries returns the entries that passed the filter, in scan order.
func (ix *Index) Entries() []*models.Entry {
	return slices.Clone(ix.entries)
}

// Matching returns the entries the filter selects. In Any mode with tags
// this is the union of the selected buckets, in scan order.
func (ix *Index) Matching() []*models.Entry {
	if ix.filter.Mode == All || len(ix.filter.Tags) == 0 {
		return ix.Entries()
	}
	var out []*models.Entry
	for _, e := range ix.entries {
		for _, t := range ix.filter.Tags {
			if e.Meta.HasTag(t) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
