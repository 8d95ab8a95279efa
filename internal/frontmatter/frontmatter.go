// Package frontmatter reads and writes the YAML block at the top of a
// journal entry: a tag list and an optional expiring readme reminder.
package frontmatter

import (
	"bytes"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/daybook/internal/reminder"
)

const (
	// Delimiter opens and closes the block.
	Delimiter = "---"
	// UntaggedTag is written for a brand-new entry that has no tags yet.
	UntaggedTag = "(untagged)"

	keyTags   = "tags"
	keyReadme = "readme"
)

// Metadata is the parsed content of the block. Tags are case-sensitive,
// deduplicated and kept in first-seen order; serialization sorts them.
type Metadata struct {
	tags       []string
	reminder   *reminder.Resolved
	defaultTag bool
	// relative is set when the readme was read as a duration; the on-disk
	// text still differs from Serialize until the entry is written back.
	relative bool
}

// Parse decodes the YAML between the delimiters. Relative readme values are
// baked against anchor. The UntaggedTag placeholder is not read as a tag.
// An empty block, invalid YAML, or a block without known keys yields an
// empty Metadata and no error; an unusable readme value is reported with the
// reminder error kinds.
func Parse(block string, anchor time.Time) (Metadata, error) {
	var m Metadata
	if strings.TrimSpace(block) == "" {
		return m, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return m, nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return m, nil
	}

	fields := doc.Content[0].Content
	for i := 0; i+1 < len(fields); i += 2 {
		key, val := fields[i], fields[i+1]
		switch strings.ToLower(strings.TrimSpace(key.Value)) {
		case keyTags:
			for _, t := range scalars(val) {
				if strings.TrimSpace(t) == UntaggedTag {
					m.defaultTag = true
				}
			}
			m.appendTags(scalars(val)...)
		case keyReadme:
			if val.Kind != yaml.ScalarNode || isNull(val) || strings.TrimSpace(val.Value) == "" {
				continue
			}
			e, err := reminder.Parse(val.Value)
			if err != nil {
				return Metadata{}, err
			}
			r := e.Resolve(anchor)
			m.reminder = &r
			m.relative = !e.IsExact()
		}
	}
	// The placeholder survives only while the entry has no real tags.
	if len(m.tags) > 0 {
		m.defaultTag = false
	}
	return m, nil
}

// New builds Metadata programmatically. Nil tags and a nil reminder give an
// empty Metadata.
func New(tags []string, r *reminder.Resolved) Metadata {
	m := Metadata{reminder: r}
	m.appendTags(tags...)
	return m
}

// NewForEntry builds the Metadata for a file about to be created. When it
// carries no tags the block is written with the UntaggedTag placeholder.
func NewForEntry(tags []string, r *reminder.Resolved) Metadata {
	m := New(tags, r)
	m.defaultTag = true
	return m
}

// Tags returns the tags in first-seen order.
func (m Metadata) Tags() []string {
	return slices.Clone(m.tags)
}

// SortedTags returns the tags in serialization order.
func (m Metadata) SortedTags() []string {
	out := slices.Clone(m.tags)
	slices.Sort(out)
	return out
}

// HasTag reports whether tag is present.
func (m Metadata) HasTag(tag string) bool {
	return slices.Contains(m.tags, tag)
}

// Reminder returns the resolved readme, if any.
func (m Metadata) Reminder() (reminder.Resolved, bool) {
	if m.reminder == nil {
		return reminder.Resolved{}, false
	}
	return *m.reminder, true
}

// HasRelativeReadme reports whether the parsed readme was a relative
// expression such as "2 weeks" rather than a date.
func (m Metadata) HasRelativeReadme() bool {
	return m.relative
}

// IsEmpty reports whether there are neither tags nor a reminder.
func (m Metadata) IsEmpty() bool {
	return len(m.tags) == 0 && m.reminder == nil
}

// AppendTags unions tags into the existing set.
func (m *Metadata) AppendTags(tags ...string) {
	m.appendTags(tags...)
}

// SetReminder replaces the readme; nil clears it.
func (m *Metadata) SetReminder(r *reminder.Resolved) {
	m.reminder = r
	m.relative = false
}

// RenameTag puts newTag in the slot held by oldTag. If newTag was already
// present its later occurrence is dropped. It reports whether oldTag existed.
func (m *Metadata) RenameTag(oldTag, newTag string) bool {
	i := slices.Index(m.tags, oldTag)
	if i < 0 {
		return false
	}
	m.tags = slices.Clone(m.tags)
	m.tags[i] = newTag
	for j := len(m.tags) - 1; j >= 0; j-- {
		if j != i && m.tags[j] == newTag {
			m.tags = slices.Delete(m.tags, j, j+1)
		}
	}
	return true
}

// Serialize renders the canonical block: sorted tags, then the readme date.
// With asBlock the text is wrapped in delimiter lines. Empty Metadata gives "".
func (m Metadata) Serialize(asBlock bool) string {
	tags := m.SortedTags()
	if len(tags) == 0 && m.defaultTag {
		tags = []string{UntaggedTag}
	}
	if len(tags) == 0 && m.reminder == nil {
		return ""
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	if len(tags) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, t := range tags {
			seq.Content = append(seq.Content, str(t))
		}
		root.Content = append(root.Content, str(keyTags), seq)
	}
	if m.reminder != nil {
		root.Content = append(root.Content, str(keyReadme), str(m.reminder.Text))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	// Encoding a tree of plain string nodes cannot fail.
	_ = enc.Encode(root)
	_ = enc.Close()

	inner := strings.TrimRight(buf.String(), "\n")
	if !asBlock {
		return inner
	}
	return Delimiter + "\n" + inner + "\n" + Delimiter
}

func (m *Metadata) appendTags(tags ...string) {
	m.tags = slices.Clip(m.tags)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || t == UntaggedTag || slices.Contains(m.tags, t) {
			continue
		}
		m.tags = append(m.tags, t)
	}
}

func scalars(n *yaml.Node) []string {
	switch n.Kind {
	case yaml.ScalarNode:
		if isNull(n) {
			return nil
		}
		return []string{n.Value}
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind == yaml.ScalarNode && !isNull(c) {
				out = append(out, c.Value)
			}
		}
		return out
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Tag == "!!null"
}

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
