package tagindex

import (
	"slices"
	"testing"
	"time"

	"github.com/starford/daybook/internal/body"
	"github.com/starford/daybook/internal/daterange"
	"github.com/starford/daybook/internal/frontmatter"
	"github.com/starford/daybook/internal/models"
)

func entry(day int, tags ...string) *models.Entry {
	d := daterange.Date(2020, time.March, day)
	return &models.Entry{
		Name: d.Format(daterange.DateLayout),
		Date: d,
		Path: d.Format(daterange.DateLayout) + ".md",
		Meta: frontmatter.New(tags, nil),
		Body: body.Parse("text"),
	}
}

func corpus() []*models.Entry {
	return []*models.Entry{
		entry(1, "work", "ideas"),
		entry(2, "home"),
		entry(3, "ideas", "home", "work"),
		entry(4),
		entry(5, "travel", "work"),
	}
}

func TestBuild_FirstSeenOrder(t *testing.T) {
	ix := Build(corpus(), Filter{})
	want := []string{"work", "ideas", "home", "travel"}
	if got := ix.Tags(); !slices.Equal(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
	b, ok := ix.Bucket("work")
	if !ok {
		t.Fatal("work bucket missing")
	}
	if got := b.Paths(); !slices.Equal(got, []string{"2020.03.01.md", "2020.03.03.md", "2020.03.05.md"}) {
		t.Errorf("work paths = %v", got)
	}
	if len(ix.Entries()) != 5 {
		t.Errorf("entries = %d, want 5", len(ix.Entries()))
	}
}

func TestBuild_RangeFilter(t *testing.T) {
	r, _ := daterange.New(daterange.Date(2020, time.March, 2), daterange.Date(2020, time.March, 4))
	ix := Build(corpus(), Filter{Range: &r})
	if got := ix.Tags(); !slices.Equal(got, []string{"home", "ideas", "work"}) {
		t.Errorf("tags = %v", got)
	}
	if len(ix.Entries()) != 3 {
		t.Errorf("entries = %d, want 3", len(ix.Entries()))
	}
}

func TestBuild_AllMode(t *testing.T) {
	ix := Build(corpus(), Filter{Tags: []string{"work", "ideas"}, Mode: All})
	entries := ix.Matching()
	if len(entries) != 2 || entries[0].Name != "2020.03.01" || entries[1].Name != "2020.03.03" {
		t.Errorf("matching = %v", entries)
	}
	if _, ok := ix.Bucket("travel"); ok {
		t.Error("travel entry should have been filtered out")
	}
}

func TestBuild_AnyModeSelectsBuckets(t *testing.T) {
	ix := Build(corpus(), Filter{Tags: []string{"travel", "home"}, Mode: Any})
	if ix.Len() != 4 {
		t.Errorf("buckets = %d, want all 4 in any mode", ix.Len())
	}
	var sel []string
	for _, b := range ix.Select([]string{"travel", "home"}) {
		sel = append(sel, b.Tag)
	}
	if !slices.Equal(sel, []string{"home", "travel"}) {
		t.Errorf("selected = %v, want index order [home travel]", sel)
	}
	var names []string
	for _, e := range ix.Matching() {
		names = append(names, e.Name)
	}
	if !slices.Equal(names, []string{"2020.03.02", "2020.03.03", "2020.03.05"}) {
		t.Errorf("matching = %v", names)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("ALL"); err != nil || m != All {
		t.Errorf("ParseMode(ALL) = %v, %v", m, err)
	}
	if m, err := ParseMode(""); err != nil || m != Any {
		t.Errorf("ParseMode(\"\") = %v, %v", m, err)
	}
	if _, err := ParseMode("some"); err == nil {
		t.Error("expected error")
	}
}
