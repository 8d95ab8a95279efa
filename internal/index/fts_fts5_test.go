//go:build sqlite_fts5

package index

import (
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries_fts`).Scan(&count); err != nil {
		t.Fatalf("entries_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := EntryRow{
		Path:     "2021/03 March/2021.03.14.md",
		Name:     "2021.03.14",
		Date:     day(2021, 3, 14),
		Checksum: "f1",
		Tags:     []string{"search"},
	}
	if err := db.UpsertEntry(row, "Spent the afternoon baking an enormous pie."); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	results, err := db.Search("enormous", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != row.Path {
		t.Errorf("path = %q", results[0].Path)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertEntry(EntryRow{Path: "gone.md", Date: day(2021, 1, 1), Checksum: "g", Tags: []string{}}, "vanishing content")
	_ = db.DeleteEntry("gone.md")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.Path == "gone.md" {
			t.Error("deleted entry still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertEntry(EntryRow{Path: "evo.md", Name: "old", Date: day(2021, 1, 1), Checksum: "1", Tags: []string{}}, "original text")
	_ = db.UpsertEntry(EntryRow{Path: "evo.md", Name: "new", Date: day(2021, 1, 1), Checksum: "2", Tags: []string{}}, "replacement text")

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Name != "new" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
