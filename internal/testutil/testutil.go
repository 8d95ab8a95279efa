// Package testutil provides shared test helpers for setting up journals and databases.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "daybook-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestJournal creates a temporary journal directory with a storage.FS.
func TestJournal(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteEntry stores content as the entry for the given day.
func WriteEntry(t *testing.T, store storage.Provider, day time.Time, content string) string {
	t.Helper()
	p := day.Format("2006/01 January/2006.01.02") + ".md"
	if err := store.Write(p, []byte(content)); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}
