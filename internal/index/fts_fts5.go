//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// entries_fts mirrors the searchable columns of entries; column 2 is the body.
const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
	path UNINDEXED,
	name,
	body,
	tags,
	tokenize = 'unicode61 remove_diacritics 2'
);`

func initFTS(conn *sql.DB) error {
	if _, err := conn.Exec(ftsSchema); err != nil {
		return fmt.Errorf("index: create fts: %w", err)
	}
	return nil
}

func ftsUpsert(tx *sql.Tx, path, name, body string, tags []string) error {
	ftsDelete(tx, path)
	if _, err := tx.Exec(`INSERT INTO entries_fts (path, name, body, tags) VALUES (?, ?, ?, ?)`,
		path, name, body, strings.Join(tags, " ")); err != nil {
		return fmt.Errorf("index: upsert fts %s: %w", path, err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM entries_fts WHERE path = ?`, path)
}

// Search runs an FTS5 MATCH query ranked by relevance. Snippets highlight
// the matching body text.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT path, name, snippet(entries_fts, 2, '<b>', '</b>', '...', 64)
		FROM entries_fts
		WHERE entries_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanSearch(rows)
}
