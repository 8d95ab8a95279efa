//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the entries table itself is searched, so the hooks are no-ops.
func initFTS(*sql.DB) error                                     { return nil }
func ftsUpsert(*sql.Tx, string, string, string, []string) error { return nil }
func ftsDelete(*sql.Tx, string)                                 {}

// Search returns entries whose body, tags or readme contain every word of
// query, newest first. Snippets are the start of the body.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var where []string
	var args []any
	for _, term := range terms {
		like := "%" + term + "%"
		where = append(where, "(body LIKE ? OR tags LIKE ? OR readme LIKE ?)")
		args = append(args, like, like, like)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT path, name, substr(body, 1, 200)
		FROM entries
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY date DESC, path
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanSearch(rows)
}
