package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/daybook/internal/checksum"
	"github.com/starford/daybook/internal/parser"
)

const dateColumnLayout = "2006-01-02"

// EntryRow represents a row in the entries table.
type EntryRow struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	Readme    string    `json:"readme,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// TagCount is the number of entries carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// UpsertEntry inserts or replaces an entry, its FTS row, and its tags within a transaction.
func (db *DB) UpsertEntry(e EntryRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if e.Tags == nil {
		e.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(e.Tags)
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO entries (path, name, date, checksum, tags, readme, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name       = excluded.name,
			date       = excluded.date,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			readme     = excluded.readme,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, e.Path, e.Name, e.Date.Format(dateColumnLayout), e.Checksum, string(tagsJSON), e.Readme, body, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert entry: %w", err)
	}

	if err := ftsUpsert(tx, e.Path, e.Name, body, e.Tags); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM entry_tags WHERE path = ?`, e.Path)
	if len(e.Tags) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO entry_tags (path, tag) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, tag := range e.Tags {
			if _, err := stmt.Exec(e.Path, tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
	}

	return tx.Commit()
}

// IndexFile parses a journal document and upserts it.
func (db *DB) IndexFile(path string, data []byte) error {
	e, err := parser.ParseEntry(path, data)
	if err != nil {
		return err
	}
	row := EntryRow{
		Path:     path,
		Name:     e.Name,
		Date:     e.Date,
		Checksum: checksum.Sum(data),
		Tags:     e.Meta.SortedTags(),
	}
	if r, ok := e.Meta.Reminder(); ok {
		row.Readme = r.Text
	}
	return db.UpsertEntry(row, e.Body.String())
}

// DeleteEntry removes an entry, its FTS row, and its tags.
func (db *DB) DeleteEntry(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM entry_tags WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM entries WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for an entry, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM entries WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllPaths returns every indexed entry path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed entry.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListEntries returns entries newest first, optionally restricted to a tag,
// with the total count before pagination.
func (db *DB) ListEntries(limit, offset int, tag string) ([]EntryRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "", []any{}
	if tag != "" {
		where = `WHERE path IN (SELECT path FROM entry_tags WHERE tag = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count entries: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, name, date, checksum, tags, readme, updated_at
		FROM entries `+where+`
		ORDER BY date DESC, path
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list entries: %w", err)
	}
	defer rows.Close()

	var out []EntryRow
	for rows.Next() {
		var (
			r              EntryRow
			date, tagsJSON string
		)
		if err := rows.Scan(&r.Path, &r.Name, &date, &r.Checksum, &tagsJSON, &r.Readme, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		r.Date, _ = time.Parse(dateColumnLayout, date)
		_ = json.Unmarshal([]byte(tagsJSON), &r.Tags)
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// TagCounts returns every tag with the number of entries carrying it,
// most used first.
func (db *DB) TagCounts() ([]TagCount, error) {
	rows, err := db.conn.Query(`
		SELECT tag, count(*) AS n
		FROM entry_tags
		GROUP BY tag
		ORDER BY n DESC, tag
	`)
	if err != nil {
		return nil, fmt.Errorf("index: tag counts: %w", err)
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

const defaultSearchLimit = 20

func scanSearch(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Name, &r.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan search: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
