package index

import (
	"log/slog"
	"sort"

	"github.com/starford/daybook/internal/parser"
	"github.com/starford/daybook/internal/storage"
)

// SyncStats counts what one Sync pass did.
type SyncStats struct {
	Indexed   int
	Removed   int
	Unchanged int
}

// drift is the difference between the catalog and the entries on disk.
type drift struct {
	added     []string // on disk, not in the catalog
	changed   []string // checksum differs
	stale     []string // in the catalog, gone from disk
	unchanged int
}

func diff(db *DB, store storage.Provider) (drift, error) {
	metas, err := store.List("")
	if err != nil {
		return drift{}, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return drift{}, err
	}

	var d drift
	onDisk := make(map[string]bool, len(metas))
	for _, m := range metas {
		if !parser.IsEntryName(parser.Stem(m.Path)) {
			continue
		}
		onDisk[m.Path] = true
		old, known := checksums[m.Path]
		switch {
		case !known:
			d.added = append(d.added, m.Path)
		case old != m.Checksum:
			d.changed = append(d.changed, m.Path)
		default:
			d.unchanged++
		}
	}
	for p := range checksums {
		if !onDisk[p] {
			d.stale = append(d.stale, p)
		}
	}
	sort.Strings(d.added)
	sort.Strings(d.changed)
	sort.Strings(d.stale)
	return d, nil
}

// Sync brings the catalog up to date with the journal: new and edited
// entries are parsed and upserted, rows for deleted files are removed.
// Files whose names are not entry dates are ignored. Per-file failures are
// logged and skipped.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	d, err := diff(db, store)
	if err != nil {
		return SyncStats{}, err
	}

	stats := SyncStats{Unchanged: d.unchanged}
	for _, p := range append(d.added, d.changed...) {
		data, err := store.Read(p)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if err := db.IndexFile(p, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
	}
	for _, p := range d.stale {
		if err := db.DeleteEntry(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
	}

	logger.Info("sync: done",
		slog.Int("indexed", stats.Indexed),
		slog.Int("removed", stats.Removed),
		slog.Int("unchanged", stats.Unchanged))
	return stats, nil
}
