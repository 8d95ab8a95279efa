package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/daybook/internal/parser"
	"github.com/starford/daybook/internal/storage"
)

// EventCallback is called after a watcher-driven catalog change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

type watcher struct {
	fsw    *fsnotify.Watcher
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
}

// Watch starts an fsnotify watcher on the journal root and processes entry
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful catalog mutation. Files that are not daily entries
// (compiled documents, temp files) are ignored.
//
// New directories created at runtime (a new year or month) are added to the
// watch list. Rename events trigger a reconciliation pass that removes stale
// catalog rows whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{fsw: fsw, db: db, store: store, root: root, logger: logger, cb: cb}
	if err := w.addDirs(root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	reconcile := time.NewTimer(reconcileDelay)
	reconcile.Stop()
	defer reconcile.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-reconcile.C:
			w.reconcile()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				reconcile.Reset(reconcileDelay)
			}

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handle applies one fsnotify event and reports whether a reconciliation
// pass is needed.
func (w *watcher) handle(ev fsnotify.Event) bool {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.watchNewDir(ev.Name)
			return false
		}
	}
	if !w.isEntryFile(ev.Name) {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		w.index(rel, kind)
	case ev.Op&fsnotify.Remove != 0:
		w.remove(rel)
	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports only the old name; the new one arrives as a
		// Create if it stays inside a watched directory.
		w.remove(rel)
		return true
	}
	return false
}

func (w *watcher) index(rel, kind string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := w.db.IndexFile(rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.notify(kind, rel)
}

func (w *watcher) remove(rel string) {
	if err := w.db.DeleteEntry(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.notify("deleted", rel)
}

func (w *watcher) notify(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// reconcile removes catalog rows whose files are gone and indexes entries
// that are missing or changed.
func (w *watcher) reconcile() {
	d, err := diff(w.db, w.store)
	if err != nil {
		w.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
		return
	}
	for _, p := range d.stale {
		w.remove(p)
	}
	for _, p := range d.added {
		w.index(p, "created")
	}
	for _, p := range d.changed {
		w.index(p, "updated")
	}
}

// watchNewDir watches a directory created at runtime and indexes any entries
// already inside it.
func (w *watcher) watchNewDir(dir string) {
	if err := w.addDirs(dir); err != nil {
		w.logger.Warn("watcher: add new dir failed", slog.String("path", dir), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: watching new dir", slog.String("path", dir))

	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !w.isEntryFile(p) {
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, p); relErr == nil {
			w.index(filepath.ToSlash(rel), "created")
		}
		return nil
	})
}

// addDirs adds dir and all its non-hidden subdirectories to the watcher.
func (w *watcher) addDirs(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// isEntryFile reports whether path names a daily entry document the store
// would list.
func (w *watcher) isEntryFile(path string) bool {
	base := filepath.Base(path)
	if !w.store.IsDocument(base) {
		return false
	}
	return parser.IsEntryName(parser.Stem(base))
}
