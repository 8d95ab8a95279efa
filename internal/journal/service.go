// Package journal coordinates storage and the document model: reading
// entries, appending to them, and the corpus-wide tag operations.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/body"
	"github.com/starford/daybook/internal/clock"
	"github.com/starford/daybook/internal/daterange"
	"github.com/starford/daybook/internal/frontmatter"
	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/parser"
	"github.com/starford/daybook/internal/reminder"
	"github.com/starford/daybook/internal/storage"
	"github.com/starford/daybook/internal/tagindex"
)

// Indexer is notified after the service writes or removes a document.
type Indexer interface {
	IndexFile(path string, data []byte) error
	DeleteEntry(path string) error
}

// Service coordinates storage and document operations.
type Service struct {
	store       storage.Provider
	clock       clock.Clock
	logger      *slog.Logger
	indexer     Indexer
	ext         string
	compiledDir string
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the source of "today".
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIndexer registers an index to refresh after each write.
func WithIndexer(ix Indexer) Option {
	return func(s *Service) { s.indexer = ix }
}

// WithExtension sets the document extension.
func WithExtension(ext string) Option {
	return func(s *Service) { s.ext = ext }
}

// WithCompiledDir sets the directory for compiled documents.
func WithCompiledDir(dir string) Option {
	return func(s *Service) { s.compiledDir = dir }
}

// NewService creates a journal service over store.
func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:       store,
		clock:       clock.System{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		ext:         ".md",
		compiledDir: storage.DefaultCompiledDir,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the service's current day.
func (s *Service) Today() time.Time {
	return s.clock.Today()
}

// EntryPath returns where the entry for d is stored.
func (s *Service) EntryPath(d time.Time) string {
	return parser.EntryPath(d, s.ext)
}

// ReadEntry reads and parses the document at p.
func (s *Service) ReadEntry(_ context.Context, p string) (*models.Entry, error) {
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, p)
		}
		return nil, err
	}
	return parser.ParseEntry(p, data)
}

// EntryForDate reads the entry dated d.
func (s *Service) EntryForDate(ctx context.Context, d time.Time) (*models.Entry, error) {
	return s.ReadEntry(ctx, s.EntryPath(d))
}

// Entries reads every entry in the journal, oldest first. Documents whose
// name is not a date, and entries whose readme cannot be resolved, are
// skipped and logged.
func (s *Service) Entries(ctx context.Context) ([]*models.Entry, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	out := make([]*models.Entry, 0, len(metas))
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stem := parser.Stem(m.Path)
		if !parser.IsEntryName(stem) {
			if r, err := parser.RangeFromName(stem); err == nil {
				s.logger.Debug("journal: skipping compiled document",
					slog.String("path", m.Path), slog.String("range", r.String()))
			} else {
				s.logger.Debug("journal: skipping non-entry document", slog.String("path", m.Path))
			}
			continue
		}
		e, err := s.ReadEntry(ctx, m.Path)
		if errors.Is(err, apperr.ErrEmptyExpression) ||
			errors.Is(err, apperr.ErrMalformedExpression) ||
			errors.Is(err, apperr.ErrUnsupportedUnit) {
			s.logger.Warn("journal: skipping entry with unusable readme",
				slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b *models.Entry) int {
		return a.Date.Compare(b.Date)
	})
	return out, nil
}

// Index builds a fresh tag index over the whole journal.
func (s *Service) Index(ctx context.Context, f tagindex.Filter) (*tagindex.Index, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return tagindex.Build(entries, f), nil
}

// AppendRequest describes text to add to the entry of one day.
type AppendRequest struct {
	// Date of the entry; zero means today.
	Date time.Time
	// Header to append under; empty means the entry's date header.
	Header string
	Lines  []string
	Tags   []string
	// Readme is a reminder expression resolved against the entry's date.
	Readme string
}

// AppendEntry adds lines to an entry, creating the document when missing.
func (s *Service) AppendEntry(ctx context.Context, req AppendRequest) (*models.Entry, error) {
	if len(req.Lines) == 0 {
		return nil, apperr.ErrEmptyLines
	}
	date := req.Date
	if date.IsZero() {
		date = s.clock.Today()
	}
	date = daterange.Day(date)
	p := s.EntryPath(date)

	var rem *reminder.Resolved
	if strings.TrimSpace(req.Readme) != "" {
		r, err := reminder.Bake(req.Readme, date)
		if err != nil {
			return nil, err
		}
		rem = &r
	}

	exists, err := s.store.Exists(p)
	if err != nil {
		return nil, err
	}

	var (
		meta frontmatter.Metadata
		b    *body.Body
	)
	if exists {
		e, err := s.ReadEntry(ctx, p)
		if err != nil {
			return nil, err
		}
		meta, b = e.Meta, e.Body
		meta.AppendTags(req.Tags...)
		if rem != nil {
			meta.SetReminder(rem)
		}
	} else {
		meta = frontmatter.NewForEntry(req.Tags, rem)
		b = body.Parse("")
	}

	if req.Header == "" {
		err = b.AddOrAppendToDefaultHeader(date, req.Lines)
	} else {
		err = b.AddOrAppendToCustomHeader(req.Header, req.Lines)
	}
	if err != nil {
		return nil, err
	}

	data := parser.ComposeBody(meta, b)
	if err := s.write(p, data); err != nil {
		return nil, err
	}
	s.logger.Info("journal: entry written", slog.String("path", p), slog.Bool("created", !exists))
	return parser.ParseEntry(p, data)
}

// DeleteEntry removes the entry dated d.
func (s *Service) DeleteEntry(_ context.Context, d time.Time) (string, error) {
	p := s.EntryPath(daterange.Day(d))
	exists, err := s.store.Exists(p)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, p)
	}
	if err := s.store.Delete(p); err != nil {
		return "", err
	}
	s.unindex(p)
	s.logger.Info("journal: entry deleted", slog.String("path", p))
	return p, nil
}

// MoveEntry re-dates the entry of from to to. A relative reminder is first
// written back as its absolute date so it does not shift with the new
// anchor. The body, including its date header, is left as written.
func (s *Service) MoveEntry(ctx context.Context, from, to time.Time) (*models.Entry, error) {
	from, to = daterange.Day(from), daterange.Day(to)
	src, dst := s.EntryPath(from), s.EntryPath(to)

	e, err := s.ReadEntry(ctx, src)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.Exists(dst)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, dst)
	}

	if e.Meta.HasRelativeReadme() {
		if err := s.store.Write(src, parser.Compose(e.Meta, e.RawBody)); err != nil {
			return nil, err
		}
	}
	if err := s.store.Move(src, dst); err != nil {
		return nil, err
	}
	s.unindex(src)

	data, err := s.store.Read(dst)
	if err != nil {
		return nil, err
	}
	s.reindex(dst, data)
	s.logger.Info("journal: entry moved", slog.String("from", src), slog.String("to", dst))
	return parser.ParseEntry(dst, data)
}

// RenameTagDryRun returns the paths RenameTag would rewrite.
func (s *Service) RenameTagDryRun(ctx context.Context, oldTag string) ([]string, error) {
	ix, err := s.Index(ctx, tagindex.Filter{})
	if err != nil {
		return nil, err
	}
	b, ok := ix.Bucket(oldTag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperr.ErrTagNotFound, oldTag)
	}
	return b.Paths(), nil
}

// RenameTag replaces oldTag with newTag in every entry that carries it. Only
// the metadata block is rewritten; body bytes are kept as they are. Writes
// are not transactional: on failure the paths already rewritten are returned
// along with the error.
func (s *Service) RenameTag(ctx context.Context, oldTag, newTag string) ([]string, error) {
	newTag = strings.TrimSpace(newTag)
	if newTag == "" {
		return nil, fmt.Errorf("journal: new tag name is required")
	}
	ix, err := s.Index(ctx, tagindex.Filter{})
	if err != nil {
		return nil, err
	}
	b, ok := ix.Bucket(oldTag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperr.ErrTagNotFound, oldTag)
	}

	var done []string
	for _, e := range b.Entries {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		meta := e.Meta
		meta.RenameTag(oldTag, newTag)
		if err := s.write(e.Path, parser.Compose(meta, e.RawBody)); err != nil {
			return done, fmt.Errorf("journal: rename %q in %s after %d of %d entries: %w", oldTag, e.Path, len(done), len(b.Entries), err)
		}
		done = append(done, e.Path)
	}
	s.logger.Info("journal: tag renamed",
		slog.String("old", oldTag),
		slog.String("new", newTag),
		slog.Int("entries", len(done)))
	return done, nil
}

// CompiledPath returns where the compiled document for r is stored.
func (s *Service) CompiledPath(r daterange.Range) string {
	return path.Join(s.compiledDir, r.CanonicalName(s.ext))
}

// Compile merges entries into one document named after the covering date
// range: the union of their tags and their bodies in the given order.
// Repeated records count once; fewer than two distinct records is
// ErrEmptyInput.
func (s *Service) Compile(_ context.Context, entries []*models.Entry, overwrite bool) (string, error) {
	entries = distinct(entries)
	if len(entries) < 2 {
		return "", fmt.Errorf("%w: got %d distinct", apperr.ErrEmptyInput, len(entries))
	}

	from, to := entries[0].Date, entries[0].Date
	var tags []string
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Date.Before(from) {
			from = e.Date
		}
		if e.Date.After(to) {
			to = e.Date
		}
		tags = append(tags, e.Tags()...)
		if text := strings.TrimSpace(e.RawBody); text != "" {
			parts = append(parts, text)
		}
	}
	r, err := daterange.New(from, to)
	if err != nil {
		return "", err
	}

	target := s.CompiledPath(r)
	exists, err := s.store.Exists(target)
	if err != nil {
		return "", err
	}
	if exists && !overwrite {
		return "", fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, target)
	}

	meta := frontmatter.New(tags, nil)
	text := strings.Join(parts, "\n\n")
	if text != "" {
		text += "\n"
	}
	if !meta.IsEmpty() {
		text = "\n" + text
	}
	if err := s.store.Write(target, parser.Compose(meta, text)); err != nil {
		return "", err
	}
	s.logger.Info("journal: compiled",
		slog.String("path", target),
		slog.Int("entries", len(entries)))
	return target, nil
}

// distinct drops records that repeat an earlier one, keeping order.
func distinct(entries []*models.Entry) []*models.Entry {
	out := make([]*models.Entry, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		if !slices.ContainsFunc(out, e.Same) {
			out = append(out, e)
		}
	}
	return out
}

// CompileFiltered compiles the entries selected by f, oldest first.
func (s *Service) CompileFiltered(ctx context.Context, f tagindex.Filter, overwrite bool) (string, error) {
	ix, err := s.Index(ctx, f)
	if err != nil {
		return "", err
	}
	entries := ix.Matching()
	switch len(entries) {
	case 0:
		return "", apperr.ErrNoMatchingEntries
	case 1:
		return "", fmt.Errorf("%w: only %s matched", apperr.ErrEmptyInput, entries[0].Path)
	}
	return s.Compile(ctx, entries, overwrite)
}

// Readmes lists entries whose reminder is due today or earlier, or every
// entry with a reminder when all is set, soonest expiration first.
func (s *Service) Readmes(ctx context.Context, all bool) ([]models.ReadmeView, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	today := s.clock.Today()
	var out []models.ReadmeView
	for _, e := range entries {
		v, ok := e.ReadmeView()
		if !ok || (!all && !e.Expired(today)) {
			continue
		}
		out = append(out, v)
	}
	slices.SortStableFunc(out, func(a, b models.ReadmeView) int {
		return a.Expiration.Compare(b.Expiration)
	})
	return out, nil
}

func (s *Service) write(p string, data []byte) error {
	if err := s.store.Write(p, data); err != nil {
		return err
	}
	s.reindex(p, data)
	return nil
}

// Index failures are logged only; Sync repairs the catalog later.
func (s *Service) reindex(p string, data []byte) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexFile(p, data); err != nil {
		s.logger.Warn("journal: index update failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}

func (s *Service) unindex(p string) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.DeleteEntry(p); err != nil {
		s.logger.Warn("journal: index delete failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}
