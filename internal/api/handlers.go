package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/daybook/internal/daterange"
	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/sse"
	"github.com/starford/daybook/internal/tagindex"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc    *journal.Service
	db     index.EntryIndex
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(svc *journal.Service, db index.EntryIndex, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, db: db, broker: broker}
}

// parseDate accepts entry names (2019.04.25) and ISO dates (2019-04-25).
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{daterange.DateLayout, time.DateOnly} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want yyyy.MM.dd", s)
}

func validDate(value any) error {
	s, _ := value.(string)
	_, err := parseDate(s)
	return err
}

// validMode accepts what tagindex.ParseMode accepts, in any case.
func validMode(value any) error {
	s, _ := value.(string)
	_, err := tagindex.ParseMode(s)
	return err
}

func (h *Handler) publish(typ string, data any) {
	if h.broker != nil {
		h.broker.Publish(sse.Event{Type: typ, Data: data})
	}
}

// ListEntries handles GET /api/entries.
//
//	@Summary		List cataloged entries, newest first
//	@Tags			entries
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Success		200		{object}	EntryListResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.db.ListEntries(limit, offset, q.Get("tag"))
	if err != nil {
		writeError(w, "list entries", err)
		return
	}
	if rows == nil {
		rows = []index.EntryRow{}
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: rows, Total: total})
}

// GetEntry handles GET /api/entries/{date}.
//
//	@Summary		Get the entry for one day
//	@Tags			entries
//	@Produce		json
//	@Param			date	path		string	true	"Entry date (yyyy.MM.dd)"
//	@Success		200		{object}	models.DetailView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	d, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	e, err := h.svc.EntryForDate(r.Context(), d)
	if err != nil {
		writeError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e.DetailView())
}

// DeleteEntry handles DELETE /api/entries/{date}.
//
//	@Summary		Delete the entry for one day
//	@Tags			entries
//	@Produce		json
//	@Param			date	path		string	true	"Entry date (yyyy.MM.dd)"
//	@Success		200		{object}	PathResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	d, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	p, err := h.svc.DeleteEntry(r.Context(), d)
	if err != nil {
		writeError(w, "delete entry", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: p})
}

// MoveEntry handles POST /api/entries/{date}/move.
//
//	@Summary		Move an entry to another day
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string				true	"Current entry date"
//	@Param			body	body		MoveEntryRequest	true	"Target date"
//	@Success		200		{object}	models.DetailView
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date}/move [post]
func (h *Handler) MoveEntry(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req MoveEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	to, _ := parseDate(req.To)

	e, err := h.svc.MoveEntry(r.Context(), from, to)
	if err != nil {
		writeError(w, "move entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e.DetailView())
}

// AppendEntry handles POST /api/entries.
//
//	@Summary		Append lines to an entry, creating it when missing
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AppendEntryRequest	true	"Lines to add"
//	@Success		200		{object}	models.DetailView
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [post]
func (h *Handler) AppendEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req AppendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	var date time.Time
	if req.Date != "" {
		date, _ = parseDate(req.Date)
	}
	e, err := h.svc.AppendEntry(r.Context(), journal.AppendRequest{
		Date:   date,
		Header: req.Header,
		Lines:  req.Lines,
		Tags:   req.Tags,
		Readme: req.Readme,
	})
	if err != nil {
		writeError(w, "append entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e.DetailView())
}

// filterFromQuery reads from, to, tag and mode query parameters.
func filterFromQuery(r *http.Request) (tagindex.Filter, error) {
	q := r.URL.Query()
	var f tagindex.Filter

	mode, err := tagindex.ParseMode(q.Get("mode"))
	if err != nil {
		return f, err
	}
	f.Mode = mode
	f.Tags = splitTags(q["tag"])

	from, to := q.Get("from"), q.Get("to")
	if from == "" && to == "" {
		return f, nil
	}
	if from == "" || to == "" {
		return f, errors.New("from and to must be given together")
	}
	fd, err := parseDate(from)
	if err != nil {
		return f, err
	}
	td, err := parseDate(to)
	if err != nil {
		return f, err
	}
	rng, err := daterange.New(fd, td)
	if err != nil {
		return f, err
	}
	f.Range = &rng
	return f, nil
}

// Tags handles GET /api/tags.
//
//	@Summary		Group entries by tag
//	@Tags			tags
//	@Produce		json
//	@Param			from	query		string	false	"Range start (yyyy.MM.dd)"
//	@Param			to		query		string	false	"Range end (yyyy.MM.dd)"
//	@Param			tag		query		string	false	"Tags to select (repeatable or comma separated)"
//	@Param			mode	query		string	false	"Tag match mode"	Enums(any, all)
//	@Success		200		{object}	TagIndexResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	ix, err := h.svc.Index(r.Context(), f)
	if err != nil {
		writeError(w, "tag index", err)
		return
	}
	writeJSON(w, http.StatusOK, newTagIndexResponse(ix, f.Mode, f.Tags))
}

// TagCounts handles GET /api/tags/counts.
//
//	@Summary		Entry counts per tag from the catalog
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagCountsResponse
//	@Security		BearerAuth
//	@Router			/tags/counts [get]
func (h *Handler) TagCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.db.TagCounts()
	if err != nil {
		writeError(w, "tag counts", err)
		return
	}
	if counts == nil {
		counts = []index.TagCount{}
	}
	writeJSON(w, http.StatusOK, TagCountsResponse{Tags: counts})
}

// RenameTag handles POST /api/tags/rename.
//
//	@Summary		Rename a tag across the journal
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameTagRequest	true	"Rename request"
//	@Success		200		{object}	RenameTagResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		500		{object}	partialRenameResponse
//	@Security		BearerAuth
//	@Router			/tags/rename [post]
func (h *Handler) RenameTag(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req RenameTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	var (
		paths []string
		err   error
	)
	if req.DryRun {
		paths, err = h.svc.RenameTagDryRun(r.Context(), req.Old)
	} else {
		paths, err = h.svc.RenameTag(r.Context(), req.Old, req.New)
	}
	if err != nil {
		if len(paths) > 0 {
			slog.Warn("rename tag partially applied", slog.String("old", req.Old), slog.Int("written", len(paths)))
			status, body := errorFor("rename tag", err)
			writeJSON(w, status, partialRenameResponse{Error: body.Error, Paths: paths})
			return
		}
		writeError(w, "rename tag", err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	resp := RenameTagResponse{Old: req.Old, New: req.New, DryRun: req.DryRun, Paths: paths}
	if !req.DryRun {
		h.publish(sse.EventTagRenamed, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Compile handles POST /api/compile.
//
//	@Summary		Merge matching entries into one compiled document
//	@Tags			compile
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CompileRequest	true	"Selection"
//	@Success		201		{object}	CompileResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/compile [post]
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	mode, _ := tagindex.ParseMode(req.Mode)
	f := tagindex.Filter{Tags: req.Tags, Mode: mode}
	if req.From != "" {
		from, _ := parseDate(req.From)
		to, _ := parseDate(req.To)
		rng, err := daterange.New(from, to)
		if err != nil {
			writeError(w, "compile", err)
			return
		}
		f.Range = &rng
	}

	p, err := h.svc.CompileFiltered(r.Context(), f, req.Overwrite)
	if err != nil {
		writeError(w, "compile", err)
		return
	}
	resp := CompileResponse{Path: p}
	h.publish(sse.EventCompiled, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// Readmes handles GET /api/readmes.
//
//	@Summary		Entries whose reminders are due
//	@Tags			readmes
//	@Produce		json
//	@Param			all	query		bool	false	"Include reminders not yet due"
//	@Success		200	{object}	ReadmesResponse
//	@Security		BearerAuth
//	@Router			/readmes [get]
func (h *Handler) Readmes(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	views, err := h.svc.Readmes(r.Context(), all)
	if err != nil {
		writeError(w, "readmes", err)
		return
	}
	if views == nil {
		views = []models.ReadmeView{}
	}
	writeJSON(w, http.StatusOK, ReadmesResponse{Readmes: views})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across entries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.db.Search(q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
