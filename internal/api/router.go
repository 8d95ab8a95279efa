package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, is mounted at GET /events inside the auth group and
// receives tag.renamed and entries.compiled notifications.
func NewRouter(svc *journal.Service, db index.EntryIndex, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, db, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Entries.
	r.Get("/entries", h.ListEntries)
	r.Post("/entries", h.AppendEntry)
	r.Get("/entries/{date}", h.GetEntry)
	r.Delete("/entries/{date}", h.DeleteEntry)
	r.Post("/entries/{date}/move", h.MoveEntry)

	// Tags.
	r.Get("/tags", h.Tags)
	r.Get("/tags/counts", h.TagCounts)
	r.Post("/tags/rename", h.RenameTag)

	// Compilation and reminders.
	r.Post("/compile", h.Compile)
	r.Get("/readmes", h.Readmes)

	// Search.
	r.Get("/search", h.Search)

	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
