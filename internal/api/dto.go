package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/tagindex"
)

// AppendEntryRequest is the request body for appending to an entry.
type AppendEntryRequest struct {
	// Date is yyyy.MM.dd or yyyy-MM-dd; empty means today.
	Date   string   `json:"date,omitempty" example:"2019.04.25"`
	Header string   `json:"header,omitempty" example:"## Work"`
	Lines  []string `json:"lines" validate:"required"`
	Tags   []string `json:"tags,omitempty" example:"work,travel"`
	Readme string   `json:"readme,omitempty" example:"2 weeks"`
}

// Validate checks the request shape.
func (r *AppendEntryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Lines, validation.Required),
		validation.Field(&r.Date, validation.When(r.Date != "", validation.By(validDate))),
	)
}

// MoveEntryRequest is the request body for re-dating an entry.
type MoveEntryRequest struct {
	To string `json:"to" example:"2019.04.26"`
}

// Validate checks the request shape.
func (r *MoveEntryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.To, validation.Required, validation.By(validDate)),
	)
}

// PathResponse names the document an operation touched.
type PathResponse struct {
	Path string `json:"path"`
}

// RenameTagRequest is the request body for renaming a tag.
type RenameTagRequest struct {
	Old    string `json:"old" example:"wrk" validate:"required"`
	New    string `json:"new" example:"work"`
	DryRun bool   `json:"dry_run"`
}

// Validate checks the request shape.
func (r *RenameTagRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Old, validation.Required),
		validation.Field(&r.New, validation.When(!r.DryRun, validation.Required)),
	)
}

// RenameTagResponse lists the entries affected by a rename.
type RenameTagResponse struct {
	Old    string   `json:"old"`
	New    string   `json:"new,omitempty"`
	DryRun bool     `json:"dry_run"`
	Paths  []string `json:"paths"`
}

// CompileRequest is the request body for compiling entries.
type CompileRequest struct {
	From      string   `json:"from,omitempty" example:"2019.01.01"`
	To        string   `json:"to,omitempty" example:"2019.12.31"`
	Tags      []string `json:"tags,omitempty"`
	Mode      string   `json:"mode,omitempty" example:"any"`
	Overwrite bool     `json:"overwrite"`
}

// Validate checks the request shape.
func (r *CompileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, validation.When(r.To != "", validation.Required), validation.When(r.From != "", validation.By(validDate))),
		validation.Field(&r.To, validation.When(r.From != "", validation.Required), validation.When(r.To != "", validation.By(validDate))),
		validation.Field(&r.Mode, validation.By(validMode)),
	)
}

// CompileResponse reports where the compiled document was written.
type CompileResponse struct {
	Path string `json:"path" example:"Compiled/2019.01.01-2019.12.31.md"`
}

// EntryListResponse wraps paginated catalog listings.
type EntryListResponse struct {
	Entries []index.EntryRow `json:"entries" validate:"required"`
	Total   int              `json:"total" example:"42" validate:"required"`
}

// TagBucket is one tag with the entries carrying it.
type TagBucket struct {
	Tag     string            `json:"tag" example:"work"`
	Entries []models.MetaView `json:"entries"`
}

// TagIndexResponse is the result of a tag query.
type TagIndexResponse struct {
	Mode     string            `json:"mode"`
	Tags     []TagBucket       `json:"tags"`
	Matching []models.MetaView `json:"matching"`
}

// TagCountsResponse wraps per-tag entry counts from the catalog.
type TagCountsResponse struct {
	Tags []index.TagCount `json:"tags"`
}

// ReadmesResponse wraps entries with reminders.
type ReadmesResponse struct {
	Readmes []models.ReadmeView `json:"readmes"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

func newTagIndexResponse(ix *tagindex.Index, mode tagindex.Mode, selected []string) TagIndexResponse {
	resp := TagIndexResponse{Mode: mode.String(), Tags: []TagBucket{}, Matching: []models.MetaView{}}
	buckets := ix.Buckets()
	if len(selected) > 0 {
		buckets = ix.Select(selected)
	}
	for _, b := range buckets {
		tb := TagBucket{Tag: b.Tag, Entries: make([]models.MetaView, 0, len(b.Entries))}
		for _, e := range b.Entries {
			tb.Entries = append(tb.Entries, e.MetaView())
		}
		resp.Tags = append(resp.Tags, tb)
	}
	for _, e := range ix.Matching() {
		resp.Matching = append(resp.Matching, e.MetaView())
	}
	return resp
}

// splitTags accepts repeated and comma-separated tag values.
func splitTags(values []string) []string {
	var out []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
