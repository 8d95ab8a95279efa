// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes journal tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/daybook/internal/daterange"
	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/tagindex"
)

const entryFormatURI = "daybook://entry-format"

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp *server.MCPServer
	svc *journal.Service
	db  index.EntryIndex
}

// New creates a new MCP server with all journal tools registered.
func New(svc *journal.Service, db index.EntryIndex) *Server {
	s := &Server{svc: svc, db: db}

	s.mcp = server.NewMCPServer(
		"Daybook",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read the journal entry for one day."),
		mcp.WithString("date", mcp.Description("Entry date as yyyy.MM.dd (defaults to today)")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("append_entry",
		mcp.WithDescription("Append paragraphs to a day's entry, creating it when missing. "+
			"Read the daybook://entry-format resource for the document layout."),
		mcp.WithArray("lines", mcp.Required(), mcp.Description("Paragraphs to add"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("date", mcp.Description("Entry date as yyyy.MM.dd (defaults to today)")),
		mcp.WithString("header", mcp.Description("Header to append under (defaults to the date header)")),
		mcp.WithArray("tags", mcp.Description("Tags to add"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("readme", mcp.Description("Reminder: M/d/yyyy or a relative duration such as '2 weeks'")),
	), s.appendEntry)

	s.mcp.AddTool(mcp.NewTool("delete_entry",
		mcp.WithDescription("Delete the journal entry for one day."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Entry date as yyyy.MM.dd")),
	), s.deleteEntry)

	s.mcp.AddTool(mcp.NewTool("move_entry",
		mcp.WithDescription("Move an entry to another day. Its reminder keeps its absolute date."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Current entry date as yyyy.MM.dd")),
		mcp.WithString("to", mcp.Required(), mcp.Description("New entry date as yyyy.MM.dd")),
	), s.moveEntry)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("Group entries by tag, optionally within a date range."),
		mcp.WithString("from", mcp.Description("Range start as yyyy.MM.dd")),
		mcp.WithString("to", mcp.Description("Range end as yyyy.MM.dd")),
		mcp.WithArray("tags", mcp.Description("Tags to select"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("mode", mcp.Description("any or all"), mcp.Enum("any", "all")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("rename_tag",
		mcp.WithDescription("Rename a tag in every entry that carries it."),
		mcp.WithString("old", mcp.Required(), mcp.Description("Existing tag")),
		mcp.WithString("new", mcp.Description("Replacement tag (required unless dry_run)")),
		mcp.WithBoolean("dry_run", mcp.Description("Only report the entries that would change")),
	), s.renameTag)

	s.mcp.AddTool(mcp.NewTool("compile_entries",
		mcp.WithDescription("Merge the selected entries into one document under Compiled/."),
		mcp.WithString("from", mcp.Description("Range start as yyyy.MM.dd")),
		mcp.WithString("to", mcp.Description("Range end as yyyy.MM.dd")),
		mcp.WithArray("tags", mcp.Description("Tags to select"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("mode", mcp.Description("any or all"), mcp.Enum("any", "all")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace an existing compiled document")),
	), s.compileEntries)

	s.mcp.AddTool(mcp.NewTool("list_readmes",
		mcp.WithDescription("List entries whose reminders are due."),
		mcp.WithBoolean("all", mcp.Description("Include reminders that are not yet due")),
	), s.listReadmes)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Full-text search through entry bodies, tags and reminders."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("get_entry_format",
		mcp.WithDescription("Returns the daily entry format contract."),
	), s.getEntryFormat)

	s.mcp.AddResource(
		mcp.NewResource(entryFormatURI, "Entry Format Contract",
			mcp.WithResourceDescription("Layout and rules of daily journal entries."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func optionalDate(req mcp.CallToolRequest, key string) (time.Time, error) {
	v := req.GetString(key, "")
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(daterange.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: want yyyy.MM.dd, got %q", key, v)
	}
	return d, nil
}

func filterFromRequest(req mcp.CallToolRequest) (tagindex.Filter, error) {
	var f tagindex.Filter
	mode, err := tagindex.ParseMode(req.GetString("mode", ""))
	if err != nil {
		return f, err
	}
	f.Mode = mode
	f.Tags = req.GetStringSlice("tags", nil)

	from, err := optionalDate(req, "from")
	if err != nil {
		return f, err
	}
	to, err := optionalDate(req, "to")
	if err != nil {
		return f, err
	}
	if from.IsZero() && to.IsZero() {
		return f, nil
	}
	if from.IsZero() || to.IsZero() {
		return f, fmt.Errorf("from and to must be given together")
	}
	r, err := daterange.New(from, to)
	if err != nil {
		return f, err
	}
	f.Range = &r
	return f, nil
}

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := optionalDate(req, "date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if d.IsZero() {
		d = s.svc.Today()
	}
	e, err := s.svc.EntryForDate(ctx, d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(e.DetailView())
}

func (s *Server) appendEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lines := req.GetStringSlice("lines", nil)
	if len(lines) == 0 {
		return mcp.NewToolResultError("lines is required"), nil
	}
	d, err := optionalDate(req, "date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.AppendEntry(ctx, journal.AppendRequest{
		Date:   d,
		Header: req.GetString("header", ""),
		Lines:  lines,
		Tags:   req.GetStringSlice("tags", nil),
		Readme: req.GetString("readme", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(e.DetailView())
}

func requiredDate(req mcp.CallToolRequest, key string) (time.Time, error) {
	d, err := optionalDate(req, key)
	if err == nil && d.IsZero() {
		err = fmt.Errorf("%s is required", key)
	}
	return d, err
}

func (s *Server) deleteEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := requiredDate(req, "date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.DeleteEntry(ctx, d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", p)), nil
}

func (s *Server) moveEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := requiredDate(req, "from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := requiredDate(req, "to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.MoveEntry(ctx, from, to)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(e.DetailView())
}

type tagBucket struct {
	Tag     string   `json:"tag"`
	Entries []string `json:"entries"`
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := filterFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ix, err := s.svc.Index(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := []tagBucket{}
	for _, b := range ix.Select(f.Tags) {
		names := make([]string, len(b.Entries))
		for i, e := range b.Entries {
			names[i] = e.Name
		}
		out = append(out, tagBucket{Tag: b.Tag, Entries: names})
	}
	return jsonResult(out)
}

func (s *Server) renameTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldTag, err := req.RequireString("old")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newTag := req.GetString("new", "")
	dryRun := req.GetBool("dry_run", false)

	var paths []string
	if dryRun {
		paths, err = s.svc.RenameTagDryRun(ctx, oldTag)
	} else {
		if newTag == "" {
			return mcp.NewToolResultError("new is required unless dry_run is set"), nil
		}
		paths, err = s.svc.RenameTag(ctx, oldTag, newTag)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if paths == nil {
		paths = []string{}
	}
	return jsonResult(map[string]any{"dry_run": dryRun, "paths": paths})
}

func (s *Server) compileEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := filterFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.CompileFiltered(ctx, f, req.GetBool("overwrite", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("compiled: %s", p)), nil
}

func (s *Server) listReadmes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views, err := s.svc.Readmes(ctx, req.GetBool("all", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if views == nil {
		views = []models.ReadmeView{}
	}
	return jsonResult(views)
}

func (s *Server) searchEntries(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return jsonResult(results)
}

func (s *Server) getEntryFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntryFormatContract), nil
}

func (s *Server) readEntryFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      entryFormatURI,
			MIMEType: "text/markdown",
			Text:     EntryFormatContract,
		},
	}, nil
}
