package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/daybook/internal/clock"
	"github.com/starford/daybook/internal/daterange"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/sse"
	"github.com/starford/daybook/internal/storage"
	"github.com/starford/daybook/internal/testutil"
)

var today = daterange.Date(2019, time.April, 25)

// testEnv sets up a temp journal, SQLite catalog, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*storage.FS, http.Handler) {
	t.Helper()
	store, router, _ := testEnvFull(t, authToken != "", authToken, nil)
	return store, router
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, broker *sse.Broker) (*storage.FS, http.Handler, *journal.Service) {
	t.Helper()
	_, store := testutil.TestJournal(t)
	db := testutil.TestDB(t)
	svc := journal.NewService(store, journal.WithClock(clock.Fixed(today)), journal.WithIndexer(db))
	return store, NewRouter(svc, db, authEnabled, authToken, broker), svc
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAppendAndGetEntry(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/entries", AppendEntryRequest{
		Lines:  []string{"shipped the release"},
		Tags:   []string{"work"},
		Readme: "1 week",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("append status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/entries/2019.04.25", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.DetailView
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Name != "2019.04.25" {
		t.Errorf("name = %q, want %q", got.Name, "2019.04.25")
	}
	if got.Readme != "5/2/2019" {
		t.Errorf("readme = %q, want %q", got.Readme, "5/2/2019")
	}
	if len(got.Tags) != 1 || got.Tags[0] != "work" {
		t.Errorf("tags = %v, want [work]", got.Tags)
	}
	if !strings.Contains(got.Body, "# Thursday, April 25, 2019") || !strings.Contains(got.Body, "shipped the release") {
		t.Errorf("body = %q", got.Body)
	}
}

func TestGetEntry_ISODate(t *testing.T) {
	store, router := testEnv(t, "")
	testutil.WriteEntry(t, store, today, "# Thursday, April 25, 2019\n\nhi\n")

	w := do(t, router, http.MethodGet, "/entries/2019-04-25", nil)
	if w.Code != http.StatusOK {
		t.Errorf("iso date = %d, want 200", w.Code)
	}
}

func TestGetEntry_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/entries/2019.04.01", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing entry = %d, want 404", w.Code)
	}
}

func TestGetEntry_BadDate(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/entries/yesterday", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}
}

func TestAppendEntry_Validation(t *testing.T) {
	_, router := testEnv(t, "")

	cases := []struct {
		name string
		body any
		want int
	}{
		{"no lines", AppendEntryRequest{}, http.StatusBadRequest},
		{"bad date", AppendEntryRequest{Date: "04/25/2019", Lines: []string{"x"}}, http.StatusBadRequest},
		{"bad readme", AppendEntryRequest{Lines: []string{"x"}, Readme: "2 fortnights"}, http.StatusUnprocessableEntity},
		{"malformed readme", AppendEntryRequest{Lines: []string{"x"}, Readme: "soon"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/entries", tc.body)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestAppendEntry_InvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid json = %d, want 400", w.Code)
	}
}

func TestDeleteEntry(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(t, router, http.MethodPost, "/entries", AppendEntryRequest{Date: "2019.04.01", Lines: []string{"a"}})

	w := do(t, router, http.MethodDelete, "/entries/2019.04.01", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp PathResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Path != "2019/04 April/2019.04.01.md" {
		t.Errorf("path = %q", resp.Path)
	}

	w = do(t, router, http.MethodGet, "/entries", nil)
	var list EntryListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 0 {
		t.Errorf("catalog total = %d, want 0 after delete", list.Total)
	}

	if w := do(t, router, http.MethodDelete, "/entries/2019.04.01", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestMoveEntry(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(t, router, http.MethodPost, "/entries", AppendEntryRequest{Date: "2019.04.01", Lines: []string{"a"}})
	_ = do(t, router, http.MethodPost, "/entries", AppendEntryRequest{Date: "2019.04.03", Lines: []string{"c"}})

	w := do(t, router, http.MethodPost, "/entries/2019.04.01/move", MoveEntryRequest{To: "2019-04-02"})
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}
	var got models.DetailView
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Name != "2019.04.02" {
		t.Errorf("name = %q, want %q", got.Name, "2019.04.02")
	}

	cases := []struct {
		name   string
		target string
		body   any
		want   int
	}{
		{"onto existing", "/entries/2019.04.02/move", MoveEntryRequest{To: "2019.04.03"}, http.StatusConflict},
		{"missing source", "/entries/2019.04.09/move", MoveEntryRequest{To: "2019.04.10"}, http.StatusNotFound},
		{"no target", "/entries/2019.04.02/move", MoveEntryRequest{}, http.StatusBadRequest},
		{"bad source", "/entries/yesterday/move", MoveEntryRequest{To: "2019.04.10"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if w := do(t, router, http.MethodPost, tc.target, tc.body); w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestListEntries_FromCatalog(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(t, router, http.MethodPost, "/entries", AppendEntryRequest{Date: "2019.04.01", Lines: []string{"a"}, Tags: []string{"work"}})
	_ = do(t, router, http.MethodPost, "/entries", AppendEntryRequest{Date: "2019.04.02", Lines: []string{"b"}, Tags: []string{"home"}})

	w := do(t, router, http.MethodGet, "/entries", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp EntryListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Entries) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Entries[0].Name != "2019.04.02" {
		t.Errorf("newest first: got %q", resp.Entries[0].Name)
	}

	w = do(t, router, http.MethodGet, "/entries?tag=work", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Entries[0].Name != "2019.04.01" {
		t.Errorf("tag filter = %+v", resp)
	}
}

func seedTagged(t *testing.T, store *storage.FS) {
	t.Helper()
	testutil.WriteEntry(t, store, daterange.Date(2019, time.April, 1), "---\ntags:\n  - work\n  - travel\n---\n\none\n")
	testutil.WriteEntry(t, store, daterange.Date(2019, time.April, 2), "---\ntags:\n  - work\n---\n\ntwo\n")
	testutil.WriteEntry(t, store, daterange.Date(2019, time.April, 3), "---\ntags:\n  - home\n---\n\nthree\n")
}

func TestTags_AnyAndAll(t *testing.T) {
	store, router := testEnv(t, "")
	seedTagged(t, store)

	w := do(t, router, http.MethodGet, "/tags", nil)
	var resp TagIndexResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Tags) != 3 {
		t.Fatalf("tags = %+v", resp.Tags)
	}
	if resp.Tags[0].Tag != "work" || len(resp.Tags[0].Entries) != 2 {
		t.Errorf("first bucket = %+v", resp.Tags[0])
	}

	w = do(t, router, http.MethodGet, "/tags?tag=work,travel&mode=all", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Mode != "all" {
		t.Errorf("mode = %q", resp.Mode)
	}
	if len(resp.Matching) != 1 || resp.Matching[0].Name != "2019.04.01" {
		t.Errorf("all matching = %+v", resp.Matching)
	}

	w = do(t, router, http.MethodGet, "/tags?tag=travel&tag=home", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Matching) != 2 {
		t.Errorf("any matching = %+v", resp.Matching)
	}
}

func TestTags_RangeFilter(t *testing.T) {
	store, router := testEnv(t, "")
	seedTagged(t, store)

	w := do(t, router, http.MethodGet, "/tags?from=2019.04.02&to=2019.04.03", nil)
	var resp TagIndexResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	for _, b := range resp.Tags {
		if b.Tag == "travel" {
			t.Errorf("travel is outside the range: %+v", b)
		}
	}

	cases := []string{
		"/tags?from=2019.04.02",
		"/tags?from=2019.04.03&to=2019.04.02",
		"/tags?mode=some",
	}
	for _, target := range cases {
		if w := do(t, router, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", target, w.Code)
		}
	}
}

func TestTagCounts(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(t, router, http.MethodPost, "/entries", AppendEntryRequest{Date: "2019.04.01", Lines: []string{"a"}, Tags: []string{"work"}})
	_ = do(t, router, http.MethodPost, "/entries", AppendEntryRequest{Date: "2019.04.02", Lines: []string{"b"}, Tags: []string{"work"}})

	w := do(t, router, http.MethodGet, "/tags/counts", nil)
	var resp TagCountsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Tags) != 1 || resp.Tags[0].Tag != "work" || resp.Tags[0].Count != 2 {
		t.Errorf("counts = %+v", resp.Tags)
	}
}

func TestRenameTag_DryRunThenApply(t *testing.T) {
	store, router := testEnv(t, "")
	seedTagged(t, store)

	w := do(t, router, http.MethodPost, "/tags/rename", RenameTagRequest{Old: "work", DryRun: true})
	if w.Code != http.StatusOK {
		t.Fatalf("dry run = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RenameTagResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Paths) != 2 {
		t.Errorf("dry run paths = %v", resp.Paths)
	}
	data, _ := store.Read("2019/04 April/2019.04.02.md")
	if !strings.Contains(string(data), "work") {
		t.Error("dry run must not rewrite entries")
	}

	w = do(t, router, http.MethodPost, "/tags/rename", RenameTagRequest{Old: "work", New: "job"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename = %d, body = %s", w.Code, w.Body.String())
	}
	data, _ = store.Read("2019/04 April/2019.04.02.md")
	if strings.Contains(string(data), "work") || !strings.Contains(string(data), "job") {
		t.Errorf("rename not applied: %q", data)
	}
}

func TestRenameTag_Errors(t *testing.T) {
	store, router := testEnv(t, "")
	seedTagged(t, store)

	if w := do(t, router, http.MethodPost, "/tags/rename", RenameTagRequest{Old: "nope", New: "x"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown tag = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/tags/rename", RenameTagRequest{Old: "work"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing new name = %d, want 400", w.Code)
	}
}

// failingWrites refuses writes to one path.
type failingWrites struct {
	*storage.FS
	path string
}

func (f failingWrites) Write(p string, content []byte) error {
	if p == f.path {
		return errors.New("disk full")
	}
	return f.FS.Write(p, content)
}

func TestRenameTag_PartialFailureReportsPaths(t *testing.T) {
	_, store := testutil.TestJournal(t)
	seedTagged(t, store)
	db := testutil.TestDB(t)
	svc := journal.NewService(failingWrites{FS: store, path: "2019/04 April/2019.04.02.md"},
		journal.WithClock(clock.Fixed(today)), journal.WithIndexer(db))
	router := NewRouter(svc, db, false, "", nil)

	w := do(t, router, http.MethodPost, "/tags/rename", RenameTagRequest{Old: "work", New: "job"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (%s)", w.Code, w.Body.String())
	}
	var resp partialRenameResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Paths) != 1 || resp.Paths[0] != "2019/04 April/2019.04.01.md" {
		t.Errorf("paths = %v, want the 2019.04.01 entry", resp.Paths)
	}
	if resp.Error == "" {
		t.Error("error message missing")
	}
}

func TestCompile_ModeIsCaseInsensitive(t *testing.T) {
	store, router := testEnv(t, "")
	seedTagged(t, store)

	w := do(t, router, http.MethodPost, "/compile", CompileRequest{Tags: []string{"work", "travel"}, Mode: " ANY "})
	if w.Code != http.StatusCreated {
		t.Fatalf("compile = %d, want 201 (%s)", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/compile", CompileRequest{Tags: []string{"work", "travel"}, Mode: "All"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("all of work and travel = %d, want 400 (one match)", w.Code)
	}
	if strings.Contains(w.Body.String(), "mode") {
		t.Errorf("All was rejected as a mode: %s", w.Body.String())
	}
}

func TestCompile(t *testing.T) {
	store, router := testEnv(t, "")
	seedTagged(t, store)

	w := do(t, router, http.MethodPost, "/compile", CompileRequest{Tags: []string{"work"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("compile = %d, body = %s", w.Code, w.Body.String())
	}
	var resp CompileResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Path != "Compiled/2019.04.01-2019.04.02.md" {
		t.Errorf("path = %q", resp.Path)
	}

	if w := do(t, router, http.MethodPost, "/compile", CompileRequest{Tags: []string{"work"}}); w.Code != http.StatusConflict {
		t.Errorf("second compile = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/compile", CompileRequest{Tags: []string{"work"}, Overwrite: true}); w.Code != http.StatusCreated {
		t.Errorf("overwrite compile = %d, want 201", w.Code)
	}
}

func TestCompile_Errors(t *testing.T) {
	store, router := testEnv(t, "")
	seedTagged(t, store)

	cases := []struct {
		name string
		req  CompileRequest
		want int
	}{
		{"single match", CompileRequest{Tags: []string{"home"}}, http.StatusBadRequest},
		{"no match", CompileRequest{Tags: []string{"nope"}}, http.StatusBadRequest},
		{"half range", CompileRequest{From: "2019.04.01"}, http.StatusBadRequest},
		{"inverted range", CompileRequest{From: "2019.04.03", To: "2019.04.01"}, http.StatusBadRequest},
		{"bad mode", CompileRequest{Mode: "some"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(t, router, http.MethodPost, "/compile", tc.req); w.Code != tc.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestReadmes(t *testing.T) {
	store, router := testEnv(t, "")
	testutil.WriteEntry(t, store, daterange.Date(2019, time.April, 1), "---\nreadme: 4/20/2019\n---\n\ndue\n")
	testutil.WriteEntry(t, store, daterange.Date(2019, time.April, 2), "---\nreadme: 6/1/2019\n---\n\nlater\n")

	w := do(t, router, http.MethodGet, "/readmes", nil)
	var resp ReadmesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Readmes) != 1 || resp.Readmes[0].Name != "2019.04.01" {
		t.Errorf("due readmes = %+v", resp.Readmes)
	}

	w = do(t, router, http.MethodGet, "/readmes?all=true", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Readmes) != 2 {
		t.Errorf("all readmes = %+v", resp.Readmes)
	}
}

func TestSearch(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(t, router, http.MethodPost, "/entries", AppendEntryRequest{Lines: []string{"watched the lighthouse"}})

	w := do(t, router, http.MethodGet, "/search?q=lighthouse", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_TokenMode(t *testing.T) {
	_, router := testEnv(t, "secret")

	if w := do(t, router, http.MethodGet, "/entries", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/entries", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/entries", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/entries", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	_, router, _ := testEnvFull(t, true, "secret", broker)

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	_, router, _ := testEnvFull(t, true, "tok", broker)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestCompile_PublishesEvent(t *testing.T) {
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	store, router, _ := testEnvFull(t, false, "", broker)
	seedTagged(t, store)

	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	if w := do(t, router, http.MethodPost, "/compile", CompileRequest{Tags: []string{"work"}}); w.Code != http.StatusCreated {
		t.Fatalf("compile = %d", w.Code)
	}
	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: "+sse.EventCompiled) {
			t.Errorf("unexpected message %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for compile event")
	}
}

func TestAuthMiddleware_ChallengeHeader(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/entries", nil)
	if got := w.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/entries", nil))

	out := buf.String()
	if !strings.Contains(out, `"status":418`) || !strings.Contains(out, `"path":"/entries"`) {
		t.Errorf("log line = %q", out)
	}
}
