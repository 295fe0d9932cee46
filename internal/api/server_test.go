package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/readpace/internal/config"
	"github.com/dgallion1/readpace/internal/parser"
	"github.com/dgallion1/readpace/internal/pipeline"
	"github.com/dgallion1/readpace/internal/progress"
	"github.com/dgallion1/readpace/internal/stats"
	"github.com/dgallion1/readpace/internal/store"
)

const testKey = "test-key"

// seedHTML segments to 2 + 4 + 3 = 9 words.
const seedHTML = `<h1>Reading Log</h1><p>Alpha beta gamma delta</p><ul><li>one</li><li>two three</li></ul>`

type testEnv struct {
	srv   *Server
	store *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Defaults()
	cfg.APIKey = testKey
	cfg.WorkerCount = 1
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	orch := pipeline.NewOrchestrator(cfg, st, stats.NewWindow(time.Hour), log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	tracker := progress.NewTracker(st, cfg.DefaultChunkSize, log)
	return &testEnv{srv: NewServer(orch, st, tracker, log, cfg), store: st}
}

func (e *testEnv) seed(t *testing.T, id string) {
	t.Helper()
	seq := parser.ParseString(seedHTML, parser.Options{})
	doc := &store.Document{ID: id, Title: "Reading Log", Format: "html", ContentHash: "seed-" + id, Blocks: seq, TotalWords: 9}
	if err := e.store.PutDocument(context.Background(), doc); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec)["status"]; got != "ok" {
		t.Errorf("expected status ok, got %v", got)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestSegment(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/segment", strings.NewReader(seedHTML), "text/html")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	resp := decode[struct {
		BlockCount int `json:"block_count"`
		TotalWords int `json:"total_words"`
		Blocks     []struct {
			Type  string   `json:"type"`
			ID    string   `json:"id"`
			Items []string `json:"items"`
		} `json:"blocks"`
	}](t, rec)
	if resp.BlockCount != 3 || resp.TotalWords != 9 {
		t.Errorf("expected 3 blocks / 9 words, got %d / %d", resp.BlockCount, resp.TotalWords)
	}
	if resp.Blocks[2].Type != "list" || resp.Blocks[2].ID != "block-2" {
		t.Errorf("expected list block-2, got %+v", resp.Blocks[2])
	}

	table := `<table><tr><td>a</td><td>b</td></tr></table>`
	rec = env.do(t, http.MethodPost, "/api/segment?tables=true", strings.NewReader(table), "text/html")
	if got := decode[map[string]any](t, rec)["total_words"]; got != float64(3) {
		t.Errorf("expected 3 words for table row %q, got %v", "a | b", got)
	}

	rec = env.do(t, http.MethodPost, "/api/segment?format=md", strings.NewReader("# Hi\n\nthere you go\n"), "text/markdown")
	if got := decode[map[string]any](t, rec)["block_count"]; got != float64(2) {
		t.Errorf("expected 2 markdown blocks, got %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/segment?format=rtf", strings.NewReader("x"), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/stats/segment", nil, "")
	snap := decode[struct {
		Segment stats.Snapshot `json:"segment"`
	}](t, rec)
	if snap.Segment.Count != 3 {
		t.Errorf("expected 3 segment samples, got %d", snap.Segment.Count)
	}
}

func multipartBody(t *testing.T, field, filename, content string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadLifecycle(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, "file", "log.html", seedHTML, map[string]string{"doc_id": "log"})
	rec := env.do(t, http.MethodPost, "/api/documents", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	accepted := decode[map[string]any](t, rec)
	pollURL, _ := accepted["poll_url"].(string)
	if accepted["doc_id"] != "log" || pollURL == "" {
		t.Fatalf("unexpected accept body %v", accepted)
	}

	deadline := time.Now().Add(5 * time.Second)
	var snap pipeline.JobSnapshot
	for {
		snap = decode[pipeline.JobSnapshot](t, env.do(t, http.MethodGet, pollURL, nil, ""))
		if snap.Done() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish: %+v", snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Result.Errors)
	}

	rec = env.do(t, http.MethodGet, "/api/documents/log", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[struct {
		Document store.Document `json:"document"`
		Blocks   []any          `json:"blocks"`
	}](t, rec)
	if got.Document.TotalWords != 9 || len(got.Blocks) != 3 {
		t.Errorf("expected 9 words in 3 blocks, got %d in %d", got.Document.TotalWords, len(got.Blocks))
	}

	list := decode[struct {
		Documents []store.Document `json:"documents"`
	}](t, env.do(t, http.MethodGet, "/api/documents", nil, ""))
	if len(list.Documents) != 1 {
		t.Errorf("expected 1 document, got %d", len(list.Documents))
	}

	rec = env.do(t, http.MethodDelete, "/api/documents/log", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/documents/log", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestUpload_UnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, "file", "notes.rtf", "{\\rtf1}", nil)
	rec := env.do(t, http.MethodPost, "/api/documents", body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestBatchUpload(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range map[string]string{"a.txt": "first file", "b.md": "# second", "c.exe": "nope"} {
		fw, _ := mw.CreateFormFile("files", name)
		fw.Write([]byte(content))
	}
	mw.Close()

	rec := env.do(t, http.MethodPost, "/api/documents/batch", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	resp := decode[struct {
		Jobs []map[string]any `json:"jobs"`
	}](t, rec)
	if len(resp.Jobs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Jobs))
	}
	errs := 0
	for _, j := range resp.Jobs {
		if _, ok := j["error"]; ok {
			errs++
		}
	}
	if errs != 1 {
		t.Errorf("expected 1 rejected file, got %d", errs)
	}
}

func TestJobStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/jobs/missing/status", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestPosition(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "doc")

	tests := []struct {
		name       string
		query      string
		wantCount  int
		wantPacing [2]int
		wantRsvp   int
	}{
		{"word count", "word_count=3", 3, [2]int{1, 1}, 3},
		{"pacing", "block_index=2&word_index=1", 7, [2]int{2, 1}, 7},
		{"rsvp", "rsvp_index=2&chunk_size=3", 6, [2]int{2, 0}, 2},
		{"past end clamps pacing", "word_count=40", 40, [2]int{2, 2}, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/documents/doc/position?"+tt.query, nil, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
			}
			v := decode[struct {
				WordCount int `json:"word_count"`
				Pacing    struct {
					BlockIndex int `json:"block_index"`
					WordIndex  int `json:"word_index"`
				} `json:"pacing"`
				RsvpIndex  int `json:"rsvp_index"`
				TotalWords int `json:"total_words"`
			}](t, rec)
			if v.WordCount != tt.wantCount {
				t.Errorf("expected word count %d, got %d", tt.wantCount, v.WordCount)
			}
			if [2]int{v.Pacing.BlockIndex, v.Pacing.WordIndex} != tt.wantPacing {
				t.Errorf("expected pacing %v, got %+v", tt.wantPacing, v.Pacing)
			}
			if v.RsvpIndex != tt.wantRsvp {
				t.Errorf("expected rsvp index %d, got %d", tt.wantRsvp, v.RsvpIndex)
			}
			if v.TotalWords != 9 {
				t.Errorf("expected total 9, got %d", v.TotalWords)
			}
		})
	}

	for _, q := range []string{"", "word_count=1&rsvp_index=1", "word_count=x", "word_count=1&chunk_size=0", "block_index=1", "word_index=2"} {
		rec := env.do(t, http.MethodGet, "/api/documents/doc/position?"+q, nil, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: expected 400, got %d", q, rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/documents/missing/position?word_count=1", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown document, got %d", rec.Code)
	}
}

func TestFrame(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "doc")

	rec := env.do(t, http.MethodGet, "/api/documents/doc/frames/1?chunk_size=4", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	resp := decode[struct {
		Frame struct {
			Words []string `json:"words"`
			Last  bool     `json:"last"`
		} `json:"frame"`
		FrameCount int `json:"frame_count"`
	}](t, rec)
	want := []string{"gamma", "delta", "one", "two"}
	if strings.Join(resp.Frame.Words, " ") != strings.Join(want, " ") {
		t.Errorf("expected words %v, got %v", want, resp.Frame.Words)
	}
	if resp.FrameCount != 3 || resp.Frame.Last {
		t.Errorf("expected 3 frames with frame 1 not last, got %d / %v", resp.FrameCount, resp.Frame.Last)
	}

	rec = env.do(t, http.MethodGet, "/api/documents/doc/frames/abc", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad index, got %d", rec.Code)
	}
}

func TestProgressEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "doc")

	rec := env.do(t, http.MethodPut, "/api/documents/doc/progress", strings.NewReader(`{"pacing":{"block_index":1,"word_index":2}}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := decode[map[string]any](t, rec)["word_count"]; got != float64(4) {
		t.Errorf("expected word count 4, got %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/documents/doc/progress/advance", strings.NewReader(`{"words":100}`), "application/json")
	v := decode[map[string]any](t, rec)
	if v["word_count"] != float64(9) || v["boundary"] != "end" {
		t.Errorf("expected clamp to end at 9, got %v", v)
	}

	rec = env.do(t, http.MethodGet, "/api/documents/doc/progress?chunk_size=2", nil, "")
	v = decode[map[string]any](t, rec)
	if v["word_count"] != float64(9) || v["rsvp_index"] != float64(4) {
		t.Errorf("expected word 9 at frame 4, got %v", v)
	}

	rec = env.do(t, http.MethodGet, "/api/documents/doc/progress/frame?chunk_size=4", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	pf := decode[struct {
		Position struct {
			WordCount int `json:"word_count"`
		} `json:"position"`
		Frame struct {
			Index int      `json:"index"`
			Words []string `json:"words"`
			Last  bool     `json:"last"`
		} `json:"frame"`
	}](t, rec)
	if pf.Position.WordCount != 9 || pf.Frame.Index != 2 || !pf.Frame.Last {
		t.Errorf("expected word 9 in last frame 2, got %+v", pf)
	}
	if strings.Join(pf.Frame.Words, " ") != "three" {
		t.Errorf("expected final frame %q, got %v", "three", pf.Frame.Words)
	}

	rec = env.do(t, http.MethodGet, "/api/documents/doc/stats", nil, "")
	st := decode[store.Stats](t, rec)
	if st.WordsRead != 9 || st.Sessions != 1 {
		t.Errorf("expected 9 words in 1 session, got %+v", st)
	}

	rec = env.do(t, http.MethodPut, "/api/documents/doc/progress", strings.NewReader(`{"word_count":1,"rsvp_index":2}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for two representations, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPut, "/api/documents/missing/progress", strings.NewReader(`{"word_count":1}`), "application/json")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown document, got %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"dir/sub/file.md", "file.md"},
		{"", "unnamed"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
