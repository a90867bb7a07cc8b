package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hazyhaar/toolscout/catalog"
	"github.com/hazyhaar/toolscout/metrics"
	"github.com/hazyhaar/toolscout/scout"

	_ "modernc.org/sqlite"
)

type fakeGen struct{}

func (fakeGen) Generate(context.Context, string) (string, error) {
	return "SUMMARY: Ships code.\nCATEGORIES: devops, cloud", nil
}

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.Contains(strings.ToLower(text), "design") {
		return []float32{1, 0.1}, nil
	}
	return []float32{0, 1}, nil
}

type fixture struct {
	srv *httptest.Server
	svc *scout.Service
	reg *prometheus.Registry
}

func newFixture(t *testing.T, emb fakeEmbedder) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := scout.New(catalog.OpenMemory(t), scout.Config{Metrics: m, Logger: logger},
		scout.WithGenerator(fakeGen{}), scout.WithEmbedder(emb))
	srv := httptest.NewServer(NewRouter(svc, Config{Logger: logger, Metrics: m, Gatherer: reg}))
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, svc: svc, reg: reg}
}

// do sends a JSON request and decodes the JSON response into a map.
func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, out
}

const page = `<html><head><title>Acme Deploy</title><meta name="description" content="Ship code"></head>
<body><main><p>Acme Deploy builds, tests and ships every commit to your cloud with zero configuration.</p></main></body></html>`

func TestHealthAndAPITest(t *testing.T) {
	f := newFixture(t, fakeEmbedder{})
	if code, body := f.do(t, "GET", "/health", ""); code != 200 || body["status"] != "ok" {
		t.Errorf("health: %d %v", code, body)
	}
	if code, body := f.do(t, "GET", "/api/test", ""); code != 200 || body["success"] != true {
		t.Errorf("api/test: %d %v", code, body)
	}
	if code, body := f.do(t, "GET", "/api/db-test", ""); code != 200 || body["tools"] != float64(0) {
		t.Errorf("db-test: %d %v", code, body)
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	// WHAT: Unknown /api paths answer 404 with a JSON body.
	f := newFixture(t, fakeEmbedder{})
	code, body := f.do(t, "GET", "/api/nope", "")
	if code != http.StatusNotFound || body["error"] != "API endpoint not found" {
		t.Errorf("got %d %v", code, body)
	}
}

func TestToolsCRUD(t *testing.T) {
	// WHAT: Tools are created, listed, updated and deleted over HTTP.
	// WHY: The UI drives the catalog through these routes only.
	f := newFixture(t, fakeEmbedder{})

	code, body := f.do(t, "POST", "/tools", `{"name":"Figma","url":"https://figma.com","summary":"Design","categories":["design"]}`)
	if code != 200 || body["success"] != true {
		t.Fatalf("create: %d %v", code, body)
	}
	id := body["tool"].(map[string]any)["id"].(string)

	code, body = f.do(t, "POST", "/tools", `{"name":"Figma2","url":"https://figma.com","summary":"Design"}`)
	if code != 400 || body["error"] != `This tool already exists as "Figma"` {
		t.Errorf("duplicate: %d %v", code, body)
	}

	code, body = f.do(t, "POST", "/tools", `{"name":"NoURL","summary":"x"}`)
	if code != 400 || body["error"] != "name, url, and summary are required" {
		t.Errorf("validation: %d %v", code, body)
	}

	code, body = f.do(t, "GET", "/tools", "")
	if code != 200 || len(body["tools"].([]any)) != 1 {
		t.Errorf("list: %d %v", code, body)
	}

	code, body = f.do(t, "PUT", "/tools/"+id, `{"name":"Figma","url":"https://figma.com","summary":"Interface design","categories":"oops"}`)
	if code != 200 {
		t.Fatalf("update: %d %v", code, body)
	}
	cats := body["tool"].(map[string]any)["categories"].([]any)
	if len(cats) != 1 || cats[0] != "uncategorized" {
		t.Errorf("non-array categories: got %v", cats)
	}

	if code, body = f.do(t, "DELETE", "/tools/"+id, ""); code != 200 || body["success"] != true {
		t.Errorf("delete: %d %v", code, body)
	}
	if code, _ = f.do(t, "DELETE", "/tools/"+id, ""); code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want 404", code)
	}
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t, fakeEmbedder{})
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(page))
	}))
	defer site.Close()

	code, body := f.do(t, "POST", "/analyze", `{"url":"`+site.URL+`"}`)
	if code != 200 {
		t.Fatalf("analyze: %d %v", code, body)
	}
	a := body["analysis"].(map[string]any)
	if a["name"] != "Acme Deploy" || a["summary"] != "Ships code." {
		t.Errorf("analysis: got %v", a)
	}

	cases := map[string]string{
		`{}`:                   "URL is required",
		`{"url":"ftp://x.io"}`: "Invalid URL format. Please enter a valid URL (e.g., example.com or https://example.com)",
		`{"url":`:              "",
	}
	for req, want := range cases {
		code, body := f.do(t, "POST", "/analyze", req)
		if code != 400 {
			t.Errorf("%s: got %d, want 400", req, code)
		}
		if want != "" && body["error"] != want {
			t.Errorf("%s: error %v, want %q", req, body["error"], want)
		}
	}
}

func TestFetch(t *testing.T) {
	f := newFixture(t, fakeEmbedder{})
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(page))
	}))
	defer site.Close()

	code, body := f.do(t, "POST", "/fetch", `{"url":"`+site.URL+`"}`)
	if code != 200 {
		t.Fatalf("fetch: %d %v", code, body)
	}
	doc := body["document"].(map[string]any)
	if doc["title"] != "Acme Deploy" || !strings.Contains(doc["markdown"].(string), "Acme Deploy builds") {
		t.Errorf("document: got %v", doc)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t, fakeEmbedder{})
	f.do(t, "POST", "/tools", `{"name":"Figma","url":"https://figma.com","summary":"Design tool"}`)
	f.do(t, "POST", "/tools", `{"name":"Vercel","url":"https://vercel.com","summary":"Hosting"}`)

	code, body := f.do(t, "POST", "/search", `{"query":"design"}`)
	if code != 200 {
		t.Fatalf("search: %d %v", code, body)
	}
	results := body["results"].([]any)
	if len(results) != 2 || results[0].(map[string]any)["name"] != "Figma" {
		t.Errorf("results: got %v", results)
	}

	if code, body = f.do(t, "POST", "/search", `{"query":""}`); code != 400 || body["error"] != "Search query is required" {
		t.Errorf("empty query: %d %v", code, body)
	}
}

func TestSearch_QueryEmbeddingFailure(t *testing.T) {
	// WHAT: A failed query embedding is a 500, not an empty result.
	f := newFixture(t, fakeEmbedder{err: errors.New("model down")})
	f.do(t, "POST", "/tools", `{"name":"Figma","url":"https://figma.com","summary":"Design tool"}`)
	code, body := f.do(t, "POST", "/search", `{"query":"design"}`)
	if code != 500 || body["error"] != "Failed to search tools" {
		t.Errorf("got %d %v", code, body)
	}
}

func TestClearCache(t *testing.T) {
	f := newFixture(t, fakeEmbedder{})
	f.do(t, "POST", "/tools", `{"name":"Figma","url":"https://figma.com","summary":"Design tool"}`)
	f.do(t, "POST", "/search", `{"query":"design"}`)
	if f.svc.CacheStats().Embedding == 0 {
		t.Fatal("embedding cache not populated")
	}
	code, body := f.do(t, "POST", "/api/clear-cache", "")
	if code != 200 || body["message"] != "All caches cleared successfully" {
		t.Errorf("clear: %d %v", code, body)
	}
	if f.svc.CacheStats() != (scout.CacheStats{}) {
		t.Errorf("caches not empty: %+v", f.svc.CacheStats())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	// WHAT: /metrics exposes HTTP timings labelled by route pattern.
	f := newFixture(t, fakeEmbedder{})
	f.do(t, "GET", "/tools", "")

	resp, err := http.Get(f.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), `toolscout_http_request_duration_seconds_count{code="200",method="GET",route="/tools`) {
		t.Errorf("route metric missing:\n%s", data)
	}
}

func TestBodyTooLarge(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := scout.New(catalog.OpenMemory(t), scout.Config{Logger: logger},
		scout.WithGenerator(fakeGen{}), scout.WithEmbedder(fakeEmbedder{}))
	srv := httptest.NewServer(NewRouter(svc, Config{Logger: logger, MaxBodyBytes: 32}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/search", "application/json",
		strings.NewReader(`{"query":"`+strings.Repeat("x", 100)+`"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("got %d, want 400", resp.StatusCode)
	}
}
