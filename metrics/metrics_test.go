package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hazyhaar/toolscout/ollama"
	"github.com/hazyhaar/toolscout/ttlcache"
)

var (
	_ ttlcache.Observer   = (*Metrics)(nil)
	_ ollama.CallObserver = (*Metrics)(nil)
)

func TestNew_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.CacheHit("fetch")
	m.CacheMiss("fetch")
	m.CacheExpired("embedding")
	m.ObserveCall("generate", "ok", 200*time.Millisecond)
	m.ObserveHTTP("GET", "/tools", 200, 5*time.Millisecond)
	m.ObserveSearch(30)
	m.ObserveTool("toolscout_search", "ok", 40*time.Millisecond)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"toolscout_cache_events_total",
		"toolscout_upstream_duration_seconds",
		"toolscout_http_request_duration_seconds",
		"toolscout_search_candidates",
		"toolscout_mcp_tool_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestCacheObserver_CountsThroughCache(t *testing.T) {
	// WHAT: A ttlcache wired to Metrics reports hits and misses.
	m := New(prometheus.NewRegistry())
	c := ttlcache.New[int]("fetch", time.Hour, ttlcache.WithObserver(m))
	c.Get("a")
	c.Put("a", 1)
	c.Get("a")
	c.Get("a")

	if got := testutil.ToFloat64(m.cacheEvents.WithLabelValues("fetch", "hit")); got != 2 {
		t.Errorf("hits: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheEvents.WithLabelValues("fetch", "miss")); got != 1 {
		t.Errorf("misses: got %v, want 1", got)
	}
}
