package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/toolscout/catalog"
	"github.com/hazyhaar/toolscout/ollama"
)

// mapEmbedder returns fixed vectors by exact text and fails for texts in fail.
type mapEmbedder struct {
	vecs     map[string][]float32
	fail     map[string]bool
	delay    time.Duration
	calls    atomic.Int32
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

func (m *mapEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	n := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		cur := m.maxSeen.Load()
		if n <= cur || m.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.fail[text] {
		return nil, ollama.ErrEmbedding
	}
	if v, ok := m.vecs[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func tool(name string) *catalog.Tool {
	return &catalog.Tool{ID: name, Name: name, Summary: "s", Categories: []string{"c"}}
}

func TestCosine(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{1, 0}, []float32{0.7, 0.7}, 1 / math.Sqrt2},
		{nil, []float32{1}, 0},
		{[]float32{}, []float32{}, 0},
		{[]float32{1, 2}, []float32{1, 2, 3}, 0},
		{[]float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, c := range cases {
		if got := Cosine(c.a, c.b); math.Abs(got-c.want) > 1e-6 {
			t.Errorf("Cosine(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestCosine_Bounded(t *testing.T) {
	a := []float32{0.1, 0.2, 0.3}
	for k := float32(1); k < 1000; k *= 3 {
		b := []float32{0.1 * k, 0.2 * k, 0.3 * k}
		if s := Cosine(a, b); s > 1 || s < -1 {
			t.Fatalf("score %v out of range", s)
		}
	}
}

func TestSearch_Ranking(t *testing.T) {
	// WHAT: Tools are ordered by similarity to the query.
	// WHY: Core ranking contract.
	a, b, c := tool("A"), tool("B"), tool("C")
	emb := &mapEmbedder{vecs: map[string][]float32{
		"deploy":         {1, 0},
		CandidateText(a): {1, 0},
		CandidateText(b): {0, 1},
		CandidateText(c): {0.7, 0.7},
	}}
	got, err := New(emb, Config{}).Search(context.Background(), []*catalog.Tool{a, b, c}, "deploy", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	order := []string{got[0].Name, got[1].Name, got[2].Name}
	if order[0] != "A" || order[1] != "C" || order[2] != "B" {
		t.Fatalf("order: got %v, want [A C B]", order)
	}
	if math.Abs(got[0].Score-1) > 1e-6 || math.Abs(got[1].Score-1/math.Sqrt2) > 1e-6 || got[2].Score != 0 {
		t.Errorf("scores: %v %v %v", got[0].Score, got[1].Score, got[2].Score)
	}
}

func TestSearch_EmptyCandidates(t *testing.T) {
	// WHAT: No candidates means no embedding call at all.
	emb := &mapEmbedder{}
	got, err := New(emb, Config{}).Search(context.Background(), nil, "anything", 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
	if emb.calls.Load() != 0 {
		t.Errorf("embed calls: got %d, want 0", emb.calls.Load())
	}
}

func TestSearch_QueryFailure(t *testing.T) {
	emb := &mapEmbedder{fail: map[string]bool{"q": true}}
	_, err := New(emb, Config{}).Search(context.Background(), []*catalog.Tool{tool("A")}, "q", 10)
	if !errors.Is(err, ErrSearch) || !errors.Is(err, ollama.ErrEmbedding) {
		t.Fatalf("got %v, want ErrSearch wrapping ErrEmbedding", err)
	}
}

func TestSearch_CandidateFailureScoresZero(t *testing.T) {
	// WHAT: One failing candidate in a batch scores 0; its siblings still score.
	// WHY: A flaky embedding must not hide the rest of the catalog.
	tools := make([]*catalog.Tool, 7)
	vecs := map[string][]float32{"q": {1, 0}}
	for i := range tools {
		tools[i] = tool(fmt.Sprintf("T%d", i))
		vecs[CandidateText(tools[i])] = []float32{1, 0}
	}
	emb := &mapEmbedder{vecs: vecs, fail: map[string]bool{CandidateText(tools[2]): true}}

	got, err := New(emb, Config{}).Search(context.Background(), tools, "q", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("results: got %d, want 7", len(got))
	}
	if got[6].Name != "T2" || got[6].Score != 0 {
		t.Errorf("failed candidate: got %s %.2f last", got[6].Name, got[6].Score)
	}
	for _, r := range got[:6] {
		if math.Abs(r.Score-1) > 1e-6 {
			t.Errorf("%s: score %v, want 1", r.Name, r.Score)
		}
	}
	if emb.calls.Load() != 8 {
		t.Errorf("embed calls: got %d, want 8 (query + 7)", emb.calls.Load())
	}
}

func TestSearch_BatchConcurrencyBounded(t *testing.T) {
	// WHAT: At most BatchSize candidate embeddings run at once.
	// WHY: Keeps load on the model server bounded.
	tools := make([]*catalog.Tool, 12)
	for i := range tools {
		tools[i] = tool(fmt.Sprintf("T%d", i))
	}
	emb := &mapEmbedder{delay: 20 * time.Millisecond}
	if _, err := New(emb, Config{BatchSize: 5}).Search(context.Background(), tools, "q", 0); err != nil {
		t.Fatal(err)
	}
	if m := emb.maxSeen.Load(); m > 5 {
		t.Errorf("max concurrent embeddings: got %d, want <= 5", m)
	}
	if m := emb.maxSeen.Load(); m < 2 {
		t.Errorf("batch members did not run concurrently: max %d", m)
	}
}

func TestSearch_LimitAndStableTies(t *testing.T) {
	// WHAT: Equal scores keep input order; the result is cut at limit.
	tools := make([]*catalog.Tool, 15)
	for i := range tools {
		tools[i] = tool(fmt.Sprintf("T%02d", i))
	}
	emb := &mapEmbedder{vecs: map[string][]float32{"q": {1, 0}}}

	got, err := New(emb, Config{}).Search(context.Background(), tools, "q", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("len: got %d, want 4", len(got))
	}
	for i, r := range got {
		if r.Name != tools[i].Name {
			t.Errorf("position %d: got %s, want %s", i, r.Name, tools[i].Name)
		}
	}

	got, _ = New(emb, Config{}).Search(context.Background(), tools, "q", 0)
	if len(got) != 10 {
		t.Errorf("default limit: got %d, want 10", len(got))
	}
}

func TestSearch_ConcurrentSearches(t *testing.T) {
	emb := &mapEmbedder{}
	eng := New(emb, Config{})
	tools := []*catalog.Tool{tool("A"), tool("B")}
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := eng.Search(context.Background(), tools, "q", 5); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}
