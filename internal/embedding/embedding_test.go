package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	if got := normalizeEndpoint("http://127.0.0.1:8844"); got != "http://127.0.0.1:8844/embed" {
		t.Fatalf("unexpected endpoint normalization: %q", got)
	}
	if got := normalizeEndpoint("http://127.0.0.1:8844/v1/embeddings"); got != "http://127.0.0.1:8844/v1/embeddings" {
		t.Fatalf("unexpected endpoint normalization for explicit path: %q", got)
	}
	if got := normalizeEndpoint(" "); got != DefaultEndpoint {
		t.Fatalf("expected default endpoint, got %q", got)
	}
}

func TestEncodeBatchesPlainShape(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		out := embedResponse{}
		for range req.Texts {
			out.Embeddings = append(out.Embeddings, []float64{float64(calls), 1})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer server.Close()

	client := NewClient(Options{Endpoint: server.URL, BatchSize: 2})
	vectors, err := client.Encode(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	if calls != 2 {
		t.Fatalf("expected 2 batched calls, got %d", calls)
	}
	if vectors[2][0] != 2 {
		t.Fatalf("expected third vector from second batch, got %v", vectors[2])
	}
}

func TestEncodeOpenAIShapeSortsByIndex(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Input) != 2 || req.Model == "" {
			t.Errorf("expected openai-shaped request, got %+v", req)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	client := NewClient(Options{Endpoint: server.URL + "/v1/embeddings"})
	vectors, err := client.Encode(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("vectors not ordered by index: %v", vectors)
	}
}

func TestEncodeStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := NewClient(Options{Endpoint: server.URL}).Encode(context.Background(), []string{"x"}); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestParagraphsSkipsShortBlocks(t *testing.T) {
	t.Parallel()

	text := "Short line\n\nThis paragraph has clearly more than five words in it.\nTiny\nAnother paragraph that is long enough to count here."
	got := Paragraphs(text, 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %q", len(got), got)
	}

	fallback := Paragraphs("one two\nthree", 5)
	if len(fallback) != 1 || fallback[0] != "one two\nthree" {
		t.Fatalf("expected whole-text fallback, got %q", fallback)
	}
	if Paragraphs("   ", 5) != nil {
		t.Fatalf("expected nil for blank text")
	}
}

type stubEncoder struct {
	vectors [][]float64
	texts   []string
}

func (s *stubEncoder) Encode(_ context.Context, texts []string) ([][]float64, error) {
	s.texts = texts
	return s.vectors, nil
}

func TestDocumentAveragesParagraphs(t *testing.T) {
	t.Parallel()

	encoder := &stubEncoder{vectors: [][]float64{{1, 0}, {0, 1}}}
	vector, err := Document(context.Background(), encoder, "alpha beta gamma\ndelta epsilon zeta", 3)
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if len(encoder.texts) != 2 {
		t.Fatalf("expected 2 paragraphs encoded, got %d", len(encoder.texts))
	}
	if vector[0] != 0.5 || vector[1] != 0.5 {
		t.Fatalf("unexpected mean vector %v", vector)
	}
}

func TestMeanDimensionMismatch(t *testing.T) {
	t.Parallel()

	if _, err := Mean([][]float64{{1, 2}, {1}}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()

	if got := Cosine([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected identical vectors to score 1, got %f", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Fatalf("expected orthogonal vectors to score 0, got %f", got)
	}
	if got := Cosine([]float64{1}, []float64{1, 2}); got != 0 {
		t.Fatalf("expected mismatched dimensions to score 0, got %f", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 2}); got != 0 {
		t.Fatalf("expected zero vector to score 0, got %f", got)
	}
}
