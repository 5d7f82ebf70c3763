package dedup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/mocks"
	"horse.fit/newsdesk/internal/news"
)

func TestExactRejectsStoredAndInBatchURLs(t *testing.T) {
	t.Parallel()

	repo := mocks.NewRepository()
	if _, err := repo.InsertRaw(context.Background(), []news.RawRecord{{Item: news.Item{ID: 1, URL: "https://a.test/1", Topic: "auto"}}}); err != nil {
		t.Fatalf("seed raw: %v", err)
	}

	exact, err := NewExact(context.Background(), repo, []string{"https://a.test/1", "https://a.test/2"})
	if err != nil {
		t.Fatalf("new exact: %v", err)
	}
	if exact.Admit("https://a.test/1") {
		t.Fatalf("expected stored url to be rejected")
	}
	if !exact.Admit("https://a.test/2") {
		t.Fatalf("expected new url to be admitted")
	}
	if exact.Admit("https://a.test/2") {
		t.Fatalf("expected second occurrence in batch to be rejected")
	}
}

type vectorEncoder struct {
	byPrefix map[string][]float64
	err      error
}

func (v vectorEncoder) Encode(_ context.Context, texts []string) ([][]float64, error) {
	if v.err != nil {
		return nil, v.err
	}
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		for prefix, vector := range v.byPrefix {
			if strings.HasPrefix(text, prefix) {
				out = append(out, vector)
				break
			}
		}
	}
	return out, nil
}

func TestSemanticRejectsCloseCandidateInsideWindow(t *testing.T) {
	t.Parallel()

	repo := mocks.NewRepository()
	repo.Seed(news.ProcessedRecord{
		Item:      news.Item{ID: 10, URL: "https://a.test/10"},
		Embedding: []float64{1, 0},
	})

	encoder := vectorEncoder{byPrefix: map[string][]float64{
		"close": {0.95, 0.3122498999},
		"far":   {0, 1},
	}}
	semantic, err := NewSemantic(context.Background(), repo, encoder, SemanticOptions{Threshold: 0.90, Window: time.Hour}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new semantic: %v", err)
	}

	decision := semantic.Admit(context.Background(), 11, "close words that are long enough")
	if decision.Admit {
		t.Fatalf("expected close candidate to be rejected, similarity=%f", decision.Similarity)
	}
	if decision.DuplicateOf == nil || *decision.DuplicateOf != 10 {
		t.Fatalf("expected duplicate_of=10, got %v", decision.DuplicateOf)
	}

	if !semantic.Admit(context.Background(), 12, "far words that are long enough").Admit {
		t.Fatalf("expected orthogonal candidate to be admitted")
	}
}

func TestSemanticCatchesDuplicatesInsideBatch(t *testing.T) {
	t.Parallel()

	encoder := vectorEncoder{byPrefix: map[string][]float64{"same": {1, 1}}}
	semantic, err := NewSemantic(context.Background(), mocks.NewRepository(), encoder, SemanticOptions{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new semantic: %v", err)
	}

	first := semantic.Admit(context.Background(), 1, "same story text with plenty of words")
	if !first.Admit || len(first.Vector) == 0 {
		t.Fatalf("expected first candidate admitted with a vector")
	}
	if again := semantic.Admit(context.Background(), 2, "same story text with plenty of words"); !again.Admit {
		t.Fatalf("expected candidate to stay out of the references until remembered")
	}

	semantic.Remember(1, first.Vector)
	second := semantic.Admit(context.Background(), 2, "same story text with plenty of words")
	if second.Admit || second.DuplicateOf == nil || *second.DuplicateOf != 1 {
		t.Fatalf("expected second identical candidate rejected as a duplicate of 1")
	}
	if semantic.References() != 1 {
		t.Fatalf("expected 1 reference, got %d", semantic.References())
	}
}

func TestSemanticIgnoresReferencesOutsideWindow(t *testing.T) {
	t.Parallel()

	repo := mocks.NewRepository()
	repo.Seed(news.ProcessedRecord{
		Item:        news.Item{ID: 10},
		Embedding:   []float64{1, 0},
		ProcessedAt: time.Now().UTC().Add(-48 * time.Hour),
	})

	encoder := vectorEncoder{byPrefix: map[string][]float64{"old": {1, 0}}}
	semantic, err := NewSemantic(context.Background(), repo, encoder, SemanticOptions{Window: 6 * time.Hour}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new semantic: %v", err)
	}
	if !semantic.Admit(context.Background(), 11, "old story retold with enough words").Admit {
		t.Fatalf("expected reference outside window to be ignored")
	}
}

func TestSemanticEmbeddingFailureAdmits(t *testing.T) {
	t.Parallel()

	encoder := vectorEncoder{err: errors.New("service down")}
	semantic, err := NewSemantic(context.Background(), mocks.NewRepository(), encoder, SemanticOptions{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new semantic: %v", err)
	}
	decision := semantic.Admit(context.Background(), 1, "anything at all in this text")
	if !decision.Admit || decision.Vector != nil {
		t.Fatalf("expected admitting decision without vector, got %+v", decision)
	}
}
