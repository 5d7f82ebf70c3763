package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/dedup"
	"horse.fit/newsdesk/internal/mocks"
	"horse.fit/newsdesk/internal/news"
	"horse.fit/newsdesk/internal/translation"
)

type stubTranslator struct {
	fail bool
}

func (s stubTranslator) Name() string                 { return "stub" }
func (s stubTranslator) SupportedLanguages() []string { return nil }
func (s stubTranslator) Translate(_ context.Context, req translation.TranslateRequest) (*translation.TranslateResponse, error) {
	if s.fail {
		return nil, errors.New("translator down")
	}
	return &translation.TranslateResponse{Text: "ru:" + req.Text}, nil
}

type stubRewriter struct {
	failOn string
	calls  int
}

func (s *stubRewriter) Rewrite(_ context.Context, text string) (string, error) {
	s.calls++
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return "", errors.New("llm down")
	}
	return "rewritten:" + text, nil
}

// keywordEncoder maps a text to a fixed vector by the first word.
type keywordEncoder map[string][]float64

func (k keywordEncoder) Encode(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		word := strings.Fields(strings.TrimPrefix(text, "ru:"))[0]
		vector, ok := k[word]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", word)
		}
		out = append(out, vector)
	}
	return out, nil
}

func seedRaw(t *testing.T, repo *mocks.Repository, n int, text func(i int) string, lang string) []news.ID {
	t.Helper()
	records := make([]news.RawRecord, 0, n)
	ids := make([]news.ID, 0, n)
	for i := 0; i < n; i++ {
		id, canonical, err := news.IDFromURL(fmt.Sprintf("https://a.test/%d", i))
		if err != nil {
			t.Fatalf("id: %v", err)
		}
		ids = append(ids, id)
		records = append(records, news.RawRecord{Item: news.Item{
			ID: id, Title: fmt.Sprintf("title %d", i), URL: canonical, Text: text(i), Language: lang, Topic: "auto",
		}})
	}
	if _, err := repo.InsertRaw(context.Background(), records); err != nil {
		t.Fatalf("seed raw: %v", err)
	}
	return ids
}

func TestBootstrapHandlesBacklogWithoutCandidates(t *testing.T) {
	t.Parallel()

	repo := mocks.NewRepository()
	seedRaw(t, repo, 5, func(int) string { return "body" }, "ru")
	rewriter := &stubRewriter{}
	svc := NewService(repo, stubTranslator{}, rewriter, nil, Options{UseRewrite: true, UseTranslation: true, TargetLanguage: "ru"}, zerolog.Nop())

	result, err := svc.TransformPending(context.Background(), ModeBootstrap)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if result.Pending != 5 || result.Processed != 5 {
		t.Fatalf("unexpected result %+v", result)
	}
	if rewriter.calls != 0 {
		t.Fatalf("bootstrap must not rewrite, calls=%d", rewriter.calls)
	}
	candidates, _ := repo.UnsuggestedCandidates(context.Background(), 10)
	if len(candidates) != 0 {
		t.Fatalf("expected nothing awaiting the queue, got %d", len(candidates))
	}
	for _, record := range repo.Processed {
		if !record.Suggested || record.Disposition != news.DispositionBootstrap {
			t.Fatalf("unexpected bootstrap record %+v", record)
		}
	}
}

func TestNormalTranslatesDedupsAndRewrites(t *testing.T) {
	t.Parallel()

	repo := mocks.NewRepository()
	texts := []string{"alpha story about a new car model", "alpha story retold by another site", "beta story about something else"}
	ids := seedRaw(t, repo, 3, func(i int) string { return texts[i] }, "en")

	encoder := keywordEncoder{"alpha": {1, 0}, "beta": {0, 1}}
	rewriter := &stubRewriter{}
	svc := NewService(repo, stubTranslator{}, rewriter, encoder, Options{
		UseRewrite:     true,
		UseTranslation: true,
		TargetLanguage: "ru",
		Semantic:       dedup.SemanticOptions{Threshold: 0.9},
	}, zerolog.Nop())

	result, err := svc.TransformPending(context.Background(), ModeNormal)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if result.Processed != 2 || result.Duplicates != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	pending, _ := repo.PendingRaw(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending raw items, got %d", len(pending))
	}

	var duplicates, candidates int
	for _, record := range repo.Processed {
		switch record.Disposition {
		case news.DispositionDuplicate:
			duplicates++
			if !record.Suggested || record.DuplicateOf == nil || record.Similarity == nil {
				t.Fatalf("duplicate not recorded fully: %+v", record)
			}
			if record.ID != ids[1] || *record.DuplicateOf != ids[0] {
				t.Fatalf("expected second item to duplicate the first, got id=%d duplicate_of=%d", record.ID, *record.DuplicateOf)
			}
		case news.DispositionCandidate:
			candidates++
			if !strings.HasPrefix(record.Text, "rewritten:ru:") || !strings.HasPrefix(record.Title, "ru:") {
				t.Fatalf("expected translated and rewritten candidate, got %+v", record.Item)
			}
			if record.Language != "ru" || len(record.Embedding) == 0 || record.Suggested {
				t.Fatalf("unexpected candidate %+v", record)
			}
		}
	}
	if duplicates != 1 || candidates != 2 {
		t.Fatalf("expected 1 duplicate and 2 candidates, got %d and %d", duplicates, candidates)
	}
	if rewriter.calls != 2 {
		t.Fatalf("duplicates must not reach the rewriter, calls=%d", rewriter.calls)
	}
}

func TestNormalSkipsItemWhenRewriteFails(t *testing.T) {
	t.Parallel()

	repo := mocks.NewRepository()
	seedRaw(t, repo, 2, func(i int) string { return fmt.Sprintf("story number %d", i) }, "ru")
	rewriter := &stubRewriter{failOn: "number 1"}
	svc := NewService(repo, stubTranslator{fail: true}, rewriter, nil, Options{UseRewrite: true, UseTranslation: true, TargetLanguage: "ru"}, zerolog.Nop())

	result, err := svc.TransformPending(context.Background(), ModeNormal)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if result.Processed != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	pending, _ := repo.PendingRaw(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("expected failed item to remain pending, got %d", len(pending))
	}
}

func TestFailedItemDoesNotShadowLaterDuplicate(t *testing.T) {
	t.Parallel()

	repo := mocks.NewRepository()
	texts := []string{"alpha story that broke the rewriter upstream", "alpha story retold by another outlet"}
	ids := seedRaw(t, repo, 2, func(i int) string { return texts[i] }, "ru")

	encoder := keywordEncoder{"alpha": {1, 0}}
	rewriter := &stubRewriter{failOn: "broke the rewriter"}
	svc := NewService(repo, nil, rewriter, encoder, Options{
		UseRewrite:     true,
		TargetLanguage: "ru",
		Semantic:       dedup.SemanticOptions{Threshold: 0.9},
	}, zerolog.Nop())

	result, err := svc.TransformPending(context.Background(), ModeNormal)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if result.Processed != 1 || result.Failed != 1 || result.Duplicates != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := repo.GetProcessed(context.Background(), ids[0]); !errors.Is(err, news.ErrNotFound) {
		t.Fatalf("expected failed item to have no processed row, got %v", err)
	}
	second, err := repo.GetProcessed(context.Background(), ids[1])
	if err != nil {
		t.Fatalf("get second: %v", err)
	}
	if second.Disposition != news.DispositionCandidate || second.DuplicateOf != nil {
		t.Fatalf("expected second item stored as a candidate, got %+v", second)
	}
}

func TestNormalSkipsItemWhenTranslationFails(t *testing.T) {
	t.Parallel()

	repo := mocks.NewRepository()
	seedRaw(t, repo, 1, func(int) string { return "english body" }, "en")
	svc := NewService(repo, stubTranslator{fail: true}, nil, nil, Options{UseTranslation: true, TargetLanguage: "ru"}, zerolog.Nop())

	result, err := svc.TransformPending(context.Background(), ModeNormal)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if result.Failed != 1 || len(repo.Processed) != 0 {
		t.Fatalf("expected no write on translation failure, result=%+v processed=%d", result, len(repo.Processed))
	}
}

func TestLoadAndSaveMode(t *testing.T) {
	t.Parallel()

	repo := mocks.NewRepository()
	mode, err := LoadMode(context.Background(), repo, true)
	if err != nil || mode != ModeBootstrap {
		t.Fatalf("expected bootstrap on first run, got %q err=%v", mode, err)
	}
	if err := SaveMode(context.Background(), repo, ModeNormal); err != nil {
		t.Fatalf("save: %v", err)
	}
	mode, err = LoadMode(context.Background(), repo, true)
	if err != nil || mode != ModeNormal {
		t.Fatalf("expected persisted normal mode, got %q err=%v", mode, err)
	}
	if _, err := ParseMode("turbo"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}
