package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/embedding"
	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/news"
)

const (
	DefaultThreshold         = 0.90
	DefaultWindow            = 6 * time.Hour
	DefaultMinParagraphWords = 5
)

// ReferenceStore loads embeddings of recently processed candidates.
type ReferenceStore interface {
	RecentEmbeddings(ctx context.Context, since time.Time) ([]news.Reference, error)
}

type SemanticOptions struct {
	Threshold         float64
	Window            time.Duration
	MinParagraphWords int
}

// Decision is the outcome of one semantic check.
type Decision struct {
	Admit       bool
	Vector      []float64
	DuplicateOf *news.ID
	Similarity  float64
}

// Semantic rejects texts whose mean paragraph embedding is too close to a recent candidate.
type Semantic struct {
	encoder embedding.Encoder
	opts    SemanticOptions
	refs    []news.Reference
	logger  zerolog.Logger
}

// NewSemantic loads the reference set for one transform batch.
func NewSemantic(ctx context.Context, store ReferenceStore, encoder embedding.Encoder, opts SemanticOptions, logger zerolog.Logger) (*Semantic, error) {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.MinParagraphWords <= 0 {
		opts.MinParagraphWords = DefaultMinParagraphWords
	}

	refs, err := store.RecentEmbeddings(ctx, globaltime.UTC().Add(-opts.Window))
	if err != nil {
		return nil, fmt.Errorf("load reference embeddings: %w", err)
	}
	return &Semantic{
		encoder: encoder,
		opts:    opts,
		refs:    refs,
		logger:  logger,
	}, nil
}

func (s *Semantic) References() int {
	return len(s.refs)
}

// Admit embeds text and compares it against the reference set. Admitted texts
// are not references until Remember is called for them.
// Embedding failures admit the text without a vector.
func (s *Semantic) Admit(ctx context.Context, id news.ID, text string) Decision {
	vector, err := embedding.Document(ctx, s.encoder, text, s.opts.MinParagraphWords)
	if err != nil {
		s.logger.Warn().Err(err).Str("id", id.String()).Msg("embedding failed, admitting without semantic check")
		return Decision{Admit: true}
	}

	best := 0.0
	var bestID news.ID
	for _, ref := range s.refs {
		if ref.ID == id {
			continue
		}
		score := embedding.Cosine(vector, ref.Vector)
		if score > best {
			best = score
			bestID = ref.ID
		}
	}

	if best >= s.opts.Threshold {
		return Decision{
			Admit:       false,
			Vector:      vector,
			DuplicateOf: &bestID,
			Similarity:  best,
		}
	}

	return Decision{Admit: true, Vector: vector, Similarity: best}
}

// Remember adds a stored candidate to the reference set of this batch.
func (s *Semantic) Remember(id news.ID, vector []float64) {
	if len(vector) == 0 {
		return
	}
	s.refs = append(s.refs, news.Reference{ID: id, Vector: vector})
}
