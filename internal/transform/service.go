package transform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/dedup"
	"horse.fit/newsdesk/internal/embedding"
	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/news"
	"horse.fit/newsdesk/internal/rewrite"
	"horse.fit/newsdesk/internal/translation"
)

const DefaultBatchSize = 200

// Store is the part of the repository the transform stage uses.
type Store interface {
	dedup.ReferenceStore
	PendingRaw(ctx context.Context, limit int) ([]news.RawRecord, error)
	InsertProcessed(ctx context.Context, records []news.ProcessedRecord) (int, error)
}

type Options struct {
	BatchSize      int
	TargetLanguage string
	UseTranslation bool
	UseRewrite     bool
	Semantic       dedup.SemanticOptions
}

type Result struct {
	Pending    int `json:"pending"`
	Processed  int `json:"processed"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type Service struct {
	store      Store
	translator translation.Provider
	rewriter   rewrite.Rewriter
	encoder    embedding.Encoder
	opts       Options
	logger     zerolog.Logger
}

func NewService(
	store Store,
	translator translation.Provider,
	rewriter rewrite.Rewriter,
	encoder embedding.Encoder,
	opts Options,
	logger zerolog.Logger,
) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Service{
		store:      store,
		translator: translator,
		rewriter:   rewriter,
		encoder:    encoder,
		opts:       opts,
		logger:     logger,
	}
}

// TransformPending moves one batch of raw items into the processed table.
func (s *Service) TransformPending(ctx context.Context, mode Mode) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("transform service is not initialized")
	}

	pending, err := s.store.PendingRaw(ctx, s.opts.BatchSize)
	if err != nil {
		return Result{}, fmt.Errorf("load pending raw items: %w", err)
	}
	result := Result{Pending: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	switch mode {
	case ModeBootstrap:
		return s.bootstrap(ctx, pending, result)
	case ModeNormal:
		return s.normal(ctx, pending, result)
	default:
		return result, fmt.Errorf("unknown mode %q", mode)
	}
}

// bootstrap marks the backlog handled so it is never queued.
func (s *Service) bootstrap(ctx context.Context, pending []news.RawRecord, result Result) (Result, error) {
	now := globaltime.UTC()
	records := make([]news.ProcessedRecord, 0, len(pending))
	for _, raw := range pending {
		records = append(records, news.ProcessedRecord{
			Item:        raw.Item.Clone(),
			Suggested:   true,
			Disposition: news.DispositionBootstrap,
			ProcessedAt: now,
		})
	}

	inserted, err := s.store.InsertProcessed(ctx, records)
	if err != nil {
		result.Failed = len(records)
		return result, fmt.Errorf("insert bootstrap records: %w", err)
	}
	result.Processed = inserted
	result.Skipped = len(records) - inserted
	s.logger.Info().Int("handled", inserted).Msg("bootstrap backlog marked as handled")
	return result, nil
}

func (s *Service) normal(ctx context.Context, pending []news.RawRecord, result Result) (Result, error) {
	var semantic *dedup.Semantic
	if s.encoder != nil {
		var err error
		semantic, err = dedup.NewSemantic(ctx, s.store, s.encoder, s.opts.Semantic, s.logger)
		if err != nil {
			return result, err
		}
	}

	for _, raw := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome, err := s.transformOne(ctx, raw.Item.Clone(), semantic)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Warn().Err(err).Str("id", raw.ID.String()).Str("url", raw.URL).Msg("transform failed, item left pending")
		case outcome == outcomeDuplicate:
			result.Duplicates++
		case outcome == outcomeSkipped:
			result.Skipped++
		default:
			result.Processed++
		}
	}
	return result, nil
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeDuplicate
	outcomeSkipped
)

func (s *Service) transformOne(ctx context.Context, item news.Item, semantic *dedup.Semantic) (outcome, error) {
	started := time.Now()

	if s.opts.UseTranslation && s.translator != nil && translation.Needed(item.Language, s.opts.TargetLanguage) {
		title, text, err := translation.TranslateFields(ctx, s.translator, item.Title, item.Text, item.Language, s.opts.TargetLanguage)
		if err != nil {
			return 0, err
		}
		item.Title = title
		item.Text = text
		item.Language = strings.ToLower(strings.TrimSpace(s.opts.TargetLanguage))
	}

	record := news.ProcessedRecord{
		Item:        item,
		Disposition: news.DispositionCandidate,
	}

	if semantic != nil {
		decision := semantic.Admit(ctx, item.ID, dedupText(item))
		record.Embedding = decision.Vector
		if !decision.Admit {
			similarity := decision.Similarity
			record.Disposition = news.DispositionDuplicate
			record.Suggested = true
			record.DuplicateOf = decision.DuplicateOf
			record.Similarity = &similarity
			inserted, err := s.insert(ctx, record)
			if err != nil || !inserted {
				return outcomeSkipped, err
			}
			s.logger.Info().
				Str("id", item.ID.String()).
				Str("duplicate_of", decision.DuplicateOf.String()).
				Float64("similarity", similarity).
				Msg("near-duplicate recorded")
			return outcomeDuplicate, nil
		}
	}

	if s.opts.UseRewrite && s.rewriter != nil && strings.TrimSpace(item.Text) != "" {
		rewritten, err := s.rewriter.Rewrite(ctx, item.Text)
		if err != nil {
			return 0, err
		}
		record.Text = rewritten
	}

	inserted, err := s.insert(ctx, record)
	if err != nil || !inserted {
		return outcomeSkipped, err
	}
	if semantic != nil {
		semantic.Remember(item.ID, record.Embedding)
	}
	s.logger.Debug().Str("id", item.ID.String()).Dur("elapsed", time.Since(started)).Msg("candidate stored")
	return outcomeProcessed, nil
}

// insert reports false when another writer processed the id first.
func (s *Service) insert(ctx context.Context, record news.ProcessedRecord) (bool, error) {
	record.ProcessedAt = globaltime.UTC()
	inserted, err := s.store.InsertProcessed(ctx, []news.ProcessedRecord{record})
	if err != nil {
		return false, fmt.Errorf("insert processed id=%d: %w", record.ID, err)
	}
	return inserted == 1, nil
}

func dedupText(item news.Item) string {
	if strings.TrimSpace(item.Text) != "" {
		return item.Text
	}
	return item.Title
}
