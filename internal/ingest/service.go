package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/dedup"
	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/langdetect"
	"horse.fit/newsdesk/internal/news"
	"horse.fit/newsdesk/internal/payloadschema"
	"horse.fit/newsdesk/internal/scraper"
)

// Store is the part of the repository ingestion writes to.
type Store interface {
	dedup.URLStore
	InsertRaw(ctx context.Context, records []news.RawRecord) (int, error)
}

// MediaResolver turns remote media URLs into stored file names.
type MediaResolver interface {
	Resolve(ctx context.Context, urls []string, limit int) []string
}

type Result struct {
	Received   int `json:"received"`
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
	Failed     int `json:"failed"`
}

type Service struct {
	store    Store
	media    MediaResolver
	detect   func(string) string
	mediaCap int
	logger   zerolog.Logger
}

type Option func(*Service)

// WithDetector replaces the language detector.
func WithDetector(detect func(string) string) Option {
	return func(s *Service) { s.detect = detect }
}

func NewService(store Store, media MediaResolver, mediaCap int, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		media:    media,
		detect:   langdetect.Detect,
		mediaCap: mediaCap,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type candidate struct {
	id        news.ID
	canonical string
	item      *payloadschema.ScrapedItem
}

// Ingest validates, deduplicates and stores one scraped batch for a topic.
func (s *Service) Ingest(ctx context.Context, topic string, items []scraper.Item) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("ingest service is not initialized")
	}
	result := Result{Received: len(items)}
	topic = strings.TrimSpace(topic)

	candidates := make([]candidate, 0, len(items))
	for _, raw := range items {
		validated, err := validate(raw)
		if err != nil {
			result.Invalid++
			s.logger.Warn().Err(err).Str("url", raw.URL).Msg("scraped item rejected")
			continue
		}
		id, canonical, err := news.IDFromURL(validated.URL)
		if err != nil {
			result.Invalid++
			s.logger.Warn().Err(err).Str("url", raw.URL).Msg("scraped item url rejected")
			continue
		}
		candidates = append(candidates, candidate{id: id, canonical: canonical, item: validated})
	}
	if len(candidates) == 0 {
		return result, nil
	}

	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, c.canonical)
	}
	exact, err := dedup.NewExact(ctx, s.store, urls)
	if err != nil {
		result.Failed = len(candidates)
		return result, err
	}

	records := make([]news.RawRecord, 0, len(candidates))
	for _, c := range candidates {
		if !exact.Admit(c.canonical) {
			result.Duplicates++
			continue
		}
		records = append(records, s.buildRecord(ctx, c, topic))
	}
	if len(records) == 0 {
		return result, nil
	}

	saved, err := s.store.InsertRaw(ctx, records)
	if err != nil {
		result.Failed += len(records)
		return result, fmt.Errorf("insert raw batch: %w", err)
	}
	result.Saved = saved
	result.Duplicates += len(records) - saved

	s.logger.Info().
		Str("topic", topic).
		Int("received", result.Received).
		Int("saved", result.Saved).
		Int("duplicates", result.Duplicates).
		Int("invalid", result.Invalid).
		Msg("ingest batch stored")
	return result, nil
}

func (s *Service) buildRecord(ctx context.Context, c candidate, topic string) news.RawRecord {
	item := c.item
	var media []string
	if s.media != nil && len(item.MediaURLs) > 0 {
		media = s.media.Resolve(ctx, item.MediaURLs, s.mediaCap)
	}

	title := strings.TrimSpace(item.Title)
	text := strings.TrimSpace(item.Text)
	return news.RawRecord{
		Item: news.Item{
			ID:          c.id,
			Title:       title,
			URL:         c.canonical,
			PublishedAt: news.ParseDate(item.Date, globaltime.UTC()),
			Text:        text,
			Media:       media,
			Language:    s.detect(strings.TrimSpace(title + "\n" + text)),
			Topic:       topic,
		},
	}
}

func validate(item scraper.Item) (*payloadschema.ScrapedItem, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode scraped item: %w", err)
	}
	return payloadschema.ValidateScrapedItem(payload)
}
