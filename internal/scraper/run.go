package scraper

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/newsdesk/internal/config"
)

// Batch is the output of one source, tagged with its topic.
type Batch struct {
	Source config.SourceSpec
	Items  []Item
	Err    error
}

// RunSources scrapes every source with at most concurrency connectors in flight.
// A failing source yields a batch with Err set and does not stop the others.
func RunSources(ctx context.Context, registry *Registry, sources []config.SourceSpec, concurrency int, logger zerolog.Logger) []Batch {
	batches := make([]Batch, len(sources))
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, source := range sources {
		g.Go(func() error {
			batch := Batch{Source: source}
			connector, err := registry.Build(source.Class, source.URL)
			if err == nil {
				batch.Items, err = connector.Run(gctx)
			}
			batch.Err = err
			batches[i] = batch

			event := logger.Info()
			if err != nil {
				event = logger.Warn().Err(err)
			}
			event.
				Str("class", source.Class).
				Str("url", source.URL).
				Str("topic", source.Topic).
				Int("items", len(batch.Items)).
				Msg("source scraped")
			return nil
		})
	}
	_ = g.Wait()
	return batches
}
