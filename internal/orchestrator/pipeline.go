package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/ingest"
	"horse.fit/newsdesk/internal/publish"
	"horse.fit/newsdesk/internal/scraper"
	"horse.fit/newsdesk/internal/transform"
)

// maxBootstrapRounds bounds how many transform batches one bootstrap cycle drains.
const maxBootstrapRounds = 1000

type SourceRunner func(ctx context.Context) []scraper.Batch

type Ingester interface {
	Ingest(ctx context.Context, topic string, items []scraper.Item) (ingest.Result, error)
}

type Transformer interface {
	TransformPending(ctx context.Context, mode transform.Mode) (transform.Result, error)
}

type QueueSender interface {
	SendPending(ctx context.Context, limit int) (publish.Result, error)
}

type Stages struct {
	Scrape    SourceRunner
	Ingest    Ingester
	Transform Transformer
	Queue     QueueSender
	Settings  transform.SettingsStore
}

type Options struct {
	FirstRun       bool
	QueueBatchSize int
}

// CycleReport summarizes one pipeline cycle.
type CycleReport struct {
	ID           string           `json:"cycle_id"`
	Mode         transform.Mode   `json:"mode"`
	Sources      int              `json:"sources"`
	SourceErrors int              `json:"source_errors"`
	Scraped      int              `json:"scraped"`
	Ingest       ingest.Result    `json:"ingest"`
	Transform    transform.Result `json:"transform"`
	Queue        publish.Result   `json:"queue"`
	ModeFlipped  bool             `json:"mode_flipped"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Error        string           `json:"error,omitempty"`
}

// Pipeline runs scrape, ingest, transform and queue as one cycle.
type Pipeline struct {
	stages Stages
	opts   Options
	logger zerolog.Logger
}

func NewPipeline(stages Stages, opts Options, logger zerolog.Logger) (*Pipeline, error) {
	if stages.Scrape == nil || stages.Ingest == nil || stages.Transform == nil || stages.Queue == nil || stages.Settings == nil {
		return nil, fmt.Errorf("pipeline stages are incomplete")
	}
	if opts.QueueBatchSize <= 0 {
		opts.QueueBatchSize = 20
	}
	return &Pipeline{stages: stages, opts: opts, logger: logger}, nil
}

// RunCycle runs one cycle. An empty mode uses the persisted one, which flips
// from bootstrap to normal after the first successful cycle.
func (p *Pipeline) RunCycle(ctx context.Context, mode transform.Mode) (CycleReport, error) {
	report := CycleReport{ID: uuid.NewString(), StartedAt: globaltime.UTC()}
	logger := p.logger.With().Str("cycle_id", report.ID).Logger()

	err := p.run(ctx, mode, &report, logger)
	report.FinishedAt = globaltime.UTC()
	if err != nil {
		report.Error = err.Error()
		logger.Error().Err(err).Str("mode", string(report.Mode)).Msg("pipeline cycle failed")
		return report, err
	}

	logger.Info().
		Str("mode", string(report.Mode)).
		Int("sources", report.Sources).
		Int("source_errors", report.SourceErrors).
		Int("scraped", report.Scraped).
		Int("saved", report.Ingest.Saved).
		Int("processed", report.Transform.Processed).
		Int("duplicates", report.Transform.Duplicates).
		Int("queued", report.Queue.Sent).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("pipeline cycle finished")
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, override transform.Mode, report *CycleReport, logger zerolog.Logger) error {
	mode := override
	persisted := mode == ""
	if persisted {
		loaded, err := transform.LoadMode(ctx, p.stages.Settings, p.opts.FirstRun)
		if err != nil {
			return err
		}
		mode = loaded
	}
	report.Mode = mode

	for _, batch := range p.stages.Scrape(ctx) {
		report.Sources++
		if batch.Err != nil {
			report.SourceErrors++
			continue
		}
		report.Scraped += len(batch.Items)
		result, err := p.stages.Ingest.Ingest(ctx, batch.Source.Topic, batch.Items)
		addIngest(&report.Ingest, result)
		if err != nil {
			logger.Error().Err(err).Str("source", batch.Source.URL).Msg("ingest failed")
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	transformed, err := p.transform(ctx, mode)
	report.Transform = transformed
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	if mode == transform.ModeNormal {
		queued, err := p.stages.Queue.SendPending(ctx, p.opts.QueueBatchSize)
		report.Queue = queued
		if err != nil {
			return fmt.Errorf("send pending: %w", err)
		}
	}

	if persisted && mode == transform.ModeBootstrap {
		if err := transform.SaveMode(ctx, p.stages.Settings, transform.ModeNormal); err != nil {
			return err
		}
		report.ModeFlipped = true
		logger.Info().Msg("bootstrap finished, switching to normal mode")
	}
	return nil
}

// transform runs one batch in normal mode; bootstrap drains the whole backlog.
func (p *Pipeline) transform(ctx context.Context, mode transform.Mode) (transform.Result, error) {
	if mode != transform.ModeBootstrap {
		return p.stages.Transform.TransformPending(ctx, mode)
	}

	var total transform.Result
	for range maxBootstrapRounds {
		result, err := p.stages.Transform.TransformPending(ctx, mode)
		addTransform(&total, result)
		if err != nil {
			return total, err
		}
		if result.Pending == 0 || result.Processed+result.Skipped == 0 {
			return total, nil
		}
	}
	return total, errors.New("bootstrap backlog did not drain")
}

func addIngest(total *ingest.Result, r ingest.Result) {
	total.Received += r.Received
	total.Saved += r.Saved
	total.Duplicates += r.Duplicates
	total.Invalid += r.Invalid
	total.Failed += r.Failed
}

func addTransform(total *transform.Result, r transform.Result) {
	total.Pending += r.Pending
	total.Processed += r.Processed
	total.Duplicates += r.Duplicates
	total.Skipped += r.Skipped
	total.Failed += r.Failed
}
