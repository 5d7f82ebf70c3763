package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/chat"
	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/db"
	"horse.fit/newsdesk/internal/dedup"
	"horse.fit/newsdesk/internal/embedding"
	"horse.fit/newsdesk/internal/ingest"
	"horse.fit/newsdesk/internal/logging"
	"horse.fit/newsdesk/internal/media"
	"horse.fit/newsdesk/internal/moderation"
	"horse.fit/newsdesk/internal/orchestrator"
	"horse.fit/newsdesk/internal/publish"
	"horse.fit/newsdesk/internal/rewrite"
	"horse.fit/newsdesk/internal/scraper"
	"horse.fit/newsdesk/internal/transform"
	"horse.fit/newsdesk/internal/translation"
)

// desk holds the wired pipeline and moderation components of one process.
type desk struct {
	repo     *db.Repository
	locks    *moderation.LockManager
	machine  *moderation.Machine
	pipeline *orchestrator.Pipeline
}

func newScraperRegistry(cfg *config.Config, logger zerolog.Logger) *scraper.Registry {
	return scraper.NewRegistry(scraper.Deps{
		Concurrency: cfg.ScrapeConcurrency,
		Logger:      logging.Component(logger, "scraper"),
	})
}

func newDesk(cfg *config.Config, appCfg *config.AppConfig, pool *db.Pool, client chat.Client, logger zerolog.Logger) (*desk, error) {
	repo := db.NewRepository(pool)

	mediaStore, err := media.NewStore(media.Options{
		Dir:         cfg.MediaDir,
		Concurrency: cfg.ScrapeConcurrency,
	}, logging.Component(logger, "media"))
	if err != nil {
		return nil, err
	}

	registry := newScraperRegistry(cfg, logger)
	sources := appCfg.Sources()
	scrapeLogger := logging.Component(logger, "scraper")
	scrape := func(ctx context.Context) []scraper.Batch {
		return scraper.RunSources(ctx, registry, sources, cfg.ScrapeConcurrency, scrapeLogger)
	}

	var translator translation.Provider
	if appCfg.Settings.UseTranslation {
		provider, err := translation.NewRegistryFromConfig(cfg).Provider("")
		if err != nil {
			return nil, fmt.Errorf("resolve translation provider: %w", err)
		}
		translator = provider
	}
	var rewriter rewrite.Rewriter
	if appCfg.Settings.UseRewrite {
		rewriter = rewrite.NewChatRewriter(rewrite.Options{
			Endpoint:       cfg.RewriteEndpoint,
			Model:          cfg.RewriteModel,
			APIKey:         cfg.RewriteAPIKey,
			TargetLanguage: cfg.TargetLanguage,
		})
	}
	encoder := embedding.NewClient(embedding.Options{
		Endpoint:       cfg.EmbeddingEndpoint,
		ModelName:      cfg.EmbeddingModel,
		RequestTimeout: cfg.EmbeddingTimeout,
	})

	ingestSvc := ingest.NewService(repo, mediaStore, cfg.MediaCap, logging.Component(logger, "ingest"))
	transformSvc := transform.NewService(repo, translator, rewriter, encoder, transform.Options{
		BatchSize:      cfg.TransformBatchSize,
		TargetLanguage: cfg.TargetLanguage,
		UseTranslation: appCfg.Settings.UseTranslation,
		UseRewrite:     appCfg.Settings.UseRewrite,
		Semantic: dedup.SemanticOptions{
			Threshold:         appCfg.Settings.DubThreshold,
			Window:            appCfg.DedupWindow(),
			MinParagraphWords: cfg.DedupMinParagraphWords,
		},
	}, logging.Component(logger, "transform"))

	sender := publish.NewSender(client, cfg.SendMinDelay, logger)
	renderer := publish.NewRenderer(sender, mediaStore, logger)
	queueChat := appCfg.TelegramChannels.SuggestedChatID
	queue := publish.NewQueue(repo, renderer, queueChat, moderation.QueueKeyboard, logger)

	locks := moderation.NewLockManager()
	machine, err := moderation.NewMachine(moderation.Deps{
		Locks:    locks,
		Store:    repo,
		Renderer: renderer,
		Media:    mediaStore,
	}, moderation.Config{
		QueueChatID: queueChat,
		ChannelFor:  appCfg.ChannelForTopic,
		MediaCap:    cfg.MediaCap,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build moderation machine: %w", err)
	}

	pipeline, err := orchestrator.NewPipeline(orchestrator.Stages{
		Scrape:    scrape,
		Ingest:    ingestSvc,
		Transform: transformSvc,
		Queue:     queue,
		Settings:  repo,
	}, orchestrator.Options{
		FirstRun:       appCfg.Settings.FirstRun,
		QueueBatchSize: cfg.QueueBatchSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	return &desk{
		repo:     repo,
		locks:    locks,
		machine:  machine,
		pipeline: pipeline,
	}, nil
}
