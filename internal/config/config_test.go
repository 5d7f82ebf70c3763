package config

import (
	"testing"
	"time"
)

const sampleApp = `
telegram_channels:
  suggested_chat_id: -100100
  publish_chat_id: -100200
  topics:
    auto: -100300
users:
  prog_ids: [11, 12]
  admin_ids: [12, 13]
settings:
  first_run: false
  dub_hours_threshold: 12
source_map:
  auto:
    - class: Kolesa
      url: https://www.kolesa.ru/news
  design:
    - class: html
      url: https://www.wallpaper.com/design
`

func TestParseAppAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := ParseApp([]byte(sampleApp))
	if err != nil {
		t.Fatalf("ParseApp: %v", err)
	}

	if cfg.Settings.FirstRun {
		t.Fatalf("expected first_run=false from file")
	}
	if !cfg.Settings.UseRewrite {
		t.Fatalf("expected use_rewrite default true")
	}
	if cfg.PollInterval() != 900*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.Settings.DubThreshold != 0.90 {
		t.Fatalf("unexpected dub threshold: %f", cfg.Settings.DubThreshold)
	}
	if cfg.DedupWindow() != 12*time.Hour {
		t.Fatalf("unexpected dedup window: %s", cfg.DedupWindow())
	}
}

func TestAppConfigRouting(t *testing.T) {
	t.Parallel()

	cfg, err := ParseApp([]byte(sampleApp))
	if err != nil {
		t.Fatalf("ParseApp: %v", err)
	}

	if got := cfg.ChannelForTopic("auto"); got != -100300 {
		t.Fatalf("unexpected topic channel: %d", got)
	}
	if got := cfg.ChannelForTopic("design"); got != -100200 {
		t.Fatalf("expected publish_chat_id fallback, got %d", got)
	}

	reviewers := cfg.Reviewers()
	if len(reviewers) != 3 {
		t.Fatalf("expected deduplicated reviewers, got %v", reviewers)
	}

	sources := cfg.Sources()
	if len(sources) != 2 {
		t.Fatalf("unexpected sources: %+v", sources)
	}
	if sources[0].Topic != "auto" || sources[0].Class != "kolesa" {
		t.Fatalf("unexpected first source: %+v", sources[0])
	}
}

func TestParseAppRejectsMissingReviewers(t *testing.T) {
	t.Parallel()

	_, err := ParseApp([]byte(`
telegram_channels:
  suggested_chat_id: -1
users: {}
`))
	if err == nil {
		t.Fatalf("expected error without reviewers")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{
		DatabaseURL:        "postgres://localhost/newsdesk",
		DBMinConns:         1,
		DBMaxConns:         4,
		TargetLanguage:     "ru",
		MediaDir:           "media",
		MediaCap:           10,
		QueueBatchSize:     5,
		TransformBatchSize: 50,
		ScrapeConcurrency:  2,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg.MediaCap = 11
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected MEDIA_CAP above album limit to fail")
	}
}
