package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"NEWSDESK_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"NEWSDESK_DB_MAX_CONNS" default:"8"`

	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`
	AppConfigFile string `envconfig:"APP_CONFIG_FILE" default:"config.yml"`
	MediaDir      string `envconfig:"MEDIA_DIR" default:"media"`

	TargetLanguage      string `envconfig:"TARGET_LANGUAGE" default:"ru"`
	TranslationProvider string `envconfig:"TRANSLATION_PROVIDER" default:"local"`
	TranslationEndpoint string `envconfig:"TRANSLATION_ENDPOINT" default:""`
	TranslationModel    string `envconfig:"TRANSLATION_MODEL" default:""`
	TranslationAPIKey   string `envconfig:"TRANSLATION_API_KEY" default:""`

	RewriteEndpoint string `envconfig:"REWRITE_ENDPOINT" default:"https://api.openai.com/v1"`
	RewriteModel    string `envconfig:"REWRITE_MODEL" default:"gpt-4o-mini"`
	RewriteAPIKey   string `envconfig:"REWRITE_API_KEY" default:""`

	EmbeddingEndpoint string        `envconfig:"EMBEDDING_ENDPOINT" default:"http://127.0.0.1:8844/embed"`
	EmbeddingModel    string        `envconfig:"EMBEDDING_MODEL" default:""`
	EmbeddingTimeout  time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"45s"`

	DedupMinParagraphWords int `envconfig:"DEDUP_MIN_PARAGRAPH_WORDS" default:"5"`

	MediaCap           int           `envconfig:"MEDIA_CAP" default:"10"`
	SendMinDelay       time.Duration `envconfig:"SEND_MIN_DELAY" default:"1s"`
	QueueBatchSize     int           `envconfig:"QUEUE_BATCH_SIZE" default:"20"`
	TransformBatchSize int           `envconfig:"TRANSFORM_BATCH_SIZE" default:"200"`
	ScrapeConcurrency  int           `envconfig:"SCRAPE_CONCURRENCY" default:"4"`

	AdminTokenHash string `envconfig:"ADMIN_TOKEN_HASH" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("NEWSDESK_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("NEWSDESK_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("NEWSDESK_DB_MIN_CONNS (%d) cannot exceed NEWSDESK_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.TargetLanguage) == "" {
		return fmt.Errorf("TARGET_LANGUAGE is required")
	}
	if strings.TrimSpace(c.MediaDir) == "" {
		return fmt.Errorf("MEDIA_DIR is required")
	}
	if c.MediaCap < 1 || c.MediaCap > 10 {
		return fmt.Errorf("MEDIA_CAP must be between 1 and 10")
	}
	if c.DedupMinParagraphWords < 0 {
		return fmt.Errorf("DEDUP_MIN_PARAGRAPH_WORDS must be >= 0")
	}
	if c.SendMinDelay < 0 {
		return fmt.Errorf("SEND_MIN_DELAY must be >= 0")
	}
	if c.QueueBatchSize < 1 {
		return fmt.Errorf("QUEUE_BATCH_SIZE must be >= 1")
	}
	if c.TransformBatchSize < 1 {
		return fmt.Errorf("TRANSFORM_BATCH_SIZE must be >= 1")
	}
	if c.ScrapeConcurrency < 1 {
		return fmt.Errorf("SCRAPE_CONCURRENCY must be >= 1")
	}
	return nil
}

// RequireTelegram is checked by commands that talk to the chat service.
func (c *Config) RequireTelegram() error {
	if c == nil || strings.TrimSpace(c.TelegramToken) == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}
