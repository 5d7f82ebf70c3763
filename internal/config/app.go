package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"horse.fit/newsdesk/internal/payloadschema"
)

// AppConfig is the operator-maintained YAML file: chats, reviewers, pipeline settings and sources.
type AppConfig struct {
	TelegramChannels TelegramChannels        `yaml:"telegram_channels"`
	Users            Users                   `yaml:"users"`
	Settings         Settings                `yaml:"settings"`
	SourceMap        map[string][]SourceSpec `yaml:"source_map"`
}

type TelegramChannels struct {
	SuggestedChatID int64            `yaml:"suggested_chat_id"`
	PublishChatID   int64            `yaml:"publish_chat_id"`
	Topics          map[string]int64 `yaml:"topics"`
}

type Users struct {
	ProgIDs  []int64 `yaml:"prog_ids"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

type Settings struct {
	FirstRun          bool    `yaml:"first_run"`
	UseRewrite        bool    `yaml:"use_rewrite"`
	UseTranslation    bool    `yaml:"use_translation"`
	PollInterval      int     `yaml:"poll_interval"`
	DubThreshold      float64 `yaml:"dub_threshold"`
	DubHoursThreshold int     `yaml:"dub_hours_threshold"`
}

// SourceSpec binds one connector class to a listing URL.
type SourceSpec struct {
	Class string `yaml:"class" json:"class"`
	URL   string `yaml:"url" json:"url"`
	Topic string `yaml:"-" json:"topic"`
}

func defaultSettings() Settings {
	return Settings{
		FirstRun:          true,
		UseRewrite:        true,
		UseTranslation:    true,
		PollInterval:      900,
		DubThreshold:      0.90,
		DubHoursThreshold: 6,
	}
}

// LoadApp reads, schema-validates and decodes the app config file.
func LoadApp(path string) (*AppConfig, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("app config path is required")
	}
	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read app config %s: %w", trimmed, err)
	}
	return ParseApp(raw)
}

func ParseApp(raw []byte) (*AppConfig, error) {
	if err := payloadschema.ValidateAppConfigYAML(raw); err != nil {
		return nil, err
	}

	cfg := AppConfig{Settings: defaultSettings()}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode app config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	if c.TelegramChannels.SuggestedChatID == 0 {
		return fmt.Errorf("telegram_channels.suggested_chat_id is required")
	}
	if len(c.Users.ProgIDs)+len(c.Users.AdminIDs) == 0 {
		return fmt.Errorf("users must list at least one reviewer id")
	}
	if c.Settings.PollInterval < 1 {
		return fmt.Errorf("settings.poll_interval must be >= 1")
	}
	if c.Settings.DubThreshold <= 0 || c.Settings.DubThreshold > 1 {
		return fmt.Errorf("settings.dub_threshold must be in (0, 1]")
	}
	if c.Settings.DubHoursThreshold < 1 {
		return fmt.Errorf("settings.dub_hours_threshold must be >= 1")
	}
	for topic, specs := range c.SourceMap {
		if strings.TrimSpace(topic) == "" {
			return fmt.Errorf("source_map contains an empty topic")
		}
		for i, spec := range specs {
			if strings.TrimSpace(spec.Class) == "" {
				return fmt.Errorf("source_map.%s[%d].class is required", topic, i)
			}
			if strings.TrimSpace(spec.URL) == "" {
				return fmt.Errorf("source_map.%s[%d].url is required", topic, i)
			}
		}
	}
	return nil
}

func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.Settings.PollInterval) * time.Second
}

func (c *AppConfig) DedupWindow() time.Duration {
	return time.Duration(c.Settings.DubHoursThreshold) * time.Hour
}

// ChannelForTopic resolves the publish chat for a topic, falling back to publish_chat_id.
func (c *AppConfig) ChannelForTopic(topic string) int64 {
	if chatID, ok := c.TelegramChannels.Topics[strings.TrimSpace(topic)]; ok && chatID != 0 {
		return chatID
	}
	return c.TelegramChannels.PublishChatID
}

// Reviewers returns the union of programmer and admin ids.
func (c *AppConfig) Reviewers() []int64 {
	seen := make(map[int64]struct{}, len(c.Users.ProgIDs)+len(c.Users.AdminIDs))
	ids := make([]int64, 0, len(c.Users.ProgIDs)+len(c.Users.AdminIDs))
	for _, group := range [][]int64{c.Users.ProgIDs, c.Users.AdminIDs} {
		for _, id := range group {
			if _, exists := seen[id]; exists {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// Sources flattens source_map into a stable, topic-tagged list.
func (c *AppConfig) Sources() []SourceSpec {
	topics := make([]string, 0, len(c.SourceMap))
	for topic := range c.SourceMap {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	out := make([]SourceSpec, 0)
	for _, topic := range topics {
		for _, spec := range c.SourceMap[topic] {
			spec.Topic = topic
			spec.Class = strings.ToLower(strings.TrimSpace(spec.Class))
			spec.URL = strings.TrimSpace(spec.URL)
			out = append(out, spec)
		}
	}
	return out
}
