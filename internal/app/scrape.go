package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/scraper"
)

type scrapeOutput struct {
	Topic string         `json:"topic"`
	Class string         `json:"class"`
	URL   string         `json:"url"`
	Error string         `json:"error,omitempty"`
	Items []scraper.Item `json:"items"`
}

// runScrape runs the configured connectors and prints what they return without storing anything.
func runScrape(args []string) int {
	fs := flag.NewFlagSet("scrape", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	topic := fs.String("topic", "", "Only scrape sources of this topic")
	class := fs.String("class", "", "Only scrape sources of this connector class")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "scrape does not accept positional arguments")
		return 2
	}

	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	appCfg, err := config.LoadApp(cfg.AppConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load app config: %v\n", err)
		return 1
	}

	sources := filterSources(appCfg.Sources(), *topic, *class)
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "No sources match the given filters")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	registry := newScraperRegistry(cfg, logger)
	batches := scraper.RunSources(ctx, registry, sources, cfg.ScrapeConcurrency, logger)

	out := make([]scrapeOutput, 0, len(batches))
	failed := 0
	for _, batch := range batches {
		entry := scrapeOutput{
			Topic: batch.Source.Topic,
			Class: batch.Source.Class,
			URL:   batch.Source.URL,
			Items: batch.Items,
		}
		if entry.Items == nil {
			entry.Items = []scraper.Item{}
		}
		if batch.Err != nil {
			entry.Error = batch.Err.Error()
			failed++
		}
		out = append(out, entry)
	}
	if err := printJSON(out); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	if failed == len(batches) {
		return 1
	}
	return 0
}

func filterSources(sources []config.SourceSpec, topic, class string) []config.SourceSpec {
	topic = strings.TrimSpace(topic)
	class = strings.ToLower(strings.TrimSpace(class))
	out := make([]config.SourceSpec, 0, len(sources))
	for _, source := range sources {
		if topic != "" && source.Topic != topic {
			continue
		}
		if class != "" && source.Class != class {
			continue
		}
		out = append(out, source)
	}
	return out
}
