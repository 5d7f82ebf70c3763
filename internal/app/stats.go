package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/db"
	"horse.fit/newsdesk/internal/news"
	"horse.fit/newsdesk/internal/transform"
)

type statsOutput struct {
	Mode  string          `json:"mode"`
	Queue news.QueueStats `json:"queue"`
}

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	cfg, _, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	pool, err := connectPool(cfg, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	repo := db.NewRepository(pool)
	stats, err := repo.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query pipeline stats: %v\n", err)
		return 1
	}
	mode, ok, err := repo.GetSetting(ctx, transform.ModeSettingKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query run mode: %v\n", err)
		return 1
	}
	if !ok {
		mode = "unset"
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(statsOutput{Mode: mode, Queue: stats}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := [][]string{
		{"run_mode", mode},
		{"raw", fmt.Sprintf("%d", stats.Raw)},
		{"pending_raw", fmt.Sprintf("%d", stats.PendingRaw)},
		{"processed", fmt.Sprintf("%d", stats.Processed)},
		{"candidates", fmt.Sprintf("%d", stats.Candidates)},
		{"duplicates", fmt.Sprintf("%d", stats.Duplicates)},
		{"bootstrapped", fmt.Sprintf("%d", stats.Bootstrapped)},
		{"awaiting_queue", fmt.Sprintf("%d", stats.AwaitingQueue)},
		{"in_queue", fmt.Sprintf("%d", stats.InQueue)},
		{"confirmed", fmt.Sprintf("%d", stats.Confirmed)},
		{"rejected", fmt.Sprintf("%d", stats.Rejected)},
	}
	if err := writeTable([]string{"metric", "value"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render stats table: %v\n", err)
		return 1
	}
	return 0
}
