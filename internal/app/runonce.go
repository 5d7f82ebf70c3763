package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/newsdesk/internal/chat"
	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/logging"
	"horse.fit/newsdesk/internal/transform"
)

func runOnce(args []string) int {
	fs := flag.NewFlagSet("run-once", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Minute, "Command timeout")
	modeFlag := fs.String("mode", "", "Run mode override: bootstrap or normal (default: persisted mode)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "run-once does not accept positional arguments")
		return 2
	}

	var mode transform.Mode
	if strings.TrimSpace(*modeFlag) != "" {
		parsed, err := transform.ParseMode(*modeFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --mode: %v\n", err)
			return 2
		}
		mode = parsed
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := cfg.RequireTelegram(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		return 1
	}
	appCfg, err := config.LoadApp(cfg.AppConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load app config: %v\n", err)
		return 1
	}

	pool, err := connectPool(cfg, 10*time.Second)
	if err != nil {
		logger.Error().Err(err).Msg("run-once failed to connect to database")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer pool.Close()

	client, err := chat.NewTelegram(cfg.TelegramToken, logging.Component(logger, "telegram"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to Telegram: %v\n", err)
		return 1
	}
	d, err := newDesk(cfg, appCfg, pool, client, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, runErr := d.pipeline.RunCycle(ctx, mode)
	if outputFormat == outputFormatJSON {
		if err := printJSON(report); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	} else {
		rows := [][]string{
			{"cycle_id", report.ID},
			{"mode", string(report.Mode)},
			{"sources", fmt.Sprintf("%d", report.Sources)},
			{"source_errors", fmt.Sprintf("%d", report.SourceErrors)},
			{"scraped", fmt.Sprintf("%d", report.Scraped)},
			{"raw_saved", fmt.Sprintf("%d", report.Ingest.Saved)},
			{"raw_duplicates", fmt.Sprintf("%d", report.Ingest.Duplicates)},
			{"processed", fmt.Sprintf("%d", report.Transform.Processed)},
			{"semantic_duplicates", fmt.Sprintf("%d", report.Transform.Duplicates)},
			{"queued", fmt.Sprintf("%d", report.Queue.Sent)},
			{"mode_flipped", fmt.Sprintf("%t", report.ModeFlipped)},
		}
		if err := writeTable([]string{"metric", "value"}, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
			return 1
		}
	}

	if runErr != nil {
		logger.Error().Err(runErr).Str("cycle_id", report.ID).Msg("run-once failed")
		fmt.Fprintf(os.Stderr, "Cycle failed: %v\n", runErr)
		return 1
	}
	return 0
}
