package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"horse.fit/newsdesk/internal/chat"
	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/httpapi"
	"horse.fit/newsdesk/internal/logging"
	"horse.fit/newsdesk/internal/moderation"
	"horse.fit/newsdesk/internal/orchestrator"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8090, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	noAPI := fs.Bool("no-api", false, "Do not start the admin HTTP API")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := validatePort(*port, "--port"); err != nil {
		fmt.Fprintln(os.Stderr, err)
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
		logger.Error().Err(err).Msg("serve failed to connect to database")
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

	stop := orchestrator.NewStopToken()
	scheduler := orchestrator.NewScheduler(d.pipeline, appCfg.PollInterval(), stop, logger)
	bot := moderation.NewBot(d.machine, client, d.repo, appCfg.Reviewers(), logging.Component(logger, "bot"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			logger.Info().Msg("shutdown requested, finishing the current cycle")
			stop.Stop()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	// The scheduler owns shutdown: when it returns, the bot and the API stop too.
	g.Go(func() error {
		defer cancel()
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("bot: %w", err)
		}
		return nil
	})
	if !*noAPI {
		srv := httpapi.NewServer(httpapi.Deps{
			Stats:  d.repo,
			Locks:  d.locks,
			Cycles: scheduler,
			Health: pool,
		}, logging.Component(logger, "httpapi"), httpapi.Options{
			Host:            *host,
			Port:            *port,
			ReadTimeout:     *readTimeout,
			WriteTimeout:    *writeTimeout,
			ShutdownTimeout: *shutdownTimeout,
			AdminTokenHash:  cfg.AdminTokenHash,
		})
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	logger.Info().
		Dur("poll_interval", appCfg.PollInterval()).
		Int("sources", len(appCfg.Sources())).
		Int("reviewers", len(appCfg.Reviewers())).
		Msg("newsdesk started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("serve failed")
		fmt.Fprintf(os.Stderr, "Serve failed: %v\n", err)
		return 1
	}
	logger.Info().Msg("newsdesk stopped")
	return 0
}
