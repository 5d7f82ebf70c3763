package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/auth"
	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/moderation"
	"horse.fit/newsdesk/internal/news"
	"horse.fit/newsdesk/internal/orchestrator"
)

type StatsSource interface {
	Stats(ctx context.Context) (news.QueueStats, error)
}

type LockSource interface {
	Snapshot() []moderation.Lock
}

type CycleControl interface {
	Trigger() bool
	Last() (orchestrator.CycleReport, bool)
	Running() bool
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps are the live components the admin API reads from.
type Deps struct {
	Stats  StatsSource
	Locks  LockSource
	Cycles CycleControl
	Health HealthChecker
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// AdminTokenHash is the bcrypt hash of the bearer token. When empty every
	// protected request is refused.
	AdminTokenHash  string
}

type Server struct {
	deps   Deps
	logger zerolog.Logger
	opts   Options
}

type statsResponse struct {
	Queue     news.QueueStats           `json:"queue"`
	Running   bool                      `json:"cycle_running"`
	LastCycle *orchestrator.CycleReport `json:"last_cycle,omitempty"`
}

func NewServer(deps Deps, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		deps:   deps,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AdminTokenHash:  strings.TrimSpace(opts.AdminTokenHash),
		},
	}
}

// Handler builds the echo instance with middleware and routes attached.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", echo.HeaderAuthorization},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)

	admin := api.Group("", s.requireAdmin)
	admin.GET("/stats", s.handleStats)
	admin.GET("/locks", s.handleLocks)
	admin.POST("/cycles", s.handleTriggerCycle)

	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	if s.opts.AdminTokenHash == "" {
		s.logger.Warn().Msg("admin token hash is not configured, protected routes will refuse every request")
	}
	s.logger.Info().Str("addr", addr).Msg("admin api started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("admin api stopped")
	return nil
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return fail(c, http.StatusUnauthorized, "Authentication required", nil)
		}
		if !auth.VerifyToken(token, s.opts.AdminTokenHash) {
			return fail(c, http.StatusUnauthorized, "Invalid token", nil)
		}
		return next(c)
	}
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(c.Request().Context()); err != nil {
			s.logger.Error().Err(err).Msg("health check failed")
			return fail(c, http.StatusServiceUnavailable, "Database unavailable", nil)
		}
	}
	return success(c, map[string]any{
		"service": "newsdesk",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	if s.deps.Stats == nil {
		return internalError(c, "Stats are not available")
	}
	stats, err := s.deps.Stats.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}

	resp := statsResponse{Queue: stats}
	if s.deps.Cycles != nil {
		resp.Running = s.deps.Cycles.Running()
		if last, ok := s.deps.Cycles.Last(); ok {
			resp.LastCycle = &last
		}
	}
	return success(c, resp)
}

func (s *Server) handleLocks(c echo.Context) error {
	locks := []moderation.Lock{}
	if s.deps.Locks != nil {
		locks = append(locks, s.deps.Locks.Snapshot()...)
	}
	return success(c, map[string]any{"locks": locks})
}

func (s *Server) handleTriggerCycle(c echo.Context) error {
	if s.deps.Cycles == nil {
		return fail(c, http.StatusConflict, "Scheduler is not running", nil)
	}
	return successWithStatus(c, http.StatusAccepted, map[string]any{
		"triggered": s.deps.Cycles.Trigger(),
	})
}
