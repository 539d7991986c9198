// Package server provides the HTTP server for the neongrid control panel.
//
// The server exposes a REST API to start, stop and observe simulated
// operations, a websocket live feed and a Prometheus scrape endpoint.
//
// # Endpoints
//
//   - GET /health - Simple health check, returns "ok"
//   - GET /api/status - Running flag, active run, cumulative stats, next scheduled run
//   - GET /api/kinds - Every operation kind with its effective config
//   - POST /api/operations - Starts an operation
//   - POST /api/operations/stop - Stops the active operation
//   - GET /api/history - Finished runs, most recent first
//   - GET /api/history/{id}/logs - Captured log entries of one run
//   - GET /api/activity - Activity feed, newest first
//   - GET /api/schedules - Configured schedules
//   - GET /config - Returns current configuration as YAML
//   - POST /reload - Reloads configuration from disk
//   - GET /ws - Websocket live feed
//   - GET /metrics - Prometheus metrics
//
// # Reloading
//
// The config is swapped atomically on reload. Operation settings and the
// log level take effect immediately; every run reads the config it starts
// with. Listener, history sizes and schedules are read once at startup.
//
// # Example
//
//	srv, err := server.New("/etc/neongrid/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nomis52/neongrid/buildinfo"
	"github.com/nomis52/neongrid/config"
	"github.com/nomis52/neongrid/logging"
	"github.com/nomis52/neongrid/metrics"
	"github.com/nomis52/neongrid/server/cron"
	"github.com/nomis52/neongrid/server/handlers"
	"github.com/nomis52/neongrid/server/hub"
	"github.com/nomis52/neongrid/server/runner"
	"github.com/nomis52/neongrid/server/types"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Server is the HTTP server for the neongrid control panel.
type Server struct {
	addr         string
	configPath   string
	logger       *logging.Logger
	config       atomic.Pointer[config.Config]
	startedAt    time.Time
	hostname     string
	scrape       *metrics.ScrapeRegistry
	push         *metrics.PushRegistry
	pushInterval time.Duration
	hub          *hub.Hub
	runner       *runner.Runner
	cron         *cron.CronTriggerManager
	limiter      *rate.Limiter
}

// Option configures a Server.
type Option func(*Server) error

// WithListenAddr overrides the address from the config file.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// New loads the config at configPath and creates a Server.
func New(configPath string, opts ...Option) (*Server, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return newServer(cfg, configPath, opts...)
}

func newServer(cfg *config.Config, configPath string, opts ...Option) (*Server, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	s := &Server{
		addr:         cfg.Listener.Addr,
		configPath:   configPath,
		logger:       logger,
		startedAt:    time.Now(),
		hostname:     hostname,
		pushInterval: cfg.Monitoring.PushInterval,
		hub:          hub.New(logger.Logger),
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst),
	}
	s.config.Store(cfg)

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.scrape, err = metrics.NewScrapeRegistry(cfg.Monitoring.MetricsPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}
	opMetrics, err := metrics.NewOperationMetrics(s.scrape)
	if err != nil {
		return nil, fmt.Errorf("registering operation metrics: %w", err)
	}

	runnerOpts := []runner.Option{
		runner.WithMetrics(opMetrics),
		runner.WithSink(s.hub),
		runner.WithNotifier(s.hub),
	}

	if cfg.Monitoring.PushURL != "" {
		s.push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.PushURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
		})
		pushMetrics, err := metrics.NewOperationMetrics(s.push)
		if err != nil {
			return nil, fmt.Errorf("registering push metrics: %w", err)
		}
		runnerOpts = append(runnerOpts, runner.WithMetrics(pushMetrics))
	}

	s.runner = runner.New(logger.Logger, s, runnerOpts...)

	s.cron, err = cron.NewCronTriggerManager(cfg.Schedules, s.runner, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating schedules: %w", err)
	}

	return s, nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger.Logger
}

// Runner returns the operation runner.
func (s *Server) Runner() *runner.Runner {
	return s.runner
}

// Reload reads the config from disk and swaps it in.
func (s *Server) Reload() error {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return err
	}
	if err := s.logger.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}

	s.config.Store(cfg)
	s.limiter.SetLimit(rate.Limit(cfg.RateLimit.RequestsPerSecond))
	s.limiter.SetBurst(cfg.RateLimit.Burst)

	s.logger.Info("configuration loaded", "config_path", s.configPath)
	return nil
}

// Config returns the current configuration.
func (s *Server) Config() *config.Config {
	return s.config.Load()
}

// NextRun returns the next scheduled run time, or nil if nothing is scheduled.
func (s *Server) NextRun() *time.Time {
	next := s.cron.NextRun()
	if next.IsZero() {
		return nil
	}
	return &next
}

// Status returns the runner status.
func (s *Server) Status() runner.Status {
	return s.runner.Status()
}

// Properties returns metadata about this server instance.
func (s *Server) Properties() types.ServerProperties {
	return types.ServerProperties{
		Build:            buildinfo.Get(),
		StartedAt:        s.startedAt,
		Hostname:         s.hostname,
		WebsocketClients: s.hub.ClientCount(),
	}
}

// Handler returns the router serving every endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.HandleHealth)
	r.Method(http.MethodGet, "/config", handlers.NewConfigHandler(s))
	r.Method(http.MethodGet, "/metrics", s.scrape.Handler())
	r.Method(http.MethodGet, "/ws", s.hub)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/status", handlers.NewAPIStatusHandler(s))
		r.Method(http.MethodGet, "/kinds", handlers.NewKindsHandler(s.runner))
		r.Method(http.MethodGet, "/history", handlers.NewHistoryHandler(s.runner))
		r.Method(http.MethodGet, "/history/{id}/logs", handlers.NewHistoryLogsHandler(s.runner))
		r.Method(http.MethodGet, "/activity", handlers.NewActivityHandler(s.runner))
		r.Method(http.MethodGet, "/schedules", handlers.NewSchedulesHandler(s.cron))

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(s.limiter))
			r.Method(http.MethodPost, "/operations", handlers.NewStartHandler(s.runner))
			r.Method(http.MethodPost, "/operations/stop", handlers.NewStopHandler(s.runner))
		})
	})

	r.With(rateLimit(s.limiter)).Method(http.MethodPost, "/reload", handlers.NewReloadHandler(s.logger.Logger, s))

	return r
}

// Run starts the HTTP server, the websocket hub and the schedules, and
// blocks until ctx is cancelled or one of them fails. An active operation
// is stopped on shutdown.
func (s *Server) Run(ctx context.Context) error {
	defer s.logger.Close()

	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.Run(gctx)
	})

	g.Go(func() error {
		return s.cron.Run(gctx)
	})

	if s.push != nil {
		g.Go(func() error {
			s.pushLoop(gctx)
			return nil
		})
	}

	g.Go(func() error {
		s.logger.Info("starting server",
			"addr", s.addr,
			"config_path", s.configPath,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")
		s.runner.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// pushLoop flushes pushed metrics every pushInterval and once more on exit.
func (s *Server) pushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		if err := s.push.Flush(ctx); err != nil {
			s.logger.Warn("failed to push metrics", "error", err)
		}
	}

	for {
		select {
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			flush(finalCtx)
			cancel()
			return
		}
	}
}

// rateLimit rejects requests with 429 once the limiter is exhausted.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
