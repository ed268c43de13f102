package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daniel/reach-sync/internal/config"
	httpcontroller "github.com/daniel/reach-sync/internal/controller/http"
	"github.com/daniel/reach-sync/internal/database"
	"github.com/daniel/reach-sync/internal/domain/report/dao"
	"github.com/daniel/reach-sync/internal/domain/report/policy"
	"github.com/daniel/reach-sync/internal/domain/report/scheduler"
	sheetsvc "github.com/daniel/reach-sync/internal/domain/sheet/service"
	"github.com/daniel/reach-sync/internal/httpx/upstream/gsheets"
	"github.com/daniel/reach-sync/internal/httpx/upstream/heyreach"
	"github.com/daniel/reach-sync/internal/metrics"
	"github.com/daniel/reach-sync/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	pool         *pgxpool.Pool
	upstream     *heyreach.Client
	reportPolicy *policy.Policy
	runHistory   *dao.RunPostgres
	scheduler    *scheduler.Scheduler
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	if err := app.initDomains(ctx); err != nil {
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	app.registerRoutes()

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Scheduler.Enabled {
		app.scheduler = scheduler.New(
			&pipelineRunnerAdapter{policy: app.reportPolicy},
			scheduler.Config{
				Interval:   cfg.Scheduler.Interval,
				WindowDays: cfg.Scheduler.WindowDays,
			},
			logger,
		)
	}

	return app, nil
}

// initDomains wires the upstream clients, optional persistence and the
// pipeline policy together
func (a *App) initDomains(ctx context.Context) error {
	hrClient := heyreach.New(a.cfg.HeyReach.APIKey,
		heyreach.WithBaseURL(a.cfg.HeyReach.BaseURL),
	)
	a.upstream = hrClient
	fetcher := heyreach.NewFetcher(hrClient, a.cfg.HeyReach.Workers, a.logger)

	senders, err := newSenderSource(hrClient, a.cfg.HeyReach)
	if err != nil {
		return err
	}
	resolver, err := newGroupResolver(a.cfg.HeyReach, a.cfg.Sheets.DefaultWorksheet)
	if err != nil {
		return err
	}

	sheetStore := gsheets.New(a.cfg.Sheets.SpreadsheetID, a.cfg.Sheets.AccessToken,
		gsheets.WithBaseURL(a.cfg.Sheets.BaseURL),
	)
	writePolicy, err := sheetsvc.ParseWritePolicy(a.cfg.Pipeline.WritePolicy)
	if err != nil {
		return err
	}
	reconciler := sheetsvc.NewReconciler(sheetStore, writePolicy, a.cfg.Pipeline.DayTolerance, a.logger)

	// Run history and archiving are optional sinks
	var runStore policy.RunStore
	if a.cfg.Database.PostgresDSN != "" {
		pool, err := database.NewPostgresPool(ctx, a.cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		a.pool = pool
		a.runHistory = dao.NewRunPostgres(pool)
		runStore = a.runHistory
	}

	var archive policy.Archiver
	if a.cfg.S3.Bucket != "" {
		s3Archive, err := storage.NewS3Archive(storage.S3Config{
			Endpoint:        a.cfg.S3.Endpoint,
			AccessKeyID:     a.cfg.S3.AccessKeyID,
			SecretAccessKey: a.cfg.S3.SecretAccessKey,
			Bucket:          a.cfg.S3.Bucket,
			Region:          a.cfg.S3.Region,
		})
		if err != nil {
			return fmt.Errorf("initializing s3 archive: %w", err)
		}
		archive = s3Archive
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.NewPipeline(registry)
	a.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	a.reportPolicy = policy.New(
		senders,
		&metricsFetcherAdapter{fetcher: fetcher},
		resolver,
		reconciler,
		runStore,
		archive,
		pipelineMetrics,
		a.logger,
	)
	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() {
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	a.router.Route("/api/v1", func(r chi.Router) {
		var history httpcontroller.RunHistory
		if a.runHistory != nil {
			history = a.runHistory
		}
		reportHandler := httpcontroller.NewReportHandler(a.reportPolicy, history)
		reportHandler.RegisterRoutes(r)
	})
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler handles readiness check requests; ready means the
// upstream API answers and, when configured, the database does too
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.upstream.Ping(ctx); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"upstream unavailable"}`))
		return
	}
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"database unavailable"}`))
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("shutdown complete")
	return nil
}
