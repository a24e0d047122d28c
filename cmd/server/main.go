package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veritok/internal/ledger"
	"veritok/internal/platform/config"
	"veritok/internal/platform/database"
	"veritok/internal/platform/health"
	"veritok/internal/platform/kafka"
	"veritok/internal/platform/logger"
	platformmetrics "veritok/internal/platform/metrics"
	"veritok/internal/platform/middleware"
	"veritok/internal/platform/redis"
	"veritok/internal/session/events"
	"veritok/internal/session/handler"
	"veritok/internal/session/intake"
	"veritok/internal/session/store"
	"veritok/internal/session/workers/cleanup"
	"veritok/internal/verify/dispatch"
	verifymetrics "veritok/internal/verify/metrics"
	"veritok/internal/verify/service"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing veritok",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDependencies(cfg, log)
	if err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer deps.close()

	verifier, err := service.New(deps.sessions, deps.ledger, log, service.WithMetrics(verifymetrics.New()))
	if err != nil {
		log.Error("verification service init failed", "error", err)
		os.Exit(1)
	}

	dispatcher, err := dispatch.New(verifier, log,
		dispatch.WithWorkers(cfg.Verify.Workers),
		dispatch.WithQueueSize(cfg.Verify.QueueSize),
	)
	if err != nil {
		log.Error("dispatcher init failed", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := dispatcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("dispatcher stopped", "error", err)
		}
	}()

	if deps.redis != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					deps.redis.RecordPoolStats()
				}
			}
		}()
	}

	janitor, err := cleanup.New(deps.sessions, cleanup.WithLogger(log))
	if err != nil {
		log.Error("cleanup worker init failed", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := janitor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("cleanup worker stopped", "error", err)
		}
	}()

	intakeSvc, err := intake.New(deps.sessions, dispatcher, log, cfg.Verify.SessionTTL)
	if err != nil {
		log.Error("intake service init failed", "error", err)
		os.Exit(1)
	}

	if cfg.Kafka.Brokers != "" {
		consumer, err := kafka.New(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   cfg.Kafka.Topic,
		}, events.New(intakeSvc, log), log)
		if err != nil {
			log.Error("kafka consumer init failed", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("kafka consumer stopped", "error", err)
			}
		}()
		log.Info("kafka consumer started", "topic", cfg.Kafka.Topic)
	}

	router := buildRouter(cfg, log, deps, intakeSvc)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// dependencies groups the storage and ledger backends along with their
// health checks and shutdown hooks.
type dependencies struct {
	sessions store.Store
	ledger   *ledger.Client
	redis    *redis.Client
	checks   map[string]health.CheckFunc
	closers  []func()
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildDependencies selects the session backend (postgres when DATABASE_URL is
// set, redis when REDIS_URL is set, in-memory otherwise) and connects the
// ledger client.
func buildDependencies(cfg config.Config, log *slog.Logger) (*dependencies, error) {
	deps := &dependencies{checks: make(map[string]health.CheckFunc)}

	switch {
	case cfg.Database.URL != "":
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.Database.URL
		pool, err := database.New(dbCfg)
		if err != nil {
			return nil, err
		}
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pool.Migrate(migrateCtx); err != nil {
			pool.Close() //nolint:errcheck
			return nil, err
		}
		deps.sessions = store.NewPostgres(pool.DB())
		deps.checks["database"] = probe(pool.Health)
		deps.closers = append(deps.closers, func() { pool.Close() }) //nolint:errcheck
		log.Info("using postgres session store")
	case cfg.Redis.URL != "":
		client, err := redis.New(cfg.Redis)
		if err != nil {
			return nil, err
		}
		deps.sessions = store.NewRedis(client.Client)
		deps.redis = client
		deps.checks["redis"] = probe(client.Health)
		deps.closers = append(deps.closers, func() { client.Close() }) //nolint:errcheck
		log.Info("using redis session store")
	default:
		deps.sessions = store.NewMemory()
		log.Info("using in-memory session store")
	}

	ledgerClient, err := ledger.New(cfg.Ledger, log)
	if err != nil {
		return nil, err
	}
	deps.ledger = ledgerClient
	deps.checks["ledger"] = probe(ledgerClient.Health)

	return deps, nil
}

// probe bounds a context-aware health check for the health handler.
func probe(check func(context.Context) error) health.CheckFunc {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return check(ctx)
	}
}

func buildRouter(cfg config.Config, log *slog.Logger, deps *dependencies, intakeSvc *intake.Service) http.Handler {
	r := chi.NewRouter()
	httpMetrics := platformmetrics.New()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Instrument(httpMetrics))
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := health.New(cfg.Server.Environment)
	for name, check := range deps.checks {
		healthHandler.RegisterCheck(name, check)
	}
	healthHandler.Register(r)

	r.Handle("/metrics", promhttp.Handler())

	sessionHandler := handler.New(intakeSvc, deps.sessions, log)
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.WebhookAuth(cfg.Server.WebhookSecret, log, httpMetrics))
		sessionHandler.Register(r)
	})

	return r
}
