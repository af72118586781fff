package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/pkg/logger"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/aggregate"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/catalog"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/request"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/config"
	rediscache "github.com/baechuer/real-time-ressys/services/event-service/internal/infrastructure/caching/redis"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/infrastructure/stats"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/handlers"
	authmw "github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/router"
)

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now().UTC() }

// App holds the wired service and everything that must be closed on shutdown.
type App struct {
	Config *config.Config
	Server *http.Server
	DB     *sql.DB

	Events *event.Service
	Relay  *postgres.OutboxRelay

	publisher *rabbitmq.Publisher
	consumer  *rabbitmq.Consumer
	cache     *rediscache.Cache
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config load failed")
	}

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		zlog.Info().
			Str("db_user", u.User.Username()).
			Str("db_host", u.Host).
			Str("db_db", u.Path).
			Msg("db config loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("db open failed")
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		zlog.Fatal().Err(err).Msg("schema migration failed")
	}

	app, err := NewApp(ctx, cfg, db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("app wiring failed")
	}
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		zlog.Fatal().Err(err).Msg("background workers failed to start")
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zlog.Info().Msg("shutting down")
	case err := <-errCh:
		zlog.Error().Err(err).Msg("server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func NewApp(ctx context.Context, cfg *config.Config, db *sql.DB) (*App, error) {
	app := &App{Config: cfg, DB: db}
	clock := sysClock{}
	al := audit.Default()

	// 1) Infrastructure
	repo := postgres.New(db)

	var cache ports.Cache
	if cfg.RedisURL != "" {
		c, err := rediscache.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		app.cache = c
		cache = c
		zlog.Info().Msg("redis cache ready")
	} else {
		zlog.Warn().Msg("REDIS_URL empty: event details are not cached")
	}

	statsClient := stats.NewClient(stats.Config{
		BaseURL:      cfg.StatsServerURL,
		ReadTimeout:  cfg.StatsTimeout,
		WriteTimeout: cfg.StatsTimeout,
	})

	if cfg.RabbitURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("rabbit publisher: %w", err)
		}
		app.publisher = p
		zlog.Info().Str("exchange", cfg.RabbitExchange).Msg("rabbit publisher ready")
	} else {
		zlog.Warn().Msg("RABBIT_URL empty: domain events stay in the outbox")
	}
	if cfg.OutboxEnabled && app.publisher != nil {
		app.Relay = postgres.NewOutboxRelay(db, app.publisher, al)
	}

	// 2) Application
	agg := aggregate.New(repo, statsClient, clock)
	events := event.New(event.Deps{
		Tx:         repo,
		Events:     repo,
		Users:      repo,
		Categories: repo,
		Aggregator: agg,
		Stats:      statsClient,
		Cache:      cache,
		Clock:      clock,
		Audit:      al,
		AppName:    cfg.StatsAppName,
		TTLDetails: cfg.CacheTTLDetails,
	})
	requests := request.New(repo, repo, repo, repo, clock, al)
	cat := catalog.New(repo)
	app.Events = events

	if app.publisher != nil && app.cache != nil {
		c, err := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, events)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("rabbit consumer: %w", err)
		}
		app.consumer = c
	}

	// 3) Transport
	handler := router.New(router.Deps{
		Admin:   handlers.NewAdminHandler(events, cat),
		Private: handlers.NewPrivateHandler(events, requests),
		Public:  handlers.NewPublicHandler(events, cat),
		Health:  handlers.NewHealthHandler(db),
		Auth:    authmw.NewAuth(cfg.JWTSecret, cfg.JWTIssuer),
		Config:  cfg,
	})

	app.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
	return app, nil
}

// Start launches the outbox relay and the cache invalidation consumer.
// Both stop when ctx is canceled.
func (a *App) Start(ctx context.Context) error {
	if a.Relay != nil {
		a.Relay.Start(ctx)
		zlog.Info().Msg("outbox relay started")
	}
	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			return fmt.Errorf("consumer start: %w", err)
		}
		zlog.Info().Msg("cache invalidation consumer started")
	}
	return nil
}

func (a *App) Close() {
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
}
