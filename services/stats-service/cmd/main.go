package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/pkg/logger"
	"github.com/baechuer/real-time-ressys/services/stats-service/internal/api"
	"github.com/baechuer/real-time-ressys/services/stats-service/internal/api/handlers"
	"github.com/baechuer/real-time-ressys/services/stats-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/stats-service/internal/infrastructure/postgres"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config load failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("db open failed")
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		zlog.Fatal().Err(err).Msg("schema migration failed")
	}

	hits := handlers.NewHitHandler(postgres.NewHitRepo(pool))
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(hits, pool),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info().Str("addr", cfg.HTTPAddr).Msg("stats-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error().Err(err).Msg("server crashed")
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("graceful shutdown failed")
	}
}
