package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/finance-chat/internal/api"
	"github.com/dvloznov/finance-chat/internal/api/handlers"
	"github.com/dvloznov/finance-chat/internal/app"
	"github.com/dvloznov/finance-chat/internal/config"
	"github.com/dvloznov/finance-chat/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewWithOptions(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	engine, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire engine")
	}

	// Dispatch workers outlive the signal context so queued jobs can drain.
	workerCtx, cancelWorkers := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancelWorkers()
	if err := engine.Start(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start dispatch workers")
	}

	router := api.NewRouter(api.Deps{
		Chat:      handlers.NewChatHandler(engine.Orchestrator, log),
		Users:     handlers.NewUsersHandler(engine.Profiles, log),
		Jobs:      handlers.NewJobsHandler(engine.Jobs, log),
		Metrics:   promhttp.Handler(),
		AuthToken: cfg.AuthToken,
		Log:       log,
	})
	if cfg.AuthToken == "" {
		log.Warn().Msg("API_AUTH_TOKEN not set - /api endpoints are unauthenticated")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.Interpreter.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := engine.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping engine")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited")
}
