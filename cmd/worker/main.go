package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-chat/internal/app"
	"github.com/dvloznov/finance-chat/internal/config"
	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/logger"
	"github.com/dvloznov/finance-chat/internal/orchestrator"
)

type processor interface {
	Process(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error)
}

// replier delivers a reply outside the orchestrator, for failed events.
type replier interface {
	Deliver(ctx context.Context, reply domain.ChatResponse)
}

func main() {
	input := flag.String("input", "", "newline-delimited JSON chat events (default stdin)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithOptions(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	var src io.Reader = os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatal().Err(err).Str("input", *input).Msg("Failed to open input")
		}
		defer f.Close()
		src = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	engine, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire engine")
	}

	workerCtx, cancelWorkers := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancelWorkers()
	if err := engine.Start(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start dispatch workers")
	}

	log.Info().Msg("Worker service started, reading chat events...")
	processed, failed := consume(ctx, src, engine.Orchestrator, engine.Dispatcher, log)

	log.Info().Msg("Shutting down worker service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Int("processed", processed).Int("failed", failed).Msg("Worker service exited")
	if failed > 0 {
		os.Exit(1)
	}
}

// consume processes one event per line, in order, until EOF or ctx is done.
// Malformed lines are logged and skipped. When processing fails for a
// well-formed event the user still gets the neutral failure reply.
func consume(ctx context.Context, r io.Reader, proc processor, replies replier, log zerolog.Logger) (processed, failed int) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if ctx.Err() != nil {
			break
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var req domain.ChatRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			log.Error().Err(err).Int("line", line).Msg("Skipping malformed chat event")
			failed++
			continue
		}
		if req.ChatID == "" {
			req.ChatID = req.UserID
		}

		if _, err := proc.Process(ctx, req); err != nil {
			log.Error().Err(err).Int("line", line).Str("user_id", req.UserID).Msg("Chat event failed")
			failed++
			if !errors.Is(err, orchestrator.ErrInvalidRequest) && req.ChatID != "" {
				replies.Deliver(ctx, domain.ChatResponse{ChatID: req.ChatID, Message: orchestrator.FailureReply})
			}
			continue
		}
		processed++
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Reading chat events failed")
	}
	return processed, failed
}
