// Package app wires configuration into a running engine: profile store,
// interpreter, orchestrator and the dispatch queue with its sinks.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-chat/internal/config"
	"github.com/dvloznov/finance-chat/internal/dispatch"
	infraBQ "github.com/dvloznov/finance-chat/internal/infra/bigquery"
	"github.com/dvloznov/finance-chat/internal/interpreter"
	"github.com/dvloznov/finance-chat/internal/jobs/inmemory"
	"github.com/dvloznov/finance-chat/internal/notionsync"
	"github.com/dvloznov/finance-chat/internal/orchestrator"
	"github.com/dvloznov/finance-chat/internal/store"
)

// App is a fully wired engine.
type App struct {
	Config       *config.Config
	Log          zerolog.Logger
	Profiles     store.ProfileStore
	Orchestrator *orchestrator.Orchestrator
	Queue        *inmemory.Queue
	Jobs         *inmemory.Store
	Handler      *dispatch.Handler
	Dispatcher   *dispatch.QueueDispatcher

	closers []func() error
}

// Option customises New.
type Option func(*options)

type options struct {
	model    interpreter.Model
	profiles store.ProfileStore
}

// WithModel replaces the configured language model backend.
func WithModel(m interpreter.Model) Option {
	return func(o *options) { o.model = m }
}

// WithProfiles replaces the configured profile store.
func WithProfiles(p store.ProfileStore) Option {
	return func(o *options) { o.profiles = p }
}

// New builds an App from cfg. The dispatch queue is not started; call Start.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Log: log}

	a.Profiles = o.profiles
	if a.Profiles == nil {
		profiles, err := store.New(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("app.New: profile store: %w", err)
		}
		a.Profiles = profiles
	}
	a.closers = append(a.closers, a.Profiles.Close)

	model := o.model
	if model == nil {
		m, err := interpreter.NewModel(ctx, cfg.Interpreter)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.New: interpreter: %w", err)
		}
		model = m
	}
	interp := interpreter.New(model, cfg.Interpreter.Timeout)

	ledgerSink, err := a.ledgerSink(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Handler = dispatch.NewHandler(ledgerSink, a.replySink())

	a.Jobs = inmemory.NewStore()
	a.Queue = inmemory.NewQueue(cfg.Dispatch.QueueSize, a.Jobs,
		inmemory.WithWorkers(cfg.Dispatch.Workers),
		inmemory.WithMaxRetries(cfg.Dispatch.MaxRetries),
	)

	a.Dispatcher = dispatch.NewQueueDispatcher(a.Queue)
	a.Orchestrator = orchestrator.New(a.Profiles, interp, interp, a.Dispatcher, a.Dispatcher,
		orchestrator.OptionsFromConfig(cfg.Engine))

	log.Info().
		Str("store", cfg.Store.Kind).
		Str("provider", cfg.Interpreter.Provider).
		Strs("ledger_sinks", cfg.Ledger.Sinks).
		Bool("dry_run", cfg.Ledger.DryRun).
		Bool("telegram", cfg.Telegram.BotToken != "").
		Msg("engine wired")

	return a, nil
}

// ledgerSink builds the configured ledger sinks. Dry-run mode logs only.
func (a *App) ledgerSink(ctx context.Context) (dispatch.LedgerSink, error) {
	cfg := a.Config.Ledger
	logSink := dispatch.NewLogSink(a.Log.With().Str("sink", "ledger").Logger())

	if cfg.DryRun {
		a.Log.Warn().Msg("dry run: ledger entries are logged only")
		return logSink, nil
	}

	var sinks dispatch.MultiSink
	for _, name := range cfg.Sinks {
		switch name {
		case "log":
			sinks = append(sinks, logSink)
		case "bigquery":
			repo, err := infraBQ.NewBigQueryOperationRepository(ctx, infraBQ.TableRef{
				ProjectID: cfg.ProjectID,
				Dataset:   cfg.Dataset,
				Table:     cfg.Table,
			})
			if err != nil {
				return nil, fmt.Errorf("app.New: bigquery sink: %w", err)
			}
			a.closers = append(a.closers, repo.Close)
			sinks = append(sinks, repo)
		case "notion":
			sinks = append(sinks, notionsync.NewSink(notionsync.NewNotionClient(cfg.NotionToken, cfg.NotionDatabase)))
		default:
			return nil, fmt.Errorf("app.New: unknown ledger sink %q", name)
		}
	}

	switch len(sinks) {
	case 0:
		return logSink, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func (a *App) replySink() dispatch.ReplySink {
	if tg := a.Config.Telegram; tg.BotToken != "" {
		return dispatch.NewTelegramSink(tg.APIBase, tg.BotToken)
	}
	return dispatch.NewLogSink(a.Log.With().Str("sink", "reply").Logger())
}

// Start launches the dispatch workers.
func (a *App) Start(ctx context.Context) error {
	if err := a.Queue.Start(ctx, a.Handler.Handle); err != nil {
		return fmt.Errorf("app.Start: %w", err)
	}
	return nil
}

// Shutdown waits for queued dispatch jobs, stops the workers and releases
// resources. Jobs still queued when ctx expires are abandoned.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Queue.Drain(ctx); err != nil {
		a.Log.Warn().Err(err).Int("outstanding", a.Queue.Outstanding()).Msg("dispatch queue not drained")
	}
	if err := a.Queue.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping dispatch queue: %w", err))
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases stores and sink clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
