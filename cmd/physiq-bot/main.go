package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/dnxsqw/physiq-bot/internal/bot"
	"github.com/dnxsqw/physiq-bot/internal/config"
	"github.com/dnxsqw/physiq-bot/internal/logger"
	"github.com/dnxsqw/physiq-bot/internal/service"
	"github.com/dnxsqw/physiq-bot/internal/sheets"
	"github.com/dnxsqw/physiq-bot/internal/state"
	"github.com/dnxsqw/physiq-bot/internal/storage"
	"github.com/dnxsqw/physiq-bot/internal/telegram"
)

const defaultConfigPath = "config.yaml"

// sweepInterval is how often expired drafts are collected.
const sweepInterval = time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("physiq-bot: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Profile:     cfg.Logging.Profile,
		DebugSample: cfg.Logging.DebugSample,
		Dir:         cfg.Logging.Dir,
		File:        cfg.Logging.BotFile,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Store.Error("store close failed",
				slog.String("event", "store.close"),
				slog.String("err", err.Error()),
			)
		}
	}()

	var mirror service.Mirror
	var queue *sheets.Queue
	if cfg.Sheets.Enabled {
		client, err := sheets.NewClient(ctx, cfg.Sheets, cfg.SheetsTimeout())
		if err != nil {
			return fmt.Errorf("sheets client: %w", err)
		}
		queue = sheets.NewQueue(client, sheets.QueueOptions{})
		mirror = queue
	}

	fsm := state.NewMemoryManager(cfg.DraftTTL())
	svc := service.NewProfiles(store, fsm, mirror)
	handlers := bot.New(svc, fsm)
	registry := handlers.Registry()

	startedAt := time.Now()
	runOpts := telegram.RunOptions{
		Config:      cfg,
		Registry:    registry,
		Middlewares: telegram.DefaultMiddlewares(cfg, handlers.OnRateLimited),
		Routes:      handlers.Routes(registry),
		OnStart: func(ctx context.Context, _ telegram.Runtime) error {
			go sweepDrafts(ctx, fsm)
			logger.L.With("component", "app").Info("app ready",
				slog.String("event", "ready"),
				slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
			)
			return nil
		},
		OnStop: func(context.Context, telegram.Runtime) error {
			logger.L.With("component", "app").Info("shutting down...",
				slog.String("event", "shutdown"),
			)
			if queue != nil {
				queue.Close()
			}
			return nil
		},
	}

	return telegram.RunTelegram(ctx, runOpts)
}

// buildStore selects the backend, runs migrations for postgres, and
// loads the snapshot for the file store.
func buildStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		if err := storage.RunMigrations(cfg.Storage.Postgres); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		store, err := storage.ConnectPostgres(cfg.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store := storage.NewFileStore(cfg.Storage.File.Path)
		if err := store.Load(ctx); err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		return store, nil
	}
}

func sweepDrafts(ctx context.Context, fsm state.Manager) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fsm.Sweep()
		}
	}
}
