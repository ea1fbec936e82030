package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/docstage/docstage/internal/config"
	"github.com/docstage/docstage/internal/ingest"
	"github.com/docstage/docstage/internal/logging"
	"github.com/docstage/docstage/internal/remote"
	"github.com/docstage/docstage/internal/state"
)

var Version = "dev"

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Environment)
	logger.Info("docstage starting",
		slog.String("version", Version),
		slog.String("remote", cfg.RemoteBaseURL),
		slog.Bool("inbox", cfg.InboxDir != ""),
		slog.Duration("resync_interval", cfg.ResyncInterval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	journal, err := state.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer journal.Close()

	client := remote.NewClient(cfg.RemoteBaseURL, cfg.APIKey, nil)
	svc := ingest.NewService(client, journal, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Run(gctx)
	})

	// Drain the notice stream into the log; a headless run has no other
	// surface for user-facing notifications.
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case n := <-svc.Notices():
				logNotice(logger, n)
			}
		}
	})

	if cfg.InboxDir != "" {
		watcher := ingest.NewInboxWatcher(cfg.InboxDir, svc, logger)
		g.Go(func() error {
			select {
			case <-svc.Started():
			case <-gctx.Done():
				return gctx.Err()
			}

			return watcher.Watch(gctx)
		})
	}

	if cfg.ResyncInterval > 0 {
		resyncer := ingest.NewResyncer(client, journal, svc, logger, cfg.ResyncInterval)
		g.Go(func() error {
			select {
			case <-svc.Started():
			case <-gctx.Done():
				return gctx.Err()
			}

			return resyncer.Run(gctx)
		})
	}

	return g.Wait()
}

func logNotice(logger *slog.Logger, n ingest.Notice) {
	switch n.Level {
	case ingest.LevelError:
		logger.Error(n.Message)
	case ingest.LevelSuccess:
		logger.Info(n.Message, slog.String("level", "success"))
	default:
		logger.Info(n.Message)
	}
}
