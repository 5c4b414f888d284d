package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/ledger-assistant/internal/backend"
	"github.com/dvloznov/ledger-assistant/internal/config"
	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/events/amqp"
	"github.com/dvloznov/ledger-assistant/internal/export"
	"github.com/dvloznov/ledger-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-assistant/internal/logger"
	"github.com/dvloznov/ledger-assistant/internal/notionsync"
)

const notionSettle = 2 * time.Second

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is required for the worker")
	}

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	// The API process owns live notifications; the worker only reads and
	// exports, so its own ledger changes are not re-broadcast.
	ledgerBackend, err := backend.Build(ctx, cfg, events.Discard{}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger")
	}
	defer ledgerBackend.Cleanup()
	store := ledgerBackend.Ledger

	objects, closeObjects, err := backend.OpenObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize report storage")
	}
	defer closeObjects()

	// Initialize job store and queue
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, inmemory.WithLogger(log))
	if err := jobQueue.Start(ctx, export.NewExporter(store, objects, log).Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start export workers")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to AMQP broker")
	}
	defer client.Close()

	notionEnabled := cfg.NotionToken != "" && cfg.NotionDatabaseID != ""
	router := newEventRouter(export.NewBridge(jobQueue, log), notionEnabled, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := client.Consume(gctx, router.Handle)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error { return backend.RunResetLoop(gctx, store, cfg.ResetCheckInterval, log) })

	if notionEnabled {
		syncer := notionsync.NewSyncer(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDatabaseID)
		g.Go(func() error { return router.runNotionSync(gctx, syncer, store, notionSettle) })
		log.Info().Msg("Mirroring ledger changes to Notion")
	}

	log.Info().Str("queue", cfg.AMQPQueue).Msg("Worker service started, waiting for events...")

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker stopped with error")
	}

	log.Info().Msg("Shutting down worker service...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight exports
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
