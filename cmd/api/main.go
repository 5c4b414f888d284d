package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/ledger-assistant/internal/agent"
	"github.com/dvloznov/ledger-assistant/internal/api"
	"github.com/dvloznov/ledger-assistant/internal/backend"
	"github.com/dvloznov/ledger-assistant/internal/config"
	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/events/amqp"
	"github.com/dvloznov/ledger-assistant/internal/export"
	"github.com/dvloznov/ledger-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-assistant/internal/logger"
	"github.com/dvloznov/ledger-assistant/internal/tools"
)

const (
	sessionSweepInterval = 5 * time.Minute
	sessionMaxIdle       = time.Hour
)

func main() {
	cfg := config.Load()

	// Parse command-line flags
	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
	flag.Parse()
	cfg.Port = *port

	// Initialize logger
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	bus := events.NewBus(log)

	// Initialize ledger
	ledgerBackend, err := backend.Build(ctx, cfg, bus, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger")
	}
	defer ledgerBackend.Cleanup()
	store := ledgerBackend.Ledger

	// Initialize report exports
	objects, closeObjects, err := backend.OpenObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize report storage")
	}
	defer closeObjects()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, inmemory.WithLogger(log))
	exporter := export.NewExporter(store, objects, log)
	if err := jobQueue.Start(ctx, exporter.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start export workers")
	}
	bridge := export.NewBridge(jobQueue, log)
	bridge.Attach(bus)

	g, gctx := errgroup.WithContext(ctx)

	// Optional AMQP forwarding of ledger events
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "", log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to AMQP broker")
		}
		defer client.Close()

		forwarder := amqp.NewForwarder(client, 256, log)
		forwarder.Attach(bus)
		g.Go(func() error { return forwarder.Run(gctx) })
		log.Info().Str("exchange", cfg.AMQPExchange).Msg("Forwarding ledger events to AMQP")
	}

	// Assistant sessions
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("No GEMINI_API_KEY configured - chat clients must supply their own key")
	}
	sessions := agent.NewManager(
		agent.GeminiFactory(cfg.GeminiAPIKey, cfg.GeminiModel, log),
		tools.NewExecutor(store, bus),
		agent.Config{MaxToolRounds: cfg.MaxToolRounds, TurnTimeout: cfg.TurnTimeout},
		log,
	)

	g.Go(func() error { return backend.RunResetLoop(gctx, store, cfg.ResetCheckInterval, log) })
	g.Go(func() error {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				if n := sessions.Sweep(now, sessionMaxIdle); n > 0 {
					log.Info().Int("removed", n).Msg("Swept idle sessions")
				}
			}
		}
	})

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.Deps{
			Ledger:   store,
			Sessions: sessions,
			Bus:      bus,
			Exporter: bridge,
			Jobs:     jobStore,
			Backend:  ledgerBackend.Backend,
			Log:      log,
		}),
		ReadTimeout: 15 * time.Second,
		// No write deadline: chat turns run up to the turn timeout and
		// /api/events streams stay open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("backend", ledgerBackend.Backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}

		// Stop job queue and wait for in-flight exports
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
		if err := jobQueue.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close job queue")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		return
	}

	log.Info().Msg("Server exited")
}
