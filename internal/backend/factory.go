// Package backend builds the ledger store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/config"
	"github.com/dvloznov/ledger-assistant/internal/demo"
	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/infra/bigquery"
	"github.com/dvloznov/ledger-assistant/internal/infra/sqlite"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
	"github.com/dvloznov/ledger-assistant/internal/ledger/memory"
)

// Result is a ready ledger plus the cleanup that releases its backend.
type Result struct {
	Ledger  *ledger.Service
	Backend string
	Cleanup func() error
}

// OpenRepository connects to the backend named by cfg.Backend().
func OpenRepository(ctx context.Context, cfg *config.Config) (ledger.Repository, error) {
	switch cfg.Backend() {
	case config.BackendMemory:
		return memory.NewRepository(), nil
	case config.BackendSQLite:
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case config.BackendBigQuery:
		repo, err := bigquery.NewRepository(ctx, bigquery.Dataset{
			ProjectID: cfg.BigQueryProject,
			DatasetID: cfg.BigQueryDataset,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize BigQuery repository: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", cfg.Backend())
}

// Build opens the configured repository and wraps it in a ledger service
// that announces changes on bus and seeds demo data from cfg.DemoSeed. A
// zero seed is replaced by the current time.
func Build(ctx context.Context, cfg *config.Config, bus events.Publisher, log zerolog.Logger) (*Result, error) {
	repo, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	seed := cfg.DemoSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	log.Info().Str("backend", cfg.Backend()).Msg("Initialized ledger backend")

	return &Result{
		Ledger:  ledger.NewService(repo, bus, demo.NewGenerator(seed)),
		Backend: cfg.Backend(),
		Cleanup: repo.Close,
	}, nil
}
