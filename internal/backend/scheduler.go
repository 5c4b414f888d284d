package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/config"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
	"github.com/dvloznov/ledger-assistant/internal/objectstore"
)

// RunResetLoop checks once immediately and then every interval whether the
// daily demo reset is due. It returns when ctx is done. Reset failures are
// logged and retried on the next tick.
func RunResetLoop(ctx context.Context, store ledger.Store, interval time.Duration, log zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		reset, err := store.ResetWithSeedData(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Error().Err(err).Msg("Daily ledger reset failed")
		case reset:
			log.Info().Msg("Ledger reset with today's demo data")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// OpenObjectStore returns the GCS bucket store when REPORT_BUCKET is set and
// a local directory store otherwise.
func OpenObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, func() error, error) {
	if cfg.ReportBucket != "" {
		store, err := objectstore.NewGCSStore(ctx, cfg.ReportBucket, "")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open report bucket: %w", err)
		}
		return store, store.Close, nil
	}

	store, err := objectstore.NewLocalStore(cfg.ReportDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open report directory: %w", err)
	}
	return store, func() error { return nil }, nil
}
