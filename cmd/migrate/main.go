package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/ledger-assistant/internal/config"
	infraBQ "github.com/dvloznov/ledger-assistant/internal/infra/bigquery"
	"github.com/dvloznov/ledger-assistant/internal/infra/sqlite"
	"github.com/dvloznov/ledger-assistant/internal/logger"
)

func main() {
	cfg := config.Load()

	var (
		backendName   = flag.String("backend", "", "bigquery or sqlite (defaults to DATA_BACKEND)")
		projectID     = flag.String("project", cfg.BigQueryProject, "GCP project ID (or set BIGQUERY_PROJECT)")
		datasetID     = flag.String("dataset", cfg.BigQueryDataset, "BigQuery dataset ID")
		dbPath        = flag.String("db", cfg.SQLiteDBPath, "SQLite database path")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "", "Directory of BigQuery migrations (defaults to the embedded set)")
	)
	flag.Parse()

	log := logger.New(cfg.LogLevel)

	cfg.BigQueryProject = *projectID
	backend, err := chooseBackend(*backendName, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid -backend")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	switch backend {
	case config.BackendSQLite:
		if err := sqlite.RunMigrations(*dbPath); err != nil {
			log.Fatal().Err(err).Str("db", *dbPath).Msg("SQLite migration failed")
		}
		log.Info().Str("db", *dbPath).Msg("SQLite schema is up to date")

	case config.BackendBigQuery:
		if *projectID == "" {
			log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
		}
		ds := infraBQ.Dataset{ProjectID: *projectID, DatasetID: *datasetID}

		migrations, err := loadMigrations(*migrationsDir, ds)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read migrations")
		}
		log.Info().Int("count", len(migrations)).Msg("Found migration files")

		// Create BigQuery client
		client, err := bigquery.NewClient(ctx, *projectID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer client.Close()

		log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

		applied, err := infraBQ.NewMigrator(client, ds, *appliedBy, log).Up(ctx, migrations)
		if err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		if applied == 0 {
			log.Info().Msg("No new migrations to apply. Database is up to date.")
		} else {
			log.Info().Int("applied", applied).Msg("Successfully applied migrations")
		}
	}
}

// chooseBackend resolves the -backend flag against the configured backend.
// The in-memory backend has no schema and is rejected.
func chooseBackend(flagValue string, cfg *config.Config) (string, error) {
	backend := flagValue
	if backend == "" {
		backend = cfg.Backend()
	}
	switch backend {
	case config.BackendSQLite, config.BackendBigQuery:
		return backend, nil
	}
	return "", fmt.Errorf("backend %q has no migrations (use bigquery or sqlite)", backend)
}

func loadMigrations(dir string, ds infraBQ.Dataset) ([]infraBQ.Migration, error) {
	if dir == "" {
		return infraBQ.EmbeddedMigrations(ds)
	}
	return infraBQ.ReadMigrations(os.DirFS(dir), ds)
}
