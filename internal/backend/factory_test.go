package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/config"
	"github.com/dvloznov/ledger-assistant/internal/events"
)

func TestBuildMemoryBackendSeeds(t *testing.T) {
	cfg := &config.Config{DataBackend: config.BackendMemory, DemoSeed: 7}

	res, err := Build(context.Background(), cfg, events.Discard{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer res.Cleanup()

	if res.Backend != config.BackendMemory {
		t.Errorf("backend = %q", res.Backend)
	}
	reset, err := res.Ledger.ResetWithSeedData(context.Background())
	if err != nil || !reset {
		t.Fatalf("ResetWithSeedData() = %v, %v", reset, err)
	}
	all, _ := res.Ledger.GetAll(context.Background())
	if len(all) == 0 {
		t.Error("seeded ledger is empty")
	}
}

func TestBuildSQLiteBackend(t *testing.T) {
	cfg := &config.Config{DataBackend: config.BackendSQLite, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "ledger.db")}

	res, err := Build(context.Background(), cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}
}

func TestOpenRepositoryUnknownBackend(t *testing.T) {
	if _, err := OpenRepository(context.Background(), &config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("OpenRepository() should reject unknown backends")
	}
}
