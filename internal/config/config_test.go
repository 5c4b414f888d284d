package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATA_BACKEND", "BIGQUERY_PROJECT", "AGENT_MAX_TOOL_ROUNDS", "AGENT_TURN_TIMEOUT", "AMQP_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" || cfg.DataBackend != BackendAuto {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.MaxToolRounds != 8 || cfg.TurnTimeout != 60*time.Second {
		t.Errorf("agent defaults = %d, %v", cfg.MaxToolRounds, cfg.TurnTimeout)
	}
	if cfg.Backend() != BackendSQLite {
		t.Errorf("Backend() = %q without a BigQuery project", cfg.Backend())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_BACKEND", "BigQuery")
	t.Setenv("BIGQUERY_PROJECT", "my-project")
	t.Setenv("AGENT_MAX_TOOL_ROUNDS", "4")
	t.Setenv("AGENT_TURN_TIMEOUT", "15s")
	t.Setenv("DEMO_SEED", "42")
	t.Setenv("RESET_CHECK_INTERVAL", "not-a-duration")

	cfg := Load()
	if cfg.Backend() != BackendBigQuery || cfg.BigQueryProject != "my-project" {
		t.Errorf("backend = %q, project %q", cfg.Backend(), cfg.BigQueryProject)
	}
	if cfg.MaxToolRounds != 4 || cfg.TurnTimeout != 15*time.Second || cfg.DemoSeed != 42 {
		t.Errorf("overrides = %+v", cfg)
	}
	if cfg.ResetCheckInterval != 10*time.Minute {
		t.Errorf("unparsable duration should fall back, got %v", cfg.ResetCheckInterval)
	}
}

func TestAutoBackend(t *testing.T) {
	cfg := &Config{DataBackend: BackendAuto, BigQueryProject: "p"}
	if cfg.Backend() != BackendBigQuery {
		t.Errorf("Backend() = %q", cfg.Backend())
	}
	cfg.DataBackend = BackendMemory
	if cfg.Backend() != BackendMemory {
		t.Errorf("explicit backend ignored: %q", cfg.Backend())
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:               "8080",
			DataBackend:        BackendMemory,
			MaxToolRounds:      8,
			TurnTimeout:        time.Minute,
			ResetCheckInterval: time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"port range", func(c *Config) { c.Port = "70000" }, "between 1 and 65535"},
		{"bad backend", func(c *Config) { c.DataBackend = "sheets" }, "invalid data backend"},
		{"sqlite path", func(c *Config) { c.DataBackend = BackendSQLite }, "SQLite database path"},
		{"bigquery project", func(c *Config) { c.DataBackend = BackendBigQuery; c.BigQueryDataset = "d" }, "BIGQUERY_PROJECT"},
		{"tool rounds", func(c *Config) { c.MaxToolRounds = 0 }, "max tool rounds"},
		{"timeout", func(c *Config) { c.TurnTimeout = time.Millisecond }, "turn timeout"},
		{"amqp scheme", func(c *Config) { c.AMQPURL = "http://broker"; c.AMQPExchange = "x" }, "AMQP URL scheme"},
		{"amqp exchange", func(c *Config) { c.AMQPURL = "amqp://broker" }, "exchange name"},
		{"notion pair", func(c *Config) { c.NotionToken = "secret" }, "NOTION_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := &Config{Port: "x", DataBackend: "nope", TurnTimeout: time.Minute, ResetCheckInterval: time.Minute}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"invalid port", "invalid data backend", "max tool rounds"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
