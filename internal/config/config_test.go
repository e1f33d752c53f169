package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATA_DIR", "SQLITE_PATH", "RESULTS_DIR",
		"ALPACA_API_KEY", "ALPACA_API_SECRET",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
		"GLM_API_KEY", "GLM_BASE_URL", "LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "signalbot-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}
	return tmpFile.Name()
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
storage:
  data_dir: "/tmp/signalbot/data"
  sqlite_path: "/tmp/signalbot/runs.db"
  results_dir: "/tmp/signalbot/results"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
advisor:
  api_key: "advisor-key"
  base_url: "https://api.z.ai/api/paas/v4"
  model: "glm-4.6"
  timeout_seconds: 120
  rate_limit_per_min: 20
logging:
  level: "debug"
  format: "json"
backtest:
  initial_capital: 50000
  commission_pct: 0.002
  position_size_pct: 0.5
  min_confidence: 7
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/signalbot/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/signalbot/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/signalbot/runs.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/signalbot/runs.db")
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}

	// -- Advisor --
	if cfg.Advisor.APIKey != "advisor-key" {
		t.Errorf("Advisor.APIKey = %q, want %q", cfg.Advisor.APIKey, "advisor-key")
	}
	if cfg.Advisor.Model != "glm-4.6" {
		t.Errorf("Advisor.Model = %q, want %q", cfg.Advisor.Model, "glm-4.6")
	}
	if cfg.Advisor.TimeoutSeconds != 120 {
		t.Errorf("Advisor.TimeoutSeconds = %d, want %d", cfg.Advisor.TimeoutSeconds, 120)
	}
	// max_attempts not set in YAML — default survives the merge.
	if cfg.Advisor.MaxAttempts != 3 {
		t.Errorf("Advisor.MaxAttempts = %d, want default %d", cfg.Advisor.MaxAttempts, 3)
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	// -- Backtest --
	if cfg.Backtest.InitialCapital != 50000 {
		t.Errorf("Backtest.InitialCapital = %v, want %v", cfg.Backtest.InitialCapital, 50000.0)
	}
	if cfg.Backtest.CommissionPct != 0.002 {
		t.Errorf("Backtest.CommissionPct = %v, want %v", cfg.Backtest.CommissionPct, 0.002)
	}
	if cfg.Backtest.PositionSizePct != 0.5 {
		t.Errorf("Backtest.PositionSizePct = %v, want %v", cfg.Backtest.PositionSizePct, 0.5)
	}
	if cfg.Backtest.MinConfidence != 7 {
		t.Errorf("Backtest.MinConfidence = %d, want %d", cfg.Backtest.MinConfidence, 7)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	os.Setenv("ALPACA_API_KEY", "env-key")
	os.Setenv("DATA_DIR", "/env/data")
	defer os.Unsetenv("ALPACA_API_KEY")
	defer os.Unsetenv("DATA_DIR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
}

func TestLoadOrDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault(\"\") returned error: %v", err)
	}
	if cfg.Backtest.InitialCapital != 100000 {
		t.Errorf("default InitialCapital = %v, want 100000", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.MinConfidence != 5 {
		t.Errorf("default MinConfidence = %d, want 5", cfg.Backtest.MinConfidence)
	}

	// Nonexistent path also falls back to defaults.
	cfg, err = LoadOrDefault("/nonexistent/signalbot.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault(nonexistent) returned error: %v", err)
	}
	if cfg.Backtest.CommissionPct != 0.001 {
		t.Errorf("default CommissionPct = %v, want 0.001", cfg.Backtest.CommissionPct)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}

	bad := Default()
	bad.Backtest.InitialCapital = 0
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted zero initial capital")
	}

	bad = Default()
	bad.Backtest.PositionSizePct = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted position_size_pct > 1")
	}

	bad = Default()
	bad.Backtest.MinConfidence = 11
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted min_confidence > 10")
	}
}
