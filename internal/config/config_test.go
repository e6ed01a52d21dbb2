package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable applyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "LOG_LEVEL", "METRICS_TEXTFILE",
		"ALPACA_DATA_URL", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketdaily.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
storage:
  data_dir: "/tmp/marketdaily/data"
  sqlite_path: "/tmp/marketdaily/runs.db"
  parquet: true
logging:
  level: "debug"
  format: "text"
primary:
  timeout: 5s
  delay: 250ms
secondary:
  provider: "alpaca"
  start_date: "2010-06-01"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
output:
  zone: "Europe/London"
metrics:
  textfile: "/tmp/marketdaily/metrics.prom"
instruments:
  - name: "SP500"
    primary: ["^spx"]
    secondary: ["^GSPC"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/marketdaily/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/marketdaily/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/marketdaily/runs.db" {
		t.Errorf("Storage.SQLitePath = %q", cfg.Storage.SQLitePath)
	}
	if !cfg.Storage.Parquet {
		t.Error("Storage.Parquet = false, want true")
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}

	// -- Sources --
	if cfg.Primary.Timeout != 5*time.Second {
		t.Errorf("Primary.Timeout = %s, want 5s", cfg.Primary.Timeout)
	}
	if cfg.Primary.Delay != 250*time.Millisecond {
		t.Errorf("Primary.Delay = %s, want 250ms", cfg.Primary.Delay)
	}
	if cfg.Primary.URLTemplate != DefaultPrimaryURL {
		t.Errorf("Primary.URLTemplate = %q, want default", cfg.Primary.URLTemplate)
	}
	if cfg.Secondary.Provider != "alpaca" {
		t.Errorf("Secondary.Provider = %q, want alpaca", cfg.Secondary.Provider)
	}
	if cfg.Secondary.BaseURL != "" {
		t.Errorf("Secondary.BaseURL = %q, want empty for alpaca", cfg.Secondary.BaseURL)
	}
	if cfg.Secondary.StartDate != "2010-06-01" {
		t.Errorf("Secondary.StartDate = %q", cfg.Secondary.StartDate)
	}
	if cfg.Alpaca.APIKey != "test-key" || cfg.Alpaca.APISecret != "test-secret" {
		t.Errorf("Alpaca = %+v", cfg.Alpaca)
	}

	// -- Output --
	if cfg.Output.Zone != "Europe/London" {
		t.Errorf("Output.Zone = %q", cfg.Output.Zone)
	}
	if cfg.Output.UnifiedName != DefaultUnifiedName {
		t.Errorf("Output.UnifiedName = %q, want default", cfg.Output.UnifiedName)
	}
	if cfg.Metrics.Textfile != "/tmp/marketdaily/metrics.prom" {
		t.Errorf("Metrics.Textfile = %q", cfg.Metrics.Textfile)
	}

	// -- Instruments --
	if len(cfg.Instruments) != 1 {
		t.Fatalf("len(Instruments) = %d, want 1", len(cfg.Instruments))
	}
	inst := cfg.Instruments[0]
	if inst.Name != "SP500" || len(inst.Primary) != 1 || inst.Secondary[0] != "^GSPC" {
		t.Errorf("Instruments[0] = %+v", inst)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != DefaultDataDir {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, DefaultDataDir)
	}
	if cfg.Primary.Timeout != 20*time.Second {
		t.Errorf("Primary.Timeout = %s, want 20s", cfg.Primary.Timeout)
	}
	if cfg.Primary.Delay != 700*time.Millisecond {
		t.Errorf("Primary.Delay = %s, want 700ms", cfg.Primary.Delay)
	}
	if cfg.Secondary.Provider != "yahoo" || cfg.Secondary.BaseURL != DefaultYahooURL {
		t.Errorf("Secondary = %+v, want yahoo defaults", cfg.Secondary)
	}
	if cfg.Secondary.StartDate != "2005-01-01" {
		t.Errorf("Secondary.StartDate = %q", cfg.Secondary.StartDate)
	}
	if cfg.Output.Zone != "Asia/Tokyo" {
		t.Errorf("Output.Zone = %q", cfg.Output.Zone)
	}
	if len(cfg.Instruments) != 6 {
		t.Errorf("len(Instruments) = %d, want 6", len(cfg.Instruments))
	}
}

func TestDefaultInstruments(t *testing.T) {
	insts := DefaultInstruments()

	wantOrder := []string{"Nikkei225", "NASDAQ100", "DowJones", "USDJPY", "Nikkei_CFD", "Nikkei_Leverage"}
	for i, name := range wantOrder {
		if insts[i].Name != name {
			t.Errorf("Instruments[%d].Name = %q, want %q", i, insts[i].Name, name)
		}
	}

	if got := insts[0].Primary; len(got) != 5 || got[0] != "^nkx" {
		t.Errorf("Nikkei225 primary = %v", got)
	}
	if len(insts[0].Secondary) != 0 {
		t.Errorf("Nikkei225 should have no secondary tickers, got %v", insts[0].Secondary)
	}
	if len(insts[5].Primary) != 0 {
		t.Errorf("Nikkei_Leverage should have no primary symbols, got %v", insts[5].Primary)
	}

	// Each call returns an independent table.
	insts[0].Name = "mutated"
	if DefaultInstruments()[0].Name != "Nikkei225" {
		t.Error("DefaultInstruments shares state between calls")
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

	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("LOG_LEVEL", "warn")

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
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"template without placeholder", func(c *Config) { c.Primary.URLTemplate = "https://example.com/q" }},
		{"unknown provider", func(c *Config) { c.Secondary.Provider = "bloomberg" }},
		{"bad start date", func(c *Config) { c.Secondary.StartDate = "01/01/2005" }},
		{"bad zone", func(c *Config) { c.Output.Zone = "Mars/Olympus" }},
		{"unified name with path", func(c *Config) { c.Output.UnifiedName = "../x.csv" }},
		{"negative delay", func(c *Config) { c.Primary.Delay = -time.Second }},
		{"empty instrument name", func(c *Config) { c.Instruments[0].Name = "" }},
		{"duplicate instrument", func(c *Config) { c.Instruments[1].Name = c.Instruments[0].Name }},
		{"instrument name with separator", func(c *Config) { c.Instruments[0].Name = "a/b" }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
