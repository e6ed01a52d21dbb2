package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"marketdaily/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for a marketdaily run.
type Config struct {
	Storage     Storage             `yaml:"storage"`
	Logging     Logging             `yaml:"logging"`
	Primary     PrimarySource       `yaml:"primary"`
	Secondary   SecondarySource     `yaml:"secondary"`
	Alpaca      Alpaca              `yaml:"alpaca"`
	Output      Output              `yaml:"output"`
	Metrics     Metrics             `yaml:"metrics"`
	Instruments []domain.Instrument `yaml:"instruments"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	Parquet    bool   `yaml:"parquet"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PrimarySource configures the CSV endpoint tried first for every
// instrument.
type PrimarySource struct {
	URLTemplate string        `yaml:"url_template"`
	HeaderToken string        `yaml:"header_token"`
	Timeout     time.Duration `yaml:"timeout"`
	Delay       time.Duration `yaml:"delay"`
}

// SecondarySource configures the history provider used when the primary
// source has nothing.
type SecondarySource struct {
	Provider  string        `yaml:"provider"` // "yahoo" or "alpaca"
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	StartDate string        `yaml:"start_date"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
// Only used when secondary.provider is "alpaca".
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Output controls zone conversion and the merged file name.
type Output struct {
	Zone        string `yaml:"zone"`
	UnifiedName string `yaml:"unified_name"`
}

// Metrics configures the Prometheus textfile written at the end of a run.
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides (including any
// found in a .env file) and fills defaults. A missing file is not an error:
// the built-in defaults are used instead.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	// Standard Alpaca env vars used by the SDK.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
