package config

import (
	"time"

	"marketdaily/internal/domain"
)

// Default values for optional configuration fields.
const (
	DefaultDataDir          = "data"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultPrimaryURL       = "https://stooq.com/q/d/l/?s={sym}&i=d"
	DefaultHeaderToken      = "date,"
	DefaultPrimaryTimeout   = 20 * time.Second
	DefaultPrimaryDelay     = 700 * time.Millisecond
	DefaultProvider         = "yahoo"
	DefaultYahooURL         = "https://query1.finance.yahoo.com"
	DefaultSecondaryTimeout = 20 * time.Second
	DefaultStartDate        = "2005-01-01"
	DefaultZone             = "Asia/Tokyo"
	DefaultUnifiedName      = "unified_daily_jst.csv"
)

// DefaultInstruments returns the built-in instrument table. Candidates are
// listed in the order they are tried.
func DefaultInstruments() []domain.Instrument {
	return []domain.Instrument{
		{Name: "Nikkei225", Primary: []string{"^nkx", "^nikkei", "^n225", "n225", "nikkei"}},
		{Name: "NASDAQ100", Primary: []string{"^ndx"}, Secondary: []string{"^NDX"}},
		{Name: "DowJones", Primary: []string{"^dji"}, Secondary: []string{"^DJI"}},
		{Name: "USDJPY", Primary: []string{"usdjpy", "jpyusd"}, Secondary: []string{"JPY=X"}},
		{Name: "Nikkei_CFD", Primary: []string{"jpn225", "jp225"}, Secondary: []string{"JP225USD=X"}},
		{Name: "Nikkei_Leverage", Secondary: []string{"1570.T", "1321.T"}},
	}
}

// Default returns a fully populated configuration without reading any file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = DefaultDataDir
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	if c.Primary.URLTemplate == "" {
		c.Primary.URLTemplate = DefaultPrimaryURL
	}
	if c.Primary.HeaderToken == "" {
		c.Primary.HeaderToken = DefaultHeaderToken
	}
	if c.Primary.Timeout == 0 {
		c.Primary.Timeout = DefaultPrimaryTimeout
	}
	if c.Primary.Delay == 0 {
		c.Primary.Delay = DefaultPrimaryDelay
	}

	if c.Secondary.Provider == "" {
		c.Secondary.Provider = DefaultProvider
	}
	if c.Secondary.BaseURL == "" && c.Secondary.Provider == DefaultProvider {
		c.Secondary.BaseURL = DefaultYahooURL
	}
	if c.Secondary.Timeout == 0 {
		c.Secondary.Timeout = DefaultSecondaryTimeout
	}
	if c.Secondary.StartDate == "" {
		c.Secondary.StartDate = DefaultStartDate
	}

	if c.Output.Zone == "" {
		c.Output.Zone = DefaultZone
	}
	if c.Output.UnifiedName == "" {
		c.Output.UnifiedName = DefaultUnifiedName
	}

	if len(c.Instruments) == 0 {
		c.Instruments = DefaultInstruments()
	}
}
