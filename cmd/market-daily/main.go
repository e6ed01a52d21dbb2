// One-shot tool: fetch daily history for every configured instrument, save
// it in UTC and in the second zone, and write the merged file.
//
// Usage:
//
//	go run ./cmd/market-daily
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketdaily/internal/config"
	"marketdaily/internal/gather"
	"marketdaily/internal/gather/alpaca"
	"marketdaily/internal/gather/daily"
	"marketdaily/internal/gather/stooq"
	"marketdaily/internal/gather/yahoo"
	"marketdaily/internal/metrics"
	"marketdaily/internal/report"
	"marketdaily/internal/store"
	"marketdaily/internal/util"
)

func main() {
	cfgPath := "config/marketdaily.yaml"
	if p := os.Getenv("MARKETDAILY_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	zone, err := util.LoadZone(cfg.Output.Zone)
	if err != nil {
		log.Fatalf("failed to load zone: %v", err)
	}

	csvStore := store.NewCSVStore(cfg.Storage.DataDir, cfg.Output.UnifiedName, zone)
	if err := csvStore.Init(); err != nil {
		log.Fatalf("failed to create output dirs: %v", err)
	}
	unified := []store.UnifiedWriter{csvStore}
	if cfg.Storage.Parquet {
		unified = append(unified, store.NewParquetStore(cfg.Storage.DataDir, cfg.Output.UnifiedName, zone))
	}

	var runs store.RunRecorder
	if cfg.Storage.SQLitePath != "" {
		runLog, err := store.NewRunLog(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open run log: %v", err)
		}
		defer runLog.Close()
		runs = runLog
	}

	primary := stooq.NewClient(stooq.Options{
		URLTemplate: cfg.Primary.URLTemplate,
		HeaderToken: cfg.Primary.HeaderToken,
		Timeout:     cfg.Primary.Timeout,
		Delay:       cfg.Primary.Delay,
	})

	secondary, err := newSecondary(cfg)
	if err != nil {
		log.Fatalf("failed to create secondary source: %v", err)
	}

	gatherer := daily.New(
		cfg.Instruments,
		gather.NewResolver(primary, secondary),
		csvStore,
		unified,
		runs,
		report.NewConsole(os.Stdout),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting gatherer",
		"gatherer", gatherer.Name(),
		"instruments", len(cfg.Instruments),
		"secondary", cfg.Secondary.Provider,
		"dataDir", cfg.Storage.DataDir,
	)
	runErr := gatherer.Run(ctx)

	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		slog.Error("writing metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
	}
	if runErr != nil {
		slog.Error("gatherer error", "error", runErr)
		os.Exit(1)
	}
}

func newSecondary(cfg *config.Config) (gather.SecondaryFetcher, error) {
	start, err := time.Parse("2006-01-02", cfg.Secondary.StartDate)
	if err != nil {
		return nil, err
	}

	if cfg.Secondary.Provider == "alpaca" {
		return alpaca.NewClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed, start)
	}
	return yahoo.NewClient(yahoo.Options{
		BaseURL: cfg.Secondary.BaseURL,
		Timeout: cfg.Secondary.Timeout,
		Start:   start,
	}), nil
}
