// Command grants keeps a published copy of a government grants dataset
// up to date: it loads the source table, diffs content hashes against
// the ledger, classifies only the new or changed records, and publishes
// the result atomically.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Sher213/GrantsInvestments/internal/adapters/driven/classifier"
	"github.com/Sher213/GrantsInvestments/internal/adapters/driven/config/file"
	"github.com/Sher213/GrantsInvestments/internal/adapters/driven/storage/sqlite"
	"github.com/Sher213/GrantsInvestments/internal/adapters/driving/cli"
	"github.com/Sher213/GrantsInvestments/internal/connectors"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driving"
	"github.com/Sher213/GrantsInvestments/internal/core/services"
	"github.com/Sher213/GrantsInvestments/internal/logger"
	"github.com/Sher213/GrantsInvestments/internal/normalisers/grantcsv"
)

// version is stamped by the release build via -ldflags.
var version = "dev"

// envDBPath overrides the database location, for tests and
// containerised deployments.
const envDBPath = "GRANTS_DB_PATH"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}

	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	settings.Verbose = verboseRequested(os.Args[1:])

	dataDir := settings.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".grants")
	}

	log, err := logger.New(filepath.Join(dataDir, "logs"), settings.Verbose)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	store, err := openStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	// Source and classifier failures must not block the config and
	// status commands, so construction is tolerant: the run commands
	// nil-check what they need.
	source, err := connectors.CreateSource(settings.Source)
	if err != nil {
		log.Warn("source unavailable", zap.Error(err))
	}

	cls, err := classifier.CreateClassifier(settings.Classifier)
	if err != nil {
		log.Warn("classifier unavailable", zap.Error(err))
	}
	if cls != nil {
		defer cls.Close()
	}

	var pipeline driving.Pipeline
	var scheduler driving.Scheduler
	if source != nil && cls != nil {
		enricher := services.NewEnricher(cls, services.EnricherConfig{
			Workers:       settings.Enrich.Workers,
			RatePerMinute: settings.Enrich.RatePerMinute,
			Burst:         settings.Enrich.Burst,
			Retry:         settings.Enrich.Retry,
		}, log)

		p := services.NewPipeline(
			source, grantcsv.New(),
			store.LedgerStore(), store.DatasetStore(), store.RunStore(),
			enricher, log,
		)
		pipeline = p
		scheduler = services.NewScheduler(
			settingsService.GetSchedulerConfig(),
			store.SchedulerStore(), p, store.RunStore(), log,
		)
	}

	reports := services.NewReportService(
		store.RunStore(), store.DatasetStore(), store.LedgerStore())

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Pipeline:  pipeline,
		Settings:  settingsService,
		Reports:   reports,
		Scheduler: scheduler,
		Source:    source,
		Config:    configStore,
	})

	return cli.Execute()
}

// openStore opens the SQLite store backing every persistent store.
func openStore(dataDir string) (*sqlite.Store, error) {
	if path := os.Getenv(envDBPath); path != "" {
		return sqlite.NewStoreAt(path)
	}
	return sqlite.NewStore(filepath.Join(dataDir, "data"))
}

// verboseRequested scans raw arguments for the verbose flag before
// cobra parses them, so the logger can be built first.
func verboseRequested(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}
	return false
}
