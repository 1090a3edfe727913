// Package cli implements the grants command line interface using cobra.
//
// Commands call into core services through the driving ports; the
// composition root injects them with SetServices before Execute runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driving"
)

// version is stamped at build time via SetVersion.
var version = "dev"

// Injected services. Commands nil-check the ones they need so a partly
// configured installation can still run config and status.
var (
	pipelineService  driving.Pipeline
	settingsService  driving.SettingsService
	reportService    driving.ReportService
	schedulerService driving.Scheduler
	grantSource      driven.GrantSource
	configStore      driven.ConfigStore
)

// Services holds the dependencies the commands call into.
type Services struct {
	Pipeline  driving.Pipeline
	Settings  driving.SettingsService
	Reports   driving.ReportService
	Scheduler driving.Scheduler
	Source    driven.GrantSource
	Config    driven.ConfigStore
}

// SetServices injects the command dependencies.
func SetServices(s Services) {
	pipelineService = s.Pipeline
	settingsService = s.Settings
	reportService = s.Reports
	schedulerService = s.Scheduler
	grantSource = s.Source
	configStore = s.Config
}

// SetVersion records the binary version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// verbose raises the console log level; read by the composition root
// before cobra parses flags, registered here so help documents it.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "grants",
	Short: "Refresh, classify and publish the grants dataset",
	Long: `grants keeps a published copy of a government grants dataset up to date.

Each run loads the source table, fingerprints every row, diffs the
fingerprints against the ledger from the previous run, classifies only
the new or changed records, and atomically replaces the published
dataset. Unchanged records keep their existing labels without any
classifier calls.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug detail to the console")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
