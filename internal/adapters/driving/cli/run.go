package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sher213/GrantsInvestments/internal/adapters/driving/tui"
	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driving"
)

var (
	runDryRun      bool
	runInteractive bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dataset refresh once",
	Long: `Loads the source table, diffs it against the hash ledger, classifies
new or changed records, and atomically publishes the result.

With --dry-run the run stops after the diff and reports what would be
enriched, without calling the classifier or publishing anything.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "stop after diff; classify and publish nothing")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "render live progress while the run executes")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errors.New("pipeline not configured; check 'grants config list' and the warnings above")
	}

	ctx := cmd.Context()
	opts := driving.RunOptions{DryRun: runDryRun}

	if runInteractive {
		report, err := tui.RunProgress(ctx, pipelineService, opts)
		return printRunOutcome(cmd, report, err)
	}

	return runWithProgress(ctx, cmd, opts)
}

// runWithProgress executes the run while printing progress updates.
func runWithProgress(ctx context.Context, cmd *cobra.Command, opts driving.RunOptions) error {
	type outcome struct {
		report domain.RunReport
		err    error
	}

	// Start the run in a goroutine
	resCh := make(chan outcome, 1)
	go func() {
		report, err := pipelineService.Run(ctx, opts)
		resCh <- outcome{report, err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-resCh:
			return printRunOutcome(cmd, res.report, res.err)
		case <-ticker.C:
			status := pipelineService.Status()
			if !status.Running {
				continue
			}
			if status.Stage == domain.StageEnrich && status.NewRows > 0 {
				cmd.Printf("\rEnriching... %d/%d records", status.Done(), status.NewRows)
			} else {
				cmd.Printf("\r%s...", stageLabel(status.Stage))
			}
		}
	}
}

// printRunOutcome prints the final run line and maps a failed run to a
// command error.
func printRunOutcome(cmd *cobra.Command, report domain.RunReport, err error) error {
	if err != nil {
		cmd.Printf("\rRun failed after %s.\n", report.Duration().Round(time.Millisecond))
		return fmt.Errorf("run failed: %w", err)
	}

	if report.DryRun {
		cmd.Printf("\rDry run: %d rows loaded, %d duplicates collapsed, %d new. Nothing published.\n",
			report.TotalRows, report.DuplicateRows, report.NewRows)
		return nil
	}

	cmd.Printf("\rRun %s done in %s: %d rows, %d new, %d enriched, %d sentinel, %d published.\n",
		report.ID, report.Duration().Round(time.Millisecond),
		report.TotalRows, report.NewRows, report.EnrichedRows,
		report.SentinelRows, report.PublishedRows)
	return nil
}

// stageLabel is the progress-line name for a stage.
func stageLabel(stage domain.RunStage) string {
	switch stage {
	case domain.StageLoad:
		return "Loading source"
	case domain.StageDiff:
		return "Diffing against ledger"
	case domain.StageEnrich:
		return "Enriching"
	case domain.StagePublish:
		return "Publishing"
	default:
		return string(stage)
	}
}
