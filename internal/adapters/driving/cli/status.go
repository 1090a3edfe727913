package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last run and dataset figures",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}

	ctx := cmd.Context()

	last, err := reportService.LastRun(ctx)
	if err != nil {
		return fmt.Errorf("loading last run: %w", err)
	}

	if last == nil {
		cmd.Println("No runs recorded yet. Start one with 'grants run'.")
	} else {
		printLastRun(cmd, *last)
	}

	datasetSize, err := reportService.DatasetSize(ctx)
	if err != nil {
		return fmt.Errorf("counting dataset: %w", err)
	}
	ledgerSize, err := reportService.LedgerSize(ctx)
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}

	cmd.Println()
	cmd.Printf("Published records: %d\n", datasetSize)
	cmd.Printf("Ledger entries:    %d\n", ledgerSize)
	return nil
}

func printLastRun(cmd *cobra.Command, report domain.RunReport) {
	cmd.Printf("Last run:   %s", report.ID)
	if report.DryRun {
		cmd.Printf(" (dry run)")
	}
	cmd.Println()
	cmd.Printf("Started:    %s\n", report.StartedAt.Local().Format("2006-01-02 15:04:05"))
	cmd.Printf("Duration:   %s\n", report.Duration().Round(time.Millisecond))
	cmd.Printf("Outcome:    %s\n", report.Stage)
	if report.Error != "" {
		cmd.Printf("Error:      %s\n", report.Error)
	}
	cmd.Printf("Rows:       %d loaded, %d duplicates collapsed, %d new\n",
		report.TotalRows, report.DuplicateRows, report.NewRows)
	if !report.DryRun {
		cmd.Printf("Enrichment: %d classified, %d sentinel\n",
			report.EnrichedRows, report.SentinelRows)
		cmd.Printf("Published:  %d records\n", report.PublishedRows)
	}
}
