package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list, 0 for all")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}

	reports, err := reportService.History(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(reports) == 0 {
		cmd.Println("No runs recorded yet. Start one with 'grants run'.")
		return nil
	}

	for _, report := range reports {
		cmd.Println(formatRunLine(report))
	}
	return nil
}

// formatRunLine renders one run as a single history line.
func formatRunLine(report domain.RunReport) string {
	line := fmt.Sprintf("%s  %-6s",
		report.StartedAt.Local().Format("2006-01-02 15:04:05"), report.Stage)

	switch {
	case report.DryRun:
		line += fmt.Sprintf("  dry run: %d rows, %d new", report.TotalRows, report.NewRows)
	case report.Succeeded():
		line += fmt.Sprintf("  %d rows, %d new, %d enriched, %d sentinel, %d published",
			report.TotalRows, report.NewRows, report.EnrichedRows,
			report.SentinelRows, report.PublishedRows)
	default:
		line += "  " + report.Error
	}

	return line + fmt.Sprintf(" (%s)", report.Duration().Round(time.Millisecond))
}
