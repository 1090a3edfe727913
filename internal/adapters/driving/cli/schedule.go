package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the refresh scheduler in the foreground",
	Long: `Starts the scheduler, which refreshes the dataset on the configured
interval until interrupted. A refresh in flight when the process is
signalled finishes its publish before shutdown.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	if schedulerService == nil {
		return errors.New("scheduler not configured; check 'grants config list' and the warnings above")
	}
	if settingsService != nil {
		if cfg := settingsService.GetSchedulerConfig(); !cfg.Enabled {
			cmd.Println("Note: scheduler.enabled is false; enable it with 'grants config set scheduler.enabled true'.")
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Scheduler started. Press Ctrl+C to stop.")

	err := schedulerService.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler: %w", err)
	}

	// Wait for a refresh in flight before reporting shutdown.
	if err := schedulerService.Stop(); err != nil {
		return fmt.Errorf("stopping scheduler: %w", err)
	}

	cmd.Println("\nScheduler stopped.")
	return nil
}
