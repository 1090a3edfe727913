package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driving"
)

// watchDebounce coalesces editor write bursts into one run.
const watchDebounce = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a file source and refresh on every change",
	Long: `Watches the configured source file and runs the pipeline each time the
file is written. Only file sources can be watched; writes arriving in
quick succession are coalesced into a single run.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errors.New("pipeline not configured; check 'grants config list' and the warnings above")
	}
	if grantSource == nil {
		return errors.New("source not configured; check 'grants config list'")
	}

	watchable, ok := grantSource.(driven.WatchableSource)
	if !ok {
		return errors.New("only file sources can be watched; set source.type to file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := watchable.Watch(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s. Press Ctrl+C to stop.\n", grantSource.Describe())

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			cmd.Println("\nWatch stopped.")
			return nil

		case _, ok := <-events:
			if !ok {
				cmd.Println("\nWatch stopped.")
				return nil
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				pending = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(watchDebounce)
			}

		case <-pending:
			timer = nil
			pending = nil

			report, err := pipelineService.Run(ctx, driving.RunOptions{})
			if err != nil {
				cmd.Printf("Run failed: %v\n", err)
				continue
			}
			cmd.Println(formatRunLine(report))
		}
	}
}
