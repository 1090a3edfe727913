package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driving"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs the dataset refresh on a fixed interval.
// It is a pure core service with no external control API.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	pipeline driving.Pipeline
	runs     driven.RunStore
	log      *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// tick is the due-task poll interval, overridable in tests.
	tick time.Duration
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	pipeline driving.Pipeline,
	runs driven.RunStore,
	log *zap.Logger,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		pipeline: pipeline,
		runs:     runs,
		log:      log,
		tick:     time.Minute,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is
// called or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		s.log.Error("initialising scheduled tasks", zap.Error(err))
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for a refresh in flight to complete
	s.wg.Wait()

	return nil
}

// initialiseTasks ensures the refresh task exists in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}
	return s.ensureTask(ctx, domain.TaskIDDatasetRefresh, "Dataset Refresh", s.config.RefreshInterval)
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, interval time.Duration) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		// A new task is due immediately: NextRun stays zero so the
		// first loop pass picks it up.
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: interval,
			Enabled:  true,
		}
	} else {
		// Update interval if changed
		if task.Interval != interval {
			task.Interval = interval
			// Recalculate next run from now
			task.NextRun = time.Now().Add(interval)
		}
		task.Enabled = true
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		s.log.Error("listing scheduled tasks", zap.Error(err))
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if task.Due(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		started := time.Now()

		var err error
		switch task.ID {
		case domain.TaskIDDatasetRefresh:
			err = s.runRefresh(ctx)
		default:
			s.log.Warn("unknown scheduled task", zap.String("task_id", task.ID))
			return
		}

		// A manually started run already covers this slot; leave the
		// task untouched so the next tick retries.
		if errors.Is(err, domain.ErrRunInProgress) {
			s.log.Info("run already active, skipping scheduled refresh",
				zap.String("task_id", task.ID))
			return
		}

		ended := time.Now()
		if err != nil {
			task.LastError = err.Error()
		} else {
			task.LastError = ""
			task.LastSuccess = ended
		}

		// Update task state
		task.LastRun = started
		task.NextRun = ended.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			s.log.Error("saving scheduled task",
				zap.String("task_id", task.ID),
				zap.Error(saveErr))
		}

		// The pipeline records each run; the scheduler only bounds how
		// much history accumulates.
		if pruneErr := s.runs.PruneRuns(ctx, s.config.HistoryKeep); pruneErr != nil {
			s.log.Error("pruning run history", zap.Error(pruneErr))
		}
	}()
}

// runRefresh executes one dataset refresh through the pipeline.
func (s *Scheduler) runRefresh(ctx context.Context) error {
	if s.pipeline == nil {
		return nil
	}

	_, err := s.pipeline.Run(ctx, driving.RunOptions{})
	return err
}
