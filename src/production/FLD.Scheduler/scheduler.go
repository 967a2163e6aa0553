package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	metrics "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Metrics"
)

// Task is one repeating job
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
	// RunOnStart fires the first cycle immediately instead of after one interval
	RunOnStart bool
}

// Scheduler owns one independent ticker per task. Timers are not phase
// aligned and a slow task never delays another.
type Scheduler struct {
	tasks       []Task
	skipOverlap bool
	logger      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	loops   sync.WaitGroup
	cycles  sync.WaitGroup
	started bool
}

// New creates a scheduler. With skipOverlap set, a tick that fires while
// the previous cycle of the same task is still running is skipped.
func New(skipOverlap bool, log *logger.Logger) *Scheduler {
	return &Scheduler{
		skipOverlap: skipOverlap,
		logger:      log.WithComponent("scheduler"),
	}
}

// Add registers a task; it must be called before Start.
func (s *Scheduler) Add(task Task) error {
	if task.Name == "" || task.Run == nil {
		return fmt.Errorf("task needs a name and a run func")
	}
	if task.Interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", task.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("task %s: scheduler already started", task.Name)
	}
	s.tasks = append(s.tasks, task)
	return nil
}

// Start launches every task loop; it returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, task := range s.tasks {
		s.loops.Add(1)
		go s.loop(ctx, task)
		s.logger.Logger.Info().
			Str("task", task.Name).
			Dur("interval", task.Interval).
			Msg("Scheduled task started")
	}
}

// Stop cancels every loop and waits for in-flight cycles to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.loops.Wait()
	s.cycles.Wait()
	s.logger.Logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.loops.Done()

	var running atomic.Bool
	fire := func() {
		if s.skipOverlap && !running.CompareAndSwap(false, true) {
			metrics.IncCycleSkipped(task.Name)
			s.logger.Logger.Warn().Str("task", task.Name).Msg("Previous cycle still running, skipping tick")
			return
		}
		s.cycles.Add(1)
		go func() {
			defer s.cycles.Done()
			if s.skipOverlap {
				defer running.Store(false)
			}
			s.runCycle(ctx, task)
		}()
	}

	if task.RunOnStart {
		fire()
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fire()
		}
	}
}

// runCycle executes one cycle. Errors and panics are logged and counted,
// never propagated, so the ticker keeps firing.
func (s *Scheduler) runCycle(ctx context.Context, task Task) {
	start := time.Now()
	result := metrics.ResultSuccess

	defer func() {
		if r := recover(); r != nil {
			result = metrics.ResultPanic
			s.logger.Logger.Error().
				Str("task", task.Name).
				Interface("panic", r).
				Msg("Cycle panicked")
		}
		metrics.ObserveCycle(task.Name, result, time.Since(start))
	}()

	if err := task.Run(ctx); err != nil {
		result = metrics.ResultError
		s.logger.Logger.Error().Err(err).Str("task", task.Name).Msg("Cycle failed")
	}
}
