// Package scheduler runs the engine's named periodic tasks. Each task waits
// for the readiness gate, then runs its unit of work on its own interval. A
// failed tick is logged and the task continues; cancellation happens
// cooperatively at the sleep boundary.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one named periodic unit of work.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	tasks  []Task
	ready  <-chan struct{}
	logger *slog.Logger

	wg sync.WaitGroup
}

// New creates a scheduler. Tasks do not start until Start is called, and no
// task runs before the ready channel is closed.
func New(ready <-chan struct{}, tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks:  tasks,
		ready:  ready,
		logger: slog.With("component", "scheduler"),
	}
}

// Start launches one goroutine per task. It returns immediately; cancel the
// context to stop all tasks, then call Wait.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting periodic tasks", "count", len(s.tasks))

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(ctx, task)
	}
}

// Wait blocks until every task goroutine has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
	s.logger.Info("All periodic tasks stopped")
}

func (s *Scheduler) runTask(ctx context.Context, task Task) {
	defer s.wg.Done()

	logger := s.logger.With("task", task.Name, "interval", task.Interval)

	select {
	case <-s.ready:
	case <-ctx.Done():
		logger.Debug("Task cancelled before readiness")
		return
	}

	logger.Info("Periodic task started")

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		if err := task.Run(ctx); err != nil {
			// A failed tick must never terminate the task.
			logger.Error("Tick failed", "error", err, "elapsed", time.Since(start))
		} else {
			logger.Debug("Tick completed", "elapsed", time.Since(start))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.Info("Periodic task stopped")
			return
		}
	}
}
