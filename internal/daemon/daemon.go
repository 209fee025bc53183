package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// restartDelay spaces restarts of a crashing task so a hard failure does
// not spin the log.
const restartDelay = 2 * time.Second

// Task is a long-running background job. It should return nil on clean
// shutdown (ctx cancelled) and an error on crash.
type Task func(ctx context.Context, name string) error

// Supervisor runs named background tasks and restarts any that return an
// error, until the context is cancelled.
type Supervisor struct {
	logger *slog.Logger
	tasks  map[string]Task
	wg     sync.WaitGroup
}

func NewSupervisor(logger *slog.Logger) *Supervisor {
	return &Supervisor{
		logger: logger,
		tasks:  make(map[string]Task),
	}
}

// Add registers a task by name. Must be called before Start.
func (s *Supervisor) Add(name string, task Task) {
	s.tasks[name] = task
}

// Start launches every registered task in its own goroutine.
func (s *Supervisor) Start(ctx context.Context) {
	for name, task := range s.tasks {
		s.wg.Add(1)
		go func(name string, task Task) {
			defer s.wg.Done()
			s.supervise(ctx, name, task)
		}(name, task)
	}
}

// Wait blocks until every task has stopped.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) supervise(ctx context.Context, name string, task Task) {
	for {
		err := task(ctx, name)
		if err == nil {
			s.logger.Info("Background task exited cleanly", "task", name)
			return
		}
		if ctx.Err() != nil {
			s.logger.Info("Background task stopped on shutdown", "task", name)
			return
		}

		s.logger.Error("Background task crashed, restarting", "task", name, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}
