package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	task     Task
	interval time.Duration
}

// IntervalRunner runs each registered task on its own ticker, in its own
// goroutine. Task errors are logged and the next tick still runs; a task
// that overruns its interval simply delays its own next run, never the
// other tasks'.
type IntervalRunner struct {
	entries []entry
}

func NewIntervalRunner() *IntervalRunner {
	return &IntervalRunner{}
}

func (r *IntervalRunner) Add(task Task, interval time.Duration) {
	r.entries = append(r.entries, entry{task: task, interval: interval})
}

// Run blocks until ctx is cancelled and every in-flight task has returned.
func (r *IntervalRunner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range r.entries {
		wg.Add(1)
		go func(e entry) {
			defer wg.Done()
			r.loop(ctx, e)
		}(e)
	}
	wg.Wait()
}

func (r *IntervalRunner) loop(ctx context.Context, e entry) {
	slog.Info("task scheduled", "task", e.task.Name(), "interval", e.interval)
	t := time.NewTicker(e.interval)
	defer t.Stop()

	for {
		if err := e.task.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("task run failed", "task", e.task.Name(), "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
