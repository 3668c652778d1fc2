package monitor

import (
	"context"
	"log/slog"
	"time"

	"trading-alert-bot/internal/repo"
	"trading-alert-bot/internal/schedule"
)

// StatusTask periodically logs a health summary from the trigger history:
// how many alerts fired in the reporting window and the most recent ones.
type StatusTask struct {
	triggers repo.TriggerRepo
	window   time.Duration
	recent   int
}

func NewStatusTask(triggers repo.TriggerRepo, window time.Duration, recent int) schedule.Task {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if recent <= 0 {
		recent = 5
	}
	return &StatusTask{triggers: triggers, window: window, recent: recent}
}

func (t *StatusTask) Name() string {
	return "alert status report task"
}

func (t *StatusTask) Run(ctx context.Context) error {
	count, err := t.triggers.CountSince(ctx, time.Now().Add(-t.window))
	if err != nil {
		return err
	}
	rows, err := t.triggers.FindRecent(ctx, t.recent)
	if err != nil {
		return err
	}

	slog.Info("alert status", "window", t.window, "fired", count)
	for _, r := range rows {
		slog.Info("recent trigger", "kind", r.Kind, "symbol", r.Symbol,
			"direction", r.Direction, "at", r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
