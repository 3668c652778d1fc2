package monitor

import (
	"context"
	"sync"
	"time"

	"trading-alert-bot/internal/entity"
)

// captureNotifier records every notification it receives.
type captureNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (c *captureNotifier) Notify(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return c.err
}

func (c *captureNotifier) all() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification{}, c.sent...)
}

// captureTriggerRepo is an in-memory TriggerRepo for tests.
type captureTriggerRepo struct {
	mu       sync.Mutex
	triggers []entity.Trigger
}

func (r *captureTriggerRepo) Create(_ context.Context, trigger entity.Trigger) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trigger.Id = int64(len(r.triggers) + 1)
	r.triggers = append(r.triggers, trigger)
	return trigger.Id, nil
}

func (r *captureTriggerRepo) FindRecent(_ context.Context, limit int) ([]entity.Trigger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.triggers) {
		limit = len(r.triggers)
	}
	out := make([]entity.Trigger, 0, limit)
	for i := len(r.triggers) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.triggers[i])
	}
	return out, nil
}

func (r *captureTriggerRepo) CountSince(_ context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, t := range r.triggers {
		if !t.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *captureTriggerRepo) all() []entity.Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Trigger{}, r.triggers...)
}
