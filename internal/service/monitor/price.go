package monitor

import (
	"context"
	"log/slog"

	"trading-alert-bot/internal/entity"
	"trading-alert-bot/internal/repo"
	"trading-alert-bot/internal/service/exchange"
	"trading-alert-bot/internal/store"
)

// PriceEvaluator tests every price alert for a market/symbol against the
// latest sample. The cooldown store arms, fires and re-arms each alert:
// a disabled alert never fires, and a fired alert stays quiet until its
// cooldown elapses even if price keeps crossing the target.
type PriceEvaluator struct {
	alerts   *store.PriceAlertStore
	cooldown *store.CooldownStore
	notifier Notifier
	triggers repo.TriggerRepo
}

type PriceOption func(e *PriceEvaluator)

func WithPriceNotifier(n Notifier) PriceOption {
	return func(e *PriceEvaluator) {
		e.notifier = n
	}
}

func NewPriceEvaluator(alerts *store.PriceAlertStore, cooldown *store.CooldownStore, triggers repo.TriggerRepo, opts ...PriceOption) *PriceEvaluator {
	e := &PriceEvaluator{
		alerts:   alerts,
		cooldown: cooldown,
		triggers: triggers,
		notifier: consoleNotifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one sample through the standing alerts. Each alert is its
// own failure domain: a persist error on one does not stop the rest.
func (e *PriceEvaluator) Evaluate(ctx context.Context, sample exchange.PriceSample) {
	for _, alert := range e.alerts.ForMarket(sample.Market, sample.Symbol) {
		if !alert.Enabled {
			continue
		}
		if !alert.Condition.Met(sample.Price, alert.Price) {
			continue
		}
		if !e.cooldown.TryTrigger(alert.ID, sample.ObservedAt) {
			continue
		}

		slog.Info("price alert triggered", "id", alert.ID, "symbol", alert.Symbol,
			"condition", alert.Condition, "target", alert.Price, "price", sample.Price)

		if _, err := e.triggers.Create(ctx, entity.Trigger{
			Kind:      string(KindPrice),
			Market:    string(alert.Market),
			Symbol:    alert.Symbol,
			AlertID:   alert.ID,
			Direction: string(alert.Condition),
			Price:     sample.Price.String(),
			Target:    alert.Price.String(),
			CreatedAt: sample.ObservedAt,
		}); err != nil {
			slog.Error("failed to save price trigger", "id", alert.ID, "error", err)
		}

		if err := e.notifier.Notify(ctx, Notification{
			Kind:      KindPrice,
			Market:    alert.Market,
			Symbol:    alert.Symbol,
			Direction: string(alert.Condition),
			Price:     sample.Price,
			Target:    alert.Price,
			At:        sample.ObservedAt,
		}); err != nil {
			slog.Error("price alert notify failed", "id", alert.ID, "error", err)
		}
	}
}
