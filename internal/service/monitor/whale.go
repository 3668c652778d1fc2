package monitor

import (
	"context"
	"log/slog"

	"trading-alert-bot/internal/entity"
	"trading-alert-bot/internal/repo"
	"trading-alert-bot/internal/service/exchange"
	"trading-alert-bot/internal/store"
)

// WhaleEvaluator compares every normalized trade against the whale
// thresholds. It is stateless apart from the settings store and reads one
// consistent snapshot per trade. Whale hits are not cooldown-gated: each
// qualifying trade is its own event.
type WhaleEvaluator struct {
	settings *store.WhaleSettingsStore
	notifier Notifier
	triggers repo.TriggerRepo
}

type WhaleOption func(e *WhaleEvaluator)

func WithWhaleNotifier(n Notifier) WhaleOption {
	return func(e *WhaleEvaluator) {
		e.notifier = n
	}
}

func NewWhaleEvaluator(settings *store.WhaleSettingsStore, triggers repo.TriggerRepo, opts ...WhaleOption) *WhaleEvaluator {
	e := &WhaleEvaluator{
		settings: settings,
		triggers: triggers,
		notifier: consoleNotifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run consumes trades until the channel closes or ctx is cancelled. The
// in-flight evaluation always completes before Run returns.
func (e *WhaleEvaluator) Run(ctx context.Context, in <-chan exchange.TradeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case trade, ok := <-in:
			if !ok {
				return
			}
			e.Handle(ctx, trade)
		}
	}
}

// Handle evaluates one trade. A failure here never blocks later trades.
func (e *WhaleEvaluator) Handle(ctx context.Context, trade exchange.TradeEvent) {
	settings := e.settings.Snapshot()
	if !settings.ExchangeEnabled(trade.Exchange) {
		return
	}
	threshold := settings.Threshold(trade.Symbol)
	if trade.Notional.LessThan(threshold) {
		return
	}

	slog.Info("whale trade detected", "exchange", trade.Exchange, "symbol", trade.Symbol,
		"side", trade.Side, "notional", trade.Notional)

	n := Notification{
		Kind:      KindWhale,
		Market:    exchange.MarketCrypto,
		Exchange:  trade.Exchange,
		Symbol:    trade.Symbol,
		Direction: string(trade.Side),
		Price:     trade.Price,
		Quantity:  trade.Quantity,
		Target:    threshold,
		At:        trade.ObservedAt,
	}

	if _, err := e.triggers.Create(ctx, entity.Trigger{
		Kind:      string(KindWhale),
		Market:    string(exchange.MarketCrypto),
		Exchange:  string(trade.Exchange),
		Symbol:    trade.Symbol,
		Direction: string(trade.Side),
		Price:     trade.Price.String(),
		Quantity:  trade.Quantity.String(),
		Target:    threshold.String(),
		CreatedAt: trade.ObservedAt,
	}); err != nil {
		slog.Error("failed to save whale trigger", "symbol", trade.Symbol, "error", err)
	}

	if err := e.notifier.Notify(ctx, n); err != nil {
		slog.Error("whale notify failed", "symbol", trade.Symbol, "error", err)
	}
}
