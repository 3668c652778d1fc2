package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/entity"
	"trading-alert-bot/internal/repo"
	"trading-alert-bot/internal/service/exchange"
	"trading-alert-bot/internal/service/indicator"
	"trading-alert-bot/internal/store"
)

// IndicatorEvaluator refreshes the rolling windows from klines and
// evaluates RSI-level and divergence alerts for one timeframe at a time.
type IndicatorEvaluator struct {
	alerts   *store.IndicatorAlertStore
	engine   *indicator.Engine
	klines   exchange.KlineService
	cooldown *store.CooldownStore
	notifier Notifier
	triggers repo.TriggerRepo
	fetch    int // klines per refresh

	mu       sync.Mutex
	reported map[string]time.Time // alert id -> second pivot of last reported pair
}

type IndicatorOption func(e *IndicatorEvaluator)

func WithIndicatorNotifier(n Notifier) IndicatorOption {
	return func(e *IndicatorEvaluator) {
		e.notifier = n
	}
}

func NewIndicatorEvaluator(
	alerts *store.IndicatorAlertStore,
	engine *indicator.Engine,
	klines exchange.KlineService,
	cooldown *store.CooldownStore,
	triggers repo.TriggerRepo,
	fetch int,
	opts ...IndicatorOption,
) *IndicatorEvaluator {
	e := &IndicatorEvaluator{
		alerts:   alerts,
		engine:   engine,
		klines:   klines,
		cooldown: cooldown,
		triggers: triggers,
		notifier: consoleNotifier{},
		fetch:    fetch,
		reported: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateTimeframe refreshes every symbol with an enabled alert on the
// timeframe and evaluates the alerts against the updated windows. A fetch
// failure for one symbol skips only that symbol's alerts.
func (e *IndicatorEvaluator) EvaluateTimeframe(ctx context.Context, tf exchange.Timeframe) {
	alerts := e.alerts.ForTimeframe(tf)
	if len(alerts) == 0 {
		return
	}

	symbols := lo.Uniq(lo.Map(alerts, func(a store.IndicatorAlert, _ int) string {
		return a.Symbol
	}))
	refreshed := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		if err := e.refresh(ctx, symbol, tf); err != nil {
			slog.Error("failed to refresh klines", "symbol", symbol, "timeframe", tf, "error", err)
			continue
		}
		refreshed[symbol] = true
	}

	now := time.Now()
	for _, alert := range alerts {
		if !refreshed[alert.Symbol] {
			continue
		}
		switch alert.Indicator {
		case store.KindRSILevel:
			e.evaluateRSILevel(ctx, alert, now)
		case store.KindDivergence:
			e.evaluateDivergence(ctx, alert, now)
		}
	}
}

// refresh pulls recent klines and feeds the closed candles into the
// engine. The final kline is still forming and is excluded.
func (e *IndicatorEvaluator) refresh(ctx context.Context, symbol string, tf exchange.Timeframe) error {
	klines, err := e.klines.GetKlines(ctx, exchange.GetKlinesReq{
		Symbol:    symbol,
		Timeframe: tf,
		Limit:     e.fetch,
	})
	if err != nil {
		return err
	}

	now := time.Now()
	for _, k := range klines {
		if k.CloseTime.After(now) {
			continue
		}
		e.engine.Observe(symbol, tf, k.Close, k.CloseTime)
	}
	return nil
}

func (e *IndicatorEvaluator) evaluateRSILevel(ctx context.Context, alert store.IndicatorAlert, now time.Time) {
	rsi, ok := e.engine.LatestRSI(alert.Symbol, alert.Timeframe)
	if !ok {
		return
	}
	if !alert.Condition.MetFloat(rsi, alert.Threshold) {
		return
	}
	if !e.cooldown.TryTrigger(alert.ID, now) {
		return
	}

	slog.Info("rsi alert triggered", "id", alert.ID, "symbol", alert.Symbol,
		"timeframe", alert.Timeframe, "rsi", rsi, "threshold", alert.Threshold)
	e.dispatch(ctx, alert, Notification{
		Kind:      KindRSI,
		Market:    alert.Market,
		Symbol:    alert.Symbol,
		Direction: string(alert.Condition),
		Price:     decimal.NewFromFloat(rsi).Round(2),
		Target:    decimal.NewFromFloat(alert.Threshold),
		Timeframe: alert.Timeframe,
		At:        now,
	})
}

func (e *IndicatorEvaluator) evaluateDivergence(ctx context.Context, alert store.IndicatorAlert, now time.Time) {
	d := e.engine.Detect(alert.Symbol, alert.Timeframe)
	if d == nil {
		return
	}

	// the same pivot pair stays the most recent for many ticks;
	// report it once per alert
	e.mu.Lock()
	seen := e.reported[alert.ID].Equal(d.Second.At)
	e.mu.Unlock()
	if seen {
		return
	}

	if !e.cooldown.TryTrigger(alert.ID, now) {
		return
	}
	e.mu.Lock()
	e.reported[alert.ID] = d.Second.At
	e.mu.Unlock()

	slog.Info("divergence alert triggered", "id", alert.ID, "symbol", alert.Symbol,
		"timeframe", alert.Timeframe, "type", d.Type, "strength", d.Strength)
	e.dispatch(ctx, alert, Notification{
		Kind:      KindDivergence,
		Market:    alert.Market,
		Symbol:    alert.Symbol,
		Direction: string(d.Type),
		Price:     decimal.NewFromFloat(d.Second.Price),
		Timeframe: alert.Timeframe,
		Strength:  d.Strength,
		At:        now,
	})
}

func (e *IndicatorEvaluator) dispatch(ctx context.Context, alert store.IndicatorAlert, n Notification) {
	if _, err := e.triggers.Create(ctx, entity.Trigger{
		Kind:      string(n.Kind),
		Market:    string(alert.Market),
		Symbol:    alert.Symbol,
		AlertID:   alert.ID,
		Direction: n.Direction,
		Price:     n.Price.String(),
		Target:    n.Target.String(),
		Timeframe: string(alert.Timeframe),
		Strength:  n.Strength,
		CreatedAt: n.At,
	}); err != nil {
		slog.Error("failed to save indicator trigger", "id", alert.ID, "error", err)
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		slog.Error("indicator alert notify failed", "id", alert.ID, "error", err)
	}
}
