package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trading-alert-bot/internal/schedule"
	"trading-alert-bot/internal/service/exchange"
	"trading-alert-bot/internal/store"
)

// QuotePollTask samples the latest price for every symbol that has an
// enabled alert in one market, and runs the samples through the price
// evaluator. One task instance exists per market class.
type QuotePollTask struct {
	market    exchange.Market
	provider  exchange.QuoteProvider
	alerts    *store.PriceAlertStore
	evaluator *PriceEvaluator
}

func NewQuotePollTask(market exchange.Market, provider exchange.QuoteProvider, alerts *store.PriceAlertStore, evaluator *PriceEvaluator) schedule.Task {
	return &QuotePollTask{
		market:    market,
		provider:  provider,
		alerts:    alerts,
		evaluator: evaluator,
	}
}

func (t *QuotePollTask) Name() string {
	return fmt.Sprintf("%s price poll task", t.market)
}

func (t *QuotePollTask) Run(ctx context.Context) error {
	for _, symbol := range t.alerts.Symbols(t.market) {
		price, err := t.provider.Quote(ctx, symbol)
		if err != nil {
			slog.Error("failed to fetch quote", "market", t.market, "symbol", symbol, "error", err)
			continue
		}
		t.evaluator.Evaluate(ctx, exchange.PriceSample{
			Market:     t.market,
			Symbol:     symbol,
			Price:      price,
			ObservedAt: time.Now(),
		})
	}
	return nil
}

// IndicatorPollTask drives the indicator evaluator for one timeframe.
// It runs frequently but only evaluates when a candle boundary has passed
// since the last evaluation, so alerts fire on closed candles.
type IndicatorPollTask struct {
	timeframe exchange.Timeframe
	evaluator *IndicatorEvaluator

	mu           sync.Mutex
	lastBoundary time.Time
}

func NewIndicatorPollTask(tf exchange.Timeframe, evaluator *IndicatorEvaluator) schedule.Task {
	return &IndicatorPollTask{timeframe: tf, evaluator: evaluator}
}

func (t *IndicatorPollTask) Name() string {
	return fmt.Sprintf("%s indicator poll task", t.timeframe)
}

func (t *IndicatorPollTask) Run(ctx context.Context) error {
	boundary := time.Now().Truncate(t.timeframe.Duration())

	t.mu.Lock()
	due := boundary.After(t.lastBoundary)
	if due {
		t.lastBoundary = boundary
	}
	t.mu.Unlock()
	if !due {
		return nil
	}

	t.evaluator.EvaluateTimeframe(ctx, t.timeframe)
	return nil
}
