package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/entity"
	"trading-alert-bot/internal/repo"
	"trading-alert-bot/internal/schedule"
	"trading-alert-bot/internal/service/exchange"
	"trading-alert-bot/internal/store"
)

// VolumeConfig tunes spike detection.
type VolumeConfig struct {
	Timeframe        exchange.Timeframe // baseline candle size
	BaselineCandles  int                // closed candles averaged into the baseline
	ThresholdPercent decimal.Decimal    // fire at current/baseline*100 >= this
	BaselineRefresh  time.Duration      // how long a cached baseline stays valid
}

func (c VolumeConfig) withDefaults() VolumeConfig {
	if c.Timeframe == "" {
		c.Timeframe = exchange.Timeframe4h
	}
	if c.BaselineCandles <= 0 {
		c.BaselineCandles = 20
	}
	if c.ThresholdPercent.IsZero() {
		c.ThresholdPercent = decimal.NewFromInt(200)
	}
	if c.BaselineRefresh <= 0 {
		c.BaselineRefresh = 10 * time.Minute
	}
	return c
}

type volumeBaseline struct {
	avg decimal.Decimal
	at  time.Time
}

// VolumeEvaluator detects unusual trading volume: the latest one-minute
// volume, extrapolated to the baseline timeframe, is compared against the
// average volume of the recent closed baseline candles. Hits are gated by
// a per-symbol cooldown and the evaluator's enable flag.
type VolumeEvaluator struct {
	cfg      VolumeConfig
	klines   exchange.KlineService
	quotes   exchange.QuoteProvider
	cooldown *store.CooldownStore
	notifier Notifier
	triggers repo.TriggerRepo

	enabled atomic.Bool

	mu        sync.Mutex
	threshold decimal.Decimal
	baselines map[string]volumeBaseline
}

type VolumeOption func(e *VolumeEvaluator)

func WithVolumeNotifier(n Notifier) VolumeOption {
	return func(e *VolumeEvaluator) {
		e.notifier = n
	}
}

func NewVolumeEvaluator(
	cfg VolumeConfig,
	klines exchange.KlineService,
	quotes exchange.QuoteProvider,
	cooldown *store.CooldownStore,
	triggers repo.TriggerRepo,
	opts ...VolumeOption,
) *VolumeEvaluator {
	cfg = cfg.withDefaults()
	e := &VolumeEvaluator{
		cfg:       cfg,
		klines:    klines,
		quotes:    quotes,
		cooldown:  cooldown,
		triggers:  triggers,
		notifier:  consoleNotifier{},
		threshold: cfg.ThresholdPercent,
		baselines: make(map[string]volumeBaseline),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *VolumeEvaluator) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

func (e *VolumeEvaluator) Enabled() bool {
	return e.enabled.Load()
}

// SetThreshold changes the spike threshold percent at runtime.
func (e *VolumeEvaluator) SetThreshold(percent decimal.Decimal) {
	e.mu.Lock()
	e.threshold = percent
	e.mu.Unlock()
}

// Check evaluates one symbol. Fetch errors skip the symbol; the next pass
// retries.
func (e *VolumeEvaluator) Check(ctx context.Context, symbol string) {
	if !e.enabled.Load() {
		return
	}

	avg, err := e.baseline(ctx, symbol)
	if err != nil {
		slog.Error("failed to compute volume baseline", "symbol", symbol, "error", err)
		return
	}
	current, err := e.currentVolume(ctx, symbol)
	if err != nil {
		slog.Error("failed to fetch current volume", "symbol", symbol, "error", err)
		return
	}
	if avg.IsZero() {
		return
	}

	percent := current.Div(avg).Mul(decimal.NewFromInt(100))
	e.mu.Lock()
	threshold := e.threshold
	e.mu.Unlock()
	if percent.LessThan(threshold) {
		return
	}

	now := time.Now()
	if !e.cooldown.TryTrigger(symbol, now) {
		return
	}

	slog.Info("volume spike detected", "symbol", symbol,
		"baseline", avg, "current", current, "percent", percent.Round(0))

	price := decimal.Zero
	if p, err := e.quotes.Quote(ctx, symbol); err == nil {
		price = p
	} else {
		slog.Warn("failed to fetch price for volume alert", "symbol", symbol, "error", err)
	}

	if _, err := e.triggers.Create(ctx, entity.Trigger{
		Kind:      string(KindVolume),
		Market:    string(exchange.MarketCrypto),
		Symbol:    symbol,
		Direction: "spike",
		Price:     price.String(),
		Quantity:  current.String(),
		Target:    avg.String(),
		Timeframe: string(e.cfg.Timeframe),
		Strength:  percent.InexactFloat64(),
		CreatedAt: now,
	}); err != nil {
		slog.Error("failed to save volume trigger", "symbol", symbol, "error", err)
	}

	if err := e.notifier.Notify(ctx, Notification{
		Kind:      KindVolume,
		Market:    exchange.MarketCrypto,
		Symbol:    symbol,
		Direction: "spike",
		Price:     price,
		Quantity:  current,
		Target:    avg,
		Timeframe: e.cfg.Timeframe,
		Strength:  percent.InexactFloat64(),
		At:        now,
	}); err != nil {
		slog.Error("volume alert notify failed", "symbol", symbol, "error", err)
	}
}

// baseline returns the average volume of the recent closed baseline
// candles, cached until BaselineRefresh elapses.
func (e *VolumeEvaluator) baseline(ctx context.Context, symbol string) (decimal.Decimal, error) {
	e.mu.Lock()
	cached, ok := e.baselines[symbol]
	e.mu.Unlock()
	if ok && time.Since(cached.at) < e.cfg.BaselineRefresh {
		return cached.avg, nil
	}

	klines, err := e.klines.GetKlines(ctx, exchange.GetKlinesReq{
		Symbol:    symbol,
		Timeframe: e.cfg.Timeframe,
		Limit:     e.cfg.BaselineCandles + 1,
	})
	if err != nil {
		return decimal.Zero, err
	}

	now := time.Now()
	sum := decimal.Zero
	count := 0
	for _, k := range klines {
		if k.CloseTime.After(now) {
			continue
		}
		sum = sum.Add(k.Volume)
		count++
	}
	if count == 0 {
		return decimal.Zero, fmt.Errorf("no closed %s candles for %s", e.cfg.Timeframe, symbol)
	}
	avg := sum.Div(decimal.NewFromInt(int64(count)))

	e.mu.Lock()
	e.baselines[symbol] = volumeBaseline{avg: avg, at: now}
	e.mu.Unlock()
	return avg, nil
}

// currentVolume extrapolates the latest closed one-minute volume to the
// baseline timeframe.
func (e *VolumeEvaluator) currentVolume(ctx context.Context, symbol string) (decimal.Decimal, error) {
	klines, err := e.klines.GetKlines(ctx, exchange.GetKlinesReq{
		Symbol:    symbol,
		Timeframe: exchange.Timeframe1m,
		Limit:     2,
	})
	if err != nil {
		return decimal.Zero, err
	}

	now := time.Now()
	var last *exchange.Kline
	for i := range klines {
		if klines[i].CloseTime.After(now) {
			continue
		}
		last = &klines[i]
	}
	if last == nil {
		return decimal.Zero, fmt.Errorf("no closed 1m candle for %s", symbol)
	}

	minutes := decimal.NewFromFloat(e.cfg.Timeframe.Duration().Minutes())
	return last.Volume.Mul(minutes), nil
}

// VolumePollTask drives the volume evaluator over a fixed symbol list.
type VolumePollTask struct {
	symbols   []string
	evaluator *VolumeEvaluator
}

func NewVolumePollTask(symbols []string, evaluator *VolumeEvaluator) schedule.Task {
	return &VolumePollTask{symbols: symbols, evaluator: evaluator}
}

func (t *VolumePollTask) Name() string {
	return "volume spike poll task"
}

func (t *VolumePollTask) Run(ctx context.Context) error {
	for _, symbol := range t.symbols {
		t.evaluator.Check(ctx, symbol)
	}
	return nil
}
