package indicator

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/service/exchange"
)

const DefaultLookback = 50

type seriesKey struct {
	symbol    string
	timeframe exchange.Timeframe
}

type series struct {
	rsi    *RSI
	window *window
	lastAt time.Time
}

// Engine maintains one incremental RSI and one rolling (price, RSI) window
// per (symbol, timeframe). It is safe for concurrent use; the windows are
// the only in-memory series state the monitors share.
type Engine struct {
	mu       sync.Mutex
	period   int
	lookback int
	divCfg   DivergenceConfig
	series   map[seriesKey]*series
}

func NewEngine(period, lookback int, divCfg DivergenceConfig) *Engine {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Engine{
		period:   period,
		lookback: lookback,
		divCfg:   divCfg,
		series:   make(map[seriesKey]*series),
	}
}

func (e *Engine) get(symbol string, tf exchange.Timeframe) *series {
	key := seriesKey{symbol: symbol, timeframe: tf}
	s, ok := e.series[key]
	if !ok {
		s = &series{rsi: NewRSI(e.period), window: newWindow(e.lookback)}
		e.series[key] = s
	}
	return s
}

// Observe feeds one closed candle. Candles already seen (same or older
// close time) are ignored so overlapping kline fetches stay idempotent.
func (e *Engine) Observe(symbol string, tf exchange.Timeframe, close decimal.Decimal, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.get(symbol, tf)
	if !s.lastAt.IsZero() && !at.After(s.lastAt) {
		return
	}
	s.lastAt = at

	price := close.InexactFloat64()
	s.rsi.Update(price)
	if !s.rsi.Ready() {
		return
	}
	s.window.push(Point{Price: price, RSI: s.rsi.Value(), At: at})
}

// LatestRSI returns the most recent RSI value for the pair, if one exists.
func (e *Engine) LatestRSI(symbol string, tf exchange.Timeframe) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.series[seriesKey{symbol: symbol, timeframe: tf}]
	if !ok {
		return 0, false
	}
	p, ok := s.window.last()
	if !ok {
		return 0, false
	}
	return p.RSI, true
}

// Detect runs divergence detection over the pair's current window.
func (e *Engine) Detect(symbol string, tf exchange.Timeframe) *Divergence {
	e.mu.Lock()
	s, ok := e.series[seriesKey{symbol: symbol, timeframe: tf}]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	points := s.window.slice()
	e.mu.Unlock()

	return DetectDivergence(points, e.divCfg)
}
