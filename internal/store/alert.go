package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/service/exchange"
)

type Condition string

const (
	Above Condition = "above"
	Below Condition = "below"
)

func (c Condition) Valid() bool {
	return c == Above || c == Below
}

// Met reports whether value satisfies the condition against target.
// The boundary is inclusive on both sides.
func (c Condition) Met(value, target decimal.Decimal) bool {
	switch c {
	case Above:
		return value.GreaterThanOrEqual(target)
	case Below:
		return value.LessThanOrEqual(target)
	}
	return false
}

// MetFloat is Met over plain floats, used for RSI comparisons.
func (c Condition) MetFloat(value, target float64) bool {
	switch c {
	case Above:
		return value >= target
	case Below:
		return value <= target
	}
	return false
}

// PriceAlert is one standing price alert.
type PriceAlert struct {
	ID            string          `json:"id"`
	Market        exchange.Market `json:"market"`
	Symbol        string          `json:"symbol"`
	Condition     Condition       `json:"condition"`
	Price         decimal.Decimal `json:"price"`
	Enabled       bool            `json:"enabled"`
	CreatedAt     time.Time       `json:"created_at"`
	LastTriggered *time.Time      `json:"last_triggered,omitempty"`
}

func (a PriceAlert) Validate() error {
	if !a.Market.Valid() {
		return fmt.Errorf("unknown market %q", a.Market)
	}
	if a.Symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	if !a.Condition.Valid() {
		return fmt.Errorf("unknown condition %q", a.Condition)
	}
	if !a.Price.IsPositive() {
		return fmt.Errorf("target price must be positive: %s", a.Price)
	}
	return nil
}

type IndicatorKind string

const (
	KindRSILevel   IndicatorKind = "rsi"
	KindDivergence IndicatorKind = "divergence"
)

// IndicatorAlert is a standing RSI-level or divergence alert.
// Condition and Threshold are meaningful for rsi alerts only.
type IndicatorAlert struct {
	ID            string             `json:"id"`
	Symbol        string             `json:"symbol"`
	Market        exchange.Market    `json:"market"`
	Indicator     IndicatorKind      `json:"indicator"`
	Timeframe     exchange.Timeframe `json:"timeframe"`
	Condition     Condition          `json:"condition,omitempty"`
	Threshold     float64            `json:"threshold,omitempty"`
	Enabled       bool               `json:"enabled"`
	CreatedAt     time.Time          `json:"created_at"`
	LastTriggered *time.Time         `json:"last_triggered,omitempty"`
}

func (a IndicatorAlert) Validate() error {
	if a.Symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	if !a.Timeframe.Valid() {
		return fmt.Errorf("unknown timeframe %q", a.Timeframe)
	}
	switch a.Indicator {
	case KindRSILevel:
		if !a.Condition.Valid() {
			return fmt.Errorf("unknown condition %q", a.Condition)
		}
		if a.Threshold < 0 || a.Threshold > 100 {
			return fmt.Errorf("rsi threshold out of range: %v", a.Threshold)
		}
	case KindDivergence:
	default:
		return fmt.Errorf("unknown indicator %q", a.Indicator)
	}
	return nil
}
