package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/service/exchange"
)

type Kind string

const (
	KindPrice      Kind = "price"
	KindRSI        Kind = "rsi"
	KindDivergence Kind = "divergence"
	KindWhale      Kind = "whale"
	KindVolume     Kind = "volume"
)

// Notification is the payload handed to the dispatcher. It is produced
// exactly once per qualifying whale trade, per confirmed divergence, or
// per (alert, cooldown window).
type Notification struct {
	Kind      Kind               `json:"kind"`
	Market    exchange.Market    `json:"market,omitempty"`
	Exchange  exchange.Name      `json:"exchange,omitempty"`
	Symbol    string             `json:"symbol"`
	Direction string             `json:"direction"` // above/below, buy/sell, divergence type
	Price     decimal.Decimal    `json:"price"`
	Quantity  decimal.Decimal    `json:"quantity,omitempty"`
	Target    decimal.Decimal    `json:"target,omitempty"` // alert target or whale threshold
	Timeframe exchange.Timeframe `json:"timeframe,omitempty"`
	Strength  float64            `json:"strength,omitempty"`
	At        time.Time          `json:"timestamp"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type consoleNotifier struct {
}

func (c consoleNotifier) Notify(ctx context.Context, n Notification) error {
	fmt.Printf("[%s] %s %s %s price=%s\n", n.Kind, n.Symbol, n.Direction, n.At.Format(time.RFC3339), n.Price)
	return nil
}

func NewConsoleNotifier() Notifier {
	return consoleNotifier{}
}
