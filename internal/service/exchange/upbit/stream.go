package upbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/service/exchange"
)

const wsURL = "wss://api.upbit.com/websocket/v1"

// DefaultKRWRate is the fallback KRW/USD conversion rate.
var DefaultKRWRate = decimal.NewFromInt(1350)

type rawTrade struct {
	Type      string          `json:"type"`
	Code      string          `json:"code"` // "KRW-BTC"
	Price     decimal.Decimal `json:"trade_price"`
	Volume    decimal.Decimal `json:"trade_volume"`
	AskBid    string          `json:"ask_bid"` // "BID" buys, "ASK" sells
	Timestamp int64           `json:"timestamp"`
}

// StreamAdapter subscribes to Upbit KRW-market trade feeds. Prices arrive
// in KRW and are converted to USD with a fixed configured rate.
type StreamAdapter struct {
	symbols []string
	krwRate decimal.Decimal
}

func NewStreamAdapter(symbols []string, krwRate decimal.Decimal) *StreamAdapter {
	if krwRate.IsZero() {
		krwRate = DefaultKRWRate
	}
	return &StreamAdapter{symbols: symbols, krwRate: krwRate}
}

func (a *StreamAdapter) Exchange() exchange.Name {
	return exchange.Upbit
}

func (a *StreamAdapter) Stream(ctx context.Context, out chan<- exchange.TradeEvent) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("upbit ws dial: %w", err)
	}
	defer conn.Close()

	// upbit subscription is a json array: ticket frame then type frames
	sub := []any{
		map[string]string{"ticket": "trading-alert-bot"},
		map[string]any{
			"type": "trade",
			"codes": lo.Map(a.symbols, func(s string, _ int) string {
				return "KRW-" + s
			}),
		},
	}
	if err = conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("upbit ws subscribe: %w", err)
	}
	slog.Info("upbit ws connected", "symbols", len(a.symbols))

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		// upbit delivers payloads as binary frames
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("upbit ws read: %w", err)
		}

		var raw rawTrade
		if err = json.Unmarshal(data, &raw); err != nil {
			slog.Warn("dropping unparseable upbit message", "error", err)
			continue
		}
		if raw.Type != "trade" {
			continue
		}
		trade, err := a.parseTrade(raw)
		if err != nil {
			slog.Warn("dropping unparseable upbit trade", "code", raw.Code, "error", err)
			continue
		}
		select {
		case out <- trade:
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *StreamAdapter) parseTrade(raw rawTrade) (exchange.TradeEvent, error) {
	if raw.Price.IsZero() || raw.Volume.IsZero() {
		return exchange.TradeEvent{}, fmt.Errorf("empty price or volume")
	}

	side := exchange.Sell
	if raw.AskBid == "BID" {
		side = exchange.Buy
	}

	priceUSD := raw.Price.Div(a.krwRate)
	observedAt := time.Now()
	if raw.Timestamp > 0 {
		observedAt = time.UnixMilli(raw.Timestamp)
	}

	return exchange.TradeEvent{
		Exchange:   exchange.Upbit,
		Symbol:     exchange.CanonicalSymbol(raw.Code),
		Side:       side,
		Price:      priceUSD,
		Quantity:   raw.Volume,
		Notional:   priceUSD.Mul(raw.Volume),
		ObservedAt: observedAt,
	}, nil
}
