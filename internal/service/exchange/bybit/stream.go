package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/service/exchange"
)

const (
	wsURL        = "wss://stream.bybit.com/v5/public/spot"
	pingInterval = 20 * time.Second
)

type opMessage struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

type tradeMessage struct {
	Topic string     `json:"topic"`
	Data  []rawTrade `json:"data"`
}

type rawTrade struct {
	Symbol   string `json:"s"`
	Price    string `json:"p"`
	Volume   string `json:"v"`
	Side     string `json:"S"` // "Buy" / "Sell"
	TradedAt int64  `json:"T"`
}

// StreamAdapter subscribes to Bybit spot publicTrade topics.
type StreamAdapter struct {
	symbols []string
}

func NewStreamAdapter(symbols []string) *StreamAdapter {
	return &StreamAdapter{symbols: symbols}
}

func (a *StreamAdapter) Exchange() exchange.Name {
	return exchange.Bybit
}

func (a *StreamAdapter) Stream(ctx context.Context, out chan<- exchange.TradeEvent) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("bybit ws dial: %w", err)
	}
	defer conn.Close()

	sub := opMessage{
		Op: "subscribe",
		Args: lo.Map(a.symbols, func(s string, _ int) string {
			return "publicTrade." + s + "USDT"
		}),
	}
	if err = conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("bybit ws subscribe: %w", err)
	}
	slog.Info("bybit ws connected", "symbols", len(a.symbols))

	var writeMu sync.Mutex
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-t.C:
				writeMu.Lock()
				err := conn.WriteJSON(opMessage{Op: "ping"})
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bybit ws read: %w", err)
		}

		var msg tradeMessage
		if err = json.Unmarshal(data, &msg); err != nil {
			slog.Warn("dropping unparseable bybit message", "error", err)
			continue
		}
		if !strings.HasPrefix(msg.Topic, "publicTrade") {
			continue
		}
		for _, raw := range msg.Data {
			trade, err := parseTrade(raw)
			if err != nil {
				slog.Warn("dropping unparseable bybit trade", "symbol", raw.Symbol, "error", err)
				continue
			}
			select {
			case out <- trade:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func parseTrade(raw rawTrade) (exchange.TradeEvent, error) {
	price, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return exchange.TradeEvent{}, fmt.Errorf("price %q: %w", raw.Price, err)
	}
	qty, err := decimal.NewFromString(raw.Volume)
	if err != nil {
		return exchange.TradeEvent{}, fmt.Errorf("volume %q: %w", raw.Volume, err)
	}

	side := exchange.Sell
	if strings.EqualFold(raw.Side, "buy") {
		side = exchange.Buy
	}

	observedAt := time.Now()
	if raw.TradedAt > 0 {
		observedAt = time.UnixMilli(raw.TradedAt)
	}

	return exchange.TradeEvent{
		Exchange:   exchange.Bybit,
		Symbol:     exchange.CanonicalSymbol(raw.Symbol),
		Side:       side,
		Price:      price,
		Quantity:   qty,
		Notional:   price.Mul(qty),
		ObservedAt: observedAt,
	}, nil
}
