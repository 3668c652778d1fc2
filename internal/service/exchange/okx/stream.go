package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/service/exchange"
)

const (
	wsURL        = "wss://ws.okx.com:8443/ws/v5/public"
	pingInterval = 20 * time.Second
)

type subscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type subscribeReq struct {
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

type tradeMessage struct {
	Event string `json:"event,omitempty"`
	Arg   struct {
		Channel string `json:"channel"`
	} `json:"arg"`
	Data []rawTrade `json:"data"`
}

type rawTrade struct {
	InstID string `json:"instId"`
	Price  string `json:"px"`
	Size   string `json:"sz"`
	Side   string `json:"side"`
	TS     string `json:"ts"`
}

// StreamAdapter subscribes to OKX public trade channels.
type StreamAdapter struct {
	symbols []string
}

func NewStreamAdapter(symbols []string) *StreamAdapter {
	return &StreamAdapter{symbols: symbols}
}

func (a *StreamAdapter) Exchange() exchange.Name {
	return exchange.OKX
}

func (a *StreamAdapter) Stream(ctx context.Context, out chan<- exchange.TradeEvent) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("okx ws dial: %w", err)
	}
	defer conn.Close()

	sub := subscribeReq{
		Op: "subscribe",
		Args: lo.Map(a.symbols, func(s string, _ int) subscribeArg {
			return subscribeArg{Channel: "trades", InstID: s + "-USDT"}
		}),
	}

	var writeMu sync.Mutex
	if err = conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("okx ws subscribe: %w", err)
	}
	slog.Info("okx ws connected", "symbols", len(a.symbols))

	// okx drops idle connections; it expects a literal "ping" text frame
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
				err := conn.WriteMessage(websocket.TextMessage, []byte("ping"))
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
			return fmt.Errorf("okx ws read: %w", err)
		}
		if string(data) == "pong" {
			continue
		}

		var msg tradeMessage
		if err = json.Unmarshal(data, &msg); err != nil {
			slog.Warn("dropping unparseable okx message", "error", err)
			continue
		}
		if msg.Event != "" || msg.Arg.Channel != "trades" {
			continue
		}
		for _, raw := range msg.Data {
			trade, err := parseTrade(raw)
			if err != nil {
				slog.Warn("dropping unparseable okx trade", "instId", raw.InstID, "error", err)
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
	qty, err := decimal.NewFromString(raw.Size)
	if err != nil {
		return exchange.TradeEvent{}, fmt.Errorf("size %q: %w", raw.Size, err)
	}

	side := exchange.Sell
	if raw.Side == "buy" {
		side = exchange.Buy
	}

	observedAt := time.Now()
	if ms, err := strconv.ParseInt(raw.TS, 10, 64); err == nil {
		observedAt = time.UnixMilli(ms)
	}

	return exchange.TradeEvent{
		Exchange:   exchange.OKX,
		Symbol:     exchange.CanonicalSymbol(raw.InstID),
		Side:       side,
		Price:      price,
		Quantity:   qty,
		Notional:   price.Mul(qty),
		ObservedAt: observedAt,
	}, nil
}
