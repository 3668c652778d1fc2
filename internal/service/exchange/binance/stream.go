package binance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/service/exchange"
)

// StreamAdapter subscribes to Binance spot aggTrade streams for the
// configured symbols via the combined stream endpoint.
type StreamAdapter struct {
	symbols []string // canonical, e.g. BTC
}

func NewStreamAdapter(symbols []string) *StreamAdapter {
	return &StreamAdapter{symbols: symbols}
}

func (a *StreamAdapter) Exchange() exchange.Name {
	return exchange.Binance
}

func (a *StreamAdapter) Stream(ctx context.Context, out chan<- exchange.TradeEvent) error {
	pairs := lo.Map(a.symbols, func(s string, _ int) string {
		return s + "USDT"
	})

	errC := make(chan error, 1)
	handler := func(ev *binance.WsAggTradeEvent) {
		trade, err := parseAggTrade(ev)
		if err != nil {
			slog.Warn("dropping unparseable binance trade", "symbol", ev.Symbol, "error", err)
			return
		}
		select {
		case out <- trade:
		case <-ctx.Done():
		}
	}
	errHandler := func(err error) {
		select {
		case errC <- err:
		default:
		}
	}

	doneC, stopC, err := binance.WsCombinedAggTradeServe(pairs, handler, errHandler)
	if err != nil {
		return fmt.Errorf("binance ws dial: %w", err)
	}
	slog.Info("binance ws connected", "symbols", len(pairs))

	select {
	case <-ctx.Done():
		close(stopC)
		<-doneC
		return nil
	case err := <-errC:
		close(stopC)
		<-doneC
		return fmt.Errorf("binance ws: %w", err)
	case <-doneC:
		return errors.New("binance ws closed")
	}
}

func parseAggTrade(ev *binance.WsAggTradeEvent) (exchange.TradeEvent, error) {
	price, err := decimal.NewFromString(ev.Price)
	if err != nil {
		return exchange.TradeEvent{}, fmt.Errorf("price %q: %w", ev.Price, err)
	}
	qty, err := decimal.NewFromString(ev.Quantity)
	if err != nil {
		return exchange.TradeEvent{}, fmt.Errorf("quantity %q: %w", ev.Quantity, err)
	}

	// the aggressor sold into the bid when the buyer was the maker
	side := exchange.Buy
	if ev.IsBuyerMaker {
		side = exchange.Sell
	}

	return exchange.TradeEvent{
		Exchange:   exchange.Binance,
		Symbol:     exchange.CanonicalSymbol(ev.Symbol),
		Side:       side,
		Price:      price,
		Quantity:   qty,
		Notional:   price.Mul(qty),
		ObservedAt: time.UnixMilli(ev.TradeTime),
	}, nil
}
