package binance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/service/exchange"
)

var (
	_ exchange.QuoteProvider = (*MarketService)(nil)
	_ exchange.KlineService  = (*MarketService)(nil)
)

// MarketService serves crypto quotes and klines from Binance spot.
type MarketService struct {
	cli *binance.Client
}

func NewMarketService(cli *binance.Client) *MarketService {
	return &MarketService{cli: cli}
}

func (m *MarketService) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair := symbol + "USDT" // binance API uses BTCUSDT, not BTC/USDT
	prices, err := m.cli.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance ticker %s: %w", pair, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("binance ticker %s: no price returned", pair)
	}
	return decimal.NewFromString(prices[0].Price)
}

func (m *MarketService) GetKlines(ctx context.Context, req exchange.GetKlinesReq) ([]exchange.Kline, error) {
	svc := m.cli.NewKlinesService().
		Symbol(req.Symbol + "USDT").
		Interval(string(req.Timeframe))
	if req.Limit > 0 {
		svc.Limit(req.Limit)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", req.Symbol, req.Timeframe, err)
	}
	return convertKlines(req.Symbol, res), nil
}

func convertKlines(symbol string, klines []*binance.Kline) []exchange.Kline {
	out := make([]exchange.Kline, 0, len(klines))
	for _, k := range klines {
		kl, err := convertKline(k)
		if err != nil {
			slog.Warn("dropping malformed kline", "symbol", symbol, "error", err)
			continue
		}
		out = append(out, kl)
	}
	return out
}

func convertKline(k *binance.Kline) (exchange.Kline, error) {
	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return exchange.Kline{}, fmt.Errorf("open %q: %w", k.Open, err)
	}
	cl, err := decimal.NewFromString(k.Close)
	if err != nil {
		return exchange.Kline{}, fmt.Errorf("close %q: %w", k.Close, err)
	}
	high, err := decimal.NewFromString(k.High)
	if err != nil {
		return exchange.Kline{}, fmt.Errorf("high %q: %w", k.High, err)
	}
	low, err := decimal.NewFromString(k.Low)
	if err != nil {
		return exchange.Kline{}, fmt.Errorf("low %q: %w", k.Low, err)
	}
	volume, err := decimal.NewFromString(k.Volume)
	if err != nil {
		return exchange.Kline{}, fmt.Errorf("volume %q: %w", k.Volume, err)
	}
	quoteVolume, err := decimal.NewFromString(k.QuoteAssetVolume)
	if err != nil {
		return exchange.Kline{}, fmt.Errorf("quote volume %q: %w", k.QuoteAssetVolume, err)
	}

	return exchange.Kline{
		OpenTime:         time.UnixMilli(k.OpenTime),
		CloseTime:        time.UnixMilli(k.CloseTime),
		Open:             open,
		Close:            cl,
		High:             high,
		Low:              low,
		Volume:           volume,
		QuoteAssetVolume: quoteVolume,
	}, nil
}
