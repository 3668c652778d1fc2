package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Name identifies one trading venue.
type Name string

const (
	Binance Name = "Binance"
	OKX     Name = "OKX"
	Bybit   Name = "Bybit"
	Upbit   Name = "Upbit"
)

// AllExchanges lists every venue a stream adapter exists for.
var AllExchanges = []Name{Binance, OKX, Bybit, Upbit}

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type Market string

const (
	MarketCrypto  Market = "crypto"
	MarketUSStock Market = "us_stock"
	MarketKRStock Market = "kr_stock"
)

func (m Market) Valid() bool {
	switch m {
	case MarketCrypto, MarketUSStock, MarketKRStock:
		return true
	}
	return false
}

type Timeframe string

const (
	Timeframe1m Timeframe = "1m"
	Timeframe1h Timeframe = "1h"
	Timeframe4h Timeframe = "4h"
	Timeframe1d Timeframe = "1d"
)

// Valid reports whether the timeframe may carry indicator alerts. The
// one-minute frame is fetch-only.
func (t Timeframe) Valid() bool {
	switch t {
	case Timeframe1h, Timeframe4h, Timeframe1d:
		return true
	}
	return false
}

func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe1m:
		return time.Minute
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	}
	return 0
}

// TradeEvent is one executed trade, normalized across venues.
// Price and Notional are always USD regardless of the venue's quote currency.
type TradeEvent struct {
	Exchange   Name
	Symbol     string // canonical base asset, e.g. "BTC"
	Side       Side
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Notional   decimal.Decimal
	ObservedAt time.Time
}

// PriceSample is one point produced by a snapshot poller.
type PriceSample struct {
	Market     Market
	Symbol     string
	Price      decimal.Decimal
	ObservedAt time.Time
}

type Kline struct {
	OpenTime         time.Time
	CloseTime        time.Time
	Open             decimal.Decimal
	Close            decimal.Decimal
	High             decimal.Decimal
	Low              decimal.Decimal
	Volume           decimal.Decimal
	QuoteAssetVolume decimal.Decimal
}

type GetKlinesReq struct {
	Symbol    string // canonical
	Timeframe Timeframe
	Limit     int
}

// QuoteProvider returns the latest price for a canonical symbol.
// Stock-market implementations live outside this module.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type KlineService interface {
	GetKlines(ctx context.Context, req GetKlinesReq) ([]Kline, error)
}
