package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-alert-bot/internal/service/exchange"
)

func newTestAlertStore(t *testing.T) *PriceAlertStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alerts.json")
	s, err := NewPriceAlertStore(path, DefaultMaxAlertsPerSymbol)
	require.NoError(t, err)
	return s
}

func TestPriceAlertStore_AddAndList(t *testing.T) {
	s := newTestAlertStore(t)

	alert, err := s.Add(exchange.MarketCrypto, "BTCUSDT", Above, decimal.NewFromInt(50_000))
	require.NoError(t, err)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, "BTC", alert.Symbol, "symbol stored in canonical form")
	assert.True(t, alert.Enabled)

	got := s.ForMarket(exchange.MarketCrypto, "BTC")
	require.Len(t, got, 1)
	assert.Equal(t, alert.ID, got[0].ID)

	assert.Empty(t, s.ForMarket(exchange.MarketUSStock, ""))
}

func TestPriceAlertStore_PerSymbolCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	s, err := NewPriceAlertStore(path, 0) // 0 falls back to the default cap
	require.NoError(t, err)

	for i := 0; i < DefaultMaxAlertsPerSymbol; i++ {
		_, err := s.Add(exchange.MarketCrypto, "BTC", Above, decimal.NewFromInt(int64(50_000+i)))
		require.NoError(t, err)
	}

	_, err = s.Add(exchange.MarketCrypto, "BTC", Above, decimal.NewFromInt(99_000))
	assert.ErrorIs(t, err, ErrTooManyAlerts)

	// other symbols are unaffected by the cap
	_, err = s.Add(exchange.MarketCrypto, "ETH", Below, decimal.NewFromInt(2_000))
	assert.NoError(t, err)
}

func TestPriceAlertStore_RemoveAndEnable(t *testing.T) {
	s := newTestAlertStore(t)

	alert, err := s.Add(exchange.MarketCrypto, "BTC", Below, decimal.NewFromInt(40_000))
	require.NoError(t, err)

	require.NoError(t, s.SetEnabled(alert.ID, false))
	got := s.ForMarket(exchange.MarketCrypto, "BTC")
	require.Len(t, got, 1)
	assert.False(t, got[0].Enabled)
	assert.Empty(t, s.Symbols(exchange.MarketCrypto), "disabled alerts do not count")

	require.NoError(t, s.Remove(alert.ID))
	assert.Empty(t, s.All())
	assert.ErrorIs(t, s.Remove(alert.ID), ErrAlertNotFound)
	assert.ErrorIs(t, s.SetEnabled(alert.ID, true), ErrAlertNotFound)
}

func TestPriceAlertStore_SymbolsDistinctEnabled(t *testing.T) {
	s := newTestAlertStore(t)

	_, err := s.Add(exchange.MarketCrypto, "BTC", Above, decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = s.Add(exchange.MarketCrypto, "BTC", Below, decimal.NewFromInt(2))
	require.NoError(t, err)
	_, err = s.Add(exchange.MarketCrypto, "ETH", Above, decimal.NewFromInt(3))
	require.NoError(t, err)
	_, err = s.Add(exchange.MarketUSStock, "AAPL", Above, decimal.NewFromInt(4))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"BTC", "ETH"}, s.Symbols(exchange.MarketCrypto))
	assert.ElementsMatch(t, []string{"AAPL"}, s.Symbols(exchange.MarketUSStock))
}

func TestPriceAlertStore_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	s, err := NewPriceAlertStore(path, DefaultMaxAlertsPerSymbol)
	require.NoError(t, err)

	alert, err := s.Add(exchange.MarketCrypto, "BTC", Above, decimal.NewFromInt(50_000))
	require.NoError(t, err)

	reloaded, err := NewPriceAlertStore(path, DefaultMaxAlertsPerSymbol)
	require.NoError(t, err)
	got := reloaded.All()
	require.Len(t, got, 1)
	assert.Equal(t, alert.ID, got[0].ID)
	assert.True(t, got[0].Price.Equal(decimal.NewFromInt(50_000)))
}

func TestPriceAlertStore_LoadDropsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	data := []byte(`{
  "alerts": [
    {"id": "ok", "market": "crypto", "symbol": "BTC", "condition": "above", "price": "50000", "enabled": true},
    {"id": "bad", "market": "crypto", "symbol": "", "condition": "above", "price": "1", "enabled": true},
    {"id": "bad2", "market": "crypto", "symbol": "ETH", "condition": "sideways", "price": "1", "enabled": true}
  ]
}`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := NewPriceAlertStore(path, DefaultMaxAlertsPerSymbol)
	require.NoError(t, err)
	got := s.All()
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
}

func TestPriceAlertStore_FailedPersistRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.json")
	s, err := NewPriceAlertStore(path, DefaultMaxAlertsPerSymbol)
	require.NoError(t, err)

	_, err = s.Add(exchange.MarketCrypto, "BTC", Above, decimal.NewFromInt(1))
	require.NoError(t, err)

	// a directory at the file path makes every write fail
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err = s.Add(exchange.MarketCrypto, "ETH", Above, decimal.NewFromInt(2))
	assert.Error(t, err)
	assert.Len(t, s.All(), 1, "failed persist leaves the working set untouched")
}

func TestPriceAlertStore_RejectsInvalidDefinition(t *testing.T) {
	s := newTestAlertStore(t)

	cases := []struct {
		market exchange.Market
		symbol string
		cond   Condition
		price  decimal.Decimal
	}{
		{exchange.MarketCrypto, "", Above, decimal.NewFromInt(1)},
		{exchange.Market("bonds"), "BTC", Above, decimal.NewFromInt(1)},
		{exchange.MarketCrypto, "BTC", Condition("sideways"), decimal.NewFromInt(1)},
		{exchange.MarketCrypto, "BTC", Above, decimal.NewFromInt(-1)},
	}
	for i, tc := range cases {
		_, err := s.Add(tc.market, tc.symbol, tc.cond, tc.price)
		assert.ErrorIs(t, err, ErrInvalidAlert, fmt.Sprintf("case %d", i))
	}
}
