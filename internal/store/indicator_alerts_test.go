package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-alert-bot/internal/service/exchange"
)

func newTestIndicatorStore(t *testing.T) *IndicatorAlertStore {
	t.Helper()
	s, err := NewIndicatorAlertStore(filepath.Join(t.TempDir(), "rsi_alerts.json"))
	require.NoError(t, err)
	return s
}

func TestIndicatorAlertStore_AddRSI(t *testing.T) {
	s := newTestIndicatorStore(t)

	alert, err := s.Add(IndicatorAlert{
		Symbol:    "BTC-USDT",
		Market:    exchange.MarketCrypto,
		Indicator: KindRSILevel,
		Timeframe: exchange.Timeframe4h,
		Condition: Above,
		Threshold: 70,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, "BTC", alert.Symbol)
	assert.True(t, alert.Enabled)
}

func TestIndicatorAlertStore_AddDivergenceNeedsNoCondition(t *testing.T) {
	s := newTestIndicatorStore(t)

	_, err := s.Add(IndicatorAlert{
		Symbol:    "ETH",
		Market:    exchange.MarketCrypto,
		Indicator: KindDivergence,
		Timeframe: exchange.Timeframe1h,
	})
	assert.NoError(t, err)
}

func TestIndicatorAlertStore_RejectsInvalid(t *testing.T) {
	s := newTestIndicatorStore(t)

	cases := []IndicatorAlert{
		{Symbol: "", Indicator: KindRSILevel, Timeframe: exchange.Timeframe1h, Condition: Above, Threshold: 70},
		{Symbol: "BTC", Indicator: KindRSILevel, Timeframe: "15m", Condition: Above, Threshold: 70},
		{Symbol: "BTC", Indicator: KindRSILevel, Timeframe: exchange.Timeframe1h, Condition: "", Threshold: 70},
		{Symbol: "BTC", Indicator: KindRSILevel, Timeframe: exchange.Timeframe1h, Condition: Above, Threshold: 120},
		{Symbol: "BTC", Indicator: "macd", Timeframe: exchange.Timeframe1h},
	}
	for i, alert := range cases {
		_, err := s.Add(alert)
		assert.ErrorIs(t, err, ErrInvalidAlert, "case %d", i)
	}
}

func TestIndicatorAlertStore_ForTimeframe(t *testing.T) {
	s := newTestIndicatorStore(t)

	hourly, err := s.Add(IndicatorAlert{
		Symbol: "BTC", Market: exchange.MarketCrypto,
		Indicator: KindDivergence, Timeframe: exchange.Timeframe1h,
	})
	require.NoError(t, err)
	daily, err := s.Add(IndicatorAlert{
		Symbol: "BTC", Market: exchange.MarketCrypto,
		Indicator: KindDivergence, Timeframe: exchange.Timeframe1d,
	})
	require.NoError(t, err)

	got := s.ForTimeframe(exchange.Timeframe1h)
	require.Len(t, got, 1)
	assert.Equal(t, hourly.ID, got[0].ID)

	require.NoError(t, s.SetEnabled(daily.ID, false))
	assert.Empty(t, s.ForTimeframe(exchange.Timeframe1d), "disabled alerts are excluded")
}

func TestIndicatorAlertStore_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsi_alerts.json")
	s, err := NewIndicatorAlertStore(path)
	require.NoError(t, err)

	alert, err := s.Add(IndicatorAlert{
		Symbol: "BTC", Market: exchange.MarketCrypto,
		Indicator: KindRSILevel, Timeframe: exchange.Timeframe1h,
		Condition: Below, Threshold: 30,
	})
	require.NoError(t, err)

	reloaded, err := NewIndicatorAlertStore(path)
	require.NoError(t, err)
	got := reloaded.All()
	require.Len(t, got, 1)
	assert.Equal(t, alert.ID, got[0].ID)
	assert.Equal(t, 30.0, got[0].Threshold)
}
