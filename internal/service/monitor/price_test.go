package monitor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-alert-bot/internal/service/exchange"
	"trading-alert-bot/internal/store"
)

func newPriceFixture(t *testing.T, cooldown time.Duration) (*PriceEvaluator, *store.PriceAlertStore, *captureNotifier, *captureTriggerRepo) {
	t.Helper()
	alerts, err := store.NewPriceAlertStore(filepath.Join(t.TempDir(), "alerts.json"), store.DefaultMaxAlertsPerSymbol)
	require.NoError(t, err)

	cd := store.NewCooldownStore(cooldown, alerts.MarkTriggered)
	notifier := &captureNotifier{}
	triggers := &captureTriggerRepo{}
	eval := NewPriceEvaluator(alerts, cd, triggers, WithPriceNotifier(notifier))
	return eval, alerts, notifier, triggers
}

func sampleAt(price int64, at time.Time) exchange.PriceSample {
	return exchange.PriceSample{
		Market:     exchange.MarketCrypto,
		Symbol:     "BTC",
		Price:      decimal.NewFromInt(price),
		ObservedAt: at,
	}
}

func TestPriceEvaluator_CooldownSuppressesRepeats(t *testing.T) {
	eval, alerts, notifier, _ := newPriceFixture(t, 3*time.Second)
	_, err := alerts.Add(exchange.MarketCrypto, "BTC", store.Above, decimal.NewFromInt(50_000))
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, price := range []int64{49_000, 50_000, 51_000, 49_500} {
		eval.Evaluate(context.Background(), sampleAt(price, base.Add(time.Duration(i)*time.Second)))
	}

	sent := notifier.all()
	require.Len(t, sent, 1, "only the first crossing inside the cooldown fires")
	assert.Equal(t, KindPrice, sent[0].Kind)
	assert.True(t, sent[0].Price.Equal(decimal.NewFromInt(50_000)))
	assert.True(t, sent[0].Target.Equal(decimal.NewFromInt(50_000)))
	assert.Equal(t, string(store.Above), sent[0].Direction)
}

func TestPriceEvaluator_ZeroCooldownFiresEveryCrossing(t *testing.T) {
	eval, alerts, notifier, _ := newPriceFixture(t, 0)
	_, err := alerts.Add(exchange.MarketCrypto, "BTC", store.Above, decimal.NewFromInt(50_000))
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, price := range []int64{49_000, 50_000, 51_000, 49_500} {
		eval.Evaluate(context.Background(), sampleAt(price, base.Add(time.Duration(i)*time.Second)))
	}

	sent := notifier.all()
	require.Len(t, sent, 2)
	assert.True(t, sent[0].Price.Equal(decimal.NewFromInt(50_000)))
	assert.True(t, sent[1].Price.Equal(decimal.NewFromInt(51_000)))
}

func TestPriceEvaluator_RearmsAfterCooldown(t *testing.T) {
	eval, alerts, notifier, _ := newPriceFixture(t, 3*time.Second)
	_, err := alerts.Add(exchange.MarketCrypto, "BTC", store.Above, decimal.NewFromInt(50_000))
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	eval.Evaluate(context.Background(), sampleAt(50_500, base))
	eval.Evaluate(context.Background(), sampleAt(50_600, base.Add(2*time.Second)))
	eval.Evaluate(context.Background(), sampleAt(50_700, base.Add(3*time.Second)))

	assert.Len(t, notifier.all(), 2, "fires again exactly when the cooldown elapses")
}

func TestPriceEvaluator_DisabledAlertNeverFires(t *testing.T) {
	eval, alerts, notifier, triggers := newPriceFixture(t, 0)
	alert, err := alerts.Add(exchange.MarketCrypto, "BTC", store.Above, decimal.NewFromInt(50_000))
	require.NoError(t, err)
	require.NoError(t, alerts.SetEnabled(alert.ID, false))

	eval.Evaluate(context.Background(), sampleAt(60_000, time.Now()))

	assert.Empty(t, notifier.all())
	assert.Empty(t, triggers.all())
}

func TestPriceEvaluator_InclusiveBoundary(t *testing.T) {
	eval, alerts, notifier, _ := newPriceFixture(t, 0)
	_, err := alerts.Add(exchange.MarketCrypto, "BTC", store.Above, decimal.NewFromInt(50_000))
	require.NoError(t, err)
	_, err = alerts.Add(exchange.MarketCrypto, "BTC", store.Below, decimal.NewFromInt(50_000))
	require.NoError(t, err)

	eval.Evaluate(context.Background(), sampleAt(50_000, time.Now()))

	assert.Len(t, notifier.all(), 2, "price equal to target satisfies both directions")
}

func TestPriceEvaluator_RecordsTriggerHistory(t *testing.T) {
	eval, alerts, notifier, triggers := newPriceFixture(t, 0)
	alert, err := alerts.Add(exchange.MarketCrypto, "BTC", store.Below, decimal.NewFromInt(40_000))
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	eval.Evaluate(context.Background(), sampleAt(39_000, at))

	require.Len(t, notifier.all(), 1)
	got := triggers.all()
	require.Len(t, got, 1)
	assert.Equal(t, string(KindPrice), got[0].Kind)
	assert.Equal(t, alert.ID, got[0].AlertID)
	assert.Equal(t, "39000", got[0].Price)
	assert.Equal(t, "40000", got[0].Target)
	assert.Equal(t, at, got[0].CreatedAt)
}

func TestPriceEvaluator_CooldownPersistsLastTriggered(t *testing.T) {
	eval, alerts, _, _ := newPriceFixture(t, time.Minute)
	_, err := alerts.Add(exchange.MarketCrypto, "BTC", store.Above, decimal.NewFromInt(50_000))
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	eval.Evaluate(context.Background(), sampleAt(50_500, at))

	got := alerts.ForMarket(exchange.MarketCrypto, "BTC")
	require.Len(t, got, 1)
	require.NotNil(t, got[0].LastTriggered)
	assert.Equal(t, at, *got[0].LastTriggered)
}

func TestPriceEvaluator_IgnoresOtherSymbols(t *testing.T) {
	eval, alerts, notifier, _ := newPriceFixture(t, 0)
	_, err := alerts.Add(exchange.MarketCrypto, "ETH", store.Above, decimal.NewFromInt(3_000))
	require.NoError(t, err)

	eval.Evaluate(context.Background(), sampleAt(60_000, time.Now()))

	assert.Empty(t, notifier.all())
}
