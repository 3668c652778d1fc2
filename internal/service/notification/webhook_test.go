package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-alert-bot/internal/service/exchange"
	"trading-alert-bot/internal/service/monitor"
)

type webhookRecorder struct {
	mu       sync.Mutex
	contents []string
	status   int
}

func (r *webhookRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(req.Body).Decode(&body)
	r.mu.Lock()
	r.contents = append(r.contents, body["content"])
	r.mu.Unlock()
	if r.status != 0 {
		w.WriteHeader(r.status)
	}
}

func (r *webhookRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.contents...)
}

func TestWebhookNotifier_PostsToKindURL(t *testing.T) {
	whale := &webhookRecorder{}
	fallback := &webhookRecorder{}
	whaleSrv := httptest.NewServer(whale)
	defer whaleSrv.Close()
	fallbackSrv := httptest.NewServer(fallback)
	defer fallbackSrv.Close()

	n := NewWebhookNotifier(map[monitor.Kind]string{
		monitor.KindWhale: whaleSrv.URL,
		"":                fallbackSrv.URL,
	})

	require.NoError(t, n.Notify(context.Background(), monitor.Notification{
		Kind:     monitor.KindWhale,
		Exchange: exchange.Binance,
		Symbol:   "BTC",
		Price:    decimal.NewFromInt(50_000),
		Quantity: decimal.NewFromInt(2),
	}))
	require.NoError(t, n.Notify(context.Background(), monitor.Notification{
		Kind:   monitor.KindPrice,
		Symbol: "ETH",
		Price:  decimal.NewFromInt(3_000),
		Target: decimal.NewFromInt(3_000),
	}))

	require.Len(t, whale.all(), 1)
	assert.Contains(t, whale.all()[0], "BTC")
	require.Len(t, fallback.all(), 1, "kinds without a URL use the fallback")
	assert.Contains(t, fallback.all()[0], "ETH")
}

func TestWebhookNotifier_NoURLConfigured(t *testing.T) {
	n := NewWebhookNotifier(map[monitor.Kind]string{})
	err := n.Notify(context.Background(), monitor.Notification{Kind: monitor.KindPrice})
	assert.Error(t, err)
}

func TestWebhookNotifier_BadStatus(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusTooManyRequests}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	n := NewWebhookNotifier(map[monitor.Kind]string{"": srv.URL})
	err := n.Notify(context.Background(), monitor.Notification{Kind: monitor.KindWhale})
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)

	whale := Format(monitor.Notification{
		Kind:      monitor.KindWhale,
		Exchange:  exchange.Upbit,
		Symbol:    "BTC",
		Direction: "buy",
		Price:     decimal.NewFromInt(50_000),
		Quantity:  decimal.NewFromInt(2),
		At:        at,
	})
	assert.Contains(t, whale, "Upbit")
	assert.Contains(t, whale, "$100000")
	assert.Contains(t, whale, "12:30:00")

	price := Format(monitor.Notification{
		Kind:      monitor.KindPrice,
		Symbol:    "ETH",
		Direction: "above",
		Price:     decimal.NewFromInt(3_100),
		Target:    decimal.NewFromInt(3_000),
		At:        at,
	})
	assert.Contains(t, price, "ETH price above 3000")

	rsi := Format(monitor.Notification{
		Kind:      monitor.KindRSI,
		Symbol:    "BTC",
		Timeframe: exchange.Timeframe4h,
		Direction: "above",
		Price:     decimal.NewFromInt(75),
		Target:    decimal.NewFromInt(70),
		At:        at,
	})
	assert.Contains(t, rsi, "4h")
	assert.Contains(t, rsi, "RSI above 70")

	div := Format(monitor.Notification{
		Kind:      monitor.KindDivergence,
		Symbol:    "BTC",
		Timeframe: exchange.Timeframe1h,
		Direction: "bearish_regular",
		Strength:  0.25,
		Price:     decimal.NewFromInt(50_000),
		At:        at,
	})
	assert.Contains(t, div, "divergence")
	assert.Contains(t, div, "0.25")
}
