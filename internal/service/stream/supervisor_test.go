package stream

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-alert-bot/internal/service/exchange"
	"trading-alert-bot/internal/store"
)

// fakeAdapter emits one trade per connection, then blocks until cancelled
// or fails immediately, depending on failWith.
type fakeAdapter struct {
	name     exchange.Name
	failWith error
	connects atomic.Int64
}

func (f *fakeAdapter) Exchange() exchange.Name { return f.name }

func (f *fakeAdapter) Stream(ctx context.Context, out chan<- exchange.TradeEvent) error {
	f.connects.Add(1)
	if f.failWith != nil {
		return f.failWith
	}
	select {
	case out <- exchange.TradeEvent{Exchange: f.name, Symbol: "BTC", Notional: decimal.NewFromInt(1)}:
	case <-ctx.Done():
		return nil
	}
	<-ctx.Done()
	return nil
}

func newTestSettings(t *testing.T) *store.WhaleSettingsStore {
	t.Helper()
	s, err := store.NewWhaleSettingsStore(filepath.Join(t.TempDir(), "whale_settings.json"), decimal.NewFromInt(1))
	require.NoError(t, err)
	return s
}

func TestSupervisor_StreamsEnabledAdapter(t *testing.T) {
	settings := newTestSettings(t)
	out := make(chan exchange.TradeEvent, 4)
	a := &fakeAdapter{name: exchange.Binance}

	sup := NewSupervisor(settings, out, []Adapter{a},
		WithRecheckInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	select {
	case trade := <-out:
		assert.Equal(t, exchange.Binance, trade.Exchange)
	case <-time.After(2 * time.Second):
		t.Fatal("no trade delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}

func TestSupervisor_SkipsDisabledExchange(t *testing.T) {
	settings := newTestSettings(t)
	require.NoError(t, settings.SetExchangeEnabled(exchange.OKX, false))

	out := make(chan exchange.TradeEvent, 4)
	disabled := &fakeAdapter{name: exchange.OKX}
	enabled := &fakeAdapter{name: exchange.Binance}

	sup := NewSupervisor(settings, out, []Adapter{disabled, enabled},
		WithRecheckInterval(10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	sup.Run(ctx)

	assert.Zero(t, disabled.connects.Load(), "disabled venue never dials")
	assert.Positive(t, enabled.connects.Load())
}

func TestSupervisor_ReconnectsAfterFailure(t *testing.T) {
	settings := newTestSettings(t)
	out := make(chan exchange.TradeEvent, 4)
	a := &fakeAdapter{name: exchange.Bybit, failWith: errors.New("connection reset")}

	sup := NewSupervisor(settings, out, []Adapter{a},
		WithRecheckInterval(10*time.Millisecond),
		WithBackoff(time.Millisecond, 5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	sup.Run(ctx)

	assert.Greater(t, a.connects.Load(), int64(1), "failed connection is retried with backoff")
}

func TestSupervisor_DisableMidStreamClosesConnection(t *testing.T) {
	settings := newTestSettings(t)
	out := make(chan exchange.TradeEvent, 4)
	a := &fakeAdapter{name: exchange.Upbit}

	sup := NewSupervisor(settings, out, []Adapter{a},
		WithRecheckInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	select {
	case <-out:
	case <-time.After(2 * time.Second):
		t.Fatal("adapter never connected")
	}

	require.NoError(t, settings.SetExchangeEnabled(exchange.Upbit, false))

	// once the watcher notices, the adapter's Stream returns and the
	// supervisor parks in the disabled loop without reconnecting
	assert.Eventually(t, func() bool {
		return a.connects.Load() == 1
	}, time.Second, 20*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), a.connects.Load(), "no redial while disabled")

	require.NoError(t, settings.SetExchangeEnabled(exchange.Upbit, true))
	assert.Eventually(t, func() bool {
		return a.connects.Load() >= 2
	}, 2*time.Second, 20*time.Millisecond, "re-enabling resumes the stream")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}
