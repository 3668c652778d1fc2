package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"trading-alert-bot/internal/service/exchange"
)

const (
	defaultRecheck    = 5 * time.Second
	defaultBackoffMin = time.Second
	defaultBackoffMax = 30 * time.Second
)

// Supervisor runs every adapter in its own goroutine, reconnecting with
// exponential backoff and honoring the per-exchange enabled flags. A venue
// disabled mid-stream has its connection closed within one recheck cycle;
// re-enabling resumes it without a restart.
type Supervisor struct {
	settings SettingsSource
	adapters []Adapter
	out      chan<- exchange.TradeEvent

	recheck    time.Duration
	backoffMin time.Duration
	backoffMax time.Duration
}

type SupervisorOption func(s *Supervisor)

func WithRecheckInterval(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.recheck = d
	}
}

func WithBackoff(min, max time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.backoffMin = min
		s.backoffMax = max
	}
}

func NewSupervisor(settings SettingsSource, out chan<- exchange.TradeEvent, adapters []Adapter, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		settings:   settings,
		adapters:   adapters,
		out:        out,
		recheck:    defaultRecheck,
		backoffMin: defaultBackoffMin,
		backoffMax: defaultBackoffMax,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled and every adapter has shut down.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, a := range s.adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			s.supervise(ctx, a)
		}(a)
	}
	wg.Wait()
}

func (s *Supervisor) supervise(ctx context.Context, a Adapter) {
	name := a.Exchange()
	b := &backoff.Backoff{Min: s.backoffMin, Max: s.backoffMax, Factor: 2, Jitter: true}

	for ctx.Err() == nil {
		if !s.enabled(name) {
			if !sleep(ctx, s.recheck) {
				return
			}
			continue
		}

		slog.Info("connecting trade stream", "exchange", name)
		started := time.Now()
		err := s.streamUntilDisabled(ctx, a)
		if ctx.Err() != nil {
			return
		}

		// a connection that held for a while earns a fresh backoff
		if time.Since(started) >= s.backoffMax {
			b.Reset()
		}
		if err == nil {
			// disabled mid-stream; loop re-checks the flag
			continue
		}
		wait := b.Duration()
		slog.Error("trade stream failed, reconnecting",
			"exchange", name, "error", err, "backoff", wait)
		if !sleep(ctx, wait) {
			return
		}
	}
}

// streamUntilDisabled runs one connection lifetime, cancelling it early if
// the exchange is disabled while connected.
func (s *Supervisor) streamUntilDisabled(ctx context.Context, a Adapter) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		t := time.NewTicker(s.recheck)
		defer t.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-t.C:
				if !s.enabled(a.Exchange()) {
					slog.Info("exchange disabled, closing stream", "exchange", a.Exchange())
					cancel()
					return
				}
			}
		}
	}()

	return a.Stream(runCtx, s.out)
}

func (s *Supervisor) enabled(name exchange.Name) bool {
	return s.settings.Snapshot().ExchangeEnabled(name)
}

// sleep waits for d, returning false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
