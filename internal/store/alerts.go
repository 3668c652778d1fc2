package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/service/exchange"
)

// DefaultMaxAlertsPerSymbol caps active alerts per symbol to prevent spam.
const DefaultMaxAlertsPerSymbol = 10

var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrTooManyAlerts = errors.New("too many alerts for symbol")
	ErrInvalidAlert  = errors.New("invalid alert definition")
)

type priceAlertsFile struct {
	Alerts      []PriceAlert `json:"alerts"`
	LastUpdated time.Time    `json:"last_updated"`
}

// PriceAlertStore holds the standing price alerts, persisted as JSON.
// Mutations persist synchronously; a failed write rolls the mutation back.
type PriceAlertStore struct {
	mu        sync.Mutex
	path      string
	maxPerSym int
	alerts    []PriceAlert
}

func NewPriceAlertStore(path string, maxPerSymbol int) (*PriceAlertStore, error) {
	if maxPerSymbol <= 0 {
		maxPerSymbol = DefaultMaxAlertsPerSymbol
	}
	s := &PriceAlertStore{path: path, maxPerSym: maxPerSymbol}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("no alerts file, starting fresh", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read alerts: %w", err)
	}

	var f priceAlertsFile
	if err = json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse alerts: %w", err)
	}
	// invalid definitions never enter the working set
	for _, a := range f.Alerts {
		if err := a.Validate(); err != nil {
			slog.Warn("dropping invalid price alert", "id", a.ID, "error", err)
			continue
		}
		a.Symbol = exchange.CanonicalSymbol(a.Symbol)
		s.alerts = append(s.alerts, a)
	}
	slog.Info("loaded price alerts", "path", path, "count", len(s.alerts))
	return s, nil
}

// persist must be called with mu held.
func (s *PriceAlertStore) persist(alerts []PriceAlert) error {
	f := priceAlertsFile{Alerts: alerts, LastUpdated: time.Now()}
	if f.Alerts == nil {
		f.Alerts = []PriceAlert{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err = os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write alerts: %w", err)
	}
	return nil
}

// Add creates a new alert, enforcing the per-symbol cap at creation time.
func (s *PriceAlertStore) Add(market exchange.Market, symbol string, cond Condition, price decimal.Decimal) (PriceAlert, error) {
	alert := PriceAlert{
		ID:        uuid.NewString(),
		Market:    market,
		Symbol:    exchange.CanonicalSymbol(symbol),
		Condition: cond,
		Price:     price,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	if err := alert.Validate(); err != nil {
		return PriceAlert{}, fmt.Errorf("%w: %s", ErrInvalidAlert, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := lo.CountBy(s.alerts, func(a PriceAlert) bool {
		return a.Symbol == alert.Symbol
	})
	if count >= s.maxPerSym {
		return PriceAlert{}, fmt.Errorf("%w: %s has %d", ErrTooManyAlerts, alert.Symbol, count)
	}

	next := append(append([]PriceAlert{}, s.alerts...), alert)
	if err := s.persist(next); err != nil {
		return PriceAlert{}, err
	}
	s.alerts = next
	slog.Info("added price alert", "id", alert.ID, "symbol", alert.Symbol,
		"condition", alert.Condition, "price", alert.Price)
	return alert, nil
}

func (s *PriceAlertStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := lo.Reject(s.alerts, func(a PriceAlert, _ int) bool {
		return a.ID == id
	})
	if len(next) == len(s.alerts) {
		return ErrAlertNotFound
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.alerts = next
	slog.Info("removed price alert", "id", id)
	return nil
}

func (s *PriceAlertStore) SetEnabled(id string, enabled bool) error {
	return s.update(id, func(a *PriceAlert) {
		a.Enabled = enabled
	})
}

// MarkTriggered records the trigger time; used as the cooldown persist hook.
func (s *PriceAlertStore) MarkTriggered(id string, at time.Time) error {
	return s.update(id, func(a *PriceAlert) {
		t := at
		a.LastTriggered = &t
	})
}

func (s *PriceAlertStore) update(id string, fn func(a *PriceAlert)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]PriceAlert{}, s.alerts...)
	_, i, found := lo.FindIndexOf(next, func(a PriceAlert) bool { return a.ID == id })
	if !found {
		return ErrAlertNotFound
	}
	fn(&next[i])
	if err := s.persist(next); err != nil {
		return err
	}
	s.alerts = next
	return nil
}

// ForMarket returns the alerts for one market, optionally one symbol.
func (s *PriceAlertStore) ForMarket(market exchange.Market, symbol string) []PriceAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.alerts, func(a PriceAlert, _ int) bool {
		if a.Market != market {
			return false
		}
		return symbol == "" || a.Symbol == symbol
	})
}

// Symbols returns the distinct symbols with at least one enabled alert
// in the given market. Pollers use this to decide what to fetch.
func (s *PriceAlertStore) Symbols(market exchange.Market) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	enabled := lo.Filter(s.alerts, func(a PriceAlert, _ int) bool {
		return a.Market == market && a.Enabled
	})
	return lo.Uniq(lo.Map(enabled, func(a PriceAlert, _ int) string { return a.Symbol }))
}

func (s *PriceAlertStore) All() []PriceAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PriceAlert{}, s.alerts...)
}
