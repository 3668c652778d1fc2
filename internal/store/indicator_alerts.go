package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"trading-alert-bot/internal/service/exchange"
)

type indicatorAlertsFile struct {
	Alerts      []IndicatorAlert `json:"alerts"`
	LastUpdated time.Time        `json:"last_updated"`
}

// IndicatorAlertStore holds RSI-level and divergence alerts, persisted as
// JSON in the same shape as the price alert store.
type IndicatorAlertStore struct {
	mu     sync.Mutex
	path   string
	alerts []IndicatorAlert
}

func NewIndicatorAlertStore(path string) (*IndicatorAlertStore, error) {
	s := &IndicatorAlertStore{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("no indicator alerts file, starting fresh", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read indicator alerts: %w", err)
	}

	var f indicatorAlertsFile
	if err = json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse indicator alerts: %w", err)
	}
	for _, a := range f.Alerts {
		if err := a.Validate(); err != nil {
			slog.Warn("dropping invalid indicator alert", "id", a.ID, "error", err)
			continue
		}
		a.Symbol = exchange.CanonicalSymbol(a.Symbol)
		s.alerts = append(s.alerts, a)
	}
	slog.Info("loaded indicator alerts", "path", path, "count", len(s.alerts))
	return s, nil
}

func (s *IndicatorAlertStore) persist(alerts []IndicatorAlert) error {
	f := indicatorAlertsFile{Alerts: alerts, LastUpdated: time.Now()}
	if f.Alerts == nil {
		f.Alerts = []IndicatorAlert{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err = os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write indicator alerts: %w", err)
	}
	return nil
}

func (s *IndicatorAlertStore) Add(alert IndicatorAlert) (IndicatorAlert, error) {
	alert.ID = uuid.NewString()
	alert.Symbol = exchange.CanonicalSymbol(alert.Symbol)
	alert.Enabled = true
	alert.CreatedAt = time.Now()
	alert.LastTriggered = nil
	if err := alert.Validate(); err != nil {
		return IndicatorAlert{}, fmt.Errorf("%w: %s", ErrInvalidAlert, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(append([]IndicatorAlert{}, s.alerts...), alert)
	if err := s.persist(next); err != nil {
		return IndicatorAlert{}, err
	}
	s.alerts = next
	slog.Info("added indicator alert", "id", alert.ID, "symbol", alert.Symbol,
		"indicator", alert.Indicator, "timeframe", alert.Timeframe)
	return alert, nil
}

func (s *IndicatorAlertStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := lo.Reject(s.alerts, func(a IndicatorAlert, _ int) bool {
		return a.ID == id
	})
	if len(next) == len(s.alerts) {
		return ErrAlertNotFound
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.alerts = next
	slog.Info("removed indicator alert", "id", id)
	return nil
}

func (s *IndicatorAlertStore) SetEnabled(id string, enabled bool) error {
	return s.update(id, func(a *IndicatorAlert) {
		a.Enabled = enabled
	})
}

func (s *IndicatorAlertStore) MarkTriggered(id string, at time.Time) error {
	return s.update(id, func(a *IndicatorAlert) {
		t := at
		a.LastTriggered = &t
	})
}

func (s *IndicatorAlertStore) update(id string, fn func(a *IndicatorAlert)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]IndicatorAlert{}, s.alerts...)
	_, i, found := lo.FindIndexOf(next, func(a IndicatorAlert) bool { return a.ID == id })
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

// ForTimeframe returns the enabled alerts on one timeframe.
func (s *IndicatorAlertStore) ForTimeframe(tf exchange.Timeframe) []IndicatorAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.alerts, func(a IndicatorAlert, _ int) bool {
		return a.Timeframe == tf && a.Enabled
	})
}

func (s *IndicatorAlertStore) All() []IndicatorAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]IndicatorAlert{}, s.alerts...)
}
