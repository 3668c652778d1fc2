package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"trading-alert-bot/internal/service/exchange"
)

// WhaleSettings is an immutable snapshot of the whale detection config.
// Consumers read one snapshot per evaluation, never the live maps.
type WhaleSettings struct {
	Enabled          bool
	Exchanges        map[exchange.Name]bool
	Thresholds       map[string]decimal.Decimal // canonical symbol -> USD notional
	DefaultThreshold decimal.Decimal
}

// ExchangeEnabled reports whether a venue should be streamed at all.
// Venues absent from the settings file default to enabled.
func (s WhaleSettings) ExchangeEnabled(name exchange.Name) bool {
	if !s.Enabled {
		return false
	}
	enabled, ok := s.Exchanges[name]
	if !ok {
		return true
	}
	return enabled
}

// Threshold returns the USD notional a trade must reach for the symbol.
func (s WhaleSettings) Threshold(symbol string) decimal.Decimal {
	if t, ok := s.Thresholds[symbol]; ok {
		return t
	}
	return s.DefaultThreshold
}

type whaleSettingsFile struct {
	Enabled          bool                       `json:"enabled"`
	Exchanges        map[string]bool            `json:"exchanges"`
	Thresholds       map[string]decimal.Decimal `json:"thresholds"`
	DefaultThreshold decimal.Decimal            `json:"default_threshold"`
}

// WhaleSettingsStore owns the mutable whale settings. Every mutation is
// persisted to disk before it becomes visible to Snapshot.
type WhaleSettingsStore struct {
	mu       sync.RWMutex
	path     string
	settings WhaleSettings
}

func NewWhaleSettingsStore(path string, defaultThreshold decimal.Decimal) (*WhaleSettingsStore, error) {
	s := &WhaleSettingsStore{
		path: path,
		settings: WhaleSettings{
			Enabled:          true,
			Exchanges:        map[exchange.Name]bool{},
			Thresholds:       map[string]decimal.Decimal{},
			DefaultThreshold: defaultThreshold,
		},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WhaleSettingsStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		slog.Info("no whale settings file, starting with defaults", "path", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read whale settings: %w", err)
	}

	var f whaleSettingsFile
	if err = json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse whale settings: %w", err)
	}

	s.settings.Enabled = f.Enabled
	for name, enabled := range f.Exchanges {
		s.settings.Exchanges[exchange.Name(name)] = enabled
	}
	for symbol, threshold := range f.Thresholds {
		s.settings.Thresholds[exchange.CanonicalSymbol(symbol)] = threshold
	}
	if !f.DefaultThreshold.IsZero() {
		s.settings.DefaultThreshold = f.DefaultThreshold
	}
	slog.Info("loaded whale settings", "path", s.path, "enabled", f.Enabled)
	return nil
}

// persist must be called with mu held.
func (s *WhaleSettingsStore) persist(next WhaleSettings) error {
	f := whaleSettingsFile{
		Enabled:          next.Enabled,
		Exchanges:        map[string]bool{},
		Thresholds:       next.Thresholds,
		DefaultThreshold: next.DefaultThreshold,
	}
	for name, enabled := range next.Exchanges {
		f.Exchanges[string(name)] = enabled
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err = os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write whale settings: %w", err)
	}
	return nil
}

// Snapshot returns a consistent copy of the current settings.
func (s *WhaleSettingsStore) Snapshot() WhaleSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.clone()
}

func (s WhaleSettings) clone() WhaleSettings {
	out := WhaleSettings{
		Enabled:          s.Enabled,
		Exchanges:        make(map[exchange.Name]bool, len(s.Exchanges)),
		Thresholds:       make(map[string]decimal.Decimal, len(s.Thresholds)),
		DefaultThreshold: s.DefaultThreshold,
	}
	for k, v := range s.Exchanges {
		out.Exchanges[k] = v
	}
	for k, v := range s.Thresholds {
		out.Thresholds[k] = v
	}
	return out
}

// SetEnabled flips the master switch for whale monitoring.
func (s *WhaleSettingsStore) SetEnabled(enabled bool) error {
	return s.mutate(func(next *WhaleSettings) {
		next.Enabled = enabled
	})
}

func (s *WhaleSettingsStore) SetExchangeEnabled(name exchange.Name, enabled bool) error {
	return s.mutate(func(next *WhaleSettings) {
		next.Exchanges[name] = enabled
	})
}

func (s *WhaleSettingsStore) SetThreshold(symbol string, threshold decimal.Decimal) error {
	if threshold.IsNegative() {
		return fmt.Errorf("threshold must not be negative: %s", threshold)
	}
	symbol = exchange.CanonicalSymbol(symbol)
	return s.mutate(func(next *WhaleSettings) {
		next.Thresholds[symbol] = threshold
	})
}

// mutate applies fn to a copy, persists it, and only then swaps it in.
// A failed persist leaves the visible settings untouched.
func (s *WhaleSettingsStore) mutate(fn func(next *WhaleSettings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings.clone()
	fn(&next)
	if err := s.persist(next); err != nil {
		return err
	}
	s.settings = next
	return nil
}
