package ioc

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"trading-alert-bot/internal/store"
)

type AlertConfig struct {
	AlertsFile               string  `mapstructure:"alerts_file"`
	IndicatorAlertsFile      string  `mapstructure:"indicator_alerts_file"`
	WhaleSettingsFile        string  `mapstructure:"whale_settings_file"`
	MaxPerSymbol             int     `mapstructure:"max_per_symbol"`
	CooldownSeconds          int     `mapstructure:"cooldown_seconds"`
	IndicatorCooldownSeconds int     `mapstructure:"indicator_cooldown_seconds"`
	DefaultWhaleThreshold    float64 `mapstructure:"default_whale_threshold"`
}

func InitAlertConfig() AlertConfig {
	cfg := AlertConfig{
		AlertsFile:               "alerts.json",
		IndicatorAlertsFile:      "rsi_alerts.json",
		WhaleSettingsFile:        "whale_settings.json",
		MaxPerSymbol:             store.DefaultMaxAlertsPerSymbol,
		CooldownSeconds:          300,
		IndicatorCooldownSeconds: 3600,
		DefaultWhaleThreshold:    1_000_000,
	}
	if err := viper.UnmarshalKey("alerts", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func (c AlertConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c AlertConfig) IndicatorCooldown() time.Duration {
	return time.Duration(c.IndicatorCooldownSeconds) * time.Second
}

func InitPriceAlertStore(cfg AlertConfig) *store.PriceAlertStore {
	s, err := store.NewPriceAlertStore(cfg.AlertsFile, cfg.MaxPerSymbol)
	if err != nil {
		panic(err)
	}
	return s
}

func InitIndicatorAlertStore(cfg AlertConfig) *store.IndicatorAlertStore {
	s, err := store.NewIndicatorAlertStore(cfg.IndicatorAlertsFile)
	if err != nil {
		panic(err)
	}
	return s
}

func InitWhaleSettingsStore(cfg AlertConfig) *store.WhaleSettingsStore {
	s, err := store.NewWhaleSettingsStore(cfg.WhaleSettingsFile, decimal.NewFromFloat(cfg.DefaultWhaleThreshold))
	if err != nil {
		panic(err)
	}
	return s
}
