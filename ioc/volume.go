package ioc

import (
	"time"

	"github.com/spf13/viper"
)

type VolumeAlertConfig struct {
	Enabled                bool     `mapstructure:"enabled"`
	Symbols                []string `mapstructure:"symbols"`
	Timeframe              string   `mapstructure:"timeframe"`
	BaselineCandles        int      `mapstructure:"baseline_candles"`
	ThresholdPercent       float64  `mapstructure:"threshold_percent"`
	CooldownSeconds        int      `mapstructure:"cooldown_seconds"`
	CheckSeconds           int      `mapstructure:"check_seconds"`
	BaselineRefreshSeconds int      `mapstructure:"baseline_refresh_seconds"`
}

func InitVolumeConfig() VolumeAlertConfig {
	cfg := VolumeAlertConfig{
		Enabled:                true,
		Timeframe:              "4h",
		BaselineCandles:        20,
		ThresholdPercent:       200,
		CooldownSeconds:        300,
		CheckSeconds:           30,
		BaselineRefreshSeconds: 600,
	}
	if err := viper.UnmarshalKey("volume", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func (c VolumeAlertConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c VolumeAlertConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckSeconds) * time.Second
}

func (c VolumeAlertConfig) BaselineRefresh() time.Duration {
	return time.Duration(c.BaselineRefreshSeconds) * time.Second
}
