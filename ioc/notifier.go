package ioc

import (
	"github.com/spf13/viper"

	"trading-alert-bot/internal/service/monitor"
	"trading-alert-bot/internal/service/notification"
)

// InitNotifier wires the webhook dispatcher when URLs are configured and
// falls back to console output otherwise.
func InitNotifier() monitor.Notifier {
	type Config struct {
		Default    string `mapstructure:"default"`
		Price      string `mapstructure:"price"`
		RSI        string `mapstructure:"rsi"`
		Divergence string `mapstructure:"divergence"`
		Whale      string `mapstructure:"whale"`
		Volume     string `mapstructure:"volume"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("webhooks", &cfg); err != nil {
		panic(err)
	}

	if cfg.Default == "" && cfg.Price == "" && cfg.RSI == "" &&
		cfg.Divergence == "" && cfg.Whale == "" && cfg.Volume == "" {
		return monitor.NewConsoleNotifier()
	}
	return notification.NewWebhookNotifier(map[monitor.Kind]string{
		"":                     cfg.Default,
		monitor.KindPrice:      cfg.Price,
		monitor.KindRSI:        cfg.RSI,
		monitor.KindDivergence: cfg.Divergence,
		monitor.KindWhale:      cfg.Whale,
		monitor.KindVolume:     cfg.Volume,
	})
}
