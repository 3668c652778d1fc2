package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"trading-alert-bot/internal/repo"
	"trading-alert-bot/internal/schedule"
	"trading-alert-bot/internal/service/exchange"
	binanceex "trading-alert-bot/internal/service/exchange/binance"
	"trading-alert-bot/internal/service/exchange/bybit"
	"trading-alert-bot/internal/service/exchange/okx"
	"trading-alert-bot/internal/service/exchange/upbit"
	"trading-alert-bot/internal/service/indicator"
	"trading-alert-bot/internal/service/monitor"
	"trading-alert-bot/internal/service/stream"
	"trading-alert-bot/internal/store"
	"trading-alert-bot/ioc"
)

func initViper() {
	// --config=./config/config.dev.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	if err := viper.ReadInConfig(); err != nil {
		slog.Warn("config file not loaded, using defaults", "file", *file, "error", err)
	}
}

type runConfig struct {
	Symbols            []string `mapstructure:"symbols"`
	KRWRate            float64  `mapstructure:"krw_rate"`
	CryptoIntervalSec  int      `mapstructure:"crypto_interval_seconds"`
	USStockIntervalSec int      `mapstructure:"us_stock_interval_seconds"`
	KRStockIntervalSec int      `mapstructure:"kr_stock_interval_seconds"`
	IndicatorCheckSec  int      `mapstructure:"indicator_check_seconds"`
	RSIPeriod          int      `mapstructure:"rsi_period"`
	DivergenceLookback int      `mapstructure:"divergence_lookback"`
	PivotOrder         int      `mapstructure:"pivot_order"`
	DetectHidden       bool     `mapstructure:"detect_hidden_divergence"`
	TradeBuffer        int      `mapstructure:"trade_buffer"`
}

func initRunConfig() runConfig {
	cfg := runConfig{
		Symbols:            []string{"BTC", "ETH"},
		KRWRate:            1350,
		CryptoIntervalSec:  1,
		USStockIntervalSec: 60,
		KRStockIntervalSec: 5,
		IndicatorCheckSec:  60,
		RSIPeriod:          indicator.DefaultRSIPeriod,
		DivergenceLookback: indicator.DefaultLookback,
		PivotOrder:         3,
		DetectHidden:       true,
		TradeBuffer:        1024,
	}
	if err := viper.UnmarshalKey("monitor", &cfg); err != nil {
		panic(fmt.Errorf("monitor config: %w", err))
	}
	return cfg
}

func main() {
	initViper()
	cfg := initRunConfig()
	alertCfg := ioc.InitAlertConfig()

	db := ioc.InitDB()
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	triggerRepo := repo.NewTriggerRepo(db)

	priceAlerts := ioc.InitPriceAlertStore(alertCfg)
	indicatorAlerts := ioc.InitIndicatorAlertStore(alertCfg)
	whaleSettings := ioc.InitWhaleSettingsStore(alertCfg)
	notifier := ioc.InitNotifier()

	priceCooldown := store.NewCooldownStore(alertCfg.Cooldown(), priceAlerts.MarkTriggered)
	for _, a := range priceAlerts.All() {
		if a.LastTriggered != nil {
			priceCooldown.Seed(a.ID, *a.LastTriggered)
		}
	}
	indicatorCooldown := store.NewCooldownStore(alertCfg.IndicatorCooldown(), indicatorAlerts.MarkTriggered)
	for _, a := range indicatorAlerts.All() {
		if a.LastTriggered != nil {
			indicatorCooldown.Seed(a.ID, *a.LastTriggered)
		}
	}

	bian := ioc.InitBinanceCli()
	marketSvc := binanceex.NewMarketService(bian)

	engine := indicator.NewEngine(cfg.RSIPeriod, cfg.DivergenceLookback, indicator.DivergenceConfig{
		PivotOrder:   cfg.PivotOrder,
		DetectHidden: cfg.DetectHidden,
	})

	priceEvaluator := monitor.NewPriceEvaluator(priceAlerts, priceCooldown, triggerRepo,
		monitor.WithPriceNotifier(notifier))
	indicatorEvaluator := monitor.NewIndicatorEvaluator(indicatorAlerts, engine, marketSvc,
		indicatorCooldown, triggerRepo, cfg.DivergenceLookback+cfg.RSIPeriod+1,
		monitor.WithIndicatorNotifier(notifier))
	whaleEvaluator := monitor.NewWhaleEvaluator(whaleSettings, triggerRepo,
		monitor.WithWhaleNotifier(notifier))

	volCfg := ioc.InitVolumeConfig()
	volumeEvaluator := monitor.NewVolumeEvaluator(monitor.VolumeConfig{
		Timeframe:        exchange.Timeframe(volCfg.Timeframe),
		BaselineCandles:  volCfg.BaselineCandles,
		ThresholdPercent: decimal.NewFromFloat(volCfg.ThresholdPercent),
		BaselineRefresh:  volCfg.BaselineRefresh(),
	}, marketSvc, marketSvc,
		store.NewCooldownStore(volCfg.Cooldown(), nil), triggerRepo,
		monitor.WithVolumeNotifier(notifier))
	volumeEvaluator.SetEnabled(volCfg.Enabled)

	// quote providers per market; stock providers are external and plugged
	// in here when available
	providers := map[exchange.Market]exchange.QuoteProvider{
		exchange.MarketCrypto: marketSvc,
	}
	intervals := map[exchange.Market]time.Duration{
		exchange.MarketCrypto:  time.Duration(cfg.CryptoIntervalSec) * time.Second,
		exchange.MarketUSStock: time.Duration(cfg.USStockIntervalSec) * time.Second,
		exchange.MarketKRStock: time.Duration(cfg.KRStockIntervalSec) * time.Second,
	}

	runner := schedule.NewIntervalRunner()
	for market, provider := range providers {
		runner.Add(monitor.NewQuotePollTask(market, provider, priceAlerts, priceEvaluator), intervals[market])
	}
	for _, tf := range []exchange.Timeframe{exchange.Timeframe1h, exchange.Timeframe4h, exchange.Timeframe1d} {
		runner.Add(monitor.NewIndicatorPollTask(tf, indicatorEvaluator),
			time.Duration(cfg.IndicatorCheckSec)*time.Second)
	}

	volSymbols := volCfg.Symbols
	if len(volSymbols) == 0 {
		volSymbols = cfg.Symbols
	}
	runner.Add(monitor.NewVolumePollTask(volSymbols, volumeEvaluator), volCfg.CheckInterval())
	runner.Add(monitor.NewStatusTask(triggerRepo, 24*time.Hour, 5), time.Hour)

	trades := make(chan exchange.TradeEvent, cfg.TradeBuffer)
	supervisor := stream.NewSupervisor(whaleSettings, trades, []stream.Adapter{
		binanceex.NewStreamAdapter(cfg.Symbols),
		okx.NewStreamAdapter(cfg.Symbols),
		bybit.NewStreamAdapter(cfg.Symbols),
		upbit.NewStreamAdapter(cfg.Symbols, decimal.NewFromFloat(cfg.KRWRate)),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		supervisor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		whaleEvaluator.Run(ctx, trades)
	}()
	go func() {
		defer wg.Done()
		runner.Run(ctx)
	}()

	slog.Info("alert engine started", "symbols", cfg.Symbols)
	<-ctx.Done()
	slog.Info("shutting down")
	wg.Wait()
}
