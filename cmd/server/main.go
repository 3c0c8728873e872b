// Command server boots the Kestrel trading engine: it loads configuration,
// wires a price source and strategy set into an engine.Engine, and serves
// the REST API over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kestrel-trading/kestrel/api"
	"github.com/kestrel-trading/kestrel/config"
	"github.com/kestrel-trading/kestrel/engine"
	"github.com/kestrel-trading/kestrel/marketdata"
	"github.com/kestrel-trading/kestrel/models"
	"github.com/kestrel-trading/kestrel/quoteprovider"
	"github.com/kestrel-trading/kestrel/realtime"
	"github.com/kestrel-trading/kestrel/risk"
	"github.com/kestrel-trading/kestrel/strategies"
	"github.com/kestrel-trading/kestrel/telemetry"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("Starting Kestrel Trading Engine...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsLive() {
		log.Warn().Msg("LIVE TRADING MODE - orders placed through this API affect the configured account")
	} else {
		log.Info().Msg("dry_run mode: all order placement is simulated")
	}

	wsManager := realtime.NewWebSocketManager()
	go wsManager.Run()

	registry := strategies.NewRegistry()
	var algorithms []engine.Algorithm

	log.Info().Msgf("Enabled strategies: %v", cfg.EnabledStrategies)
	if len(cfg.EnabledStrategies) == 0 {
		log.Warn().Msg("No strategies enabled - engine will run but never emit signals")
	}

	for _, name := range cfg.EnabledStrategies {
		strategy, err := strategies.NewStrategyByName(name)
		if err != nil {
			log.Fatal().Err(err).Msgf("Failed to create strategy: %s", name)
		}
		if err := strategy.Init(nil); err != nil {
			log.Fatal().Err(err).Msgf("Failed to initialize strategy: %s", name)
		}
		if err := registry.Register(strategy); err != nil {
			log.Fatal().Err(err).Msgf("Failed to register strategy: %s", name)
		}
		algorithms = append(algorithms, engine.Algorithm{
			StrategyID: models.StrategyID(name),
			Strategy:   strategy,
		})
		log.Info().Msgf("registered strategy: %s", name)
	}

	source, err := buildSource(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build price source")
	}

	metrics := telemetry.NewDefault()
	qp := quoteprovider.NewInMemory(models.ZeroPrice)

	maxOpen := uint32(50)
	riskConfig := risk.EngineConfig{
		MaxTradePortfolioAccumulation: 0.25,
		MaxOpenTrades:                 &maxOpen,
	}

	eng := engine.New(
		source,
		qp,
		models.PriceFromFloat(cfg.StartingBalance),
		models.PriceFromFloat(cfg.CommissionPerShare),
		riskConfig,
		algorithms,
		wsManager,
		metrics,
	)

	ctx, cancelEngine := context.WithCancel(context.Background())
	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Error().Err(err).Msg("engine run stopped")
		}
	}()

	router := api.NewRouter(cfg, registry, eng.Broker(), eng.Portfolio(), eng.RiskEngine(), wsManager)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("API server listening on %s:%d", cfg.ServerHost, cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	cancelEngine()
	eng.Shutdown()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// buildSource constructs the configured PriceSource. The "file" provider
// replays an NDJSON bar file from disk; "yahoo" and "binance" poll their
// respective live feeds for a small hardcoded symbol set, fanned in through
// marketdata.Merge.
func buildSource(cfg *config.Config) (marketdata.PriceSource, error) {
	switch cfg.DataProvider {
	case "file":
		f, err := os.Open(cfg.ReplayFilePath)
		if err != nil {
			return nil, fmt.Errorf("opening replay file: %w", err)
		}
		return marketdata.NewFileSource(f), nil

	case "binance":
		symbols := []string{"BTCUSDT", "ETHUSDT"}
		var sources []marketdata.PriceSource
		for _, sym := range symbols {
			sec := models.NewCrypto(sym)
			sources = append(sources, marketdata.NewBinanceSource(sec, "1m", time.Minute))
		}
		return marketdata.Merge(sources...), nil

	case "yahoo":
		symbols := []string{"SPY", "AAPL", "MSFT"}
		var sources []marketdata.PriceSource
		for _, sym := range symbols {
			sec := models.NewEquity(models.ExchangeNASDAQ, sym)
			sources = append(sources, marketdata.NewYahooSource(sec, time.Minute))
		}
		return marketdata.Merge(sources...), nil

	default:
		return nil, fmt.Errorf("unsupported data provider: %s", cfg.DataProvider)
	}
}
