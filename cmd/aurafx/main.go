// Command aurafx runs the live FX trading engine: tick ingestion, OHLC
// aggregation, indicator computation, multi-strategy signal evaluation,
// position supervision, and rate-limited broker dispatch, fronted by an
// HTTP/WebSocket control surface. Wires config, storage, the pipeline, and
// the API server in dependency order, then shuts them down gracefully on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/w000nab0/aurafx/internal/api"
	"github.com/w000nab0/aurafx/internal/blackout"
	"github.com/w000nab0/aurafx/internal/broadcast"
	"github.com/w000nab0/aurafx/internal/broker"
	"github.com/w000nab0/aurafx/internal/candle"
	"github.com/w000nab0/aurafx/internal/config"
	"github.com/w000nab0/aurafx/internal/dispatcher"
	"github.com/w000nab0/aurafx/internal/indicator"
	"github.com/w000nab0/aurafx/internal/livetrading"
	"github.com/w000nab0/aurafx/internal/position"
	"github.com/w000nab0/aurafx/internal/ratelimit"
	tradesignal "github.com/w000nab0/aurafx/internal/signal"
	"github.com/w000nab0/aurafx/internal/storage"
	"github.com/w000nab0/aurafx/internal/stream"
)

// timeframeSeconds lists every aggregated timeframe, second-resolution
// first so the 1m ATR gate and the fastest strategies evaluate first.
var timeframeSeconds = []int{60, 300, 900, 3600, 14400}

var timeframeLabels = map[int]string{
	60:    "1m",
	300:   "5m",
	900:   "15m",
	3600:  "1h",
	14400: "4h",
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("starting aurafx trading engine")

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = config.DefaultConfig()
	}

	tradingStore := config.NewStore("data/trading_config.json")
	trading := tradingStore.Load()

	db, err := storage.NewSQLiteDB(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()
	eventRepo := storage.NewEventRepository(db)

	calendar := blackout.NewCalendar()
	if windows, err := blackout.ParseWindows(trading.BlackoutWindows); err == nil && len(windows) > 0 {
		if err := calendar.Set(windows); err != nil {
			log.Warn().Err(err).Msg("persisted blackout windows rejected, keeping defaults")
		}
	}

	hub := broadcast.NewHub()

	aggregator := candle.NewAggregator(timeframeSeconds, trading.MaxRows)

	indicatorStore := indicator.NewStore()
	indicatorEngine := indicator.NewEngine(indicator.Config{
		SMAPeriods:        trading.SMAPeriods,
		RSIPeriods:        trading.RSIPeriods,
		RCIPeriods:        trading.RCIPeriods,
		BBPeriod:          trading.BBPeriod,
		BBSigmas:          trading.BBSigmas,
		ATRPeriods:        trading.ATRPeriods,
		TrendSMAPeriod:    trading.TrendSMAPeriod,
		TrendWindow:       trading.TrendWindow,
		TrendThresholdPip: trading.TrendThresholdPips,
		PipSize:           trading.PipSize,
		MaxRows:           trading.MaxRows,
	}, indicatorStore)

	signalEngine := tradesignal.NewEngine(tradesignal.Config{
		Cooldown:         time.Duration(trading.SignalCooldownSec * float64(time.Second)),
		HistoryLimit:     trading.HistoryLimit,
		ATRThresholdPips: trading.ATRThresholdPips,
		BBKey:            primaryBBKey(trading.BBPeriod, trading.BBSigmas),
		PipSize:          trading.PipSize,
	}, calendar, indicatorStore)

	positionManager := position.NewManager(position.Config{
		PipSize:        trading.PipSize,
		LotSize:        trading.LotSize,
		StopLossPips:   trading.StopLossPips,
		TakeProfitPips: trading.TakeProfitPips,
		FeeRate:        trading.FeeRate,
		TradingActive:  trading.TradingActive,
	})

	brokerClient := broker.NewClient(broker.Config{
		APIKey:    cfg.Broker.APIKey,
		APISecret: cfg.Broker.APISecret,
		Timeout:   cfg.Broker.Timeout,
	}, broker.WithBaseURL(cfg.Broker.BaseURL))

	limiter := ratelimit.New(ratelimit.Defaults())

	dispatch := dispatcher.NewDispatcher(dispatcher.DefaultConfig(), broker.IsRetryableError)
	dispatch.Start()
	defer dispatch.Stop()

	controller := livetrading.NewController(brokerClient, positionManager, dispatch, calendar)

	marketStream := stream.New(
		stream.Config{
			Endpoint:      cfg.Stream.Endpoint,
			Symbols:       cfg.Stream.Symbols,
			PingInterval:  cfg.Stream.PingInterval,
			ReconnectWait: cfg.Stream.ReconnectWait,
		},
		limiter,
		aggregator,
		indicatorEngine,
		signalEngine,
		positionManager,
		hub,
		controller,
		eventRepo,
		timeframeLabels,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go marketStream.Run(ctx)

	server := api.NewServer(
		&api.ServerConfig{Port: cfg.API.Port, CORSOrigins: cfg.API.CORSOrigins, ShutdownTimeout: 10 * time.Second},
		positionManager,
		indicatorEngine,
		signalEngine,
		calendar,
		tradingStore,
		controller,
		hub,
		eventRepo,
	)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	osSignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	cancel()
	marketStream.Stop()
	if err := server.Shutdown(); err != nil {
		log.Error().Err(err).Msg("error shutting down API server")
	}
}

// primaryBBKey renders the band key for the strategy table's single
// Bollinger lookup: the first configured sigma, even when the indicator
// engine computes bands for several simultaneously.
func primaryBBKey(period int, sigmas []float64) string {
	if period == 0 {
		period = 20
	}
	sigma := 2.0
	if len(sigmas) > 0 && sigmas[0] != 0 {
		sigma = sigmas[0]
	}
	return indicator.BBKey(period, sigma)
}
