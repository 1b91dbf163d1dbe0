package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os/signal"
	"syscall"
	"time"

	"github.com/joripage/matching-engine/config"
	"github.com/joripage/matching-engine/pkg/logging"
	"github.com/joripage/matching-engine/pkg/oms"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/joripage/matching-engine/pkg/tradefeed"
	"go.uber.org/zap"
)

func main() {
	var (
		configFile   string
		pprofAddr    string
		cleanEvery   time.Duration
		drainTimeout time.Duration
	)
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&pprofAddr, "pprof", "localhost:6060", "pprof listen address, empty to disable")
	flag.DurationVar(&cleanEvery, "clean-interval", time.Minute, "interval between evictions of finished orders")
	flag.DurationVar(&drainTimeout, "drain-timeout", 10*time.Second, "time allowed to flush the trade feed on shutdown")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewFromConfig(cfg.Log).Named(cfg.ServiceName)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger.Zap())

	if pprofAddr != "" {
		go func() {
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				zap.S().Warnf("pprof server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logging.NewRequestContext(ctx)

	engine := orderbook.NewMatchingEngine(orderbook.WithLogger(logger.Zap().Named("engine")))
	if err := registerMarkets(engine, cfg.Markets); err != nil {
		logger.Fatal(ctx, "invalid market", zap.Error(err))
	}

	sinks, closers, err := buildSinks(ctx, cfg, logger.Zap())
	if err != nil {
		closeAll(closers, logger.Zap())
		logger.Fatal(ctx, "build sinks", zap.Error(err))
	}
	defer closeAll(closers, logger.Zap())

	dispatcher := tradefeed.NewDispatcher(cfg.Feed, logger.Zap().Named("feed"), sinks...)
	engine.Subscribe(dispatcher.HandleBookEvent)

	svc := oms.NewOMS(engine,
		oms.WithOrderGateway(dispatcher),
		oms.WithLogger(logger.Named("oms")),
	)
	svc.StartCleaner(ctx, cleanEvery)

	logger.Info(ctx, "engine started", zap.Int("markets", len(cfg.Markets)), zap.Int("sinks", len(sinks)))
	<-ctx.Done()
	logger.Info(ctx, "shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), drainTimeout)
	defer stop()

	if expired, err := svc.ExpireDayOrders(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "expire day orders", zap.Error(err))
	} else {
		logger.Info(shutdownCtx, "day orders expired", zap.Int("count", len(expired)))
	}
	svc.Stop()

	if err := dispatcher.Drain(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "trade feed not drained", zap.Error(err))
		return
	}
	logger.Info(shutdownCtx, "exited cleanly")
}

func registerMarkets(engine *orderbook.MatchingEngine, markets []config.MarketConfig) error {
	for _, m := range markets {
		pair, err := m.TradingPair()
		if err != nil {
			return fmt.Errorf("market %q: %w", m.Pair, err)
		}
		rules, err := m.Rules()
		if err != nil {
			return fmt.Errorf("market %q: %w", m.Pair, err)
		}
		engine.RegisterMarket(pair, orderbook.WithRules(rules...))
	}
	return nil
}
