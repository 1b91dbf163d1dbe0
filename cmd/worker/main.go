package main

import (
	"context"
	"encoding/json"
	"flag"
	"os/signal"
	"syscall"

	"github.com/joripage/matching-engine/config"
	nats_wrapper "github.com/joripage/matching-engine/pkg/infra/nats"
	postgres_wrapper "github.com/joripage/matching-engine/pkg/infra/postgres"
	kafkawrapper "github.com/joripage/matching-engine/pkg/kafka_wrapper"
	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/logging"
	"github.com/joripage/matching-engine/pkg/sink"
	"github.com/joripage/matching-engine/pkg/store"
	"github.com/joripage/matching-engine/pkg/worker"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	var (
		configFile string
		source     string
	)
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&source, "source", "kafka", "feed source: kafka or nats")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewFromConfig(cfg.Log).Named("worker")
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger.Zap())

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var st store.Store = store.NewMemoryStore()
	if cfg.OmsDB != nil {
		db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.OmsDB)
		if err != nil {
			zap.S().Errorf("init db fail with err: %v", err)
			panic(err)
		}
		st = store.NewSQLStore(db)
	}

	w := worker.NewWorker(logger.Zap(),
		sink.NewStoreSink(st),
		sink.NewLedgerSink(ledger.New(), logger.Zap().Named("ledger")),
	)

	switch source {
	case "nats":
		if cfg.Nats == nil {
			logger.Fatal(ctx, "nats section missing")
		}
		nc, js, err := nats_wrapper.InitJetStream(cfg.Nats)
		if err != nil {
			panic(err)
		}
		defer nc.Close()
		subject := cfg.Nats.SubjectPrefix + ".>"
		if cfg.Nats.SubjectPrefix == "" {
			subject = "feed.>"
		}
		err = w.StartConsumer(ctx, js, subject, cfg.Nats.Durable)
		logger.Info(ctx, "nats consumer stopped", zap.Error(err))

	default:
		if cfg.Kafka == nil {
			logger.Fatal(ctx, "kafka section missing")
		}
		consumerCfg := cfg.Kafka.Consumer
		if consumerCfg.Topic == "" {
			consumerCfg.Topic = cfg.Kafka.Topic
		}
		cg, err := kafkawrapper.NewConsumerGroup(consumerCfg, logger.Zap().Named("kafka"))
		if err != nil {
			panic(err)
		}
		defer func() { _ = cg.Close() }()
		err = cg.Run(ctx, w.HandleBatch)
		logger.Info(ctx, "kafka consumer stopped", zap.Error(err))
	}
}
