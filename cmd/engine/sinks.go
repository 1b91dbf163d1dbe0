package main

import (
	"context"
	"fmt"
	"io"

	"github.com/joripage/matching-engine/config"
	nats_wrapper "github.com/joripage/matching-engine/pkg/infra/nats"
	postgres_wrapper "github.com/joripage/matching-engine/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/matching-engine/pkg/infra/redis"
	kafkawrapper "github.com/joripage/matching-engine/pkg/kafka_wrapper"
	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/sink"
	"github.com/joripage/matching-engine/pkg/store"
	"github.com/joripage/matching-engine/pkg/tradefeed"
	"go.uber.org/zap"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// buildSinks connects only the backends named in feed.sinks. The returned
// closers release them in reverse order.
func buildSinks(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) ([]tradefeed.Sink, []io.Closer, error) {
	reg := sink.Registry{}
	var closers []io.Closer

	for _, name := range cfg.Feed.Sinks {
		switch name {
		case sink.NameKafka:
			if cfg.Kafka == nil {
				return nil, closers, fmt.Errorf("sink %s needs a kafka section", name)
			}
			p := kafkawrapper.NewProducer(cfg.Kafka.Producer)
			closers = append(closers, p)
			reg.Register(sink.NewKafkaSink(p, cfg.Kafka.Topic))

		case sink.NameNats:
			if cfg.Nats == nil {
				return nil, closers, fmt.Errorf("sink %s needs a nats section", name)
			}
			nc, js, err := nats_wrapper.InitJetStream(cfg.Nats)
			if err != nil {
				return nil, closers, err
			}
			closers = append(closers, closerFunc(func() error { return nc.Drain() }))
			reg.Register(sink.NewNatsSink(js, cfg.Nats.SubjectPrefix))

		case sink.NameRedis:
			if cfg.Redis == nil {
				return nil, closers, fmt.Errorf("sink %s needs a redis section", name)
			}
			rdb, err := redis_wrapper.InitRedis(ctx, cfg.Redis)
			if err != nil {
				return nil, closers, err
			}
			closers = append(closers, rdb)
			reg.Register(sink.NewRedisSink(rdb, cfg.Redis.KeyPrefix, cfg.Redis.TradeHistory))

		case sink.NameStore:
			var st store.Store = store.NewMemoryStore()
			if cfg.OmsDB != nil {
				db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.OmsDB)
				if err != nil {
					return nil, closers, err
				}
				st = store.NewSQLStore(db)
			}
			reg.Register(sink.NewStoreSink(st))

		case sink.NameLedger:
			reg.Register(sink.NewLedgerSink(ledger.New(), logger.Named("ledger")))

		default:
			return nil, closers, fmt.Errorf("unknown sink %q", name)
		}
	}

	sinks, err := reg.Select(cfg.Feed.Sinks)
	return sinks, closers, err
}

func closeAll(closers []io.Closer, logger *zap.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warn("close sink backend", zap.Error(err))
		}
	}
}
