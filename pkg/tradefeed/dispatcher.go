package tradefeed

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/joripage/go_util/pkg/shardqueue"
	"github.com/joripage/matching-engine/pkg/oms/model"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"go.uber.org/zap"
)

const (
	defaultShards    = 16
	defaultQueueSize = 100_000
)

type Config struct {
	Shards        int           `yaml:"shards"`
	QueueSize     int           `yaml:"queue_size"`
	MaxRetries    uint64        `yaml:"max_retries"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Sinks         []string      `yaml:"sinks"`
}

// Sink consumes feed events. Handle may be retried and must be idempotent.
type Sink interface {
	Name() string
	Handle(ctx context.Context, ev Event) error
}

// Dispatcher fans events out to sinks off the matching path. Events of one
// symbol land on one shard and are handled in publish order.
type Dispatcher struct {
	queue   *shardqueue.Shardqueue
	sinks   []Sink
	cfg     Config
	logger  *zap.Logger
	pending sync.WaitGroup
}

func NewDispatcher(cfg Config, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShards
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		queue:  shardqueue.NewShardQueue(cfg.Shards, cfg.QueueSize),
		sinks:  sinks,
		cfg:    cfg,
		logger: logger,
	}
	d.queue.Start(func(msg interface{}) error {
		if ev, ok := msg.(*Event); ok {
			d.deliver(*ev)
			d.pending.Done()
		}
		return nil
	})
	return d
}

func (d *Dispatcher) Publish(ev Event) {
	d.pending.Add(1)
	d.queue.Shard(ev.Symbol, &ev)
}

// HandleBookEvent is an orderbook.EventHandler.
func (d *Dispatcher) HandleBookEvent(ev orderbook.BookEvent) {
	d.Publish(NewBookEvent(ev))
}

// OnOrderReport lets the dispatcher act as the OMS order gateway.
func (d *Dispatcher) OnOrderReport(_ context.Context, symbol string, orders ...model.Order) {
	if len(orders) == 0 {
		return
	}
	d.Publish(NewOrderEvent(symbol, orders, orders[0].UpdatedAt))
}

// Drain waits until every published event has been delivered or ctx ends.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx := context.Background()
	for _, sink := range d.sinks {
		err := backoff.Retry(func() error {
			return sink.Handle(ctx, ev)
		}, d.newBackOff())
		if err != nil {
			d.logger.Error("sink failed, event skipped",
				zap.String("sink", sink.Name()),
				zap.String("kind", string(ev.Kind)),
				zap.String("symbol", ev.Symbol),
				zap.Int("trades", len(ev.Trades)),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if d.cfg.RetryInterval > 0 {
		b.InitialInterval = d.cfg.RetryInterval
		b.MaxInterval = 50 * d.cfg.RetryInterval
	}
	return backoff.WithMaxRetries(b, d.cfg.MaxRetries)
}
