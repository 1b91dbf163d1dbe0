// Package worker consumes the trade feed out of process and applies it to
// the downstream sinks, typically store and ledger.
package worker

import (
	"context"
	"errors"
	"time"

	kafkawrapper "github.com/joripage/matching-engine/pkg/kafka_wrapper"
	"github.com/joripage/matching-engine/pkg/tradefeed"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type Worker struct {
	sinks  []tradefeed.Sink
	logger *zap.Logger
}

func NewWorker(logger *zap.Logger, sinks ...tradefeed.Sink) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{sinks: sinks, logger: logger}
}

// HandleBatch is a kafkawrapper.BatchHandler. Malformed messages are logged
// and skipped; a sink error fails the batch so the consumer retries it.
func (w *Worker) HandleBatch(ctx context.Context, msgs []kafkawrapper.Message) error {
	for _, m := range msgs {
		ev, err := tradefeed.Decode(m.Value)
		if err != nil {
			w.logger.Warn("skip malformed event",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
			continue
		}
		if err := w.apply(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) apply(ctx context.Context, ev tradefeed.Event) error {
	for _, s := range w.sinks {
		if err := s.Handle(ctx, ev); err != nil {
			w.logger.Warn("sink error",
				zap.String("sink", s.Name()),
				zap.String("symbol", ev.Symbol),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

// PullSubscriber is the part of nats.JetStreamContext the consumer needs.
type PullSubscriber interface {
	PullSubscribe(subj, durable string, opts ...nats.SubOpt) (*nats.Subscription, error)
}

// StartConsumer pulls events from a durable JetStream consumer until ctx is
// done. A message is acked once every sink accepted it, or when it cannot
// be decoded.
func (w *Worker) StartConsumer(ctx context.Context, js PullSubscriber, subject, durable string) error {
	sub, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msgs, err := sub.Fetch(10, nats.MaxWait(time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Warn("nats fetch error", zap.String("subject", subject), zap.Error(err))
			continue
		}
		for _, msg := range msgs {
			w.handleMsg(ctx, msg)
		}
	}
}

func (w *Worker) handleMsg(ctx context.Context, msg *nats.Msg) {
	ev, err := tradefeed.Decode(msg.Data)
	if err != nil {
		w.logger.Warn("skip malformed event", zap.String("subject", msg.Subject), zap.Error(err))
		_ = msg.Ack()
		return
	}
	if err := w.apply(ctx, ev); err != nil {
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}
