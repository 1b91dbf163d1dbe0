package sink

import (
	"context"

	"github.com/joripage/matching-engine/pkg/tradefeed"
)

const HeaderKind = "kind"

// JSONPublisher is satisfied by kafkawrapper.Producer.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error
}

// KafkaSink publishes every event to one topic keyed by symbol, so a symbol
// stays on one partition.
type KafkaSink struct {
	producer JSONPublisher
	topic    string
}

func NewKafkaSink(producer JSONPublisher, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return NameKafka }

func (s *KafkaSink) Handle(ctx context.Context, ev tradefeed.Event) error {
	return s.producer.PublishJSON(ctx, s.topic, ev.Symbol, ev, map[string]string{
		HeaderKind: string(ev.Kind),
	})
}
