package sink

import (
	"context"
	"fmt"

	"github.com/joripage/matching-engine/pkg/tradefeed"
	"github.com/nats-io/nats.go"
)

// JetStreamPublisher is the part of nats.JetStreamContext the sink needs.
type JetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NatsSink publishes events to <prefix>.<kind>.<symbol>.
type NatsSink struct {
	js     JetStreamPublisher
	prefix string
}

func NewNatsSink(js JetStreamPublisher, prefix string) *NatsSink {
	if prefix == "" {
		prefix = "feed"
	}
	return &NatsSink{js: js, prefix: prefix}
}

func (s *NatsSink) Name() string { return NameNats }

func (s *NatsSink) Handle(ctx context.Context, ev tradefeed.Event) error {
	data, err := ev.Marshal()
	if err != nil {
		return err
	}
	opts := []nats.PubOpt{nats.Context(ctx)}
	if id := msgID(ev); id != "" {
		opts = append(opts, nats.MsgId(id))
	}
	_, err = s.js.Publish(Subject(s.prefix, ev), data, opts...)
	return err
}

// Subject builds the subject an event is published on. Symbols contain a
// slash which is not a token separator, so it is replaced.
func Subject(prefix string, ev tradefeed.Event) string {
	return fmt.Sprintf("%s.%s.%s", prefix, ev.Kind, subjectToken(ev.Symbol))
}

func subjectToken(symbol string) string {
	b := []byte(symbol)
	for i, c := range b {
		switch c {
		case '/', '.', ' ', '*', '>':
			b[i] = '_'
		}
	}
	return string(b)
}

// msgID lets JetStream drop a redelivered book event. Order events have no
// single natural id and are published without one.
func msgID(ev tradefeed.Event) string {
	if ev.Kind != tradefeed.KindBook || len(ev.Trades) == 0 {
		return ""
	}
	return ev.Symbol + ":" + ev.Trades[len(ev.Trades)-1].ID
}
