package kafkawrapper

import (
	"context"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDurationBounded(t *testing.T) {
	min, max := 10*time.Millisecond, 80*time.Millisecond
	for attempt := 0; attempt < 20; attempt++ {
		d := backoffDuration(min, max, attempt)
		if d < 0 || d >= max {
			t.Fatalf("attempt %d: backoff %v out of [0, %v)", attempt, d, max)
		}
	}
	assert.Equal(t, time.Duration(0), backoffDuration(0, 0, 3))
}

func TestLaneOfPinsPartitions(t *testing.T) {
	for p := 0; p < 32; p++ {
		lane := laneOf(p, 4)
		require.GreaterOrEqual(t, lane, 0)
		require.Less(t, lane, 4)
		assert.Equal(t, lane, laneOf(p, 4), "partition %d must always map to the same worker", p)
	}
	assert.Equal(t, 0, laneOf(7, 1))
	assert.Equal(t, laneOf(3, 4), laneOf(-3, 4))
}

func TestHeadersRoundTrip(t *testing.T) {
	in := map[string]string{"kind": "book", "symbol": "BTC/USD"}
	assert.Equal(t, in, headersToMap(mapToHeaders(in)))
	assert.Nil(t, mapToHeaders(nil))

	m := wrapMessage(kafka.Message{Topic: "feed", Offset: 7, Headers: mapToHeaders(in)})
	assert.Equal(t, int64(7), m.Offset)
	assert.Equal(t, "book", m.Headers["kind"])
}

func TestUninitializedClients(t *testing.T) {
	var p *Producer
	assert.ErrorIs(t, p.Publish(context.Background(), "t", nil, nil, nil), ErrNotInitialized)
	assert.NoError(t, p.Close())

	var cg *ConsumerGroup
	assert.ErrorIs(t, cg.Run(context.Background(), nil), ErrNotInitialized)
	assert.NoError(t, cg.Close())

	_, err := NewConsumerGroup(ConsumerConfig{}, nil)
	assert.Error(t, err)
}
