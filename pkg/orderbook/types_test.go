package orderbook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradingPair(t *testing.T) {
	p, err := ParseTradingPair("btc/usd")
	require.NoError(t, err)
	assert.Equal(t, TradingPair{Base: "BTC", Quote: "USD"}, p)
	assert.Equal(t, "BTC/USD", p.String())

	for _, s := range []string{"", "BTC", "/USD", "BTC/"} {
		_, err := ParseTradingPair(s)
		assert.ErrorIs(t, err, ErrInvalidOrder, s)
	}
}

func TestEnumDecoding(t *testing.T) {
	side, err := ParseSide("Ask")
	require.NoError(t, err)
	assert.Equal(t, SELL, side)
	assert.Equal(t, BUY, side.Opposite())

	typ, err := ParseOrderType("MARKET")
	require.NoError(t, err)
	assert.Equal(t, MARKET, typ)

	tif, err := ParseTimeInForce("")
	require.NoError(t, err)
	assert.Equal(t, GTC, tif)

	st, err := ParseOrderStatus("canceled")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, st)

	_, err = ParseSide("long")
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = ParseTimeInForce("GTD")
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestEnumJSON(t *testing.T) {
	type wire struct {
		Side Side        `json:"side"`
		TIF  TimeInForce `json:"tif"`
	}
	b, err := json.Marshal(wire{Side: SELL, TIF: DAY})
	require.NoError(t, err)
	assert.JSONEq(t, `{"side":"sell","tif":"DAY"}`, string(b))

	var w wire
	require.NoError(t, json.Unmarshal([]byte(`{"side":"buy","tif":"ioc"}`), &w))
	assert.Equal(t, wire{Side: BUY, TIF: IOC}, w)
	assert.Error(t, json.Unmarshal([]byte(`{"side":"up"}`), &w))
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusActive))
	assert.True(t, StatusPending.CanTransitionTo(StatusRejected))
	assert.True(t, StatusActive.CanTransitionTo(StatusActive))
	assert.True(t, StatusActive.CanTransitionTo(StatusFilled))
	assert.False(t, StatusActive.CanTransitionTo(StatusRejected))
	for _, terminal := range []OrderStatus{StatusFilled, StatusCancelled, StatusRejected} {
		assert.True(t, terminal.IsTerminal())
		for _, next := range []OrderStatus{StatusPending, StatusActive, StatusFilled, StatusCancelled, StatusRejected} {
			assert.False(t, terminal.CanTransitionTo(next))
		}
	}
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("X")
	assert.Equal(t, "XO-1", g.NextOrderID())
	assert.Equal(t, "XO-2", g.NextOrderID())
	assert.Equal(t, "XT-1", g.NextTradeID())
}
