package model

import (
	"testing"
	"time"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAddOrderDecode(t *testing.T) {
	pair, spec, err := (&AddOrder{
		Symbol: " eth / usd ", Side: "SELL", TimeInForce: "day",
		Price: decimal.NewNullDecimal(d("10")), Quantity: d("2"), UserID: 9,
	}).Decode()
	require.NoError(t, err)
	assert.Equal(t, orderbook.NewTradingPair("ETH", "USD"), pair)
	assert.Equal(t, orderbook.SELL, spec.Side)
	assert.Equal(t, orderbook.LIMIT, spec.Type)
	assert.Equal(t, orderbook.DAY, spec.TimeInForce)
	assert.Equal(t, int64(9), spec.UserID)

	_, spec, err = (&AddOrder{Symbol: "BTC/USD", Side: "buy", Type: "market", Quantity: d("1")}).Decode()
	require.NoError(t, err)
	assert.Equal(t, orderbook.IOC, spec.TimeInForce)

	for _, bad := range []AddOrder{
		{Symbol: "BTCUSD", Side: "buy"},
		{Symbol: "BTC/USD", Side: "hold"},
		{Symbol: "BTC/USD", Side: "buy", Type: "stop"},
		{Symbol: "BTC/USD", Side: "buy", TimeInForce: "GTD"},
	} {
		_, _, err := bad.Decode()
		assert.ErrorIs(t, err, orderbook.ErrInvalidOrder, "%+v", bad)
	}
}

func TestOrderLifecycle(t *testing.T) {
	ts := time.Unix(100, 0)
	o := NewOrder("c1", &orderbook.ExecutionReport{
		OrderID: "o1", Symbol: "BTC/USD", Side: orderbook.SELL, Type: orderbook.LIMIT,
		TimeInForce: orderbook.GTC, Price: d("100"), Quantity: d("4"),
		Status: orderbook.StatusActive, FilledQuantity: decimal.Zero, RemainingQuantity: d("4"),
		Timestamp: ts,
	})
	assert.Equal(t, ExecTypeNew, o.ExecType)
	assert.True(t, o.CanCancel())
	assert.True(t, o.AvgPrice().IsZero())

	o.UpdateMakerFill(orderbook.Trade{ID: "t1", Price: d("100"), Quantity: d("1"), MakerRemaining: d("3"), Timestamp: ts.Add(time.Second)})
	o.UpdateMakerFill(orderbook.Trade{ID: "t2", Price: d("100"), Quantity: d("3"), MakerRemaining: decimal.Zero, Timestamp: ts.Add(2 * time.Second)})
	assert.Equal(t, orderbook.StatusFilled, o.Status)
	assert.True(t, o.CumQuantity.Equal(d("4")))
	assert.True(t, o.AvgPrice().Equal(d("100")))
	assert.True(t, o.IsEnd())
	assert.False(t, o.CanCancel())

	// terminal records do not move
	o.UpdateCancel(orderbook.CancelledOrder{}, ExecTypeCanceled)
	assert.Equal(t, orderbook.StatusFilled, o.Status)
}

func TestNewOrderFromTakerReport(t *testing.T) {
	o := NewOrder("", &orderbook.ExecutionReport{
		OrderID: "o2", Status: orderbook.StatusCancelled, Quantity: d("3"),
		FilledQuantity: d("2"), RemainingQuantity: d("1"),
		Trades: []orderbook.Trade{
			{ID: "t1", Price: d("10"), Quantity: d("1")},
			{ID: "t2", Price: d("13"), Quantity: d("1")},
		},
	})
	assert.Equal(t, ExecTypeCanceled, o.ExecType)
	assert.True(t, o.LastPrice.Equal(d("13")))
	assert.True(t, o.AvgPrice().Equal(d("11.5")))

	ev := NewTradeEvent(*o, orderbook.Trade{ID: "t9", Price: d("10"), Quantity: d("1")})
	assert.Equal(t, "t9", ev.TradeID)
	assert.Equal(t, "o2-Trade-t9", ev.EventID)
	assert.Equal(t, "o2-New", NewOrderEvent(*o, ExecTypeNew, time.Time{}).EventID)
}

func TestUpdateReplace(t *testing.T) {
	o := NewOrder("c3", &orderbook.ExecutionReport{
		OrderID: "o3", Status: orderbook.StatusActive, Price: d("100"), Quantity: d("5"),
		FilledQuantity: d("0"), RemainingQuantity: d("5"),
	})
	o.UpdateReplace(&orderbook.ExecutionReport{
		OrderID: "o3", Status: orderbook.StatusFilled, Price: d("101"), Quantity: d("2"),
		FilledQuantity: d("2"), RemainingQuantity: d("0"),
		Trades: []orderbook.Trade{{ID: "t1", Price: d("100.5"), Quantity: d("2")}},
	})
	assert.Equal(t, orderbook.StatusFilled, o.Status)
	assert.Equal(t, ExecTypeReplaced, o.ExecType)
	assert.True(t, o.Price.Equal(d("101")))
	assert.True(t, o.AvgPrice().Equal(d("100.5")))
	assert.Equal(t, "o3-Replaced-1", NewReplaceEvent(*o).EventID)
}
