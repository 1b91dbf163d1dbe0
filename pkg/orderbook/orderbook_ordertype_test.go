package orderbook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitOrderMatch(t *testing.T) {
	ob := newTestBook()

	mustSubmit(t, ob, limit(SELL, "10", "100", GTC))
	r := mustSubmit(t, ob, limit(BUY, "10", "101", GTC))

	if len(r.Trades) != 1 || !r.Trades[0].Quantity.Equal(d("10")) {
		t.Errorf("Expected 1 match of 10 units, got %+v", r.Trades)
	}
	if !r.Trades[0].Price.Equal(d("100")) {
		t.Errorf("Expected maker price 100, got %s", r.Trades[0].Price)
	}
}

func TestMarketOrderFullMatch(t *testing.T) {
	ob := newTestBook()

	mustSubmit(t, ob, limit(SELL, "10", "100", GTC))
	r := mustSubmit(t, ob, market(BUY, "10"))

	if len(r.Trades) != 1 || !r.Trades[0].Quantity.Equal(d("10")) {
		t.Errorf("Expected full market match, got %+v", r.Trades)
	}
	if r.Status != StatusFilled || r.TimeInForce != IOC {
		t.Errorf("Expected filled IOC report, got %s %s", r.Status, r.TimeInForce)
	}
}

func TestMarketOrderSweepsLevelsAndDiscardsRest(t *testing.T) {
	ob := newTestBook()

	mustSubmit(t, ob, limit(SELL, "2", "100", GTC))
	mustSubmit(t, ob, limit(SELL, "3", "250", GTC))
	r := mustSubmit(t, ob, market(BUY, "10"))

	require.Len(t, r.Trades, 2)
	assert.True(t, r.Trades[1].Price.Equal(d("250")))
	assert.Equal(t, StatusCancelled, r.Status)
	assert.True(t, r.FilledQuantity.Equal(d("5")))
	assert.True(t, r.RemainingQuantity.Equal(d("5")))
	_, resting := ob.Order(r.OrderID)
	assert.False(t, resting)
	assert.Equal(t, 0, ob.Len())
}

func TestMarketOrderAgainstEmptyBook(t *testing.T) {
	ob := newTestBook()

	r := mustSubmit(t, ob, market(SELL, "3"))

	assert.Empty(t, r.Trades)
	assert.Equal(t, StatusCancelled, r.Status)
	assert.True(t, r.RemainingQuantity.Equal(d("3")))
	assert.Equal(t, 0, ob.Len())
}

func TestIOCPartialMatch(t *testing.T) {
	ob := newTestBook()

	mustSubmit(t, ob, limit(SELL, "5", "100", GTC))
	r := mustSubmit(t, ob, limit(BUY, "10", "101", IOC))

	if len(r.Trades) != 1 || !r.Trades[0].Quantity.Equal(d("5")) {
		t.Errorf("Expected partial IOC match of 5 units, got %+v", r.Trades)
	}
	if r.Status != StatusCancelled {
		t.Errorf("Expected IOC remainder cancelled, got %s", r.Status)
	}
	if _, ok := ob.Order(r.OrderID); ok || ob.BestBid().Valid {
		t.Errorf("IOC remainder must not rest")
	}
}

func TestFOKRejectPartial(t *testing.T) {
	ob := newTestBook()

	mustSubmit(t, ob, limit(SELL, "5", "100", GTC))
	before := ob.Snapshot(0)

	r, err := ob.Submit(limit(BUY, "10", "101", FOK))
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if r == nil || r.Status != StatusRejected || len(r.Trades) != 0 {
		t.Fatalf("FOK should reject partial fill, got %+v", r)
	}
	if !r.RemainingQuantity.Equal(d("10")) || !r.FilledQuantity.IsZero() {
		t.Fatalf("rejected FOK must keep its full quantity, got %+v", r)
	}
	assert.Equal(t, before, ob.Snapshot(0))
}

func TestFOKFullFill(t *testing.T) {
	ob := newTestBook()

	mustSubmit(t, ob, limit(SELL, "4", "100", GTC))
	mustSubmit(t, ob, limit(SELL, "6", "101", GTC))
	mustSubmit(t, ob, limit(SELL, "6", "102", GTC))

	r := mustSubmit(t, ob, limit(BUY, "10", "101", FOK))

	require.Len(t, r.Trades, 2)
	assert.Equal(t, StatusFilled, r.Status)
	assert.True(t, r.RemainingQuantity.IsZero())
	assert.True(t, ob.BestAsk().Decimal.Equal(d("102")))
}

func TestFOKIgnoresLiquidityBeyondLimit(t *testing.T) {
	ob := newTestBook()

	mustSubmit(t, ob, limit(SELL, "4", "100", GTC))
	mustSubmit(t, ob, limit(SELL, "50", "110", GTC))

	_, err := ob.Submit(limit(BUY, "10", "105", FOK))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 2, ob.Len())
}

func TestDayOrderRests(t *testing.T) {
	ob := newTestBook()

	r := mustSubmit(t, ob, limit(BUY, "3", "50", DAY))

	assert.Equal(t, StatusActive, r.Status)
	o, ok := ob.Order(r.OrderID)
	require.True(t, ok)
	assert.Equal(t, DAY, o.TimeInForce)
}

func TestDefaultTimeInForceIsGTC(t *testing.T) {
	ob := newTestBook()

	r := mustSubmit(t, ob, limit(BUY, "3", "50", 0))

	assert.Equal(t, GTC, r.TimeInForce)
	assert.Equal(t, StatusActive, r.Status)
}

func TestSubmitValidation(t *testing.T) {
	ob := newTestBook()

	cases := map[string]OrderSpec{
		"zero quantity":     limit(BUY, "0", "10", GTC),
		"negative quantity": limit(BUY, "-1", "10", GTC),
		"missing price":     {Side: BUY, Type: LIMIT, Quantity: d("1")},
		"zero price":        limit(SELL, "1", "0", GTC),
		"market fok":        {Side: SELL, Type: MARKET, Quantity: d("1"), TimeInForce: FOK},
		"missing side":      {Type: MARKET, Quantity: d("1")},
		"missing type":      {Side: BUY, Quantity: d("1")},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := ob.Submit(spec)
			assert.ErrorIs(t, err, ErrInvalidOrder)
			assert.Nil(t, r)
		})
	}
	assert.Equal(t, 0, ob.Len())
}

func TestSnapshotDepthAndQuotes(t *testing.T) {
	ob := newTestBook()

	for _, p := range []string{"99", "98", "97"} {
		mustSubmit(t, ob, limit(BUY, "1", p, GTC))
	}
	mustSubmit(t, ob, limit(BUY, "2", "99", GTC))
	mustSubmit(t, ob, limit(SELL, "5", "101", GTC))

	snap := ob.Snapshot(2)
	require.Len(t, snap.Bids, 2)
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Bids[0].Price.Equal(d("99")))
	assert.True(t, snap.Bids[0].Quantity.Equal(d("3")))
	assert.Equal(t, 2, snap.Bids[0].OrderCount)
	assert.True(t, snap.Bids[1].Price.Equal(d("98")))
	assert.True(t, snap.Spread.Decimal.Equal(d("2")))
	assert.True(t, snap.MidPrice.Decimal.Equal(d("100")))

	assert.Len(t, ob.Snapshot(0).Bids, 3)
}

func TestSnapshotOneSided(t *testing.T) {
	ob := newTestBook()

	mustSubmit(t, ob, limit(BUY, "1", "99", GTC))

	snap := ob.Snapshot(10)
	assert.True(t, snap.BestBid.Valid)
	assert.False(t, snap.BestAsk.Valid)
	assert.False(t, snap.Spread.Valid)
	assert.False(t, snap.MidPrice.Valid)
}

func TestLastTradePrice(t *testing.T) {
	ob := newTestBook()

	assert.False(t, ob.MarketData().LastTradePrice.Valid)
	mustSubmit(t, ob, limit(SELL, "1", "100", GTC))
	mustSubmit(t, ob, limit(SELL, "1", "101", GTC))
	mustSubmit(t, ob, market(BUY, "2"))

	md := ob.MarketData()
	assert.Equal(t, "101", md.LastTradePrice.Decimal.String())
	assert.False(t, md.LastTradeAt.IsZero())
}

func TestRules(t *testing.T) {
	ob := newOrderBook(NewTradingPair("x", "y"), NewSequenceGenerator(""), newTestBook().now, []OrderRule{
		&TickSizeRule{Tiers: []TickTier{{MaxPrice: d("10"), Step: d("0.01")}, {Step: d("0.5")}}},
		&LotSizeRule{Lot: d("0.1")},
		&MinQuantityRule{Min: d("1")},
		&PriceBandRule{Floor: d("1"), Ceil: d("1000")},
	})

	_, err := ob.Submit(limit(BUY, "1", "9.99", GTC))
	assert.NoError(t, err)
	_, err = ob.Submit(limit(BUY, "1", "10.25", GTC))
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = ob.Submit(limit(BUY, "1", "10.5", GTC))
	assert.NoError(t, err)
	_, err = ob.Submit(limit(BUY, "1.05", "9", GTC))
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = ob.Submit(limit(BUY, "0.5", "9", GTC))
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = ob.Submit(limit(SELL, "1", "2000", GTC))
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = ob.Submit(market(SELL, "1.2"))
	assert.NoError(t, err)
}
