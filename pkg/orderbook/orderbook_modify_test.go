package orderbook

import (
	"errors"
	"testing"
)

func TestModifyOrder_DecreaseQty(t *testing.T) {
	ob := newTestBook()

	first := mustSubmit(t, ob, limit(BUY, "10", "100", GTC))
	second := mustSubmit(t, ob, limit(BUY, "10", "100", GTC))

	r, err := ob.Modify(first.OrderID, d("100"), d("5"))
	if err != nil {
		t.Fatalf("expected modify success, got %v", err)
	}
	if r.Status != StatusActive || !r.RemainingQuantity.Equal(d("5")) {
		t.Fatalf("unexpected modify report %+v", r)
	}

	modified, ok := ob.Order(first.OrderID)
	if !ok {
		t.Fatalf("order should still rest")
	}
	if !modified.RemainingQuantity.Equal(d("5")) || !modified.Price.Equal(d("100")) {
		t.Fatalf("expected 5 @ 100, got %s @ %s", modified.RemainingQuantity, modified.Price)
	}

	// the amended order keeps its place ahead of the second one
	sell := mustSubmit(t, ob, market(SELL, "5"))
	if len(sell.Trades) != 1 || sell.Trades[0].MakerOrderID != first.OrderID {
		t.Fatalf("expected amended order to fill first, got %+v", sell.Trades)
	}
	if rest, _ := ob.Order(second.OrderID); !rest.RemainingQuantity.Equal(d("10")) {
		t.Fatalf("second order should be untouched, remaining %s", rest.RemainingQuantity)
	}
	if err := ob.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestModifyOrder_IncreaseQty(t *testing.T) {
	ob := newTestBook()

	first := mustSubmit(t, ob, limit(BUY, "10", "100", GTC))
	second := mustSubmit(t, ob, limit(BUY, "10", "100", GTC))

	if _, err := ob.Modify(first.OrderID, d("100"), d("20")); err != nil {
		t.Fatalf("expected modify success, got %v", err)
	}

	modified, _ := ob.Order(first.OrderID)
	if !modified.OriginalQuantity.Equal(d("20")) || !modified.RemainingQuantity.Equal(d("20")) {
		t.Fatalf("expected Qty=20, got %+v", modified)
	}

	// growing an order sends it to the back of the queue
	sell := mustSubmit(t, ob, market(SELL, "10"))
	if len(sell.Trades) != 1 || sell.Trades[0].MakerOrderID != second.OrderID {
		t.Fatalf("expected second order to fill first, got %+v", sell.Trades)
	}
	if err := ob.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestModifyOrder_ChangePrice(t *testing.T) {
	ob := newTestBook()

	r := mustSubmit(t, ob, limit(BUY, "10", "100", GTC))

	if _, err := ob.Modify(r.OrderID, d("105"), d("10")); err != nil {
		t.Fatalf("expected modify success, got %v", err)
	}

	modified, _ := ob.Order(r.OrderID)
	if !modified.Price.Equal(d("105")) {
		t.Fatalf("expected Price=105, got %s", modified.Price)
	}
	if !ob.BestBid().Decimal.Equal(d("105")) {
		t.Fatalf("expected best bid 105, got %s", ob.BestBid().Decimal)
	}
	snap := ob.Snapshot(5)
	if len(snap.Bids) != 1 {
		t.Fatalf("old level should be removed, got %+v", snap.Bids)
	}
	if err := ob.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestModifyOrder_RepriceCrosses(t *testing.T) {
	ob := newTestBook()

	ask := mustSubmit(t, ob, limit(SELL, "4", "101", GTC))
	bid := mustSubmit(t, ob, limit(BUY, "10", "100", GTC))

	r, err := ob.Modify(bid.OrderID, d("101"), d("10"))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Trades) != 1 || r.Trades[0].MakerOrderID != ask.OrderID || r.Trades[0].TakerOrderID != bid.OrderID {
		t.Fatalf("expected one trade against the ask, got %+v", r.Trades)
	}
	if r.Status != StatusActive || !r.FilledQuantity.Equal(d("4")) || !r.RemainingQuantity.Equal(d("6")) {
		t.Fatalf("unexpected report %+v", r)
	}
	rest, _ := ob.Order(bid.OrderID)
	if !rest.RemainingQuantity.Equal(d("6")) || !rest.OriginalQuantity.Equal(d("10")) {
		t.Fatalf("unexpected resting order %+v", rest)
	}
	if ob.BestAsk().Valid {
		t.Fatalf("ask should be consumed")
	}
	if err := ob.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestModifyOrder_KeepsPriorFills(t *testing.T) {
	ob := newTestBook()

	bid := mustSubmit(t, ob, limit(BUY, "10", "100", GTC))
	mustSubmit(t, ob, limit(SELL, "3", "100", GTC))

	// 3 already filled, so 3 is no longer a valid total
	if _, err := ob.Modify(bid.OrderID, d("100"), d("3")); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}

	r, err := ob.Modify(bid.OrderID, d("99"), d("8"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.FilledQuantity.Equal(d("3")) || !r.RemainingQuantity.Equal(d("5")) {
		t.Fatalf("unexpected report %+v", r)
	}
	rest, _ := ob.Order(bid.OrderID)
	if !rest.FilledQuantity().Equal(d("3")) {
		t.Fatalf("expected filled 3, got %s", rest.FilledQuantity())
	}
}

func TestModifyOrder_Refused(t *testing.T) {
	ob := newTestBook()

	if _, err := ob.Modify("does-not-exist", d("100"), d("1")); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	r := mustSubmit(t, ob, limit(BUY, "10", "100", GTC))
	if _, err := ob.Modify(r.OrderID, d("0"), d("10")); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
	if rest, _ := ob.Order(r.OrderID); !rest.RemainingQuantity.Equal(d("10")) {
		t.Fatalf("refused modify must not touch the order")
	}
}
