package orderbook

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// submit validates spec, crosses it against the opposite side and applies
// its time in force to the remainder. A fill-or-kill order that cannot be
// filled in full returns a Rejected report together with ErrRejected.
func (ob *OrderBook) submit(spec OrderSpec) (*ExecutionReport, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	for _, rule := range ob.rules {
		if err := rule.Check(spec); err != nil {
			return nil, err
		}
	}

	now := ob.now()
	taker := newTakerOrder(ob.ids.NextOrderID(), spec)
	report := &ExecutionReport{
		OrderID:     taker.id,
		Symbol:      ob.symbol,
		UserID:      taker.userID,
		Side:        taker.side,
		Type:        taker.typ,
		TimeInForce: taker.timeInForce,
		Price:       taker.price,
		Quantity:    taker.quantity,
		Status:      StatusPending,
		Timestamp:   now,
	}

	if taker.timeInForce == FOK {
		if avail := ob.fillable(taker); avail.LessThan(taker.quantity) {
			report.Status = StatusRejected
			report.FilledQuantity = decimal.Zero
			report.RemainingQuantity = taker.quantity
			return report, fmt.Errorf("%w: %s fill or kill for %s, only %s available",
				ErrRejected, taker.id, taker.quantity, avail)
		}
	}

	report.Trades = ob.cross(taker, now)
	if taker.timeInForce == FOK {
		assertf(taker.remaining.IsZero(), "fill or kill %s left %s unfilled", taker.id, taker.remaining)
	}

	switch {
	case taker.remaining.IsZero():
		report.Status = StatusFilled
	case taker.typ == LIMIT && taker.timeInForce.rests():
		ob.insertResting(taker.side, taker.price, &RestingOrder{
			ID:                taker.id,
			UserID:            taker.userID,
			OriginalQuantity:  taker.quantity,
			RemainingQuantity: taker.remaining,
			TimeInForce:       taker.timeInForce,
		}, now)
		report.Status = StatusActive
	default:
		report.Status = StatusCancelled
	}

	report.FilledQuantity = taker.filled()
	report.RemainingQuantity = taker.remaining
	assertf(report.FilledQuantity.Add(report.RemainingQuantity).Equal(report.Quantity),
		"order %s does not conserve quantity", taker.id)
	return report, nil
}

// fillable sums the opposite side's quantity at prices the taker accepts,
// stopping once the taker's quantity is covered. It does not mutate the book.
func (ob *OrderBook) fillable(taker *takerOrder) decimal.Decimal {
	total := decimal.Zero
	ob.sideOf(taker.side.Opposite()).walk(func(l *PriceLevel) bool {
		if !taker.accepts(l.price) {
			return false
		}
		total = total.Add(l.totalQuantity)
		return total.LessThan(taker.quantity)
	})
	return total
}

// cross consumes resting liquidity in price-time priority until the taker is
// exhausted or the best opposite price no longer satisfies it.
func (ob *OrderBook) cross(taker *takerOrder, now time.Time) []Trade {
	var trades []Trade
	opposite := ob.sideOf(taker.side.Opposite())

	for taker.remaining.IsPositive() {
		level := opposite.bestLevel()
		if level == nil || !taker.accepts(level.price) {
			break
		}

		maker := level.front()
		qty := decimal.Min(taker.remaining, maker.RemainingQuantity)
		level.fill(qty)
		taker.remaining = taker.remaining.Sub(qty)
		assertf(!taker.remaining.IsNegative(), "order %s overfilled", taker.id)

		trades = append(trades, ob.newTrade(taker, maker, qty, now))

		if maker.RemainingQuantity.IsZero() {
			delete(ob.orders, maker.ID)
		}
		if level.empty() {
			opposite.deleteLevel(level)
		}
	}

	if len(trades) > 0 {
		ob.lastTradePrice = decimal.NewNullDecimal(trades[len(trades)-1].Price)
		ob.lastTradeAt = now
		ob.touch(now)
	}
	return trades
}

func (ob *OrderBook) newTrade(taker *takerOrder, maker *RestingOrder, qty decimal.Decimal, now time.Time) Trade {
	t := Trade{
		ID:             ob.ids.NextTradeID(),
		Symbol:         ob.symbol,
		Price:          maker.Price,
		Quantity:       qty,
		MakerOrderID:   maker.ID,
		TakerOrderID:   taker.id,
		AggressorSide:  taker.side,
		MakerRemaining: maker.RemainingQuantity,
		Timestamp:      now,
	}
	if taker.side == BUY {
		t.BuyOrderID, t.BuyerUserID = taker.id, taker.userID
		t.SellOrderID, t.SellerUserID = maker.ID, maker.UserID
	} else {
		t.BuyOrderID, t.BuyerUserID = maker.ID, maker.UserID
		t.SellOrderID, t.SellerUserID = taker.id, taker.userID
	}
	return t
}
