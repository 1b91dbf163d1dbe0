package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Modify amends a resting limit order. quantity is the new total quantity and
// must exceed what has already filled.
//
// Lowering the quantity at the same price shrinks the order in place and keeps
// its queue position. Any other change is a cancel-replace: the order leaves
// the book, re-enters under the same id as a taker for its new open quantity,
// may cross, and rests at the tail of its new level.
func (ob *OrderBook) Modify(orderID string, price, quantity decimal.Decimal) (*ExecutionReport, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	report, _, err := ob.modify(orderID, price, quantity)
	return report, err
}

// modify reports whether the book changed alongside the outcome.
func (ob *OrderBook) modify(orderID string, price, quantity decimal.Decimal) (*ExecutionReport, bool, error) {
	o, ok := ob.orders[orderID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s in %s", ErrOrderNotFound, orderID, ob.symbol)
	}
	if !price.IsPositive() {
		return nil, false, fmt.Errorf("%w: limit price must be positive, got %s", ErrInvalidOrder, price)
	}
	filled := o.FilledQuantity()
	if !quantity.GreaterThan(filled) {
		return nil, false, fmt.Errorf("%w: quantity %s does not exceed filled %s", ErrInvalidOrder, quantity, filled)
	}

	spec := OrderSpec{
		UserID:      o.UserID,
		Side:        o.Side,
		Type:        LIMIT,
		Quantity:    quantity,
		LimitPrice:  decimal.NewNullDecimal(price),
		TimeInForce: o.TimeInForce,
	}
	for _, rule := range ob.rules {
		if err := rule.Check(spec); err != nil {
			return nil, false, err
		}
	}

	now := ob.now()
	report := &ExecutionReport{
		OrderID:     o.ID,
		Symbol:      ob.symbol,
		UserID:      o.UserID,
		Side:        o.Side,
		Type:        LIMIT,
		TimeInForce: o.TimeInForce,
		Price:       price,
		Quantity:    quantity,
		Timestamp:   now,
	}

	if price.Equal(o.Price) && !quantity.GreaterThan(o.OriginalQuantity) {
		cut := o.OriginalQuantity.Sub(quantity)
		if cut.IsPositive() {
			level, ok := ob.sideOf(o.Side).level(o.Price)
			assertf(ok, "order %s indexed at missing level %s", o.ID, o.Price)
			level.reduce(o, cut)
			o.OriginalQuantity = quantity
			ob.touch(now)
		}
		report.Status = StatusActive
		report.FilledQuantity = filled
		report.RemainingQuantity = o.RemainingQuantity
		return report, cut.IsPositive(), nil
	}

	if _, err := ob.remove(orderID, now); err != nil {
		return nil, false, err
	}
	open := quantity.Sub(filled)
	taker := &takerOrder{
		id:          o.ID,
		userID:      o.UserID,
		side:        o.Side,
		typ:         LIMIT,
		price:       price,
		quantity:    open,
		remaining:   open,
		timeInForce: o.TimeInForce,
	}
	report.Trades = ob.cross(taker, now)

	if taker.remaining.IsZero() {
		report.Status = StatusFilled
	} else {
		ob.insertResting(o.Side, price, &RestingOrder{
			ID:                o.ID,
			UserID:            o.UserID,
			OriginalQuantity:  quantity,
			RemainingQuantity: taker.remaining,
			TimeInForce:       o.TimeInForce,
		}, now)
		report.Status = StatusActive
	}
	report.RemainingQuantity = taker.remaining
	report.FilledQuantity = quantity.Sub(taker.remaining)
	assertf(report.FilledQuantity.GreaterThanOrEqual(filled), "order %s lost fills on amend", o.ID)
	return report, true, nil
}
