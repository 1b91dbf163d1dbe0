package orderbook

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSpec is a validated-at-submit request to trade.
type OrderSpec struct {
	UserID      int64
	Side        Side
	Type        OrderType
	Quantity    decimal.Decimal
	LimitPrice  decimal.NullDecimal // required for LIMIT, ignored for MARKET
	TimeInForce TimeInForce         // zero value means GTC
}

func (s OrderSpec) validate() error {
	if s.Side != BUY && s.Side != SELL {
		return fmt.Errorf("%w: side is required", ErrInvalidOrder)
	}
	if !s.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidOrder, s.Quantity)
	}

	switch s.Type {
	case LIMIT:
		if !s.LimitPrice.Valid {
			return fmt.Errorf("%w: limit order requires a price", ErrInvalidOrder)
		}
		if !s.LimitPrice.Decimal.IsPositive() {
			return fmt.Errorf("%w: limit price must be positive, got %s", ErrInvalidOrder, s.LimitPrice.Decimal)
		}
	case MARKET:
		if s.TimeInForce == FOK {
			return fmt.Errorf("%w: FOK is not allowed on market orders", ErrInvalidOrder)
		}
	default:
		return fmt.Errorf("%w: order type is required", ErrInvalidOrder)
	}

	switch s.TimeInForce {
	case 0, GTC, IOC, FOK, DAY:
	default:
		return fmt.Errorf("%w: unknown time in force %d", ErrInvalidOrder, s.TimeInForce)
	}
	return nil
}

// RestingOrder is the mutable projection of an order while it rests on the
// book. It is owned by exactly one PriceLevel.
type RestingOrder struct {
	ID                string
	UserID            int64
	Side              Side
	Price             decimal.Decimal
	OriginalQuantity  decimal.Decimal
	RemainingQuantity decimal.Decimal
	TimeInForce       TimeInForce
	Sequence          uint64 // arrival sequence, strictly increasing per book
}

func (o *RestingOrder) FilledQuantity() decimal.Decimal {
	return o.OriginalQuantity.Sub(o.RemainingQuantity)
}

// takerOrder is the incoming order while it is being matched.
type takerOrder struct {
	id          string
	userID      int64
	side        Side
	typ         OrderType
	price       decimal.Decimal // zero for market orders
	quantity    decimal.Decimal
	remaining   decimal.Decimal
	timeInForce TimeInForce
}

func newTakerOrder(id string, spec OrderSpec) *takerOrder {
	tif := spec.TimeInForce
	if tif == 0 {
		tif = GTC
	}
	o := &takerOrder{
		id:          id,
		userID:      spec.UserID,
		side:        spec.Side,
		typ:         spec.Type,
		quantity:    spec.Quantity,
		remaining:   spec.Quantity,
		timeInForce: tif,
	}
	if spec.Type == LIMIT {
		o.price = spec.LimitPrice.Decimal
	} else {
		// a market order has no price at which to wait
		o.timeInForce = IOC
	}
	return o
}

// accepts reports whether a resting level at price is acceptable to the taker.
func (o *takerOrder) accepts(price decimal.Decimal) bool {
	if o.typ == MARKET {
		return true
	}
	if o.side == BUY {
		return price.LessThanOrEqual(o.price)
	}
	return price.GreaterThanOrEqual(o.price)
}

func (o *takerOrder) filled() decimal.Decimal {
	return o.quantity.Sub(o.remaining)
}

// IDGenerator produces order and trade identifiers.
type IDGenerator interface {
	NextOrderID() string
	NextTradeID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NextOrderID() string { return uuid.NewString() }
func (uuidGenerator) NextTradeID() string { return uuid.NewString() }

// SequenceGenerator issues deterministic ids such as "O-1", "T-1".
type SequenceGenerator struct {
	prefix string
	orders atomic.Uint64
	trades atomic.Uint64
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) NextOrderID() string {
	return g.prefix + "O-" + strconv.FormatUint(g.orders.Add(1), 10)
}

func (g *SequenceGenerator) NextTradeID() string {
	return g.prefix + "T-" + strconv.FormatUint(g.trades.Add(1), 10)
}
