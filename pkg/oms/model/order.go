package model

import (
	"time"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

type OrderExecType string

const (
	ExecTypeNew      OrderExecType = "New"
	ExecTypeTrade    OrderExecType = "Trade"
	ExecTypeCanceled OrderExecType = "Canceled"
	ExecTypeRejected OrderExecType = "Rejected"
	ExecTypeExpired  OrderExecType = "Expired"
	ExecTypeReplaced OrderExecType = "Replaced"
)

// Order is the lifecycle record the service keeps for every accepted order.
type Order struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id,omitempty"`
	UserID        int64  `json:"user_id"`

	// init info
	Symbol      string                `json:"symbol"`
	Side        orderbook.Side        `json:"side"`
	Type        orderbook.OrderType   `json:"type"`
	TimeInForce orderbook.TimeInForce `json:"time_in_force"`
	Price       decimal.Decimal       `json:"price"`
	Quantity    decimal.Decimal       `json:"quantity"`

	// calculated info
	Status         orderbook.OrderStatus `json:"status"`
	ExecType       OrderExecType         `json:"exec_type"`
	CumQuantity    decimal.Decimal       `json:"cum_quantity"`
	LeavesQuantity decimal.Decimal       `json:"leaves_quantity"`
	LastQuantity   decimal.Decimal       `json:"last_quantity"`
	LastPrice      decimal.Decimal       `json:"last_price"`
	CumNotional    decimal.Decimal       `json:"cum_notional"`
	Revision       int                   `json:"revision"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrder builds the record for a processed submission.
func NewOrder(clientOrderID string, r *orderbook.ExecutionReport) *Order {
	o := &Order{
		OrderID:        r.OrderID,
		ClientOrderID:  clientOrderID,
		UserID:         r.UserID,
		Symbol:         r.Symbol,
		Side:           r.Side,
		Type:           r.Type,
		TimeInForce:    r.TimeInForce,
		Price:          r.Price,
		Quantity:       r.Quantity,
		Status:         r.Status,
		ExecType:       ExecTypeNew,
		CumQuantity:    r.FilledQuantity,
		LeavesQuantity: r.RemainingQuantity,
		CreatedAt:      r.Timestamp,
		UpdatedAt:      r.Timestamp,
	}
	for _, t := range r.Trades {
		o.CumNotional = o.CumNotional.Add(t.Notional())
	}
	if n := len(r.Trades); n > 0 {
		o.LastQuantity = r.Trades[n-1].Quantity
		o.LastPrice = r.Trades[n-1].Price
		o.ExecType = ExecTypeTrade
	}
	switch r.Status {
	case orderbook.StatusRejected:
		o.ExecType = ExecTypeRejected
	case orderbook.StatusCancelled:
		o.ExecType = ExecTypeCanceled
	}
	return o
}

// UpdateMakerFill applies a trade in which this order was the resting maker.
func (o *Order) UpdateMakerFill(t orderbook.Trade) {
	o.CumQuantity = o.CumQuantity.Add(t.Quantity)
	o.LeavesQuantity = t.MakerRemaining
	o.LastQuantity = t.Quantity
	o.LastPrice = t.Price
	o.CumNotional = o.CumNotional.Add(t.Notional())
	o.ExecType = ExecTypeTrade
	o.transition(orderbook.StatusActive)
	if o.LeavesQuantity.IsZero() {
		o.transition(orderbook.StatusFilled)
	}
	o.UpdatedAt = t.Timestamp
}

// UpdateReplace applies an accepted amend. Fills made while re-entering the
// book count toward the same order.
func (o *Order) UpdateReplace(r *orderbook.ExecutionReport) {
	o.Price = r.Price
	o.Quantity = r.Quantity
	o.CumQuantity = r.FilledQuantity
	o.LeavesQuantity = r.RemainingQuantity
	for _, t := range r.Trades {
		o.CumNotional = o.CumNotional.Add(t.Notional())
	}
	if n := len(r.Trades); n > 0 {
		o.LastQuantity = r.Trades[n-1].Quantity
		o.LastPrice = r.Trades[n-1].Price
	}
	o.Revision++
	o.ExecType = ExecTypeReplaced
	o.transition(r.Status)
	o.UpdatedAt = r.Timestamp
}

// UpdateCancel applies a cancel or an expiry coming back from the engine.
func (o *Order) UpdateCancel(c orderbook.CancelledOrder, exec OrderExecType) {
	o.LeavesQuantity = decimal.Zero
	o.ExecType = exec
	o.transition(orderbook.StatusCancelled)
	o.UpdatedAt = c.Timestamp
}

func (o *Order) transition(next orderbook.OrderStatus) {
	if o.Status.CanTransitionTo(next) {
		o.Status = next
	}
}

// AvgPrice is the average fill price, zero with no fills.
func (o *Order) AvgPrice() decimal.Decimal {
	if !o.CumQuantity.IsPositive() {
		return decimal.Zero
	}
	return o.CumNotional.Div(o.CumQuantity)
}

func (o *Order) CanCancel() bool {
	return o.Status == orderbook.StatusActive
}

func (o *Order) IsEnd() bool {
	return o.Status.IsTerminal()
}
