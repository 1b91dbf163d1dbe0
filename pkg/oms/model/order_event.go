package model

import (
	"fmt"
	"time"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

// OrderEvent is one append-only entry in an order's history.
type OrderEvent struct {
	EventID       string                `json:"event_id"`
	OrderID       string                `json:"order_id"`
	ClientOrderID string                `json:"client_order_id,omitempty"`
	ExecType      OrderExecType         `json:"exec_type"`
	Status        orderbook.OrderStatus `json:"status"`
	TradeID       string                `json:"trade_id,omitempty"`
	Quantity      decimal.Decimal       `json:"quantity"`
	Price         decimal.Decimal       `json:"price"`
	Timestamp     time.Time             `json:"timestamp"`
}

func NewOrderEvent(o Order, exec OrderExecType, ts time.Time) *OrderEvent {
	return &OrderEvent{
		EventID:       NewEventID(o.OrderID, exec, ""),
		OrderID:       o.OrderID,
		ClientOrderID: o.ClientOrderID,
		ExecType:      exec,
		Status:        o.Status,
		Quantity:      o.Quantity,
		Price:         o.Price,
		Timestamp:     ts,
	}
}

// NewReplaceEvent records an amend. Each revision gets its own event id.
func NewReplaceEvent(o Order) *OrderEvent {
	ev := NewOrderEvent(o, ExecTypeReplaced, o.UpdatedAt)
	ev.EventID = fmt.Sprintf("%s-%s-%d", o.OrderID, ExecTypeReplaced, o.Revision)
	return ev
}

// NewTradeEvent records one fill of o.
func NewTradeEvent(o Order, t orderbook.Trade) *OrderEvent {
	return &OrderEvent{
		EventID:       NewEventID(o.OrderID, ExecTypeTrade, t.ID),
		OrderID:       o.OrderID,
		ClientOrderID: o.ClientOrderID,
		ExecType:      ExecTypeTrade,
		Status:        o.Status,
		TradeID:       t.ID,
		Quantity:      t.Quantity,
		Price:         t.Price,
		Timestamp:     t.Timestamp,
	}
}

func NewEventID(orderID string, exec OrderExecType, tradeID string) string {
	if tradeID != "" {
		return fmt.Sprintf("%s-%s-%s", orderID, exec, tradeID)
	}
	return fmt.Sprintf("%s-%s", orderID, exec)
}
