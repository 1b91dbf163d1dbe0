package model

import (
	"fmt"
	"strings"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

// AddOrder is a new order request as it arrives from a client. String
// fields are decoded once by Decode.
type AddOrder struct {
	ClientOrderID string              `json:"client_order_id"`
	UserID        int64               `json:"user_id"`
	Symbol        string              `json:"symbol"`
	Side          string              `json:"side"`
	Type          string              `json:"type"`
	TimeInForce   string              `json:"time_in_force"`
	Price         decimal.NullDecimal `json:"price"`
	Quantity      decimal.Decimal     `json:"quantity"`
}

// Decode resolves the market and builds the engine order spec.
func (a *AddOrder) Decode() (orderbook.TradingPair, orderbook.OrderSpec, error) {
	pair, err := orderbook.ParseTradingPair(a.Symbol)
	if err != nil {
		return orderbook.TradingPair{}, orderbook.OrderSpec{}, err
	}
	side, err := orderbook.ParseSide(a.Side)
	if err != nil {
		return pair, orderbook.OrderSpec{}, err
	}
	typ := orderbook.LIMIT
	if strings.TrimSpace(a.Type) != "" {
		if typ, err = orderbook.ParseOrderType(a.Type); err != nil {
			return pair, orderbook.OrderSpec{}, err
		}
	}
	tif, err := orderbook.ParseTimeInForce(a.TimeInForce)
	if err != nil {
		return pair, orderbook.OrderSpec{}, err
	}
	if typ == orderbook.MARKET && strings.TrimSpace(a.TimeInForce) == "" {
		tif = orderbook.IOC
	}
	return pair, orderbook.OrderSpec{
		UserID:      a.UserID,
		Side:        side,
		Type:        typ,
		Quantity:    a.Quantity,
		LimitPrice:  a.Price,
		TimeInForce: tif,
	}, nil
}

// CancelOrder targets an order by engine id or by the client's id.
type CancelOrder struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
}

func (c *CancelOrder) Validate() error {
	if c.OrderID == "" && c.ClientOrderID == "" {
		return fmt.Errorf("%w: cancel needs an order id", orderbook.ErrInvalidOrder)
	}
	return nil
}

// ModifyOrder amends a resting order. Quantity is the new total quantity,
// fills included.
type ModifyOrder struct {
	OrderID       string          `json:"order_id"`
	ClientOrderID string          `json:"client_order_id"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
}

func (m *ModifyOrder) Validate() error {
	if m.OrderID == "" && m.ClientOrderID == "" {
		return fmt.Errorf("%w: modify needs an order id", orderbook.ErrInvalidOrder)
	}
	if !m.Price.IsPositive() || !m.Quantity.IsPositive() {
		return fmt.Errorf("%w: modify needs a positive price and quantity", orderbook.ErrInvalidOrder)
	}
	return nil
}
