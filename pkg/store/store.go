package store

import (
	"context"
	"errors"
	"time"

	"github.com/joripage/matching-engine/pkg/oms/model"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("record not found")

// Store is the durable home of finalized orders and trades. Trades are
// append-only and idempotent by trade id; orders are upserted by order id.
type Store interface {
	SaveTrades(ctx context.Context, trades []orderbook.Trade) error
	SaveOrders(ctx context.Context, orders []model.Order) error
	GetOrder(ctx context.Context, orderID string) (*OrderRecord, error)
	ListTrades(ctx context.Context, symbol string, limit int) ([]TradeRecord, error)
}

type OrderRecord struct {
	OrderID        string          `gorm:"column:order_id;primaryKey"`
	ClientOrderID  string          `gorm:"column:client_order_id"`
	UserID         int64           `gorm:"column:user_id"`
	Symbol         string          `gorm:"column:symbol"`
	Side           string          `gorm:"column:side"`
	Type           string          `gorm:"column:order_type"`
	TimeInForce    string          `gorm:"column:time_in_force"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:numeric"`
	FilledQuantity decimal.Decimal `gorm:"column:filled_quantity;type:numeric"`
	Status         string          `gorm:"column:status"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

func (OrderRecord) TableName() string { return "orders" }

type TradeRecord struct {
	TradeID       string          `gorm:"column:trade_id;primaryKey"`
	Symbol        string          `gorm:"column:symbol"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:numeric"`
	MakerOrderID  string          `gorm:"column:maker_order_id"`
	TakerOrderID  string          `gorm:"column:taker_order_id"`
	BuyerUserID   int64           `gorm:"column:buyer_user_id"`
	SellerUserID  int64           `gorm:"column:seller_user_id"`
	AggressorSide string          `gorm:"column:aggressor_side"`
	ExecutedAt    time.Time       `gorm:"column:executed_at"`
}

func (TradeRecord) TableName() string { return "trades" }

func NewOrderRecord(o model.Order) OrderRecord {
	return OrderRecord{
		OrderID:        o.OrderID,
		ClientOrderID:  o.ClientOrderID,
		UserID:         o.UserID,
		Symbol:         o.Symbol,
		Side:           o.Side.String(),
		Type:           o.Type.String(),
		TimeInForce:    o.TimeInForce.String(),
		Price:          o.Price,
		Quantity:       o.Quantity,
		FilledQuantity: o.CumQuantity,
		Status:         o.Status.String(),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func NewTradeRecord(t orderbook.Trade) TradeRecord {
	return TradeRecord{
		TradeID:       t.ID,
		Symbol:        t.Symbol,
		Price:         t.Price,
		Quantity:      t.Quantity,
		MakerOrderID:  t.MakerOrderID,
		TakerOrderID:  t.TakerOrderID,
		BuyerUserID:   t.BuyerUserID,
		SellerUserID:  t.SellerUserID,
		AggressorSide: t.AggressorSide.String(),
		ExecutedAt:    t.Timestamp,
	}
}
