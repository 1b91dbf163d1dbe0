package orderbook

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one fill between a resting maker and an incoming taker. Price is
// always the maker's price.
type Trade struct {
	ID             string          `json:"trade_id"`
	Symbol         string          `json:"symbol"`
	Price          decimal.Decimal `json:"price"`
	Quantity       decimal.Decimal `json:"quantity"`
	MakerOrderID   string          `json:"maker_order_id"`
	TakerOrderID   string          `json:"taker_order_id"`
	BuyOrderID     string          `json:"buy_order_id"`
	SellOrderID    string          `json:"sell_order_id"`
	BuyerUserID    int64           `json:"buyer_user_id"`
	SellerUserID   int64           `json:"seller_user_id"`
	AggressorSide  Side            `json:"aggressor_side"`
	MakerRemaining decimal.Decimal `json:"maker_remaining"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Notional is price times quantity.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}

// ExecutionReport is the outcome of one SubmitOrder call.
type ExecutionReport struct {
	OrderID           string          `json:"order_id"`
	Symbol            string          `json:"symbol"`
	UserID            int64           `json:"user_id"`
	Side              Side            `json:"side"`
	Type              OrderType       `json:"type"`
	TimeInForce       TimeInForce     `json:"time_in_force"`
	Price             decimal.Decimal `json:"price"`
	Quantity          decimal.Decimal `json:"quantity"`
	Status            OrderStatus     `json:"status"`
	FilledQuantity    decimal.Decimal `json:"filled_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Trades            []Trade         `json:"trades"`
	Timestamp         time.Time       `json:"timestamp"`
}

// CancelledOrder describes a resting order taken off the book by a cancel or
// an expiry.
type CancelledOrder struct {
	OrderID           string          `json:"order_id"`
	Symbol            string          `json:"symbol"`
	UserID            int64           `json:"user_id"`
	Side              Side            `json:"side"`
	Price             decimal.Decimal `json:"price"`
	TimeInForce       TimeInForce     `json:"time_in_force"`
	OriginalQuantity  decimal.Decimal `json:"original_quantity"`
	FilledQuantity    decimal.Decimal `json:"filled_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Status            OrderStatus     `json:"status"`
	Timestamp         time.Time       `json:"timestamp"`
}

func newCancelledOrder(symbol string, o *RestingOrder, ts time.Time) CancelledOrder {
	return CancelledOrder{
		OrderID:           o.ID,
		Symbol:            symbol,
		UserID:            o.UserID,
		Side:              o.Side,
		Price:             o.Price,
		TimeInForce:       o.TimeInForce,
		OriginalQuantity:  o.OriginalQuantity,
		FilledQuantity:    o.FilledQuantity(),
		RemainingQuantity: o.RemainingQuantity,
		Status:            StatusCancelled,
		Timestamp:         ts,
	}
}
