package orderbook

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultSnapshotDepth = 10

// QuoteLevel is one aggregated price level in a snapshot.
type QuoteLevel struct {
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderCount int             `json:"order_count"`
}

type OrderBookSnapshot struct {
	Symbol         string              `json:"symbol"`
	Bids           []QuoteLevel        `json:"bids"`
	Asks           []QuoteLevel        `json:"asks"`
	BestBid        decimal.NullDecimal `json:"best_bid"`
	BestAsk        decimal.NullDecimal `json:"best_ask"`
	MidPrice       decimal.NullDecimal `json:"mid_price"`
	Spread         decimal.NullDecimal `json:"spread"`
	LastTradePrice decimal.NullDecimal `json:"last_trade_price"`
	Timestamp      time.Time           `json:"timestamp"`
}

// MarketData is the top-of-book summary of a market.
type MarketData struct {
	Symbol         string              `json:"symbol"`
	BestBid        decimal.NullDecimal `json:"best_bid"`
	BestAsk        decimal.NullDecimal `json:"best_ask"`
	MidPrice       decimal.NullDecimal `json:"mid_price"`
	Spread         decimal.NullDecimal `json:"spread"`
	LastTradePrice decimal.NullDecimal `json:"last_trade_price"`
	LastTradeAt    time.Time           `json:"last_trade_at"`
	LastUpdated    time.Time           `json:"last_updated"`
}

func spreadOf(bid, ask decimal.NullDecimal) decimal.NullDecimal {
	if !bid.Valid || !ask.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(ask.Decimal.Sub(bid.Decimal))
}

var two = decimal.NewFromInt(2)

func midOf(bid, ask decimal.NullDecimal) decimal.NullDecimal {
	if !bid.Valid || !ask.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(bid.Decimal.Add(ask.Decimal).Div(two))
}
