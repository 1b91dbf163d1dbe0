package tradefeed

import (
	"encoding/json"
	"time"

	"github.com/joripage/matching-engine/pkg/oms/model"
	"github.com/joripage/matching-engine/pkg/orderbook"
)

type Kind string

const (
	KindBook  Kind = "book"
	KindOrder Kind = "order"
)

// Event is the unit handed to downstream sinks. Book events carry trades and
// top of book; order events carry order record updates.
type Event struct {
	Kind      Kind                  `json:"kind"`
	Symbol    string                `json:"symbol"`
	Trades    []orderbook.Trade     `json:"trades,omitempty"`
	Market    *orderbook.MarketData `json:"market,omitempty"`
	Orders    []model.Order         `json:"orders,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

func NewBookEvent(ev orderbook.BookEvent) Event {
	md := ev.Market
	return Event{
		Kind:      KindBook,
		Symbol:    ev.Pair.String(),
		Trades:    ev.Trades,
		Market:    &md,
		Timestamp: ev.Timestamp,
	}
}

func NewOrderEvent(symbol string, orders []model.Order, ts time.Time) Event {
	return Event{Kind: KindOrder, Symbol: symbol, Orders: orders, Timestamp: ts}
}

func Decode(b []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(b, &ev)
	return ev, err
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
