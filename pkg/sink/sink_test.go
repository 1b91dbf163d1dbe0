package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/oms/model"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/joripage/matching-engine/pkg/store"
	"github.com/joripage/matching-engine/pkg/tradefeed"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var ts = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func trade(id string, price, qty string) orderbook.Trade {
	return orderbook.Trade{
		ID:            id,
		Symbol:        "BTC/USD",
		Price:         decimal.RequireFromString(price),
		Quantity:      decimal.RequireFromString(qty),
		MakerOrderID:  "m-" + id,
		TakerOrderID:  "t-" + id,
		BuyerUserID:   1,
		SellerUserID:  2,
		AggressorSide: orderbook.BUY,
		Timestamp:     ts,
	}
}

func bookEvent(trades ...orderbook.Trade) tradefeed.Event {
	md := orderbook.MarketData{
		Symbol:         "BTC/USD",
		BestBid:        decimal.NewNullDecimal(decimal.NewFromInt(99)),
		LastTradePrice: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		LastTradeAt:    ts,
		LastUpdated:    ts,
	}
	return tradefeed.Event{Kind: tradefeed.KindBook, Symbol: "BTC/USD", Trades: trades, Market: &md, Timestamp: ts}
}

type publishCall struct {
	topic, key string
	value      any
	headers    map[string]string
}

type fakeProducer struct {
	calls []publishCall
	err   error
}

func (p *fakeProducer) PublishJSON(_ context.Context, topic, key string, v any, headers map[string]string) error {
	p.calls = append(p.calls, publishCall{topic, key, v, headers})
	return p.err
}

func TestKafkaSinkKeysBySymbol(t *testing.T) {
	p := &fakeProducer{}
	s := NewKafkaSink(p, "feed")

	ev := bookEvent(trade("1", "100", "1"))
	require.NoError(t, s.Handle(context.Background(), ev))
	require.Len(t, p.calls, 1)
	assert.Equal(t, "feed", p.calls[0].topic)
	assert.Equal(t, "BTC/USD", p.calls[0].key)
	assert.Equal(t, "book", p.calls[0].headers[HeaderKind])
	assert.Equal(t, ev, p.calls[0].value)

	p.err = errors.New("broker down")
	assert.Error(t, s.Handle(context.Background(), ev))
}

type fakeJetStream struct {
	subjects []string
	payloads [][]byte
	optCount []int
}

func (f *fakeJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	f.optCount = append(f.optCount, len(opts))
	return &nats.PubAck{Stream: "FEED"}, nil
}

func TestNatsSinkSubject(t *testing.T) {
	js := &fakeJetStream{}
	s := NewNatsSink(js, "")

	require.NoError(t, s.Handle(context.Background(), bookEvent(trade("7", "100", "1"))))
	require.NoError(t, s.Handle(context.Background(), tradefeed.NewOrderEvent("BTC/USD", []model.Order{{OrderID: "o1"}}, ts)))

	assert.Equal(t, []string{"feed.book.BTC_USD", "feed.order.BTC_USD"}, js.subjects)
	assert.Equal(t, []int{2, 1}, js.optCount)

	ev, err := tradefeed.Decode(js.payloads[0])
	require.NoError(t, err)
	require.Len(t, ev.Trades, 1)
	assert.Equal(t, "7", ev.Trades[0].ID)
}

func TestSubjectToken(t *testing.T) {
	assert.Equal(t, "BTC_USD", subjectToken("BTC/USD"))
	assert.Equal(t, "A_B_C", subjectToken("A.B C"))
	assert.Equal(t, "BTC-USD", subjectToken("BTC-USD"))
}

func TestMsgID(t *testing.T) {
	assert.Equal(t, "BTC/USD:2", msgID(bookEvent(trade("1", "1", "1"), trade("2", "1", "1"))))
	assert.Empty(t, msgID(bookEvent()))
	assert.Empty(t, msgID(tradefeed.Event{Kind: tradefeed.KindOrder}))
}

func TestRedisKeysAndFields(t *testing.T) {
	s := NewRedisSink(nil, "me:", 0)
	assert.Equal(t, "me:md:BTC/USD", s.MarketDataKey("BTC/USD"))
	assert.Equal(t, "me:trades:BTC/USD", s.TradesKey("BTC/USD"))
	assert.Equal(t, int64(defaultTradeHistory), s.history)

	fields := MarketDataFields(*bookEvent().Market)
	assert.Equal(t, "99", fields["best_bid"])
	assert.Equal(t, "", fields["best_ask"])
	assert.Equal(t, "", fields["spread"])
	assert.Equal(t, "100", fields["last_trade_price"])
	assert.Equal(t, ts.UnixMilli(), fields["last_trade_at"])

	fields = MarketDataFields(orderbook.MarketData{LastUpdated: ts})
	_, ok := fields["last_trade_at"]
	assert.False(t, ok)
}

func TestRedisSinkIgnoresOrderEvents(t *testing.T) {
	s := NewRedisSink(nil, "", 10)
	assert.NoError(t, s.Handle(context.Background(), tradefeed.Event{Kind: tradefeed.KindOrder}))
}

func TestStoreSink(t *testing.T) {
	ms := store.NewMemoryStore()
	s := NewStoreSink(ms)
	ctx := context.Background()

	ev := bookEvent(trade("1", "100", "1"), trade("2", "101", "2"))
	require.NoError(t, s.Handle(ctx, ev))
	require.NoError(t, s.Handle(ctx, ev))
	require.NoError(t, s.Handle(ctx, bookEvent()))

	trades, err := ms.ListTrades(ctx, "BTC/USD", 0)
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	order := model.Order{OrderID: "o1", Symbol: "BTC/USD", Status: orderbook.StatusActive, Quantity: decimal.NewFromInt(3)}
	require.NoError(t, s.Handle(ctx, tradefeed.NewOrderEvent("BTC/USD", []model.Order{order}, ts)))
	rec, err := ms.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, orderbook.StatusActive.String(), rec.Status)
}

func TestLedgerSinkSettlesOnce(t *testing.T) {
	l := ledger.New()
	s := NewLedgerSink(l, zaptest.NewLogger(t))
	ctx := context.Background()

	ev := bookEvent(trade("1", "100", "2"))
	require.NoError(t, s.Handle(ctx, ev))
	require.NoError(t, s.Handle(ctx, ev))

	buyer := l.Account(1)
	assert.True(t, buyer.Cash["USD"].Equal(decimal.NewFromInt(-200)))
	assert.True(t, buyer.Positions["BTC/USD"].Quantity.Equal(decimal.NewFromInt(2)))
	seller := l.Account(2)
	assert.True(t, seller.Cash["USD"].Equal(decimal.NewFromInt(200)))

	bad := bookEvent(trade("2", "100", "0"))
	assert.ErrorIs(t, s.Handle(ctx, bad), ledger.ErrInvalidAmount)
}

func TestRegistrySelect(t *testing.T) {
	r := Registry{}
	r.Register(NewStoreSink(store.NewMemoryStore()))
	r.Register(NewLedgerSink(ledger.New(), nil))

	sinks, err := r.Select([]string{NameLedger, NameStore})
	require.NoError(t, err)
	require.Len(t, sinks, 2)
	assert.Equal(t, NameLedger, sinks[0].Name())

	_, err = r.Select([]string{NameKafka})
	assert.Error(t, err)
}
