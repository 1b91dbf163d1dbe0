package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/oms"
	"github.com/joripage/matching-engine/pkg/oms/model"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/joripage/matching-engine/pkg/sink"
	"github.com/joripage/matching-engine/pkg/store"
	"github.com/joripage/matching-engine/pkg/tradefeed"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	minPrice = 10_000 // in cents
	maxPrice = 20_000
	minQty   = 1
	maxQty   = 100
)

var (
	pairs = []string{"BTC/USD", "ETH/USD", "SOL/USD"}
	tifs  = []string{"GTC", "GTC", "GTC", "DAY", "IOC", "FOK"}
)

func randomOrder(r *rand.Rand, id int) *model.AddOrder {
	side := "buy"
	if r.Intn(2) == 0 {
		side = "sell"
	}
	o := &model.AddOrder{
		ClientOrderID: fmt.Sprintf("ORD-%07d", id),
		UserID:        int64(r.Intn(100) + 1),
		Symbol:        pairs[r.Intn(len(pairs))],
		Side:          side,
		Quantity:      decimal.NewFromInt(int64(r.Intn(maxQty-minQty+1) + minQty)),
	}
	if r.Intn(20) == 0 {
		o.Type = "market"
		return o
	}
	o.Type = "limit"
	o.TimeInForce = tifs[r.Intn(len(tifs))]
	o.Price = decimal.NewNullDecimal(decimal.New(int64(minPrice+r.Intn(maxPrice-minPrice)), -2))
	return o
}

func main() {
	var (
		numOrders int
		seed      int64
		withFeed  bool
	)
	flag.IntVar(&numOrders, "orders", 1_000_000, "number of orders to submit")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	flag.BoolVar(&withFeed, "feed", true, "deliver events to in-memory store and ledger sinks")
	flag.Parse()

	engine := orderbook.NewMatchingEngine()
	for _, p := range pairs {
		pair, _ := orderbook.ParseTradingPair(p)
		engine.RegisterMarket(pair, orderbook.WithRules(orderbook.NewTickSizeRule(decimal.New(1, -2))))
	}

	var (
		totalTrades int
		totalQty    = decimal.Zero
	)
	engine.Subscribe(func(ev orderbook.BookEvent) {
		for _, t := range ev.Trades {
			totalTrades++
			totalQty = totalQty.Add(t.Quantity)
			if totalTrades <= 5 {
				fmt.Printf("match %s: buy[%s] <=> sell[%s] @ %s qty %s\n",
					t.Symbol, t.BuyOrderID, t.SellOrderID, t.Price, t.Quantity)
			}
		}
	})

	var opts []oms.Option
	var dispatcher *tradefeed.Dispatcher
	l := ledger.New()
	if withFeed {
		dispatcher = tradefeed.NewDispatcher(tradefeed.Config{}, zap.NewNop(),
			sink.NewStoreSink(store.NewMemoryStore()),
			sink.NewLedgerSink(l, nil),
		)
		engine.Subscribe(dispatcher.HandleBookEvent)
		opts = append(opts, oms.WithOrderGateway(dispatcher))
	}
	svc := oms.NewOMS(engine, opts...)

	r := rand.New(rand.NewSource(seed))
	ctx := context.Background()
	var rejected, refused int

	start := time.Now()
	for i := 0; i < numOrders; i++ {
		o, err := svc.AddOrder(ctx, randomOrder(r, i+1))
		switch {
		case err == nil:
		case o.Status == orderbook.StatusRejected:
			rejected++
		default:
			refused++
		}
	}
	elapsed := time.Since(start)

	if dispatcher != nil {
		_ = dispatcher.Drain(ctx)
	}
	feedElapsed := time.Since(start)

	fmt.Println("--------")
	fmt.Printf("seed              : %d\n", seed)
	fmt.Printf("total orders      : %d\n", numOrders)
	fmt.Printf("total trades      : %d\n", totalTrades)
	fmt.Printf("total matched qty : %s\n", totalQty)
	fmt.Printf("fok rejected      : %d\n", rejected)
	fmt.Printf("refused           : %d\n", refused)
	fmt.Printf("match time        : %s (%.0f orders/s)\n", elapsed, float64(numOrders)/elapsed.Seconds())
	fmt.Printf("with feed drained : %s\n", feedElapsed)
	for _, p := range engine.Markets() {
		md, _ := engine.MarketData(p)
		fmt.Printf("%-8s bid %s ask %s last %s\n", p, nullStr(md.BestBid), nullStr(md.BestAsk), nullStr(md.LastTradePrice))
	}
}

func nullStr(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}
