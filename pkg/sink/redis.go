package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/joripage/matching-engine/pkg/tradefeed"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const defaultTradeHistory = 100

// TxPipeliner is the part of redis.Cmdable the sink needs.
type TxPipeliner interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisSink keeps a market data cache: a hash md:<symbol> with the top of
// book and a capped list trades:<symbol>, newest first.
type RedisSink struct {
	client    TxPipeliner
	keyPrefix string
	history   int64
}

func NewRedisSink(client TxPipeliner, keyPrefix string, history int64) *RedisSink {
	if history <= 0 {
		history = defaultTradeHistory
	}
	return &RedisSink{client: client, keyPrefix: keyPrefix, history: history}
}

func (s *RedisSink) Name() string { return NameRedis }

func (s *RedisSink) Handle(ctx context.Context, ev tradefeed.Event) error {
	if ev.Kind != tradefeed.KindBook || ev.Market == nil {
		return nil
	}

	trades := make([]any, 0, len(ev.Trades))
	for i := len(ev.Trades) - 1; i >= 0; i-- {
		b, err := json.Marshal(ev.Trades[i])
		if err != nil {
			return err
		}
		trades = append(trades, b)
	}

	mdKey := s.MarketDataKey(ev.Symbol)
	tradesKey := s.TradesKey(ev.Symbol)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, mdKey, MarketDataFields(*ev.Market))
		if len(trades) > 0 {
			pipe.LPush(ctx, tradesKey, trades...)
			pipe.LTrim(ctx, tradesKey, 0, s.history-1)
		}
		return nil
	})
	return err
}

func (s *RedisSink) MarketDataKey(symbol string) string {
	return fmt.Sprintf("%smd:%s", s.keyPrefix, symbol)
}

func (s *RedisSink) TradesKey(symbol string) string {
	return fmt.Sprintf("%strades:%s", s.keyPrefix, symbol)
}

// MarketDataFields flattens md into hash fields. Absent values are written
// as empty strings so a stale price never survives an emptied side.
func MarketDataFields(md orderbook.MarketData) map[string]any {
	fields := map[string]any{
		"best_bid":         nullString(md.BestBid),
		"best_ask":         nullString(md.BestAsk),
		"mid_price":        nullString(md.MidPrice),
		"spread":           nullString(md.Spread),
		"last_trade_price": nullString(md.LastTradePrice),
		"last_updated":     md.LastUpdated.UnixMilli(),
	}
	if !md.LastTradeAt.IsZero() {
		fields["last_trade_at"] = md.LastTradeAt.UnixMilli()
	}
	return fields
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
