package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
service_name: matching-engine
log:
  level: debug
markets:
  - pair: BTC/USD
    tick_size: "0.5"
    lot_size: "0.001"
    min_quantity: "0.001"
    price_ceil: "1000000"
  - pair: eth/usd
feed:
  shards: 8
  retry_interval: 20ms
  sinks: [redis, kafka]
kafka:
  topic: feed
  producer:
    brokers: [localhost:9092]
redis:
  connection_url: ${TEST_REDIS_URL}
  key_prefix: "me:"
`

func TestParse(t *testing.T) {
	t.Setenv("TEST_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "matching-engine", cfg.ServiceName)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Feed.Shards)
	assert.Equal(t, 20*time.Millisecond, cfg.Feed.RetryInterval)
	assert.Equal(t, []string{"redis", "kafka"}, cfg.Feed.Sinks)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.ConnectionURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Producer.Brokers)
	assert.Nil(t, cfg.OmsDB)

	require.Len(t, cfg.Markets, 2)
	pair, err := cfg.Markets[1].TradingPair()
	require.NoError(t, err)
	assert.Equal(t, orderbook.NewTradingPair("ETH", "USD"), pair)

	rules, err := cfg.Markets[0].Rules()
	require.NoError(t, err)
	assert.Len(t, rules, 4)
	rules, err = cfg.Markets[1].Rules()
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestMarketRulesApply(t *testing.T) {
	m := MarketConfig{Pair: "BTC/USD", TickSize: "0.5", LotSize: "1"}
	rules, err := m.Rules()
	require.NoError(t, err)

	book := orderbook.NewOrderBook(orderbook.NewTradingPair("BTC", "USD"), rules...)
	_, err = book.Submit(orderbook.OrderSpec{
		Side:       orderbook.BUY,
		Type:       orderbook.LIMIT,
		Quantity:   decimal.NewFromInt(1),
		LimitPrice: decimal.NewNullDecimal(decimal.RequireFromString("100.25")),
	})
	assert.ErrorIs(t, err, orderbook.ErrInvalidOrder)
}

func TestParseRejectsBadMarkets(t *testing.T) {
	_, err := Parse([]byte("markets:\n  - pair: BTCUSD\n"))
	assert.ErrorIs(t, err, orderbook.ErrInvalidOrder)

	_, err = Parse([]byte("markets:\n  - pair: BTC/USD\n    tick_size: abc\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("markets:\n  - pair: BTC/USD\n    lot_size: \"-1\"\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service_name: svc\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "svc", cfg.ServiceName)

	t.Setenv("CONFIG_FILE", path)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "svc", cfg.ServiceName)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
