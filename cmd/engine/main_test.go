package main

import (
	"testing"

	"github.com/joripage/matching-engine/config"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMarkets(t *testing.T) {
	engine := orderbook.NewMatchingEngine()
	err := registerMarkets(engine, []config.MarketConfig{
		{Pair: "BTC/USD", TickSize: "0.5"},
		{Pair: "ETH/USD"},
	})
	require.NoError(t, err)
	assert.Len(t, engine.Markets(), 2)
}

func TestRegisterMarketsRejectsBadConfig(t *testing.T) {
	engine := orderbook.NewMatchingEngine()

	err := registerMarkets(engine, []config.MarketConfig{{Pair: "BTCUSD"}})
	assert.ErrorContains(t, err, "BTCUSD")

	err = registerMarkets(engine, []config.MarketConfig{{Pair: "BTC/USD", TickSize: "abc"}})
	assert.ErrorContains(t, err, "BTC/USD")
	assert.Empty(t, engine.Markets(), "a market with broken rules is not registered")
}
