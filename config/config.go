package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	nats_wrapper "github.com/joripage/matching-engine/pkg/infra/nats"
	postgres_wrapper "github.com/joripage/matching-engine/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/matching-engine/pkg/infra/redis"
	kafkawrapper "github.com/joripage/matching-engine/pkg/kafka_wrapper"
	"github.com/joripage/matching-engine/pkg/logging"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/joripage/matching-engine/pkg/tradefeed"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	Log         logging.Config                   `yaml:"log"`
	Markets     []MarketConfig                   `yaml:"markets"`
	Feed        tradefeed.Config                 `yaml:"feed"`
	Kafka       *KafkaConfig                     `yaml:"kafka"`
	Nats        *nats_wrapper.NatsConfig         `yaml:"nats"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	OmsDB       *postgres_wrapper.PostgresConfig `yaml:"oms_db"`
}

type KafkaConfig struct {
	Topic    string                      `yaml:"topic"`
	Producer kafkawrapper.ProducerConfig `yaml:"producer"`
	Consumer kafkawrapper.ConsumerConfig `yaml:"consumer"`
}

// MarketConfig lists one tradable pair and its admission rules. Decimal
// values are strings so they keep their exact scale.
type MarketConfig struct {
	Pair        string `yaml:"pair"`
	TickSize    string `yaml:"tick_size"`
	LotSize     string `yaml:"lot_size"`
	MinQuantity string `yaml:"min_quantity"`
	PriceFloor  string `yaml:"price_floor"`
	PriceCeil   string `yaml:"price_ceil"`
}

func (m MarketConfig) TradingPair() (orderbook.TradingPair, error) {
	return orderbook.ParseTradingPair(m.Pair)
}

// Rules builds the admission rules of the market. Empty values add no rule.
func (m MarketConfig) Rules() ([]orderbook.OrderRule, error) {
	var rules []orderbook.OrderRule

	tick, err := optionalDecimal("tick_size", m.TickSize)
	if err != nil {
		return nil, err
	}
	if tick.Valid {
		rules = append(rules, orderbook.NewTickSizeRule(tick.Decimal))
	}

	lot, err := optionalDecimal("lot_size", m.LotSize)
	if err != nil {
		return nil, err
	}
	if lot.Valid {
		rules = append(rules, &orderbook.LotSizeRule{Lot: lot.Decimal})
	}

	min, err := optionalDecimal("min_quantity", m.MinQuantity)
	if err != nil {
		return nil, err
	}
	if min.Valid {
		rules = append(rules, &orderbook.MinQuantityRule{Min: min.Decimal})
	}

	floor, err := optionalDecimal("price_floor", m.PriceFloor)
	if err != nil {
		return nil, err
	}
	ceil, err := optionalDecimal("price_ceil", m.PriceCeil)
	if err != nil {
		return nil, err
	}
	if floor.Valid || ceil.Valid {
		rules = append(rules, &orderbook.PriceBandRule{Floor: floor.Decimal, Ceil: ceil.Decimal})
	}
	return rules, nil
}

func optionalDecimal(name, s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%s: %w", name, err)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%s: negative value %s", name, s)
	}
	return decimal.NewNullDecimal(d), nil
}

// Load load config from file and environment variables. A .env file in the
// working directory, if any, is loaded first so ${VAR} references in the
// yaml resolve against it.
func Load(filePath string) (*AppConfig, error) {
	_ = godotenv.Load()

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}

	cfg, err := Parse(configBytes)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

// Parse expands ${VAR} references and decodes yaml.
func Parse(b []byte) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), cfg); err != nil {
		return nil, err
	}
	for i, m := range cfg.Markets {
		if _, err := m.TradingPair(); err != nil {
			return nil, fmt.Errorf("markets[%d]: %w", i, err)
		}
		if _, err := m.Rules(); err != nil {
			return nil, fmt.Errorf("markets[%d] %s: %w", i, m.Pair, err)
		}
	}
	return cfg, nil
}
