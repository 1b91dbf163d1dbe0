// Package sink holds the tradefeed.Sink implementations that carry feed
// events out of the engine process.
package sink

import (
	"fmt"

	"github.com/joripage/matching-engine/pkg/tradefeed"
)

const (
	NameKafka  = "kafka"
	NameNats   = "nats"
	NameRedis  = "redis"
	NameStore  = "store"
	NameLedger = "ledger"
)

// Registry resolves sink names from config to built sinks.
type Registry map[string]tradefeed.Sink

func (r Registry) Register(s tradefeed.Sink) {
	r[s.Name()] = s
}

// Select returns the sinks named in names, in that order.
func (r Registry) Select(names []string) ([]tradefeed.Sink, error) {
	out := make([]tradefeed.Sink, 0, len(names))
	for _, name := range names {
		s, ok := r[name]
		if !ok {
			return nil, fmt.Errorf("sink %q is not configured", name)
		}
		out = append(out, s)
	}
	return out, nil
}
