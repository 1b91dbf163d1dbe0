package nats_wrapper

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NatsConfig struct {
	URL           string   `yaml:"url"`
	Name          string   `yaml:"name"`
	Stream        string   `yaml:"stream"`
	Subjects      []string `yaml:"subjects"`
	SubjectPrefix string   `yaml:"subject_prefix"`
	Durable       string   `yaml:"durable"`
	MaxAgeHours   int      `yaml:"max_age_hours"`
}

// InitJetStream connects with backoff and makes sure the stream exists.
func InitJetStream(cfg *NatsConfig) (*nats.Conn, nats.JetStreamContext, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	var nc *nats.Conn
	err := backoff.Retry(func() error {
		var err error
		nc, err = nats.Connect(url, nats.Name(cfg.Name), nats.MaxReconnects(-1))
		if err != nil {
			zap.S().Warnf("connect nats error %s", err.Error())
		}
		return err
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		return nil, nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	if cfg.Stream != "" {
		sc := &nats.StreamConfig{
			Name:     cfg.Stream,
			Subjects: cfg.Subjects,
			MaxAge:   time.Duration(cfg.MaxAgeHours) * time.Hour,
		}
		if _, err := js.AddStream(sc); err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			nc.Close()
			return nil, nil, err
		}
	}

	zap.S().Debugf("connect to nats %s successful", url)
	return nc, js, nil
}
