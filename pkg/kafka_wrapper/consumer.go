package kafkawrapper

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
	Headers   map[string]string
}

type ConsumerConfig struct {
	Brokers     []string      `yaml:"brokers"`
	GroupID     string        `yaml:"group_id"`
	Topic       string        `yaml:"topic"`
	WorkerCount int           `yaml:"worker_count"`
	MaxRetries  int           `yaml:"max_retries"`
	BackoffMin  time.Duration `yaml:"backoff_min"`
	BackoffMax  time.Duration `yaml:"backoff_max"`
	DLQTopic    string        `yaml:"dlq_topic"`
	// DisableCommit leaves offsets uncommitted, for replay tooling.
	DisableCommit bool          `yaml:"disable_commit"`
	BatchSize     int           `yaml:"batch_size"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
}

// BatchHandler processes one batch. A returned error retries the whole
// batch, so handlers must be idempotent.
type BatchHandler func(ctx context.Context, msgs []Message) error

type ConsumerGroup struct {
	r          *kafka.Reader
	cfg        ConsumerConfig
	prodForDLQ *Producer
	logger     *zap.Logger
}

func NewConsumerGroup(cfg ConsumerConfig, logger *zap.Logger) (*ConsumerGroup, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka consumer needs brokers and topic")
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = 100 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})

	var prod *Producer
	if cfg.DLQTopic != "" {
		prod = NewProducer(ProducerConfig{Brokers: cfg.Brokers, RequiredAcks: int(kafka.RequireAll)})
	}

	return &ConsumerGroup{r: rd, cfg: cfg, prodForDLQ: prod, logger: logger}, nil
}

func (cg *ConsumerGroup) Close() error {
	if cg == nil {
		return nil
	}
	if cg.prodForDLQ != nil {
		_ = cg.prodForDLQ.Close()
	}
	if cg.r != nil {
		return cg.r.Close()
	}
	return nil
}

// Run fetches messages into batches and hands them to WorkerCount workers
// until ctx is done. Every partition is bound to one worker, so batches of a
// partition are handled and committed in offset order. Batches that keep
// failing go to the DLQ topic, if set, and are then committed.
func (cg *ConsumerGroup) Run(ctx context.Context, handler BatchHandler) error {
	if cg == nil || cg.r == nil {
		return ErrNotInitialized
	}

	lanes := make([]chan []kafka.Message, cg.cfg.WorkerCount)
	for i := range lanes {
		lanes[i] = make(chan []kafka.Message, 1)
	}
	go cg.fetchLoop(ctx, lanes)

	var wg sync.WaitGroup
	for i, lane := range lanes {
		wg.Add(1)
		go func(workerID int, batches <-chan []kafka.Message) {
			defer wg.Done()
			for ms := range batches {
				cg.process(ctx, workerID, ms, handler)
			}
		}(i, lane)
	}
	wg.Wait()
	return ctx.Err()
}

// laneOf maps a partition to its worker.
func laneOf(partition, workers int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % workers
}

func (cg *ConsumerGroup) fetchLoop(ctx context.Context, lanes []chan []kafka.Message) {
	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
	}()

	fetched := make(chan kafka.Message)
	go func() {
		defer close(fetched)
		for {
			m, err := cg.r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				cg.logger.Warn("kafka fetch error", zap.String("topic", cg.cfg.Topic), zap.Error(err))
				time.Sleep(200 * time.Millisecond)
				continue
			}
			select {
			case fetched <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	bufs := make([][]kafka.Message, len(lanes))
	timer := time.NewTimer(cg.cfg.BatchTimeout)
	defer timer.Stop()

	flush := func(i int) bool {
		if len(bufs[i]) == 0 {
			return true
		}
		select {
		case lanes[i] <- bufs[i]:
			bufs[i] = nil
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case m, ok := <-fetched:
			if !ok {
				return
			}
			i := laneOf(m.Partition, len(lanes))
			bufs[i] = append(bufs[i], m)
			if len(bufs[i]) >= cg.cfg.BatchSize && !flush(i) {
				return
			}
		case <-timer.C:
			for i := range bufs {
				if !flush(i) {
					return
				}
			}
			timer.Reset(cg.cfg.BatchTimeout)
		case <-ctx.Done():
			return
		}
	}
}

func (cg *ConsumerGroup) process(ctx context.Context, workerID int, ms []kafka.Message, handler BatchHandler) {
	wrapped := make([]Message, len(ms))
	for i, m := range ms {
		wrapped[i] = wrapMessage(m)
	}

	for attempt := 1; ; attempt++ {
		err := handler(ctx, wrapped)
		if err == nil {
			break
		}
		cg.logger.Warn("kafka batch failed",
			zap.Int("worker", workerID),
			zap.Int("attempt", attempt),
			zap.Int("size", len(ms)),
			zap.Error(err),
		)
		if attempt > cg.cfg.MaxRetries {
			cg.deadLetter(ctx, ms)
			break
		}
		select {
		case <-time.After(backoffDuration(cg.cfg.BackoffMin, cg.cfg.BackoffMax, attempt)):
		case <-ctx.Done():
			return
		}
	}

	if cg.cfg.DisableCommit {
		return
	}
	if err := cg.r.CommitMessages(ctx, ms...); err != nil {
		cg.logger.Error("kafka commit failed", zap.Int("worker", workerID), zap.Error(err))
	}
}

func (cg *ConsumerGroup) deadLetter(ctx context.Context, ms []kafka.Message) {
	if cg.prodForDLQ == nil {
		cg.logger.Error("kafka batch dropped", zap.Int("size", len(ms)))
		return
	}
	for _, m := range ms {
		if err := cg.prodForDLQ.Publish(ctx, cg.cfg.DLQTopic, m.Key, m.Value, headersToMap(m.Headers)); err != nil {
			cg.logger.Error("kafka dlq publish failed",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		}
	}
}

func wrapMessage(m kafka.Message) Message {
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Time:      m.Time,
		Headers:   headersToMap(m.Headers),
	}
}

// backoffDuration is full-jitter exponential backoff capped at max.
func backoffDuration(min, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	pow := math.Pow(2, float64(attempt-1))
	d := time.Duration(float64(min) * pow)
	if d > max || d <= 0 {
		d = max
	}
	if d > 0 {
		d = time.Duration(rand.Int63n(int64(d)))
	}
	return d
}
