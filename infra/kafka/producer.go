package kafka

import (
	"context"
	"fmt"
	"time"

	"sequencer/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	MaxAttempts  int
	Compression  kafka.Compression
}

// Producer publishes committed responses through kafka-go. Writes are
// synchronous and wait for all in-sync replicas; messages with the same
// key land on the same partition in order.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg ProducerConfig, log logger.Interface) *Producer {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Producer{writer: newWriter(cfg, log)}
}

func newWriter(cfg ProducerConfig, log logger.Interface) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		Compression:  cfg.Compression,
		ErrorLogger: kafka.LoggerFunc(func(format string, args ...any) {
			log.Warn(fmt.Sprintf(format, args...), logger.NewField("topic", cfg.Topic))
		}),
	}
}

func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
