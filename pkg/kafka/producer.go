// Package kafka publishes catalog and run events with segmentio/kafka-go.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// MessageWriter is the subset of kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes catalog events to Kafka
type Producer struct {
	writer MessageWriter
	logger ectologger.Logger
	config ProducerConfig
}

func NewProducer(config ProducerConfig, logger ectologger.Logger) (*Producer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	var compression kafka.Compression
	switch config.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "snappy":
		compression = kafka.Snappy
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	default:
		compression = 0
	}

	// Topic stays empty on the writer so each message can name its own.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		MaxAttempts:            config.MaxAttempts,
		WriteTimeout:           config.WriteTimeout,
		Async:                  config.Async,
		Compression:            compression,
		RequiredAcks:           kafka.RequiredAcks(config.RequiredAcks),
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer, config, logger), nil
}

func NewProducerWithWriter(writer MessageWriter, config ProducerConfig, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		config: config,
	}
}

// PublishProductMerged sends the product keyed by its internal id, so every event for a product
// lands on the same partition.
func (p *Producer) PublishProductMerged(ctx context.Context, product *models.Product) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishProductMerged")
	defer span.End()

	event := newEvent(ctx, EventProductMerged, ProductMerged{Product: product})
	return publish(ctx, p, p.config.CatalogTopic, product.ID, MessageHeaders{}, event)
}

func (p *Producer) PublishRunReport(ctx context.Context, run *models.Run) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishRunReport")
	defer span.End()

	event := newEvent(ctx, EventRunFinished, RunFinished{Run: run})
	return publish(ctx, p, p.config.RunTopic, run.ID, MessageHeaders{RunID: run.ID}, event)
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	p.logger.Info("Kafka producer closed")
	return nil
}

func newEvent[T any](ctx context.Context, eventType string, data T) *Event[T] {
	return &Event[T]{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
		TraceID:   tracing.GetTraceID(ctx),
		SpanID:    tracing.GetSpanID(ctx),
	}
}

func publish[T any](ctx context.Context, p *Producer, topic, key string, headers MessageHeaders, event *Event[T]) error {
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize %s event: %w", event.Type, err)
	}

	headers.EventType = event.Type
	headers.TraceParent = tracing.GetTraceParent(ctx)

	kafkaHeaders := make([]kafka.Header, 0)
	for _, h := range headers.ToKafkaHeaders() {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: h.Key, Value: h.Value})
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: kafkaHeaders,
		Time:    event.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"topic":      topic,
			"key":        key,
			"event_type": event.Type,
		}).Error("Failed to publish event")
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}
