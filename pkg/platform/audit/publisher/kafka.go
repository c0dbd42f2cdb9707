// Package publisher provides audit event sinks. The Kafka publisher streams
// events to a topic for downstream SIEM consumption; the Store publisher
// writes synchronously for fail-closed call sites.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"credgate/pkg/platform/audit"
)

// Kafka streams audit events to a Kafka (or Kafka-compatible) topic. Events
// are keyed by user ID so one account's trail stays ordered within a
// partition.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// KafkaOption configures the Kafka publisher.
type KafkaOption func(*Kafka)

// WithLogger sets a logger for produce failures.
func WithLogger(logger *slog.Logger) KafkaOption {
	return func(k *Kafka) {
		k.logger = logger
	}
}

// NewKafka connects a producer for the given brokers and topic.
func NewKafka(brokers []string, topic string, opts ...KafkaOption) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	k := &Kafka{client: client, topic: topic}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (k *Kafka) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	adm := kadm.NewClient(k.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicas, nil, k.topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %q: %w", k.topic, err)
	}
	return nil
}

// Emit produces one event synchronously.
func (k *Kafka) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(event.UserID.String()),
		Value: payload,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		if k.logger != nil {
			k.logger.ErrorContext(ctx, "audit produce failed",
				"action", event.Action,
				"error", err,
			)
		}
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and releases the producer.
func (k *Kafka) Close() {
	k.client.Close()
}
