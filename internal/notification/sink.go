package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// DeliverySink pushes a persisted notification to an external channel. The
// dispatcher invokes it at most once per notification id; a sink error never
// fails the publish, it only leaves the record undelivered for the sweeper.
type DeliverySink interface {
	Deliver(ctx context.Context, n *Notification) error
}

// KafkaSink produces notifications to a Kafka topic, keyed by recipient so a
// consumer sees one recipient's notifications in order.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

const DefaultTopic = "reclaim.notifications"

// NewKafkaSink connects to the given seed brokers. Produce acks wait for all
// in-sync replicas.
func NewKafkaSink(seeds []string, topic string) (*KafkaSink, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Deliver(ctx context.Context, n *Notification) error {
	value, err := json.Marshal(deliveryRecord{
		ID:        n.ID.String(),
		Recipient: n.Recipient.String(),
		Kind:      string(n.Kind),
		Payload:   n.Payload,
		CreatedAt: n.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("marshal delivery record: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(n.Recipient.String()),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce notification: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}

type deliveryRecord struct {
	ID        string  `json:"id"`
	Recipient string  `json:"recipient"`
	Kind      string  `json:"kind"`
	Payload   Payload `json:"payload"`
	CreatedAt string  `json:"created_at"`
}

// LogSink is the development fallback when no Kafka seeds are configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, n *Notification) error {
	s.logger.InfoContext(ctx, "notification delivered",
		"notification_id", n.ID.String(),
		"recipient", n.Recipient.String(),
		"kind", string(n.Kind))
	return nil
}
