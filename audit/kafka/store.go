// Package kafka persists audit events to a Kafka-compatible broker. Events
// are keyed by merchant so one merchant's trail stays ordered within a
// partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/riffus/hyperswitch/audit"
	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
)

// DefaultTopic receives audit events unless overridden.
const DefaultTopic = "eligibility.audit"

// Store writes events to one topic. It satisfies audit.Store, so it plugs
// into the Publisher like any other sink.
type Store struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTopic overrides the destination topic.
func WithTopic(topic string) Option {
	return func(s *Store) {
		if topic != "" {
			s.topic = topic
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New connects to the given brokers.
func New(brokers []string, opts ...Option) (*Store, error) {
	if len(brokers) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "kafka: no brokers")
	}
	s := &Store{
		topic:  DefaultTopic,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(s.topic),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "kafka: connect")
	}
	s.client = client
	return s, nil
}

// EnsureTopic creates the topic if the broker does not have it yet.
func (s *Store) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, s.topic)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "kafka: create topic")
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return dErrors.Wrap(r.Err, dErrors.CodeInternal, "kafka: create topic")
		}
	}
	return nil
}

// Append produces one event and waits for broker acknowledgement.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "kafka: encode event")
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.MerchantID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "kafka: produce event")
	}
	s.logger.DebugContext(ctx, "audit event produced",
		"topic", s.topic,
		"action", event.Action,
		"merchant_id", event.MerchantID,
	)
	return nil
}

// Close flushes buffered records and releases the client.
func (s *Store) Close() {
	s.client.Close()
}
