package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/jonathan/quote-repost/internal/types"
)

// Header keys set on invocation records
const (
	HeaderSourceID = "source_id"
	HeaderAuthor   = "author"
	HeaderRevision = "revision"
)

// recordProducer is the part of kgo.Client the producer uses
type recordProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// Producer publishes invocations and dead letters
type Producer struct {
	client  recordProducer
	topic   string
	timeout time.Duration
}

// NewProducer creates a producer publishing invocations to TopicInvocations
func NewProducer(brokers []string, clientID string) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ProducerLinger(10*time.Millisecond),
		kgo.ProducerBatchMaxBytes(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &Producer{client: client, topic: TopicInvocations, timeout: 5 * time.Second}, nil
}

// Close closes the underlying client
func (p *Producer) Close() {
	p.client.Close()
}

// Produce writes one record synchronously
func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	for k, v := range headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// Enqueue publishes an invocation keyed by source ID, so all work for one
// post stays on one partition in order.
func (p *Producer) Enqueue(ctx context.Context, inv types.Invocation) error {
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("refusing to enqueue invalid invocation: %w", err)
	}
	value, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal invocation: %w", err)
	}
	return p.Produce(ctx, p.topic, []byte(inv.SourceID), value, invocationHeaders(inv))
}

// DeadLetter publishes a failed message with the failure reason
func (p *Producer) DeadLetter(ctx context.Context, msg Message, cause error, consumer string) error {
	payload, err := EncodeDLQMessage(msg, cause, consumer)
	if err != nil {
		return err
	}
	return p.Produce(ctx, TopicDeadLetter, msg.Key, payload, map[string]string{"consumer": consumer})
}

// HealthCheck pings the brokers
func (p *Producer) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka health check failed: %w", err)
	}
	return nil
}

func invocationHeaders(inv types.Invocation) map[string]string {
	headers := map[string]string{
		HeaderSourceID: inv.SourceID,
		HeaderAuthor:   inv.Author,
	}
	if inv.RevisionInstruction != "" {
		headers[HeaderRevision] = "true"
	}
	return headers
}
