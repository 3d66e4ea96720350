// Package queue moves invocations through Kafka: a consumer feeds the
// pipeline and a producer re-enqueues revisions and dead letters.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/jonathan/quote-repost/internal/logging"
)

// Topic names
const (
	TopicInvocations = "quote_repost.invocations"
	TopicDeadLetter  = "quote_repost.invocations.dlq"
)

// Message is a consumed Kafka record
type Message struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// Handler processes one message. A returned error blocks the partition so
// the message is redelivered after a restart.
type Handler func(ctx context.Context, msg Message) error

// Consumer polls a consumer group and routes records to per-topic handlers
type Consumer struct {
	client   *kgo.Client
	logger   logging.Logger
	groupID  string
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewConsumer creates a consumer with manual commits
func NewConsumer(brokers []string, groupID, clientID string, logger logging.Logger) (*Consumer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ClientID(clientID),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Consumer{
		client:   client,
		logger:   logging.OrDiscard(logger),
		groupID:  groupID,
		handlers: make(map[string]Handler),
	}, nil
}

// AddHandler registers a handler for a topic and subscribes to it
func (c *Consumer) AddHandler(topic string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[topic] = handler
	if c.client != nil {
		c.client.AddConsumeTopics(topic)
	}
}

// Close closes the underlying client
func (c *Consumer) Close() {
	c.client.Close()
}

// Start polls until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fetches := c.client.PollFetches(ctx)
		if errs := fetches.Errors(); len(errs) > 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Errorf("errors while polling: %v", errs)
			continue
		}

		var records []*kgo.Record
		iter := fetches.RecordIter()
		for !iter.Done() {
			records = append(records, iter.Next())
		}

		commit := c.processRecords(ctx, records)
		if len(commit) > 0 {
			if err := c.client.CommitRecords(ctx, commit...); err != nil {
				c.logger.WithError(err).Error("Failed to commit records")
			}
		}
		c.client.AllowRebalance()
	}
}

// processRecords handles records in order and returns the last successful
// record per partition. After a failure no later offset of that partition is
// handled or committed.
func (c *Consumer) processRecords(ctx context.Context, records []*kgo.Record) []*kgo.Record {
	type topicPartition struct {
		topic     string
		partition int32
	}
	blocked := make(map[topicPartition]bool)
	lastSuccess := make(map[topicPartition]*kgo.Record)

	for _, record := range records {
		tp := topicPartition{topic: record.Topic, partition: record.Partition}
		if blocked[tp] {
			continue
		}

		c.mu.RLock()
		handler, exists := c.handlers[record.Topic]
		c.mu.RUnlock()

		if !exists {
			c.logger.WithField("topic", record.Topic).Warn("No handler registered for topic")
			lastSuccess[tp] = record
			continue
		}

		if err := handler(ctx, toMessage(record)); err != nil {
			c.logger.WithError(err).WithFields(logging.Fields{
				"topic":     record.Topic,
				"partition": record.Partition,
				"offset":    record.Offset,
			}).Error("Failed to handle message, will retry on restart")
			blocked[tp] = true
			continue
		}

		lastSuccess[tp] = record
	}

	commit := make([]*kgo.Record, 0, len(lastSuccess))
	for _, record := range lastSuccess {
		commit = append(commit, record)
	}
	return commit
}

func toMessage(record *kgo.Record) Message {
	headers := make(map[string]string, len(record.Headers))
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Key:       record.Key,
		Value:     record.Value,
		Headers:   headers,
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Timestamp: record.Timestamp,
	}
}

// HealthCheck pings the brokers
func (c *Consumer) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka health check failed: %w", err)
	}
	return nil
}
