package queue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// DLQPayload captures enough context to replay or inspect a failed message
type DLQPayload struct {
	Topic       string            `json:"topic"`
	Partition   int32             `json:"partition"`
	Offset      int64             `json:"offset"`
	Timestamp   time.Time         `json:"timestamp"`
	KeyBase64   string            `json:"key_base64,omitempty"`
	ValueBase64 string            `json:"value_base64"`
	Headers     map[string]string `json:"headers,omitempty"`
	Error       string            `json:"error"`
	Consumer    string            `json:"consumer"`
}

// EncodeDLQMessage serializes a message into a dead letter payload
func EncodeDLQMessage(msg Message, cause error, consumer string) ([]byte, error) {
	payload := DLQPayload{
		Topic:       msg.Topic,
		Partition:   msg.Partition,
		Offset:      msg.Offset,
		Timestamp:   msg.Timestamp,
		ValueBase64: base64.StdEncoding.EncodeToString(msg.Value),
		Headers:     msg.Headers,
		Consumer:    consumer,
	}
	if len(msg.Key) > 0 {
		payload.KeyBase64 = base64.StdEncoding.EncodeToString(msg.Key)
	}
	if cause != nil {
		payload.Error = cause.Error()
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal dlq payload: %w", err)
	}
	return b, nil
}

// DecodeDLQMessage reverses EncodeDLQMessage
func DecodeDLQMessage(data []byte) (*DLQPayload, Message, error) {
	var payload DLQPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, Message{}, fmt.Errorf("unmarshal dlq payload: %w", err)
	}

	value, err := base64.StdEncoding.DecodeString(payload.ValueBase64)
	if err != nil {
		return nil, Message{}, fmt.Errorf("decode dlq value: %w", err)
	}
	var key []byte
	if payload.KeyBase64 != "" {
		if key, err = base64.StdEncoding.DecodeString(payload.KeyBase64); err != nil {
			return nil, Message{}, fmt.Errorf("decode dlq key: %w", err)
		}
	}

	return &payload, Message{
		Key:       key,
		Value:     value,
		Headers:   payload.Headers,
		Topic:     payload.Topic,
		Partition: payload.Partition,
		Offset:    payload.Offset,
		Timestamp: payload.Timestamp,
	}, nil
}
