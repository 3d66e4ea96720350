package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/pipeline"
	"github.com/jonathan/quote-repost/internal/types"
)

func recordKey(topic string, partition int32, offset int64) string {
	return fmt.Sprintf("%s/%d/%d", topic, partition, offset)
}

func TestProcessRecords_BlocksPartitionOnFailure(t *testing.T) {
	consumer := &Consumer{logger: logging.Discard(), handlers: make(map[string]Handler)}

	var handled []string
	consumer.AddHandler("events", func(_ context.Context, msg Message) error {
		handled = append(handled, recordKey(msg.Topic, msg.Partition, msg.Offset))
		if msg.Partition == 0 && msg.Offset == 1 {
			return errors.New("handler failure")
		}
		return nil
	})

	records := []*kgo.Record{
		{Topic: "events", Partition: 0, Offset: 0},
		{Topic: "events", Partition: 0, Offset: 1},
		{Topic: "events", Partition: 0, Offset: 2},
		{Topic: "events", Partition: 1, Offset: 0},
		{Topic: "events", Partition: 1, Offset: 1},
		{Topic: "other", Partition: 0, Offset: 7},
	}

	commit := consumer.processRecords(context.Background(), records)

	assert.ElementsMatch(t, []string{
		recordKey("events", 0, 0),
		recordKey("events", 0, 1),
		recordKey("events", 1, 0),
		recordKey("events", 1, 1),
	}, handled)

	var committed []string
	for _, r := range commit {
		committed = append(committed, recordKey(r.Topic, r.Partition, r.Offset))
	}
	sort.Strings(committed)
	assert.Equal(t, []string{
		recordKey("events", 0, 0),
		recordKey("events", 1, 1),
		recordKey("other", 0, 7),
	}, committed)
}

func TestToMessage_CopiesHeaders(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	msg := toMessage(&kgo.Record{
		Topic:     TopicInvocations,
		Key:       []byte("post-1"),
		Value:     []byte("{}"),
		Headers:   []kgo.RecordHeader{{Key: HeaderSourceID, Value: []byte("post-1")}},
		Partition: 2,
		Offset:    9,
		Timestamp: ts,
	})
	assert.Equal(t, "post-1", msg.Headers[HeaderSourceID])
	assert.Equal(t, int32(2), msg.Partition)
	assert.Equal(t, ts, msg.Timestamp)
}

func TestDLQ_RoundTrip(t *testing.T) {
	msg := Message{
		Key:       []byte("post-1"),
		Value:     []byte(`{"post_id":"post-1"}`),
		Headers:   map[string]string{"a": "b"},
		Topic:     TopicInvocations,
		Partition: 1,
		Offset:    42,
	}
	data, err := EncodeDLQMessage(msg, errors.New("bad"), "worker")
	require.NoError(t, err)

	payload, decoded, err := DecodeDLQMessage(data)
	require.NoError(t, err)
	assert.Equal(t, "bad", payload.Error)
	assert.Equal(t, "worker", payload.Consumer)
	assert.Equal(t, msg.Value, decoded.Value)
	assert.Equal(t, msg.Key, decoded.Key)
	assert.Equal(t, int64(42), decoded.Offset)

	_, _, err = DecodeDLQMessage([]byte("not json"))
	assert.Error(t, err)
}

func TestInvocationHeaders(t *testing.T) {
	h := invocationHeaders(types.Invocation{SourceID: "p", Author: "a"})
	assert.Equal(t, map[string]string{HeaderSourceID: "p", HeaderAuthor: "a"}, h)

	h = invocationHeaders(types.Invocation{SourceID: "p", Author: "a", RevisionInstruction: "短く"})
	assert.Equal(t, "true", h[HeaderRevision])
}

type fakeProducerClient struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducerClient) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func (f *fakeProducerClient) Ping(context.Context) error { return nil }
func (f *fakeProducerClient) Close()                     {}

func TestProducer_Enqueue(t *testing.T) {
	client := &fakeProducerClient{}
	p := &Producer{client: client, topic: TopicInvocations, timeout: time.Second}

	inv := types.Invocation{SourceID: "post-1", Text: "本文", Author: "yamada", RevisionInstruction: "短く"}
	require.NoError(t, p.Enqueue(context.Background(), inv))

	require.Len(t, client.records, 1)
	r := client.records[0]
	assert.Equal(t, TopicInvocations, r.Topic)
	assert.Equal(t, []byte("post-1"), r.Key)

	var decoded types.Invocation
	require.NoError(t, json.Unmarshal(r.Value, &decoded))
	assert.Equal(t, inv, decoded)

	assert.Error(t, p.Enqueue(context.Background(), types.Invocation{}))
	assert.Len(t, client.records, 1)
}

func TestProducer_PropagatesError(t *testing.T) {
	p := &Producer{client: &fakeProducerClient{err: errors.New("broker down")}, topic: TopicInvocations, timeout: time.Second}
	err := p.DeadLetter(context.Background(), Message{Value: []byte("x")}, errors.New("bad"), "w")
	assert.ErrorContains(t, err, "broker down")
}

type fakeRunner struct {
	out *pipeline.Outcome
	err error
	got []types.Invocation
}

func (f *fakeRunner) Run(_ context.Context, inv types.Invocation) (*pipeline.Outcome, error) {
	f.got = append(f.got, inv)
	return f.out, f.err
}

type fakeDLQ struct {
	msgs []Message
	err  error
}

func (f *fakeDLQ) DeadLetter(_ context.Context, msg Message, _ error, _ string) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

func invocationMessage(t *testing.T, inv types.Invocation) Message {
	t.Helper()
	value, err := json.Marshal(inv)
	require.NoError(t, err)
	return Message{Topic: TopicInvocations, Key: []byte(inv.SourceID), Value: value}
}

func TestInvocationHandler(t *testing.T) {
	valid := types.Invocation{SourceID: "post-1", Text: "本文", Author: "yamada"}

	tests := []struct {
		name     string
		msg      func(t *testing.T) Message
		runner   *fakeRunner
		dlqErr   error
		wantErr  bool
		wantDLQ  int
		wantRuns int
	}{
		{
			name:     "notified",
			msg:      func(t *testing.T) Message { return invocationMessage(t, valid) },
			runner:   &fakeRunner{out: &pipeline.Outcome{State: types.StateNotified}},
			wantRuns: 1,
		},
		{
			name:    "undecodable",
			msg:     func(*testing.T) Message { return Message{Value: []byte("{broken")} },
			runner:  &fakeRunner{},
			wantDLQ: 1,
		},
		{
			name:     "invalid invocation",
			msg:      func(t *testing.T) Message { return invocationMessage(t, types.Invocation{Text: "x"}) },
			runner:   &fakeRunner{err: fmt.Errorf("%w: missing", pipeline.ErrInvalidInvocation)},
			wantDLQ:  1,
			wantRuns: 1,
		},
		{
			name: "generation failed",
			msg:  func(t *testing.T) Message { return invocationMessage(t, valid) },
			runner: &fakeRunner{
				out: &pipeline.Outcome{State: types.StateFailed},
				err: &pipeline.InvocationError{SourceID: "post-1", State: types.StateFailed, Cause: errors.New("x")},
			},
			wantDLQ:  1,
			wantRuns: 1,
		},
		{
			name: "notify failed is redelivered",
			msg:  func(t *testing.T) Message { return invocationMessage(t, valid) },
			runner: &fakeRunner{
				out: &pipeline.Outcome{State: types.StateGating},
				err: &pipeline.InvocationError{SourceID: "post-1", State: types.StateGating, Cause: errors.New("webhook")},
			},
			wantErr:  true,
			wantRuns: 1,
		},
		{
			name:    "dead letter failure is redelivered",
			msg:     func(*testing.T) Message { return Message{Value: []byte("{broken")} },
			runner:  &fakeRunner{},
			dlqErr:  errors.New("broker down"),
			wantErr: true,
			wantDLQ: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dlq := &fakeDLQ{err: tt.dlqErr}
			handler := InvocationHandler(tt.runner, dlq, nil)

			err := handler(context.Background(), tt.msg(t))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, dlq.msgs, tt.wantDLQ)
			assert.Len(t, tt.runner.got, tt.wantRuns)
		})
	}
}

func TestInvocationHandler_NoDLQDrops(t *testing.T) {
	handler := InvocationHandler(&fakeRunner{}, nil, nil)
	assert.NoError(t, handler(context.Background(), Message{Value: []byte("nope")}))
}
