package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/pipeline"
	"github.com/jonathan/quote-repost/internal/types"
)

// consumerName identifies this consumer in dead letters
const consumerName = "quote-repost-worker"

// InvocationRunner runs one invocation through the pipeline
type InvocationRunner interface {
	Run(ctx context.Context, inv types.Invocation) (*pipeline.Outcome, error)
}

// DeadLetterer receives messages that can never succeed
type DeadLetterer interface {
	DeadLetter(ctx context.Context, msg Message, cause error, consumer string) error
}

// InvocationHandler decodes invocation messages and runs them.
//
// Undecodable or invalid messages and invocations whose generation failed are
// dead-lettered and committed. A notification failure leaves the invocation
// in GATING and is returned so the message is redelivered.
func InvocationHandler(runner InvocationRunner, dlq DeadLetterer, logger logging.Logger) Handler {
	logger = logging.OrDiscard(logger)

	deadLetter := func(ctx context.Context, msg Message, cause error) error {
		log := logger.WithError(cause).WithFields(logging.Fields{
			"topic":  msg.Topic,
			"offset": msg.Offset,
			"key":    string(msg.Key),
		})
		if dlq == nil {
			log.Warn("Dropping message")
			return nil
		}
		if err := dlq.DeadLetter(ctx, msg, cause, consumerName); err != nil {
			return fmt.Errorf("dead letter: %w", err)
		}
		log.Warn("Message sent to dead letter topic")
		return nil
	}

	return func(ctx context.Context, msg Message) error {
		var inv types.Invocation
		if err := json.Unmarshal(msg.Value, &inv); err != nil {
			return deadLetter(ctx, msg, fmt.Errorf("decode invocation: %w", err))
		}

		out, err := runner.Run(ctx, inv)
		if err == nil {
			logger.WithFields(logging.Fields{
				"source_id": inv.SourceID,
				"state":     string(out.State),
				"accepted":  len(out.Accepted),
			}).Info("Invocation processed")
			return nil
		}

		if errors.Is(err, pipeline.ErrInvalidInvocation) {
			return deadLetter(ctx, msg, err)
		}

		var invErr *pipeline.InvocationError
		if errors.As(err, &invErr) && invErr.State == types.StateFailed {
			return deadLetter(ctx, msg, err)
		}
		return err
	}
}
