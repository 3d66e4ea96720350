package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/types"
)

// Notifier is anything that can deliver a notification
type Notifier interface {
	Notify(ctx context.Context, n types.Notification) error
}

// LogNotifier writes notifications to the log instead of delivering them.
// It is used for dry runs and when no webhook is configured.
type LogNotifier struct {
	Logger logging.Logger
}

// Notify logs the formatted message
func (l LogNotifier) Notify(_ context.Context, n types.Notification) error {
	logging.OrDiscard(l.Logger).WithFields(logging.Fields{
		"post_id": n.SourceID,
		"drafts":  len(n.Drafts),
	}).Info(FormatNotification(n))
	return nil
}

// Recording keeps every notification in memory
type Recording struct {
	mu   sync.Mutex
	sent []types.Notification
}

// Notify records n
func (r *Recording) Notify(_ context.Context, n types.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns a copy of the recorded notifications
func (r *Recording) Sent() []types.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Notification(nil), r.sent...)
}

// Multi delivers to every notifier and joins their errors
type Multi []Notifier

// Notify calls each notifier in order
func (m Multi) Notify(ctx context.Context, n types.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
