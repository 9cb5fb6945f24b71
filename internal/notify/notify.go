package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Notifier delivers a composed alert to people.
type Notifier interface {
	Name() string
	Send(ctx context.Context, title, text string) error
}

// NotificationError is a failed delivery on one channel.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Multi fans out to every notifier and reports all failures together.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Send(ctx context.Context, title, text string) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, title, text); err != nil {
			errs = multierr.Append(errs, &NotificationError{Channel: n.Name(), Err: err})
		}
	}
	return errs
}

// Errors splits a Multi failure into its per-channel errors.
func Errors(err error) []error { return multierr.Errors(err) }
