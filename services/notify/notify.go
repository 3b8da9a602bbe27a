// Package notify delivers enrollment events to external automation sinks.
//
// Delivery is fire-and-forget: Send never reports an outcome to the caller.
// Failures are logged and otherwise dropped.
package notify

import (
	"context"

	"github.com/sahilchouksey/enrollment-api/model"
)

// Notifier sends an enrollment event to an external sink
type Notifier interface {
	Send(ctx context.Context, event model.EnrollmentEvent)
}

// Multi sends to each notifier in order
type Multi []Notifier

// Send implements Notifier
func (m Multi) Send(ctx context.Context, event model.EnrollmentEvent) {
	for _, n := range m {
		if n != nil {
			n.Send(ctx, event)
		}
	}
}

// Nop discards every event
type Nop struct{}

// Send implements Notifier
func (Nop) Send(context.Context, model.EnrollmentEvent) {}
