package notifiers

import "context"

// Notifier sends run events to a downstream sink (SQS, SNS, HTTP, etc).
type Notifier interface {
	ID() string
	Type() string
	Send(ctx context.Context, evt RunEvent) error
}
