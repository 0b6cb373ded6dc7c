package bus

import (
	"context"

	"chatrelay/pkg/models"
)

// Handler processes one envelope received from a topic. Errors are logged by
// the subscriber and never stop the subscription loop.
type Handler func(ctx context.Context, topic string, env models.Envelope) error

type Publisher interface {
	Publish(ctx context.Context, topic string, env models.Envelope) error
	Close() error
}

// Subscriber delivers envelopes from dynamically attached topics. Subscribe
// may be called at any time, including while Listen is running.
type Subscriber interface {
	Subscribe(ctx context.Context, topics ...string) error
	Listen(ctx context.Context, handler Handler) error
	Close() error
}
