package bus

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"chatrelay/internal/logger"
	apperrors "chatrelay/pkg/errors"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/models"
	"chatrelay/pkg/retry"
)

// RedisBus is the pub/sub fabric: every process publishes envelopes to
// topics and every process's relay receives them. Topic attachment is
// dynamic; go-redis re-subscribes attached topics on reconnect, and the
// Listen loop rebuilds the subscription itself if the message channel is
// torn down underneath it.
type RedisBus struct {
	client *redis.Client
	logger logger.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	topics map[string]struct{}
	closed atomic.Bool
}

func NewRedisBus(client *redis.Client, log logger.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		logger: log,
		pubsub: client.Subscribe(context.Background()),
		topics: make(map[string]struct{}),
	}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, env models.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal)
	}

	if err := b.client.Publish(ctx, topic, body).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrServiceUnavailable)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fresh := make([]string, 0, len(topics))
	for _, t := range topics {
		if _, ok := b.topics[t]; !ok {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	if err := b.pubsub.Subscribe(ctx, fresh...); err != nil {
		return apperrors.Wrap(err, apperrors.ErrServiceUnavailable)
	}
	for _, t := range fresh {
		b.topics[t] = struct{}{}
	}
	return nil
}

// Listen blocks until ctx is canceled or the bus is closed. Each envelope is
// handled in isolation: unmarshal failures, handler errors and panics are
// logged and the loop moves on to the next envelope.
func (b *RedisBus) Listen(ctx context.Context, handler Handler) error {
	for {
		b.mu.Lock()
		ch := b.pubsub.Channel()
		b.mu.Unlock()

		if err := b.consume(ctx, ch, handler); err != nil {
			return err
		}
		if b.closed.Load() {
			return nil
		}

		// Message channel was torn down while we are still supposed to be
		// running; rebuild the subscription with the topics attached so far.
		metrics.BusReconnectsTotal.Inc()
		b.logger.Warnw("Bus subscription channel closed, re-establishing")
		if err := b.resubscribe(ctx); err != nil {
			return err
		}
	}
}

func (b *RedisBus) consume(ctx context.Context, ch <-chan *redis.Message, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(ctx, handler, m)
		}
	}
}

func (b *RedisBus) dispatch(ctx context.Context, handler Handler, m *redis.Message) {
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.RecoverPanic(r)
			b.logger.ErrorwCtx(ctx, "Panic recovered during envelope handling",
				"error", err,
				"topic", m.Channel,
			)
		}
	}()

	var env models.Envelope
	if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
		metrics.DroppedEnvelopesTotal.WithLabelValues("unmarshal").Inc()
		b.logger.WarnwCtx(ctx, "Dropping malformed envelope",
			"error", err,
			"topic", m.Channel,
		)
		return
	}

	if err := handler(ctx, m.Channel, env); err != nil {
		b.logger.ErrorwCtx(ctx, "Envelope handler failed",
			"error", err,
			"topic", m.Channel,
		)
	}
}

func (b *RedisBus) resubscribe(ctx context.Context) error {
	policy := retry.Policy{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}

	return retry.Retry(ctx, policy, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()

		topics := make([]string, 0, len(b.topics))
		for t := range b.topics {
			topics = append(topics, t)
		}

		pubsub := b.client.Subscribe(ctx)
		if len(topics) > 0 {
			if err := pubsub.Subscribe(ctx, topics...); err != nil {
				pubsub.Close()
				return err
			}
		}

		b.pubsub.Close()
		b.pubsub = pubsub
		return nil
	})
}

func (b *RedisBus) Close() error {
	b.closed.Store(true)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pubsub.Close()
}
