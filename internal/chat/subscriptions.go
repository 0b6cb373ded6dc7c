package chat

import (
	"context"
	"sync"

	"chatrelay/internal/bus"
	"chatrelay/internal/logger"
)

// SubscriptionManager attaches the relay's bus subscription to topics on
// demand. Attachments are idempotent and live for the process lifetime;
// there is no unsubscribe, so a long-running instance accumulates topics
// for every pair and region it ever served.
type SubscriptionManager struct {
	bus    bus.Subscriber
	logger logger.Logger

	mu       sync.Mutex
	attached map[string]struct{}
}

func NewSubscriptionManager(b bus.Subscriber, log logger.Logger) *SubscriptionManager {
	return &SubscriptionManager{
		bus:      b,
		logger:   log,
		attached: make(map[string]struct{}),
	}
}

func (m *SubscriptionManager) SubscribeDirect(ctx context.Context, a, b string) error {
	return m.subscribe(ctx, DirectTopic(DirectChannel(a, b)))
}

func (m *SubscriptionManager) SubscribeNotifications(ctx context.Context, userID string) error {
	return m.subscribe(ctx, NotificationTopic(userID))
}

func (m *SubscriptionManager) SubscribeCommunity(ctx context.Context, region string) error {
	return m.subscribe(ctx, CommunityTopic(region))
}

func (m *SubscriptionManager) subscribe(ctx context.Context, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.attached[topic]; ok {
		return nil
	}
	if err := m.bus.Subscribe(ctx, topic); err != nil {
		return err
	}
	// Marked only after the bus accepted it, so a failed attach is retried
	// on the next subscribe call.
	m.attached[topic] = struct{}{}
	m.logger.InfowCtx(ctx, "Attached to topic",
		"topic", topic,
	)
	return nil
}

// Topics returns a snapshot of the attached topics.
func (m *SubscriptionManager) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.attached))
	for t := range m.attached {
		out = append(out, t)
	}
	return out
}
