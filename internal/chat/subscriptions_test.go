package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/bus"
	"chatrelay/internal/logger"
)

type fakeSubscriber struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, topics ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.topics = append(s.topics, topics...)
	return nil
}

func (s *fakeSubscriber) Listen(ctx context.Context, handler bus.Handler) error { return nil }
func (s *fakeSubscriber) Close() error                                          { return nil }

func TestSubscribeDirectIsIdempotent(t *testing.T) {
	sub := &fakeSubscriber{}
	m := NewSubscriptionManager(sub, logger.NopLogger())

	require.NoError(t, m.SubscribeDirect(context.Background(), "alice", "bob"))
	require.NoError(t, m.SubscribeDirect(context.Background(), "bob", "alice"))
	require.NoError(t, m.SubscribeDirect(context.Background(), "alice", "bob"))

	assert.Equal(t, []string{"chat:event:alice:bob"}, sub.topics)
	assert.Equal(t, []string{"chat:event:alice:bob"}, m.Topics())
}

func TestSubscribeKinds(t *testing.T) {
	sub := &fakeSubscriber{}
	m := NewSubscriptionManager(sub, logger.NopLogger())

	require.NoError(t, m.SubscribeDirect(context.Background(), "alice", "bob"))
	require.NoError(t, m.SubscribeNotifications(context.Background(), "alice"))
	require.NoError(t, m.SubscribeCommunity(context.Background(), "seoul"))

	assert.ElementsMatch(t, []string{
		"chat:event:alice:bob",
		"noti:event:alice",
		"community:events:seoul",
	}, m.Topics())
}

func TestSubscribeFailureIsRetriedNextCall(t *testing.T) {
	sub := &fakeSubscriber{err: assert.AnError}
	m := NewSubscriptionManager(sub, logger.NopLogger())

	require.Error(t, m.SubscribeCommunity(context.Background(), "seoul"))
	assert.Empty(t, m.Topics())

	sub.err = nil
	require.NoError(t, m.SubscribeCommunity(context.Background(), "seoul"))
	assert.Equal(t, []string{"community:events:seoul"}, m.Topics())
}
