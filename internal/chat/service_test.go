package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/logger"
	apperrors "chatrelay/pkg/errors"
	"chatrelay/pkg/models"
)

func newTestService(t *testing.T) (*Service, *fakeBusPublisher, *fakeSubscriber, *fakeHistory, *fakeUnread) {
	t.Helper()

	busPub := newFakeBusPublisher()
	sub := &fakeSubscriber{}
	history := newFakeHistory()
	unread := newFakeUnread()
	registry := NewRegistry()

	publisher := NewPublisher(busPub, history, nil, logger.NopLogger())
	subs := NewSubscriptionManager(sub, logger.NopLogger())
	svc := NewService(publisher, subs, history, unread, registry, nil, time.UTC, logger.NopLogger())

	return svc, busPub, sub, history, unread
}

func TestSendDirectValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	tests := []struct {
		name string
		msg  models.ChatMessage
	}{
		{
			name: "missing sender",
			msg:  models.ChatMessage{Receiver: "bob", Content: "hi"},
		},
		{
			name: "missing receiver",
			msg:  models.ChatMessage{Sender: "alice", Content: "hi"},
		},
		{
			name: "self message",
			msg:  models.ChatMessage{Sender: "alice", Receiver: "alice", Content: "hi"},
		},
		{
			name: "empty content",
			msg:  models.ChatMessage{Sender: "alice", Receiver: "bob"},
		},
		{
			name: "bad timestamp",
			msg:  models.ChatMessage{Sender: "alice", Receiver: "bob", Content: "hi", Timestamp: "yesterday"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SendDirect(context.Background(), tt.msg)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestSendDirectStampsTimestampAndAttachesTopic(t *testing.T) {
	svc, busPub, sub, history, _ := newTestService(t)

	msg := models.ChatMessage{Sender: "bob", Receiver: "alice", Content: "hi"}
	require.NoError(t, svc.SendDirect(context.Background(), msg))

	assert.Contains(t, sub.topics, "chat:event:alice:bob")
	require.Len(t, busPub.published["chat:event:alice:bob"], 1)

	entries, err := history.Range(context.Background(), "alice:bob")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].Message.Timestamp)
}

func TestSendDirectClearsClientDeletionFlags(t *testing.T) {
	svc, _, _, history, _ := newTestService(t)

	msg := models.ChatMessage{
		Sender:            "alice",
		Receiver:          "bob",
		Content:           "hi",
		Timestamp:         "2024-03-01 12:00:00",
		DeletedBySender:   true,
		DeletedByReceiver: true,
	}
	require.NoError(t, svc.SendDirect(context.Background(), msg))

	entries, err := history.Range(context.Background(), "alice:bob")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Message.DeletedBySender)
	assert.False(t, entries[0].Message.DeletedByReceiver)
}

func TestSendCommunityValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	err := svc.SendCommunity(context.Background(), models.CommunityMessage{Region: "seoul", Content: "hi"})
	require.Error(t, err)

	err = svc.SendCommunity(context.Background(), models.CommunityMessage{Sender: "alice", Content: "hi"})
	require.Error(t, err)

	err = svc.SendCommunity(context.Background(), models.CommunityMessage{Sender: "alice", Region: "seoul"})
	require.Error(t, err)
}

func TestSendCommunityAttachesRegionTopic(t *testing.T) {
	svc, busPub, sub, _, _ := newTestService(t)

	msg := models.CommunityMessage{Sender: "alice", Region: "seoul", Content: "hello"}
	require.NoError(t, svc.SendCommunity(context.Background(), msg))

	assert.Contains(t, sub.topics, "community:events:seoul")
	assert.Len(t, busPub.published["community:events:seoul"], 1)
}

func TestNotifyValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	require.Error(t, svc.Notify(context.Background(), "", "msg", ""))
	require.Error(t, svc.Notify(context.Background(), "bob", "", ""))
	require.NoError(t, svc.Notify(context.Background(), "bob", "msg", "/url"))
}

func TestHistoryRequiresChannelAndViewer(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.History(context.Background(), "", "alice")
	require.Error(t, err)
	_, err = svc.History(context.Background(), "alice:bob", "")
	require.Error(t, err)
}

func TestHistoryUnknownChannelReadsEmpty(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	msgs, err := svc.History(context.Background(), "nobody:noone", "nobody")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestUnreadLifecycle(t *testing.T) {
	svc, _, _, _, unread := newTestService(t)
	ctx := context.Background()

	count, err := svc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, unread.Increment(ctx, "bob"))
	require.NoError(t, unread.Increment(ctx, "bob"))

	count, err = svc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, svc.MarkRead(ctx, "bob"))

	count, err = svc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRecentNotificationsWithoutLog(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	records, err := svc.RecentNotifications(context.Background(), "bob", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
