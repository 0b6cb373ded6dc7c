package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/constants"
)

func TestDirectChannel(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want string
	}{
		{
			name: "already sorted",
			a:    "alice",
			b:    "bob",
			want: "alice:bob",
		},
		{
			name: "reversed pair maps to same channel",
			a:    "bob",
			b:    "alice",
			want: "alice:bob",
		},
		{
			name: "numeric ids",
			a:    "42",
			b:    "17",
			want: "17:42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DirectChannel(tt.a, tt.b))
			assert.Equal(t, DirectChannel(tt.a, tt.b), DirectChannel(tt.b, tt.a))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		topic       string
		wantFamily  Family
		wantChannel string
	}{
		{
			name:        "direct topic",
			topic:       "chat:event:alice:bob",
			wantFamily:  FamilyDirect,
			wantChannel: "alice:bob",
		},
		{
			name:        "notification topic",
			topic:       "noti:event:alice",
			wantFamily:  FamilyNotification,
			wantChannel: "alice",
		},
		{
			name:        "community topic",
			topic:       "community:events:seoul",
			wantFamily:  FamilyCommunity,
			wantChannel: "seoul",
		},
		{
			name:        "doubled-colon community prefix is not canonical",
			topic:       "community:events::seoul",
			wantFamily:  FamilyCommunity,
			wantChannel: ":seoul",
		},
		{
			name:        "unrelated topic",
			topic:       "orders:created",
			wantFamily:  FamilyUnknown,
			wantChannel: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family, channel := Classify(tt.topic)
			assert.Equal(t, tt.wantFamily, family)
			assert.Equal(t, tt.wantChannel, channel)
		})
	}
}

func TestTopicBuilders(t *testing.T) {
	assert.Equal(t, "chat:event:a:b", DirectTopic(DirectChannel("b", "a")))
	assert.Equal(t, "noti:event:alice", NotificationTopic("alice"))
	assert.Equal(t, "community:events:busan", CommunityTopic("busan"))

	// Every built topic classifies back to its own family.
	f, _ := Classify(DirectTopic("a:b"))
	assert.Equal(t, FamilyDirect, f)
	f, _ = Classify(NotificationTopic("alice"))
	assert.Equal(t, FamilyNotification, f)
	f, _ = Classify(CommunityTopic("busan"))
	assert.Equal(t, FamilyCommunity, f)
}

func TestParseTimestamp(t *testing.T) {
	loc, err := time.LoadLocation(constants.DefaultTimezone)
	require.NoError(t, err)

	rank, err := ParseTimestamp("2024-03-01 12:30:45", loc)
	require.NoError(t, err)

	want := time.Date(2024, 3, 1, 12, 30, 45, 0, loc)
	assert.Equal(t, float64(want.Unix()), rank)
}

func TestParseTimestampInvalid(t *testing.T) {
	loc := time.UTC

	tests := []struct {
		name string
		ts   string
	}{
		{name: "empty", ts: ""},
		{name: "wrong layout", ts: "2024-03-01T12:30:45Z"},
		{name: "garbage", ts: "not a time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTimestamp(tt.ts, loc)
			assert.Error(t, err)
		})
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation(constants.DefaultTimezone)
	require.NoError(t, err)

	original := "2025-12-31 23:59:59"
	rank, err := ParseTimestamp(original, loc)
	require.NoError(t, err)
	assert.Equal(t, original, FormatTimestamp(rank, loc))
}

func TestFamilyString(t *testing.T) {
	assert.Equal(t, "direct", FamilyDirect.String())
	assert.Equal(t, "notification", FamilyNotification.String())
	assert.Equal(t, "community", FamilyCommunity.String())
	assert.Equal(t, "unknown", FamilyUnknown.String())
}
