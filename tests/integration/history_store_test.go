package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryAppendAndRead(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := createTestHistoryStore(infra, 100)
	ctx := context.Background()

	msg := createTestMessage("alice", "bob", "hello", "2024-03-01 12:00:00")
	require.NoError(t, store.Append(ctx, "alice:bob", msg))

	messages, err := store.Read(ctx, "alice:bob", "alice")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "2024-03-01 12:00:00", messages[0].Timestamp)
}

func TestHistoryOrderedByLogicalTimestamp(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := createTestHistoryStore(infra, 100)
	ctx := context.Background()

	// Appended out of order; read comes back in timestamp order.
	require.NoError(t, store.Append(ctx, "alice:bob",
		createTestMessage("alice", "bob", "third", "2024-03-01 12:00:02")))
	require.NoError(t, store.Append(ctx, "alice:bob",
		createTestMessage("bob", "alice", "first", "2024-03-01 12:00:00")))
	require.NoError(t, store.Append(ctx, "alice:bob",
		createTestMessage("alice", "bob", "second", "2024-03-01 12:00:01")))

	messages, err := store.Read(ctx, "alice:bob", "alice")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, "third", messages[2].Content)
}

func TestHistoryCapacityEvictsOldest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := createTestHistoryStore(infra, 5)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		ts := base.Add(time.Duration(i) * time.Second).Format("2006-01-02 15:04:05")
		msg := createTestMessage("alice", "bob", fmt.Sprintf("msg-%d", i), ts)
		require.NoError(t, store.Append(ctx, "alice:bob", msg))
	}

	messages, err := store.Read(ctx, "alice:bob", "alice")
	require.NoError(t, err)
	require.Len(t, messages, 5)
	// Lowest ranks evicted first.
	assert.Equal(t, "msg-3", messages[0].Content)
	assert.Equal(t, "msg-7", messages[4].Content)
}

func TestHistoryIdempotentAppend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := createTestHistoryStore(infra, 100)
	ctx := context.Background()

	msg := createTestMessage("alice", "bob", "hello", "2024-03-01 12:00:00")
	require.NoError(t, store.Append(ctx, "alice:bob", msg))
	require.NoError(t, store.Append(ctx, "alice:bob", msg))

	messages, err := store.Read(ctx, "alice:bob", "alice")
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestHistorySoftDeleteConcealsFromViewer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := createTestHistoryStore(infra, 100)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "alice:bob",
		createTestMessage("alice", "bob", "from alice", "2024-03-01 12:00:00")))
	require.NoError(t, store.Append(ctx, "alice:bob",
		createTestMessage("bob", "alice", "from bob", "2024-03-01 12:00:01")))

	require.NoError(t, store.SoftDelete(ctx, "alice:bob", "alice"))

	// Alice sees nothing; entries survive for bob.
	aliceView, err := store.Read(ctx, "alice:bob", "alice")
	require.NoError(t, err)
	assert.Empty(t, aliceView)

	bobView, err := store.Read(ctx, "alice:bob", "bob")
	require.NoError(t, err)
	assert.Len(t, bobView, 2)
}

func TestHistoryFullConcealmentSchedulesExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := createTestHistoryStore(infra, 100)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "alice:bob",
		createTestMessage("alice", "bob", "hello", "2024-03-01 12:00:00")))

	ttl, err := infra.RedisClient.TTL(ctx, "chat:history:alice:bob").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "live channel must not carry a TTL")

	require.NoError(t, store.SoftDelete(ctx, "alice:bob", "alice"))
	ttl, err = infra.RedisClient.TTL(ctx, "chat:history:alice:bob").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "one-sided deletion must not schedule expiry")

	require.NoError(t, store.SoftDelete(ctx, "alice:bob", "bob"))
	ttl, err = infra.RedisClient.TTL(ctx, "chat:history:alice:bob").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "full concealment must schedule expiry")
	assert.LessOrEqual(t, ttl, 7*24*time.Hour)
}

func TestHistoryNewTrafficRevivesExpiringChannel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := createTestHistoryStore(infra, 100)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "alice:bob",
		createTestMessage("alice", "bob", "old", "2024-03-01 12:00:00")))
	require.NoError(t, store.SoftDelete(ctx, "alice:bob", "alice"))
	require.NoError(t, store.SoftDelete(ctx, "alice:bob", "bob"))

	require.NoError(t, store.Append(ctx, "alice:bob",
		createTestMessage("bob", "alice", "new", "2024-03-01 12:05:00")))

	ttl, err := infra.RedisClient.TTL(ctx, "chat:history:alice:bob").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}

func TestHistoryUnknownChannelReadsEmpty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := createTestHistoryStore(infra, 100)

	messages, err := store.Read(context.Background(), "nobody:noone", "nobody")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestHistoryMalformedTimestampRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := createTestHistoryStore(infra, 100)

	msg := createTestMessage("alice", "bob", "hello", "not-a-timestamp")
	err := store.Append(context.Background(), "alice:bob", msg)
	require.Error(t, err)
}

func TestHistorySkipsMalformedMembers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := createTestHistoryStore(infra, 100)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "alice:bob",
		createTestMessage("alice", "bob", "good", "2024-03-01 12:00:00")))

	// Poison the sorted set directly.
	err := infra.RedisClient.ZAdd(ctx, "chat:history:alice:bob",
		redisclient.Z{Score: 1709294401, Member: "{broken json"}).Err()
	require.NoError(t, err)

	messages, err := store.Read(ctx, "alice:bob", "alice")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "good", messages[0].Content)
}
