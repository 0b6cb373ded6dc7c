package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/chat"
)

func TestUnreadCounterLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	counter := chat.NewRedisUnreadCounter(infra.RedisClient)
	ctx := context.Background()

	count, err := counter.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "unseen user starts at zero")

	for i := 0; i < 3; i++ {
		require.NoError(t, counter.Increment(ctx, "u1"))
	}

	count, err = counter.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, counter.Reset(ctx, "u1"))

	count, err = counter.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestUnreadCounterIsolatedPerUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	counter := chat.NewRedisUnreadCounter(infra.RedisClient)
	ctx := context.Background()

	require.NoError(t, counter.Increment(ctx, "u1"))
	require.NoError(t, counter.Increment(ctx, "u2"))
	require.NoError(t, counter.Increment(ctx, "u2"))

	c1, err := counter.Get(ctx, "u1")
	require.NoError(t, err)
	c2, err := counter.Get(ctx, "u2")
	require.NoError(t, err)

	assert.Equal(t, int64(1), c1)
	assert.Equal(t, int64(2), c2)

	require.NoError(t, counter.Reset(ctx, "u1"))

	c2, err = counter.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), c2, "resetting one user leaves the other untouched")
}
