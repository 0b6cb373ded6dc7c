package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/notification"
	"chatrelay/pkg/models"
)

func TestNotificationLogAppendAndRecent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfraWithOptions(t, false, true, false)
	log := notification.NewLog(infra.MongoDB)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		record := models.NotificationRecord{
			UserID:    "u1",
			Message:   fmt.Sprintf("notification %d", i),
			URL:       fmt.Sprintf("/items/%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, log.Append(ctx, record))
	}

	records, err := log.Recent(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, "notification 4", records[0].Message)
	assert.Equal(t, "notification 3", records[1].Message)
	assert.Equal(t, "notification 2", records[2].Message)
	assert.Equal(t, "/items/4", records[0].URL)
}

func TestNotificationLogScopedToUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfraWithOptions(t, false, true, false)
	log := notification.NewLog(infra.MongoDB)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, log.Append(ctx, models.NotificationRecord{
		UserID: "u1", Message: "for u1", CreatedAt: now,
	}))
	require.NoError(t, log.Append(ctx, models.NotificationRecord{
		UserID: "u2", Message: "for u2", CreatedAt: now,
	}))

	records, err := log.Recent(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "for u1", records[0].Message)
	assert.Equal(t, "u1", records[0].UserID)
}

func TestNotificationLogRecentEmptyForUnknownUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfraWithOptions(t, false, true, false)
	log := notification.NewLog(infra.MongoDB)

	records, err := log.Recent(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
