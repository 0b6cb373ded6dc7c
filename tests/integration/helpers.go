package integration

import (
	"time"

	"chatrelay/internal/chat"
	"chatrelay/internal/logger"
	"chatrelay/pkg/models"
)

const (
	containerStartupTimeout = 60
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestMessage(sender, receiver, content, timestamp string) models.ChatMessage {
	return models.ChatMessage{
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		Timestamp: timestamp,
	}
}

func createTestHistoryStore(infra *TestInfra, capacity int) *chat.RedisHistoryStore {
	return chat.NewRedisHistoryStore(infra.RedisClient, capacity, 7*24*time.Hour, time.UTC, createTestLogger())
}
