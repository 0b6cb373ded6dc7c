package notification

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatrelay/pkg/models"
)

// Log persists dispatched notifications so users can fetch what they missed
// while offline.
type Log interface {
	Append(ctx context.Context, record models.NotificationRecord) error
	Recent(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error)
}

type MongoDBLog struct {
	collection *mongo.Collection
}

func NewLog(db *mongo.Database) *MongoDBLog {
	return &MongoDBLog{
		collection: db.Collection("notifications"),
	}
}

func (l *MongoDBLog) Append(ctx context.Context, record models.NotificationRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if _, err := l.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert notification record: %w", err)
	}
	return nil
}

func (l *MongoDBLog) Recent(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error) {
	filter := bson.M{"user_id": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := l.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find notification records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.NotificationRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode notification records: %w", err)
	}
	return records, nil
}
