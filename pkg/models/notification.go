package models

import "time"

// NotificationRecord is a persisted notification, kept so users can fetch
// what they missed while offline.
type NotificationRecord struct {
	UserID    string    `bson:"user_id" json:"userId"`
	Message   string    `bson:"message" json:"message"`
	URL       string    `bson:"url" json:"url"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
