package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chatrelay/internal/constants"
	"chatrelay/internal/logger"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/models"
)

// Entry is a history record together with its rank.
type Entry struct {
	Message models.ChatMessage
	Rank    float64
}

// HistoryStore persists the bounded per-channel backlog of direct messages.
type HistoryStore interface {
	// Append stores a message under its logical-timestamp rank and trims the
	// channel back to capacity, evicting lowest ranks first.
	Append(ctx context.Context, channel string, msg models.ChatMessage) error
	// Range returns all live entries in ascending rank order.
	Range(ctx context.Context, channel string) ([]Entry, error)
	// SoftDelete flags every entry as deleted for the given user. When the
	// flip leaves all entries concealed from both sides, the channel is
	// scheduled for expiry.
	SoftDelete(ctx context.Context, channel, userID string) error
	// Read returns the channel backlog as viewer sees it, entries the viewer
	// deleted filtered out and timestamps rewritten from their ranks.
	Read(ctx context.Context, channel, viewer string) ([]models.ChatMessage, error)
}

type RedisHistoryStore struct {
	client   *redis.Client
	capacity int
	expiry   time.Duration
	loc      *time.Location
	logger   logger.Logger
}

func NewRedisHistoryStore(client *redis.Client, capacity int, expiry time.Duration, loc *time.Location, log logger.Logger) *RedisHistoryStore {
	if capacity <= 0 {
		capacity = constants.HistoryCapacity
	}
	if expiry <= 0 {
		expiry = constants.HistoryExpiry
	}
	return &RedisHistoryStore{
		client:   client,
		capacity: capacity,
		expiry:   expiry,
		loc:      loc,
		logger:   log,
	}
}

func historyKey(channel string) string {
	return constants.HistoryKeyPrefix + channel
}

func (s *RedisHistoryStore) Append(ctx context.Context, channel string, msg models.ChatMessage) error {
	start := time.Now()

	rank, err := ParseTimestamp(msg.Timestamp, s.loc)
	if err != nil {
		metrics.ObserveHistoryAppend(time.Since(start), "error")
		return err
	}

	member, err := json.Marshal(msg)
	if err != nil {
		metrics.ObserveHistoryAppend(time.Since(start), "error")
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	key := historyKey(channel)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: rank, Member: string(member)})
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-(s.capacity + 1)))
	// New traffic revives a channel that was scheduled for expiry.
	pipe.Persist(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.ObserveHistoryAppend(time.Since(start), "error")
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	metrics.ObserveHistoryAppend(time.Since(start), "success")
	return nil
}

func (s *RedisHistoryStore) Range(ctx context.Context, channel string) ([]Entry, error) {
	raw, err := s.client.ZRangeWithScores(ctx, historyKey(channel), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, z := range raw {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(member), &msg); err != nil {
			s.logger.WarnwCtx(ctx, "Skipping malformed history entry",
				"error", err,
				"channel", channel,
			)
			continue
		}
		entries = append(entries, Entry{Message: msg, Rank: z.Score})
	}
	return entries, nil
}

func (s *RedisHistoryStore) SoftDelete(ctx context.Context, channel, userID string) error {
	entries, err := s.Range(ctx, channel)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	key := historyKey(channel)
	allConcealed := true
	pipe := s.client.TxPipeline()
	for _, e := range entries {
		updated := e.Message
		if userID == updated.Sender {
			updated.DeletedBySender = true
		}
		if userID == updated.Receiver {
			updated.DeletedByReceiver = true
		}
		if updated != e.Message {
			oldMember, err := json.Marshal(e.Message)
			if err != nil {
				return fmt.Errorf("failed to marshal history entry: %w", err)
			}
			newMember, err := json.Marshal(updated)
			if err != nil {
				return fmt.Errorf("failed to marshal history entry: %w", err)
			}
			// Same rank, flags flipped in place.
			pipe.ZRem(ctx, key, string(oldMember))
			pipe.ZAdd(ctx, key, redis.Z{Score: e.Rank, Member: string(newMember)})
		}
		if !updated.FullyConcealed() {
			allConcealed = false
		}
	}
	if allConcealed {
		pipe.Expire(ctx, key, s.expiry)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to soft-delete history: %w", err)
	}
	return nil
}

func (s *RedisHistoryStore) Read(ctx context.Context, channel, viewer string) ([]models.ChatMessage, error) {
	entries, err := s.Range(ctx, channel)
	if err != nil {
		return nil, err
	}

	out := make([]models.ChatMessage, 0, len(entries))
	for _, e := range entries {
		if e.Message.ConcealedFrom(viewer) {
			continue
		}
		msg := e.Message
		// The rank is authoritative for ordering; surface it as the
		// displayed timestamp so readers see the stored order.
		msg.Timestamp = FormatTimestamp(e.Rank, s.loc)
		out = append(out, msg)
	}
	return out, nil
}
