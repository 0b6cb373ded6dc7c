package chat

import (
	"context"
	"time"

	"chatrelay/internal/logger"
	apperrors "chatrelay/pkg/errors"
	"chatrelay/pkg/models"
)

// NotificationLog reads back persisted notifications.
type NotificationLog interface {
	Recent(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error)
}

// Service is the application facade the HTTP and WebSocket surfaces call
// into. It owns request validation and channel canonicalization; the
// publisher, stores and subscription manager do the actual work.
type Service struct {
	publisher *Publisher
	subs      *SubscriptionManager
	history   HistoryStore
	unread    UnreadCounter
	registry  *Registry
	notifLog  NotificationLog
	loc       *time.Location
	logger    logger.Logger
}

func NewService(publisher *Publisher, subs *SubscriptionManager, history HistoryStore, unread UnreadCounter, registry *Registry, notifLog NotificationLog, loc *time.Location, log logger.Logger) *Service {
	return &Service{
		publisher: publisher,
		subs:      subs,
		history:   history,
		unread:    unread,
		registry:  registry,
		notifLog:  notifLog,
		loc:       loc,
		logger:    log,
	}
}

// SendDirect validates and publishes a direct message. A missing timestamp
// is stamped server-side; the pair's topic is attached before publishing so
// this instance relays its own traffic.
func (s *Service) SendDirect(ctx context.Context, msg models.ChatMessage) error {
	if msg.Sender == "" || msg.Receiver == "" {
		return apperrors.ErrValidation.WithDetail("message", "sender and receiver are required")
	}
	if msg.Sender == msg.Receiver {
		return apperrors.ErrValidation.WithDetail("message", "sender and receiver must differ")
	}
	if msg.Content == "" {
		return apperrors.ErrValidation.WithDetail("message", "content is required")
	}
	if msg.Timestamp == "" {
		msg.Timestamp = Timestamp(s.loc)
	} else if _, err := ParseTimestamp(msg.Timestamp, s.loc); err != nil {
		return err
	}
	msg.DeletedBySender = false
	msg.DeletedByReceiver = false

	if err := s.subs.SubscribeDirect(ctx, msg.Sender, msg.Receiver); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to attach direct topic",
			"error", err,
			"sender", msg.Sender,
			"receiver", msg.Receiver,
		)
	}

	return s.publisher.PublishDirect(ctx, msg)
}

func (s *Service) SendCommunity(ctx context.Context, msg models.CommunityMessage) error {
	if msg.Sender == "" || msg.Region == "" {
		return apperrors.ErrValidation.WithDetail("message", "sender and region are required")
	}
	if msg.Content == "" {
		return apperrors.ErrValidation.WithDetail("message", "content is required")
	}
	if msg.Timestamp == "" {
		msg.Timestamp = Timestamp(s.loc)
	}

	if err := s.subs.SubscribeCommunity(ctx, msg.Region); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to attach community topic",
			"error", err,
			"region", msg.Region,
		)
	}

	return s.publisher.PublishCommunity(ctx, msg)
}

func (s *Service) Notify(ctx context.Context, userID, message, url string) error {
	if userID == "" {
		return apperrors.ErrValidation.WithDetail("message", "user id is required")
	}
	if message == "" {
		return apperrors.ErrValidation.WithDetail("message", "message is required")
	}
	return s.publisher.PublishNotification(ctx, userID, message, url)
}

// History returns the channel backlog as viewer sees it. An unknown channel
// reads as empty, not as an error.
func (s *Service) History(ctx context.Context, channel, viewer string) ([]models.ChatMessage, error) {
	if channel == "" || viewer == "" {
		return nil, apperrors.ErrValidation.WithDetail("message", "channel and viewer are required")
	}
	return s.history.Read(ctx, channel, viewer)
}

// DeleteChannel conceals the whole channel from one participant.
func (s *Service) DeleteChannel(ctx context.Context, channel, userID string) error {
	if channel == "" || userID == "" {
		return apperrors.ErrValidation.WithDetail("message", "channel and user id are required")
	}
	return s.history.SoftDelete(ctx, channel, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperrors.ErrValidation.WithDetail("message", "user id is required")
	}
	return s.unread.Get(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.ErrValidation.WithDetail("message", "user id is required")
	}
	return s.unread.Reset(ctx, userID)
}

// ChannelsFor lists the channels the user has a live session on.
func (s *Service) ChannelsFor(userID string) []string {
	return s.registry.ChannelsForUser(userID)
}

func (s *Service) RecentNotifications(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error) {
	if userID == "" {
		return nil, apperrors.ErrValidation.WithDetail("message", "user id is required")
	}
	if s.notifLog == nil {
		return []models.NotificationRecord{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.notifLog.Recent(ctx, userID, limit)
}
