package chat

import (
	"context"
	"encoding/json"

	"chatrelay/internal/bus"
	"chatrelay/internal/logger"
	apperrors "chatrelay/pkg/errors"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/models"
)

// Publisher puts domain messages on the bus. Direct messages are also
// written to the history store; the two writes are independent and a
// failure of either is logged rather than surfaced, so a degraded store
// never blocks live delivery and a degraded bus never loses history.
type Publisher struct {
	bus     bus.Publisher
	history HistoryStore
	filter  *Filter
	logger  logger.Logger
}

func NewPublisher(b bus.Publisher, history HistoryStore, filter *Filter, log logger.Logger) *Publisher {
	return &Publisher{
		bus:     b,
		history: history,
		filter:  filter,
		logger:  log,
	}
}

func (p *Publisher) PublishDirect(ctx context.Context, msg models.ChatMessage) error {
	channel := DirectChannel(msg.Sender, msg.Receiver)

	if p.filter != nil && p.filter.Drop(ctx, FamilyDirect, msg.Content, msg.Sender, msg.Receiver, "") {
		return apperrors.ErrValidation.WithDetail("message", "message rejected by content filter")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal)
	}
	env := models.NewEnvelope(models.KindMessage, channel, payload)

	published := true
	if err := p.bus.Publish(ctx, DirectTopic(channel), env); err != nil {
		published = false
		p.logger.ErrorwCtx(ctx, "Failed to publish direct message",
			"error", err,
			"channel", channel,
		)
	}

	if err := p.history.Append(ctx, channel, msg); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to append direct message to history",
			"error", err,
			"channel", channel,
		)
	}

	status := "success"
	if !published {
		status = "error"
	}
	metrics.PublishedEnvelopesTotal.WithLabelValues(FamilyDirect.String(), status).Inc()
	return nil
}

func (p *Publisher) PublishNotification(ctx context.Context, userID, message, url string) error {
	if p.filter != nil && p.filter.Drop(ctx, FamilyNotification, message, "", userID, "") {
		return apperrors.ErrValidation.WithDetail("message", "notification rejected by content filter")
	}

	payload, err := json.Marshal(models.NotificationPayload{Message: message, URL: url})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal)
	}
	env := models.NewEnvelope(models.KindNotification, userID, payload)

	if err := p.bus.Publish(ctx, NotificationTopic(userID), env); err != nil {
		metrics.PublishedEnvelopesTotal.WithLabelValues(FamilyNotification.String(), "error").Inc()
		p.logger.ErrorwCtx(ctx, "Failed to publish notification",
			"error", err,
			"user_id", userID,
		)
		return nil
	}

	metrics.PublishedEnvelopesTotal.WithLabelValues(FamilyNotification.String(), "success").Inc()
	return nil
}

func (p *Publisher) PublishCommunity(ctx context.Context, msg models.CommunityMessage) error {
	if p.filter != nil && p.filter.Drop(ctx, FamilyCommunity, msg.Content, msg.Sender, "", msg.Region) {
		return apperrors.ErrValidation.WithDetail("message", "message rejected by content filter")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal)
	}
	env := models.NewEnvelope(models.KindMessage, msg.Region, payload)

	if err := p.bus.Publish(ctx, CommunityTopic(msg.Region), env); err != nil {
		metrics.PublishedEnvelopesTotal.WithLabelValues(FamilyCommunity.String(), "error").Inc()
		p.logger.ErrorwCtx(ctx, "Failed to publish community message",
			"error", err,
			"region", msg.Region,
		)
		return nil
	}

	metrics.PublishedEnvelopesTotal.WithLabelValues(FamilyCommunity.String(), "success").Inc()
	return nil
}
