package chat

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chatrelay/internal/constants"
	"chatrelay/internal/logger"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/models"
	"chatrelay/pkg/tracing"
)

// NotificationSink receives notification payloads for async delivery. The
// relay never blocks on it.
type NotificationSink interface {
	Dispatch(ctx context.Context, userID string, payload models.NotificationPayload, raw string)
}

// EnvelopeArchiver mirrors relayed envelopes to cold storage and accepts
// undeliverable ones. Optional; nil disables both.
type EnvelopeArchiver interface {
	Archive(ctx context.Context, sourceTopic string, env models.Envelope) error
	DeadLetter(ctx context.Context, sourceTopic string, env models.Envelope, reason string) error
}

// Relay bridges the bus to live sessions. One Handle call per envelope;
// the bus layer provides per-envelope panic isolation, so a fault in one
// envelope never stops the subscription loop.
type Relay struct {
	registry      *Registry
	history       HistoryStore
	unread        UnreadCounter
	notifications NotificationSink
	archiver      EnvelopeArchiver
	logger        logger.Logger
}

func NewRelay(registry *Registry, history HistoryStore, unread UnreadCounter, notifications NotificationSink, archiver EnvelopeArchiver, log logger.Logger) *Relay {
	return &Relay{
		registry:      registry,
		history:       history,
		unread:        unread,
		notifications: notifications,
		archiver:      archiver,
		logger:        log,
	}
}

func (r *Relay) Handle(ctx context.Context, topic string, env models.Envelope) error {
	start := time.Now()

	family, channel := Classify(topic)
	ctx, span := tracing.GetTracer("chat-relay").Start(ctx, "relay.handle",
		trace.WithAttributes(
			attribute.String("bus.topic", topic),
			attribute.String("chat.family", family.String()),
		),
	)
	defer span.End()

	switch family {
	case FamilyDirect:
		r.handleDirect(ctx, channel, env)
	case FamilyNotification:
		r.handleNotification(ctx, channel, env)
	case FamilyCommunity:
		r.handleCommunity(ctx, channel, env)
	default:
		r.logger.WarnwCtx(ctx, "Dropping envelope on unknown topic",
			"topic", topic,
		)
		metrics.DroppedEnvelopesTotal.WithLabelValues("unknown_topic").Inc()
		r.deadLetter(ctx, topic, env, constants.DLQReasonUnknown)
		return nil
	}

	metrics.ObserveRelayDelivery(family.String(), time.Since(start))
	r.archive(ctx, topic, env)
	return nil
}

func (r *Relay) handleDirect(ctx context.Context, channel string, env models.Envelope) {
	var msg models.ChatMessage
	if err := json.Unmarshal([]byte(env.Payload), &msg); err != nil {
		r.logger.WarnwCtx(ctx, "Dropping direct envelope with malformed payload",
			"error", err,
			"channel", channel,
		)
		metrics.DroppedEnvelopesTotal.WithLabelValues("unmarshal").Inc()
		metrics.RelayedEnvelopesTotal.WithLabelValues(FamilyDirect.String(), "error").Inc()
		r.deadLetter(ctx, DirectTopic(channel), env, constants.DLQReasonUnmarshal)
		return
	}

	// Idempotent with the publisher-side write: the sorted set keys entries
	// by member, so replaying the same message at the same rank is a no-op.
	if err := r.history.Append(ctx, channel, msg); err != nil {
		r.logger.ErrorwCtx(ctx, "Failed to append relayed message to history",
			"error", err,
			"channel", channel,
		)
	}

	delivered := false
	for _, s := range r.registry.SessionsFor(channel) {
		if !s.IsOpen() {
			continue
		}
		if err := s.Send([]byte(env.Payload)); err != nil {
			r.logger.WarnwCtx(ctx, "Failed to push message to session",
				"error", err,
				"channel", channel,
				"session_id", s.ID(),
			)
			continue
		}
		delivered = true
	}

	if !delivered {
		if err := r.unread.Increment(ctx, msg.Receiver); err != nil {
			r.logger.ErrorwCtx(ctx, "Failed to increment unread count",
				"error", err,
				"user_id", msg.Receiver,
			)
		}
	}

	metrics.RelayedEnvelopesTotal.WithLabelValues(FamilyDirect.String(), "success").Inc()
}

func (r *Relay) handleNotification(ctx context.Context, userID string, env models.Envelope) {
	var payload models.NotificationPayload
	if err := json.Unmarshal([]byte(env.Payload), &payload); err != nil {
		r.logger.WarnwCtx(ctx, "Dropping notification envelope with malformed payload",
			"error", err,
			"user_id", userID,
		)
		metrics.DroppedEnvelopesTotal.WithLabelValues("unmarshal").Inc()
		metrics.RelayedEnvelopesTotal.WithLabelValues(FamilyNotification.String(), "error").Inc()
		r.deadLetter(ctx, NotificationTopic(userID), env, constants.DLQReasonUnmarshal)
		return
	}

	if r.notifications != nil {
		r.notifications.Dispatch(ctx, userID, payload, env.Payload)
	}

	metrics.RelayedEnvelopesTotal.WithLabelValues(FamilyNotification.String(), "success").Inc()
}

func (r *Relay) handleCommunity(ctx context.Context, region string, env models.Envelope) {
	var msg models.CommunityMessage
	if err := json.Unmarshal([]byte(env.Payload), &msg); err != nil {
		r.logger.WarnwCtx(ctx, "Dropping community envelope with malformed payload",
			"error", err,
			"region", region,
		)
		metrics.DroppedEnvelopesTotal.WithLabelValues("unmarshal").Inc()
		metrics.RelayedEnvelopesTotal.WithLabelValues(FamilyCommunity.String(), "error").Inc()
		r.deadLetter(ctx, CommunityTopic(region), env, constants.DLQReasonUnmarshal)
		return
	}

	sessions := r.registry.SessionsFor(region)

	// Recomputed per delivery; whatever the publisher stamped is discarded.
	open := 0
	for _, s := range sessions {
		if s.IsOpen() {
			open++
		}
	}
	msg.OpenSessionCount = open

	body, err := json.Marshal(msg)
	if err != nil {
		r.logger.ErrorwCtx(ctx, "Failed to marshal community message",
			"error", err,
			"region", region,
		)
		metrics.RelayedEnvelopesTotal.WithLabelValues(FamilyCommunity.String(), "error").Inc()
		return
	}

	for _, s := range sessions {
		if !s.IsOpen() {
			continue
		}
		if err := s.Send(body); err != nil {
			r.logger.WarnwCtx(ctx, "Failed to push community message to session",
				"error", err,
				"region", region,
				"session_id", s.ID(),
			)
		}
	}

	metrics.RelayedEnvelopesTotal.WithLabelValues(FamilyCommunity.String(), "success").Inc()
}

func (r *Relay) archive(ctx context.Context, topic string, env models.Envelope) {
	if r.archiver == nil {
		return
	}
	if err := r.archiver.Archive(ctx, topic, env); err != nil {
		r.logger.WarnwCtx(ctx, "Failed to archive envelope",
			"error", err,
			"topic", topic,
		)
	}
}

func (r *Relay) deadLetter(ctx context.Context, topic string, env models.Envelope, reason string) {
	if r.archiver == nil {
		return
	}
	if err := r.archiver.DeadLetter(ctx, topic, env, reason); err != nil {
		r.logger.WarnwCtx(ctx, "Failed to dead-letter envelope",
			"error", err,
			"topic", topic,
		)
	}
}
