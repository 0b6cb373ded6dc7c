package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"chatrelay/internal/config"
	"chatrelay/internal/constants"
	"chatrelay/internal/logger"
	apperrors "chatrelay/pkg/errors"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/models"
	"chatrelay/pkg/tracing"
)

// Archiver records every relayed envelope on a Kafka topic for offline storage
// and puts undeliverable envelopes on a dead letter topic. Writes are async;
// an archive failure never blocks or fails the relay path.
type Archiver struct {
	writer   *kafka.Writer
	topic    string
	dlqTopic string
	logger   logger.Logger
}

func NewArchiver(cfg config.KafkaConfig, log logger.Logger) *Archiver {
	a := &Archiver{
		topic:    cfg.ArchiveTopic,
		dlqTopic: cfg.DLQTopic,
		logger:   log,
	}
	a.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Errorw("Async kafka write failed",
					"error", err,
					"messages", len(messages),
				)
			}
		},
	}
	return a
}

func (a *Archiver) Archive(ctx context.Context, sourceTopic string, env models.Envelope) error {
	if a.topic == "" {
		return nil
	}
	if err := a.write(ctx, a.topic, sourceTopic, env, nil); err != nil {
		return err
	}
	metrics.ArchivedEnvelopesTotal.WithLabelValues(sourceTopic).Inc()
	return nil
}

// DeadLetter forwards an envelope that could not be relayed, tagging it with
// the failure reason in the message headers.
func (a *Archiver) DeadLetter(ctx context.Context, sourceTopic string, env models.Envelope, reason string) error {
	if a.dlqTopic == "" {
		return nil
	}
	headers := []kafka.Header{
		{Key: "dlq_reason", Value: []byte(reason)},
		{Key: "dlq_source_topic", Value: []byte(sourceTopic)},
	}
	if err := a.write(ctx, a.dlqTopic, sourceTopic, env, headers); err != nil {
		return err
	}
	metrics.DLQMessagesTotal.WithLabelValues(reason).Inc()
	a.logger.InfowCtx(ctx, "Envelope sent to DLQ",
		"source_topic", sourceTopic,
		"dlq_topic", a.dlqTopic,
		"reason", reason,
	)
	return nil
}

func (a *Archiver) write(ctx context.Context, topic, sourceTopic string, env models.Envelope, headers []kafka.Header) error {
	body, err := json.Marshal(env)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal)
	}

	headers = tracing.InjectTraceContext(ctx, headers)

	err = a.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     []byte(env.Channel),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrServiceUnavailable).
			WithDetail("topic", topic).
			WithDetail("source_topic", sourceTopic)
	}
	return nil
}

func (a *Archiver) Close() error {
	return a.writer.Close()
}
