package notification

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"chatrelay/internal/constants"
	"chatrelay/internal/logger"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/models"
)

type job struct {
	userID  string
	payload models.NotificationPayload
	raw     string
}

// Dispatcher decouples the relay from notification delivery. The relay
// enqueues and moves on; workers push to live streams and persist to the
// log. A full queue drops the live push, never the relay.
type Dispatcher struct {
	hub     *Hub
	log     Log
	logger  logger.Logger
	jobs    chan job
	workers int
}

func NewDispatcher(hub *Hub, log Log, queueSize, workers int, logg logger.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = constants.DefaultNotificationQueue
	}
	if workers <= 0 {
		workers = constants.DefaultNotificationWorkers
	}
	return &Dispatcher{
		hub:     hub,
		log:     log,
		logger:  logg,
		jobs:    make(chan job, queueSize),
		workers: workers,
	}
}

// Dispatch enqueues without blocking. Implements the relay's sink.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, payload models.NotificationPayload, raw string) {
	select {
	case d.jobs <- job{userID: userID, payload: payload, raw: raw}:
		metrics.SetNotificationQueueSize(len(d.jobs))
	default:
		metrics.NotificationDispatchTotal.WithLabelValues("queue_full").Inc()
		d.logger.WarnwCtx(ctx, "Notification queue full, dropping live dispatch",
			"user_id", userID,
		)
	}
}

// Run blocks until ctx is canceled and the queue is drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			d.worker(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued before stopping.
			for {
				select {
				case j := <-d.jobs:
					d.deliver(context.Background(), j)
				default:
					return
				}
			}
		case j := <-d.jobs:
			d.deliver(ctx, j)
			metrics.SetNotificationQueueSize(len(d.jobs))
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	delivered := d.hub.TryDeliver(j.userID, j.raw)
	if delivered > 0 {
		metrics.NotificationDispatchTotal.WithLabelValues("delivered").Inc()
	} else {
		metrics.NotificationDispatchTotal.WithLabelValues("no_stream").Inc()
	}

	if d.log == nil {
		return
	}

	logCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := d.log.Append(logCtx, models.NotificationRecord{
		UserID:    j.userID,
		Message:   j.payload.Message,
		URL:       j.payload.URL,
		CreatedAt: time.Now(),
	})
	if err != nil {
		metrics.NotificationDispatchTotal.WithLabelValues("log_error").Inc()
		d.logger.ErrorwCtx(ctx, "Failed to persist notification",
			"error", err,
			"user_id", j.userID,
		)
	}
}
