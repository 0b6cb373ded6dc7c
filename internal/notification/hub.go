package notification

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatrelay/internal/constants"
	"chatrelay/internal/logger"
	"chatrelay/pkg/errors"
)

// Hub fans notifications out to SSE streams. Delivery is non-blocking: a
// stream that cannot keep up misses events rather than stalling the
// dispatcher; the persisted log is the catch-up path.
type Hub struct {
	logger logger.Logger

	mu      sync.RWMutex
	streams map[string]map[string]chan string
}

// StreamSubscriptions attaches the user's notification topic when a stream
// opens.
type StreamSubscriptions interface {
	SubscribeNotifications(ctx context.Context, userID string) error
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		logger:  log,
		streams: make(map[string]map[string]chan string),
	}
}

// TryDeliver pushes raw to every open stream for the user. Returns the
// number of streams that accepted the event.
func (h *Hub) TryDeliver(userID, raw string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.streams[userID] {
		select {
		case ch <- raw:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) attach(userID string) (string, chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	streams, ok := h.streams[userID]
	if !ok {
		streams = make(map[string]chan string)
		h.streams[userID] = streams
	}
	id := uuid.NewString()
	ch := make(chan string, 16)
	streams[id] = ch
	return id, ch
}

func (h *Hub) detach(userID, streamID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if streams, ok := h.streams[userID]; ok {
		delete(streams, streamID)
		if len(streams) == 0 {
			delete(h.streams, userID)
		}
	}
}

// StreamCount reports the number of open streams across all users.
func (h *Hub) StreamCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, streams := range h.streams {
		total += len(streams)
	}
	return total
}

type Handler struct {
	hub    *Hub
	subs   StreamSubscriptions
	logger logger.Logger
}

func NewHandler(hub *Hub, subs StreamSubscriptions, log logger.Logger) *Handler {
	return &Handler{hub: hub, subs: subs, logger: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/notifications/:userId/stream", h.Stream)
	}
}

// Stream godoc
// @Summary      Stream notifications
// @Description  Server-sent event stream of the user's notifications
// @Tags         notifications
// @Produce      text/event-stream
// @Param        userId  path  string  true  "User ID"
// @Success      200
// @Router       /notifications/{userId}/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
			errors.ErrValidation.WithDetail("message", "user id is required")))
		return
	}

	if err := h.subs.SubscribeNotifications(c.Request.Context(), userID); err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Failed to attach notification topic",
			"error", err,
			"user_id", userID,
		)
	}

	streamID, ch := h.hub.attach(userID)
	defer h.hub.detach(userID, streamID)

	h.logger.InfowCtx(c.Request.Context(), "Notification stream opened",
		"user_id", userID,
		"stream_id", streamID,
	)

	c.Stream(func(w io.Writer) bool {
		select {
		case raw, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(constants.NotificationEvent, raw)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
