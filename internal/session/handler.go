package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatrelay/internal/chat"
	"chatrelay/internal/logger"
	"chatrelay/pkg/errors"
	"chatrelay/pkg/logging"
)

// Command is a client-to-server frame. Clients join channels after
// connecting; everything server-to-client is pushed by the relay.
type Command struct {
	Action string `json:"action"`
	Kind   string `json:"kind"`
	Peer   string `json:"peer"`
	Region string `json:"region"`
}

// Subscriptions is the slice of the subscription manager the session layer
// needs.
type Subscriptions interface {
	SubscribeDirect(ctx context.Context, a, b string) error
	SubscribeCommunity(ctx context.Context, region string) error
	SubscribeNotifications(ctx context.Context, userID string) error
}

type Handler struct {
	registry *chat.Registry
	subs     Subscriptions
	upgrader websocket.Upgrader
	logger   logger.Logger
}

func NewHandler(registry *chat.Registry, subs Subscriptions, log logger.Logger) *Handler {
	return &Handler{
		registry: registry,
		subs:     subs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws", h.Serve)
}

// Serve upgrades the connection and runs the read loop until the client
// goes away. The user's notification topic is attached eagerly; chat and
// community channels attach on explicit subscribe commands.
func (h *Handler) Serve(c *gin.Context) {
	userID := c.Query("user")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
			errors.ErrValidation.WithDetail("message", "user query parameter is required")))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WarnwCtx(c.Request.Context(), "WebSocket upgrade failed",
			"error", err,
			"user_id", userID,
		)
		return
	}

	s := newSession(userID, conn, h.logger)
	ctx := logging.WithSessionID(c.Request.Context(), s.id)

	if err := h.subs.SubscribeNotifications(ctx, userID); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to attach notification topic",
			"error", err,
			"user_id", userID,
		)
	}

	h.logger.InfowCtx(ctx, "Session opened",
		"user_id", userID,
	)

	go h.keepalive(s)
	h.readLoop(ctx, s)

	h.registry.RemoveSession(s.id)
	s.close()
	h.logger.InfowCtx(ctx, "Session closed",
		"user_id", userID,
	)
}

func (h *Handler) readLoop(ctx context.Context, s *Session) {
	s.conn.SetReadLimit(maxCommandSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WarnwCtx(ctx, "Session read failed",
					"error", err,
				)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.logger.WarnwCtx(ctx, "Ignoring malformed command",
				"error", err,
			)
			continue
		}
		h.handleCommand(ctx, s, cmd)
	}
}

func (h *Handler) handleCommand(ctx context.Context, s *Session, cmd Command) {
	if cmd.Action != "subscribe" {
		h.logger.WarnwCtx(ctx, "Ignoring unknown command action",
			"action", cmd.Action,
		)
		return
	}

	switch cmd.Kind {
	case "direct":
		if cmd.Peer == "" {
			return
		}
		channel := chat.DirectChannel(s.principal, cmd.Peer)
		if err := h.subs.SubscribeDirect(ctx, s.principal, cmd.Peer); err != nil {
			h.logger.ErrorwCtx(ctx, "Failed to attach direct topic",
				"error", err,
				"channel", channel,
			)
			return
		}
		h.registry.Add(channel, s)
	case "community":
		if cmd.Region == "" {
			return
		}
		if err := h.subs.SubscribeCommunity(ctx, cmd.Region); err != nil {
			h.logger.ErrorwCtx(ctx, "Failed to attach community topic",
				"error", err,
				"region", cmd.Region,
			)
			return
		}
		h.registry.Add(cmd.Region, s)
	default:
		h.logger.WarnwCtx(ctx, "Ignoring unknown subscription kind",
			"kind", cmd.Kind,
		)
	}
}

func (h *Handler) keepalive(s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := s.ping(); err != nil {
			return
		}
	}
}
