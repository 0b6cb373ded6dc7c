package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatrelay/internal/logger"
	"chatrelay/pkg/errors"
	"chatrelay/pkg/models"
)

type BaseHandler struct {
	Service *Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		chat := v1.Group("/chat")
		{
			chat.POST("/messages", h.SendDirect)
			chat.GET("/channels", h.ListChannels)
			chat.GET("/channels/:channel/history", h.GetHistory)
			chat.DELETE("/channels/:channel", h.DeleteChannel)
			chat.GET("/unread/:userId", h.GetUnread)
			chat.POST("/unread/:userId/reset", h.ResetUnread)
		}

		community := v1.Group("/community")
		{
			community.POST("/:region/messages", h.SendCommunity)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.POST("/:userId", h.SendNotification)
			notifications.GET("/:userId/recent", h.GetRecentNotifications)
		}
	}
}

// SendDirect godoc
// @Summary      Send a direct message
// @Description  Publish a direct message to the receiver's channel
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        message  body      models.ChatMessage  true  "Message to send"
// @Success      202      {object}  map[string]string
// @Failure      400      {object}  map[string]interface{}
// @Router       /chat/messages [post]
func (h *Handler) SendDirect(c *gin.Context) {
	var msg models.ChatMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	if err := h.Service.SendDirect(c.Request.Context(), msg); err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"channel": DirectChannel(msg.Sender, msg.Receiver),
	})
}

// SendCommunity godoc
// @Summary      Send a community broadcast
// @Description  Publish a message to every open session in the region
// @Tags         community
// @Accept       json
// @Produce      json
// @Param        region   path      string                   true  "Region"
// @Param        message  body      models.CommunityMessage  true  "Message to send"
// @Success      202      {object}  map[string]string
// @Failure      400      {object}  map[string]interface{}
// @Router       /community/{region}/messages [post]
func (h *Handler) SendCommunity(c *gin.Context) {
	var msg models.CommunityMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}
	msg.Region = c.Param("region")

	if err := h.Service.SendCommunity(c.Request.Context(), msg); err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"region": msg.Region})
}

// SendNotification godoc
// @Summary      Send a notification
// @Description  Publish a notification to the user's topic
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        userId        path      string                      true  "User ID"
// @Param        notification  body      models.NotificationPayload  true  "Notification body"
// @Success      202           {object}  map[string]string
// @Failure      400           {object}  map[string]interface{}
// @Router       /notifications/{userId} [post]
func (h *Handler) SendNotification(c *gin.Context) {
	var payload models.NotificationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	userID := c.Param("userId")
	if err := h.Service.Notify(c.Request.Context(), userID, payload.Message, payload.URL); err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"userId": userID})
}

// GetHistory godoc
// @Summary      Read channel history
// @Description  Read the bounded backlog of a channel as the viewer sees it
// @Tags         chat
// @Produce      json
// @Param        channel  path      string  true  "Channel identifier"
// @Param        viewer   query     string  true  "Viewing user ID"
// @Success      200      {array}   models.ChatMessage
// @Failure      400      {object}  map[string]interface{}
// @Router       /chat/channels/{channel}/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	channel := c.Param("channel")
	viewer := c.Query("viewer")

	messages, err := h.Service.History(c.Request.Context(), channel, viewer)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// DeleteChannel godoc
// @Summary      Hide a channel
// @Description  Conceal the whole channel backlog from one participant
// @Tags         chat
// @Produce      json
// @Param        channel  path   string  true  "Channel identifier"
// @Param        user     query  string  true  "User ID"
// @Success      204      "No Content"
// @Failure      400      {object}  map[string]interface{}
// @Router       /chat/channels/{channel} [delete]
func (h *Handler) DeleteChannel(c *gin.Context) {
	channel := c.Param("channel")
	userID := c.Query("user")

	if err := h.Service.DeleteChannel(c.Request.Context(), channel, userID); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetUnread godoc
// @Summary      Read unread count
// @Tags         chat
// @Produce      json
// @Param        userId  path      string  true  "User ID"
// @Success      200     {object}  map[string]int64
// @Router       /chat/unread/{userId} [get]
func (h *Handler) GetUnread(c *gin.Context) {
	userID := c.Param("userId")

	count, err := h.Service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "unread": count})
}

// ResetUnread godoc
// @Summary      Reset unread count
// @Tags         chat
// @Produce      json
// @Param        userId  path  string  true  "User ID"
// @Success      204     "No Content"
// @Router       /chat/unread/{userId}/reset [post]
func (h *Handler) ResetUnread(c *gin.Context) {
	userID := c.Param("userId")

	if err := h.Service.MarkRead(c.Request.Context(), userID); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListChannels godoc
// @Summary      List live channels for a user
// @Tags         chat
// @Produce      json
// @Param        user  query     string  true  "User ID"
// @Success      200   {array}   string
// @Router       /chat/channels [get]
func (h *Handler) ListChannels(c *gin.Context) {
	userID := c.Query("user")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithDetail("message", "user query parameter is required")))
		return
	}
	c.JSON(http.StatusOK, h.Service.ChannelsFor(userID))
}

// GetRecentNotifications godoc
// @Summary      Read recent notifications
// @Tags         notifications
// @Produce      json
// @Param        userId  path      string  true   "User ID"
// @Param        limit   query     int     false  "Maximum records to return"  default(20)
// @Success      200     {array}   models.NotificationRecord
// @Router       /notifications/{userId}/recent [get]
func (h *Handler) GetRecentNotifications(c *gin.Context) {
	userID := c.Param("userId")

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	records, err := h.Service.RecentNotifications(c.Request.Context(), userID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
