package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/domain/service"
	"z-novel-desk/internal/interfaces/http/dto"
	"z-novel-desk/pkg/logger"
)

// SessionHandler 助手会话事件流
type SessionHandler struct {
	bus service.EventBus
}

// NewSessionHandler 创建会话事件处理器
func NewSessionHandler(bus service.EventBus) *SessionHandler {
	return &SessionHandler{bus: bus}
}

// Events 以 SSE 推送会话事件：先重放已有事件，再跟随直到 closed
// @Summary 会话事件流
// @Tags Sessions
// @Produce text/event-stream
// @Param sid path string true "会话 ID"
// @Success 200 "SSE stream"
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/events [get]
func (h *SessionHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := dto.BindSessionID(c)

	events, err := h.bus.Subscribe(ctx, sessionID)
	if err != nil {
		dto.FromError(c, err, "failed to subscribe session")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(evt.Kind), evt)
			return evt.Kind != entity.EventClosed

		case <-ctx.Done():
			logger.Debug(ctx, "event stream client disconnected", "session_id", sessionID)
			return false
		}
	})
}
