package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-desk/internal/application/assist"
	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/interfaces/http/dto"
)

// AssistHandler 章节点评与助手对话
type AssistHandler struct {
	critique *assist.CritiqueService
	chat     *assist.ChatService
}

// NewAssistHandler 创建助手处理器
func NewAssistHandler(critique *assist.CritiqueService, chat *assist.ChatService) *AssistHandler {
	return &AssistHandler{critique: critique, chat: chat}
}

// Critique 发起章节点评
// @Summary 章节点评
// @Tags Assist
// @Produce json
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Success 202 {object} dto.Response[dto.SessionResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{cid}/critique [post]
func (h *AssistHandler) Critique(c *gin.Context) {
	sess, err := h.critique.Start(c.Request.Context(), dto.BindProjectID(c), dto.BindChapterID(c))
	if err != nil {
		dto.FromError(c, err, "failed to start critique")
		return
	}
	dto.Accepted(c, dto.ToSessionResponse(sess, entity.ModeCritique))
}

// Chat 发送对话消息
// @Summary 助手对话
// @Tags Assist
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.ChatRequest true "消息"
// @Success 202 {object} dto.Response[dto.SessionResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chat [post]
func (h *AssistHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, err := h.chat.Send(c.Request.Context(), dto.BindProjectID(c), req.Message, req.ChapterID)
	if err != nil {
		dto.FromError(c, err, "failed to send chat message")
		return
	}
	dto.Accepted(c, dto.ToSessionResponse(sess, entity.ModeChat))
}

// ChatHistory 对话历史
// @Summary 对话历史
// @Tags Assist
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ChatHistoryResponse]
// @Router /v1/projects/{pid}/chat [get]
func (h *AssistHandler) ChatHistory(c *gin.Context) {
	dto.Success(c, dto.ChatHistoryResponse{Turns: h.chat.History(dto.BindProjectID(c))})
}

// ClearChat 清空对话历史
// @Summary 清空对话历史
// @Tags Assist
// @Param pid path string true "项目 ID"
// @Success 204
// @Router /v1/projects/{pid}/chat [delete]
func (h *AssistHandler) ClearChat(c *gin.Context) {
	h.chat.ClearHistory(dto.BindProjectID(c))
	dto.NoContent(c)
}
