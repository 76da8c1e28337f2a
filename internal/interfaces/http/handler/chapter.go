package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-desk/internal/application/document"
	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/domain/repository"
	"z-novel-desk/internal/interfaces/http/dto"
)

// ChapterHandler 章节文件
type ChapterHandler struct {
	store repository.ChapterRepository
}

// NewChapterHandler 创建章节处理器
func NewChapterHandler(store repository.ChapterRepository) *ChapterHandler {
	return &ChapterHandler{store: store}
}

// ListChapters 获取章节列表
// @Summary 获取章节列表
// @Tags Chapters
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ChapterListResponse]
// @Router /v1/projects/{pid}/chapters [get]
func (h *ChapterHandler) ListChapters(c *gin.Context) {
	chapters, err := h.store.ListChapters(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		dto.FromError(c, err, "failed to list chapters")
		return
	}
	dto.Success(c, dto.ChapterListResponse{Chapters: chapters})
}

// CreateChapter 创建章节
// @Summary 创建章节
// @Tags Chapters
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.CreateChapterRequest true "章节信息"
// @Success 201 {object} dto.Response[entity.Chapter]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters [post]
func (h *ChapterHandler) CreateChapter(c *gin.Context) {
	var req dto.CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	raw := ""
	if req.Text != "" {
		raw = document.Serialize(entity.ChapterDocument{Text: req.Text})
	}
	chapter, err := h.store.CreateChapter(c.Request.Context(), dto.BindProjectID(c), req.ID, raw)
	if err != nil {
		dto.FromError(c, err, "failed to create chapter")
		return
	}
	dto.Created(c, chapter)
}

// ReorderChapters 调整章节顺序
// @Summary 调整章节顺序
// @Tags Chapters
// @Accept json
// @Param pid path string true "项目 ID"
// @Param body body dto.ReorderChaptersRequest true "章节 ID 顺序"
// @Success 204
// @Router /v1/projects/{pid}/chapters/order [put]
func (h *ChapterHandler) ReorderChapters(c *gin.Context) {
	var req dto.ReorderChaptersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := h.store.ReorderChapters(c.Request.Context(), dto.BindProjectID(c), req.ChapterIDs); err != nil {
		dto.FromError(c, err, "failed to reorder chapters")
		return
	}
	dto.NoContent(c)
}

// GetChapter 读取并解析章节
// @Summary 获取章节文档
// @Tags Chapters
// @Produce json
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Success 200 {object} dto.Response[dto.ChapterDocumentResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{cid} [get]
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	projectID := dto.BindProjectID(c)
	chapterID := dto.BindChapterID(c)

	raw, err := h.store.ReadChapter(c.Request.Context(), projectID, chapterID)
	if err != nil {
		dto.FromError(c, err, "failed to read chapter")
		return
	}
	doc := document.Parse(raw)
	dto.Success(c, dto.ChapterDocumentResponse{
		ProjectID: projectID,
		ChapterID: chapterID,
		Text:      doc.Text,
		Settings:  doc.Settings,
		Critique:  doc.Critique,
		Tagged:    document.HasTags(raw),
	})
}

// SaveChapter 以三段格式写回章节
// @Summary 保存章节文档
// @Tags Chapters
// @Accept json
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Param body body dto.SaveChapterRequest true "章节文档"
// @Success 204
// @Router /v1/projects/{pid}/chapters/{cid} [put]
func (h *ChapterHandler) SaveChapter(c *gin.Context) {
	var req dto.SaveChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	raw := document.Serialize(req.ToDocument())
	if err := h.store.WriteChapter(c.Request.Context(), dto.BindProjectID(c), dto.BindChapterID(c), raw); err != nil {
		dto.FromError(c, err, "failed to save chapter")
		return
	}
	dto.NoContent(c)
}
