package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-desk/internal/application/assist"
	"z-novel-desk/internal/application/editor"
	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/interfaces/http/dto"
	"z-novel-desk/pkg/errors"
)

// EditorHandler 打开文档的编辑与选区改写
type EditorHandler struct {
	workspace *editor.Workspace
	rewrite   *assist.RewriteService
}

// NewEditorHandler 创建编辑器处理器
func NewEditorHandler(workspace *editor.Workspace, rewrite *assist.RewriteService) *EditorHandler {
	return &EditorHandler{workspace: workspace, rewrite: rewrite}
}

func (h *EditorHandler) state(doc *editor.OpenDocument) dto.EditorStateResponse {
	ctrl, err := h.rewrite.Controller(doc.ProjectID, doc.ChapterID)
	if err != nil {
		return dto.ToEditorStateResponse(doc, false, nil)
	}
	return dto.ToEditorStateResponse(doc, ctrl.Busy(), ctrl.Active())
}

// Open 打开章节到编辑器
// @Summary 打开文档
// @Tags Editor
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Param body body dto.OpenEditorRequest false "reload"
// @Success 200 {object} dto.Response[dto.EditorStateResponse]
// @Router /v1/projects/{pid}/chapters/{cid}/editor [post]
func (h *EditorHandler) Open(c *gin.Context) {
	var req dto.OpenEditorRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	doc, err := h.workspace.Open(c.Request.Context(), dto.BindProjectID(c), dto.BindChapterID(c), req.Reload)
	if err != nil {
		dto.FromError(c, err, "failed to open document")
		return
	}
	dto.Success(c, h.state(doc))
}

// State 文档当前状态
// @Summary 文档状态
// @Tags Editor
// @Produce json
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Success 200 {object} dto.Response[dto.EditorStateResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{cid}/editor [get]
func (h *EditorHandler) State(c *gin.Context) {
	doc, err := h.workspace.Get(dto.BindProjectID(c), dto.BindChapterID(c))
	if err != nil {
		dto.FromError(c, err, "failed to get document")
		return
	}
	dto.Success(c, h.state(doc))
}

// Patch 修改正文、设置、选区或光标
// @Summary 编辑文档
// @Tags Editor
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Param body body dto.EditorPatchRequest true "编辑操作"
// @Success 200 {object} dto.Response[dto.EditorStateResponse]
// @Router /v1/projects/{pid}/chapters/{cid}/editor [patch]
func (h *EditorHandler) Patch(c *gin.Context) {
	doc, err := h.workspace.Get(dto.BindProjectID(c), dto.BindChapterID(c))
	if err != nil {
		dto.FromError(c, err, "failed to get document")
		return
	}

	var req dto.EditorPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.Text != nil {
		doc.Buffer.SetText(*req.Text)
	}
	if req.Settings != nil {
		doc.SetSettings(*req.Settings)
	}
	if req.Critique != nil {
		doc.SetCritique(*req.Critique)
	}
	if req.Selection != nil {
		doc.Buffer.SetSelection(*req.Selection)
	}
	if req.Cursor != nil {
		doc.Buffer.SetCursor(*req.Cursor)
	}
	dto.Success(c, h.state(doc))
}

// Rewrite 对当前选区发起 rewrite / shorten / lengthen
// @Summary 选区改写
// @Tags Editor
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Param body body dto.RewriteRequest true "模式"
// @Success 202 {object} dto.Response[dto.SessionResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{cid}/editor/rewrite [post]
func (h *EditorHandler) Rewrite(c *gin.Context) {
	var req dto.RewriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	mode, ok := entity.ParseAssistMode(req.Mode)
	if !ok || !mode.IsRewriteClass() {
		dto.FromError(c, errors.ErrInvalidParam.WithDetail("mode must be rewrite, shorten or lengthen"), "invalid mode")
		return
	}

	sess, err := h.rewrite.Start(c.Request.Context(), dto.BindProjectID(c), dto.BindChapterID(c), mode)
	if err != nil {
		dto.FromError(c, err, "failed to start rewrite")
		return
	}
	dto.Accepted(c, dto.ToSessionResponse(sess, mode))
}

// Save 把打开文档写回章节文件
// @Summary 保存文档
// @Tags Editor
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Success 204
// @Router /v1/projects/{pid}/chapters/{cid}/editor/save [post]
func (h *EditorHandler) Save(c *gin.Context) {
	if err := h.workspace.Save(c.Request.Context(), dto.BindProjectID(c), dto.BindChapterID(c)); err != nil {
		dto.FromError(c, err, "failed to save document")
		return
	}
	dto.NoContent(c)
}

// Replace 全文查找替换
// @Summary 查找替换
// @Tags Editor
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param cid path string true "章节 ID"
// @Param body body dto.ReplaceRequest true "查找替换"
// @Success 200 {object} dto.Response[dto.ReplaceResponse]
// @Router /v1/projects/{pid}/chapters/{cid}/editor/replace [post]
func (h *EditorHandler) Replace(c *gin.Context) {
	doc, err := h.workspace.Get(dto.BindProjectID(c), dto.BindChapterID(c))
	if err != nil {
		dto.FromError(c, err, "failed to get document")
		return
	}

	var req dto.ReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	n := doc.Buffer.ReplaceAll(req.Query, req.Replacement, req.CaseSensitive)
	dto.Success(c, dto.ReplaceResponse{Replaced: n, Text: doc.Buffer.Text()})
}
