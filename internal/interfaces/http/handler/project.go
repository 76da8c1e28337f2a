// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-desk/internal/application/quota"
	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/domain/repository"
	"z-novel-desk/internal/interfaces/http/dto"
)

// ProjectHandler 项目设置、世界设定与用量
type ProjectHandler struct {
	store  repository.ProjectStore
	ledger *quota.UsageLedger
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(store repository.ProjectStore, ledger *quota.UsageLedger) *ProjectHandler {
	return &ProjectHandler{store: store, ledger: ledger}
}

// GetSettings 获取项目设置（密钥掩码）
// @Summary 获取项目设置
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[entity.ProjectSettings]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/settings [get]
func (h *ProjectHandler) GetSettings(c *gin.Context) {
	settings, err := h.store.LoadSettings(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		dto.FromError(c, err, "failed to load settings")
		return
	}
	dto.Success(c, settings.Masked())
}

// UpdateSettings 保存项目设置
// @Summary 保存项目设置
// @Tags Projects
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.ProjectSettingsRequest true "项目设置"
// @Success 200 {object} dto.Response[entity.ProjectSettings]
// @Router /v1/projects/{pid}/settings [put]
func (h *ProjectHandler) UpdateSettings(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	var req dto.ProjectSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	cur, err := h.store.LoadSettings(ctx, projectID)
	if err != nil {
		dto.FromError(c, err, "failed to load settings")
		return
	}
	next := req.ApplyTo(cur)
	if err := h.store.SaveSettings(ctx, projectID, next); err != nil {
		dto.FromError(c, err, "failed to save settings")
		return
	}
	dto.Success(c, next.Masked())
}

// ListEntities 列出世界设定实体，可用 ?kind= 过滤
// @Summary 世界设定实体
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Param kind query string false "character | place | object"
// @Success 200 {object} dto.Response[dto.EntityListResponse]
// @Router /v1/projects/{pid}/entities [get]
func (h *ProjectHandler) ListEntities(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	kinds := entity.WorldEntityKinds
	if k := c.Query("kind"); k != "" {
		kind := entity.WorldEntityKind(k)
		if kind != entity.KindCharacter && kind != entity.KindPlace && kind != entity.KindObject {
			dto.BadRequest(c, "unknown entity kind: "+k)
			return
		}
		kinds = []entity.WorldEntityKind{kind}
	}

	out := make([]entity.WorldEntity, 0)
	for _, kind := range kinds {
		items, err := h.store.ListEntities(ctx, projectID, kind)
		if err != nil {
			dto.FromError(c, err, "failed to list entities")
			return
		}
		out = append(out, items...)
	}
	dto.Success(c, dto.EntityListResponse{Entities: out})
}

// Usage 项目 LLM 用量
// @Summary 项目 LLM 用量
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[quota.ProjectUsage]
// @Router /v1/projects/{pid}/usage [get]
func (h *ProjectHandler) Usage(c *gin.Context) {
	dto.Success(c, h.ledger.Usage(dto.BindProjectID(c)))
}
