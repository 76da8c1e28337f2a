package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-desk/internal/application/export"
	"z-novel-desk/internal/interfaces/http/dto"
)

// ExportHandler 书稿导出
type ExportHandler struct {
	svc *export.Service
}

// NewExportHandler 创建导出处理器
func NewExportHandler(svc *export.Service) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// ExportPDF 导出 PDF 到项目 exports 目录
// @Summary 导出 PDF
// @Tags Export
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.ExportRequest false "文件名"
// @Success 201 {object} dto.Response[export.Result]
// @Router /v1/projects/{pid}/export/pdf [post]
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	var req dto.ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	res, err := h.svc.ExportPDF(c.Request.Context(), dto.BindProjectID(c), req.Name)
	if err != nil {
		dto.FromError(c, err, "failed to export pdf")
		return
	}
	dto.Created(c, res)
}
