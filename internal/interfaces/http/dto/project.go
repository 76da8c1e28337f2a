package dto

import (
	"strings"

	"z-novel-desk/internal/domain/entity"
)

// ProjectSettingsRequest 保存项目设置；密钥字段为空或为掩码时保留原值
type ProjectSettingsRequest struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Plot         string `json:"plot"`
	Provider     string `json:"provider"`
	APIKey       string `json:"apiKey"`
	GoogleAPIKey string `json:"googleApiKey"`
	XAIAPIKey    string `json:"xaiApiKey"`
	GoogleModel  string `json:"googleModel"`
}

// ApplyTo 合并到已有设置
func (r *ProjectSettingsRequest) ApplyTo(cur *entity.ProjectSettings) *entity.ProjectSettings {
	out := *cur
	out.Title = r.Title
	out.Author = r.Author
	out.Plot = r.Plot
	out.Provider = r.Provider
	out.GoogleModel = r.GoogleModel
	out.APIKey = keepSecret(r.APIKey, cur.APIKey)
	out.GoogleAPIKey = keepSecret(r.GoogleAPIKey, cur.GoogleAPIKey)
	out.XAIAPIKey = keepSecret(r.XAIAPIKey, cur.XAIAPIKey)
	return &out
}

func keepSecret(incoming, current string) string {
	if incoming == "" || strings.Contains(incoming, "****") {
		return current
	}
	return incoming
}

// CreateChapterRequest 新建章节
type CreateChapterRequest struct {
	ID   string `json:"id" binding:"required"`
	Text string `json:"text"`
}

// ReorderChaptersRequest 调整章节顺序
type ReorderChaptersRequest struct {
	ChapterIDs []string `json:"chapter_ids" binding:"required"`
}

// ChapterListResponse 章节列表
type ChapterListResponse struct {
	Chapters []entity.Chapter `json:"chapters"`
}

// ChapterDocumentResponse 解析后的章节文档
type ChapterDocumentResponse struct {
	ProjectID string                 `json:"project_id"`
	ChapterID string                 `json:"chapter_id"`
	Text      string                 `json:"text"`
	Settings  entity.ChapterSettings `json:"settings"`
	Critique  string                 `json:"critique"`
	Tagged    bool                   `json:"tagged"`
}

// SaveChapterRequest 以三段格式保存章节
type SaveChapterRequest struct {
	Text     string                 `json:"text"`
	Settings entity.ChapterSettings `json:"settings"`
	Critique string                 `json:"critique"`
}

// ToDocument 转为领域文档
func (r *SaveChapterRequest) ToDocument() entity.ChapterDocument {
	return entity.ChapterDocument{Text: r.Text, Settings: r.Settings, Critique: r.Critique}
}

// EntityListResponse 世界设定实体列表
type EntityListResponse struct {
	Entities []entity.WorldEntity `json:"entities"`
}

// ExportRequest 导出参数
type ExportRequest struct {
	Name string `json:"name"`
}
