package model

import "z-novel-desk/internal/domain/entity"

// ProjectOverview 项目概览（标题 / 作者 / 情节）
type ProjectOverview struct {
	Title  string
	Author string
	Plot   string
}

// OverviewFromSettings 从项目设置提取概览
func OverviewFromSettings(s *entity.ProjectSettings) ProjectOverview {
	if s == nil {
		return ProjectOverview{}
	}
	return ProjectOverview{Title: s.Title, Author: s.Author, Plot: s.Plot}
}

// LLMUsageMeta 一次调用的用量
type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
}
