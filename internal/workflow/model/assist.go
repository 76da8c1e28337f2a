package model

import "z-novel-desk/internal/domain/entity"

// RewritePromptInput 选区改写（rewrite / shorten / lengthen）
type RewritePromptInput struct {
	Mode         entity.AssistMode
	StyleNotes   string
	World        []entity.WorldEntity
	FullText     string
	SelectedText string
}

// CritiquePromptInput 章节点评
type CritiquePromptInput struct {
	Overview    ProjectOverview
	Settings    entity.ChapterSettings
	World       []entity.WorldEntity
	ChapterText string
}

// ChatPromptInput 助手对话
type ChatPromptInput struct {
	Overview    ProjectOverview
	Settings    *entity.ChapterSettings
	ChapterText string
	History     []entity.ChatTurn
	Message     string
}
