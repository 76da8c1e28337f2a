package dto

import (
	"z-novel-desk/internal/application/editor"
	"z-novel-desk/internal/domain/entity"
)

// EditorStateResponse 打开文档的当前状态
type EditorStateResponse struct {
	ProjectID       string                 `json:"project_id"`
	ChapterID       string                 `json:"chapter_id"`
	Text            string                 `json:"text"`
	Selection       entity.Range           `json:"selection"`
	Cursor          int                    `json:"cursor"`
	Settings        entity.ChapterSettings `json:"settings"`
	Critique        string                 `json:"critique"`
	Busy            bool                   `json:"busy"`
	ActiveSessionID string                 `json:"active_session_id,omitempty"`
}

// ToEditorStateResponse 由打开文档与当前改写会话组装
func ToEditorStateResponse(doc *editor.OpenDocument, busy bool, active *entity.StreamSession) EditorStateResponse {
	resp := EditorStateResponse{
		ProjectID: doc.ProjectID,
		ChapterID: doc.ChapterID,
		Text:      doc.Buffer.Text(),
		Selection: doc.Buffer.Selection(),
		Cursor:    doc.Buffer.Cursor(),
		Settings:  doc.Settings(),
		Critique:  doc.Critique(),
		Busy:      busy,
	}
	if active != nil {
		resp.ActiveSessionID = active.ID
	}
	return resp
}

// OpenEditorRequest 打开文档
type OpenEditorRequest struct {
	Reload bool `json:"reload"`
}

// EditorPatchRequest 编辑操作；各字段按 text -> settings/critique -> selection -> cursor 顺序应用
type EditorPatchRequest struct {
	Text      *string                 `json:"text,omitempty"`
	Settings  *entity.ChapterSettings `json:"settings,omitempty"`
	Critique  *string                 `json:"critique,omitempty"`
	Selection *entity.Range           `json:"selection,omitempty"`
	Cursor    *int                    `json:"cursor,omitempty"`
}

// RewriteRequest 选区改写
type RewriteRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// ReplaceRequest 查找替换
type ReplaceRequest struct {
	Query         string `json:"query" binding:"required"`
	Replacement   string `json:"replacement"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// ReplaceResponse 替换结果
type ReplaceResponse struct {
	Replaced int    `json:"replaced"`
	Text     string `json:"text"`
}

// ChatRequest 对话消息
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	ChapterID string `json:"chapter_id"`
}

// SessionResponse 已受理的助手会话
type SessionResponse struct {
	SessionID string            `json:"session_id"`
	Mode      entity.AssistMode `json:"mode"`
	Ignored   bool              `json:"ignored,omitempty"`
}

// ToSessionResponse 会话为 nil 表示请求被忽略
func ToSessionResponse(sess *entity.StreamSession, mode entity.AssistMode) SessionResponse {
	if sess == nil {
		return SessionResponse{Mode: mode, Ignored: true}
	}
	return SessionResponse{SessionID: sess.ID, Mode: sess.Mode}
}

// ChatHistoryResponse 对话历史
type ChatHistoryResponse struct {
	Turns []entity.ChatTurn `json:"turns"`
}
