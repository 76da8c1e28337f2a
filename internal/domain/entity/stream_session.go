// Package entity 定义领域实体
package entity

import (
	"strings"
	"sync"
	"time"
)

// AssistMode 助手请求模式
type AssistMode string

const (
	ModeChat     AssistMode = "chat"
	ModeRewrite  AssistMode = "rewrite"
	ModeShorten  AssistMode = "shorten"
	ModeLengthen AssistMode = "lengthen"
	ModeCritique AssistMode = "critique"
)

// ParseAssistMode 解析模式名称
func ParseAssistMode(s string) (AssistMode, bool) {
	m := AssistMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeChat, ModeRewrite, ModeShorten, ModeLengthen, ModeCritique:
		return m, true
	default:
		return m, false
	}
}

// IsRewriteClass rewrite / shorten / lengthen 作用于选区
func (m AssistMode) IsRewriteClass() bool {
	return m == ModeRewrite || m == ModeShorten || m == ModeLengthen
}

// Title 用于错误标记，如 "Rewrite"
func (m AssistMode) Title() string {
	s := string(m)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SessionState 会话状态
type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionRequested SessionState = "requested"
	SessionStreaming SessionState = "streaming"
	SessionCommitted SessionState = "committed"
	SessionFailed    SessionState = "failed"
)

// IsTerminal 是否为终态
func (s SessionState) IsTerminal() bool {
	return s == SessionCommitted || s == SessionFailed
}

// Range 文档中的 rune 区间 [Start, End)
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty 区间是否为空
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Normalize 保证 Start <= End
func (r Range) Normalize() Range {
	if r.End < r.Start {
		return Range{Start: r.End, End: r.Start}
	}
	return r
}

// StreamSession 一次进行中的 AI 请求
// 所有状态读写都经过同一个指针，事件处理不依赖注册时捕获的值。
type StreamSession struct {
	ID          string
	ProjectID   string
	DocumentKey string
	Prompt      string
	Mode        AssistMode
	TargetRange *Range
	CreatedAt   time.Time

	mu          sync.Mutex
	state       SessionState
	accumulated strings.Builder
	failure     string
	finishedAt  time.Time
	done        chan struct{}
}

// NewStreamSession 创建会话，初始状态为 idle
func NewStreamSession(id, projectID, documentKey string, mode AssistMode, prompt string) *StreamSession {
	return &StreamSession{
		ID:          id,
		ProjectID:   projectID,
		DocumentKey: documentKey,
		Prompt:      prompt,
		Mode:        mode,
		CreatedAt:   time.Now(),
		state:       SessionIdle,
		done:        make(chan struct{}),
	}
}

// State 当前状态
func (s *StreamSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MarkRequested idle -> requested
func (s *StreamSession) MarkRequested() bool {
	return s.transition(SessionIdle, SessionRequested)
}

// Append 追加一个分片；首个分片时 requested -> streaming。终态后返回 false
func (s *StreamSession) Append(chunk string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case SessionRequested:
		s.state = SessionStreaming
	case SessionStreaming:
	default:
		return false
	}
	s.accumulated.WriteString(chunk)
	return true
}

// Commit 进入 committed；已是终态时返回 false
func (s *StreamSession) Commit() bool {
	return s.finish(SessionCommitted, "")
}

// Fail 进入 failed；已是终态时返回 false
func (s *StreamSession) Fail(message string) bool {
	return s.finish(SessionFailed, message)
}

// Accumulated 已收到的全部内容
func (s *StreamSession) Accumulated() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated.String()
}

// Failure 失败原因
func (s *StreamSession) Failure() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Duration 会话耗时（未结束时为至今）
func (s *StreamSession) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finishedAt.IsZero() {
		return time.Since(s.CreatedAt)
	}
	return s.finishedAt.Sub(s.CreatedAt)
}

// Done 会话进入终态后关闭
func (s *StreamSession) Done() <-chan struct{} {
	return s.done
}

func (s *StreamSession) transition(from, to SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

func (s *StreamSession) finish(to SessionState, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsTerminal() {
		return false
	}
	s.state = to
	s.failure = message
	s.finishedAt = time.Now()
	close(s.done)
	return true
}
