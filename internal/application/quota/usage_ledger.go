package quota

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"z-novel-desk/internal/domain/service"
)

// ModelUsage 单个模型的累计用量
type ModelUsage struct {
	Calls            int64 `json:"calls"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// ProjectUsage 项目累计用量
type ProjectUsage struct {
	ProjectID        string                `json:"project_id"`
	Calls            int64                 `json:"calls"`
	PromptTokens     int64                 `json:"prompt_tokens"`
	CompletionTokens int64                 `json:"completion_tokens"`
	TodayTokens      int64                 `json:"today_tokens"`
	ByModel          map[string]ModelUsage `json:"by_model"`
	ByWorkflow       map[string]ModelUsage `json:"by_workflow"`
	LastUsedAt       time.Time             `json:"last_used_at,omitempty"`
}

type projectLedger struct {
	total      ModelUsage
	byModel    map[string]ModelUsage
	byWorkflow map[string]ModelUsage
	daily      map[string]int64
	lastUsedAt time.Time
}

// UsageLedger 进程内按项目记录 LLM 用量，实现 service.LLMUsageRecorder
type UsageLedger struct {
	mu       sync.Mutex
	projects map[string]*projectLedger
	now      func() time.Time
}

var _ service.LLMUsageRecorder = (*UsageLedger)(nil)

// NewUsageLedger 创建用量账本
func NewUsageLedger() *UsageLedger {
	return &UsageLedger{
		projects: make(map[string]*projectLedger),
		now:      time.Now,
	}
}

// Record 记录一次调用；没有项目归属的调用忽略
func (l *UsageLedger) Record(_ context.Context, in service.LLMUsageInput) error {
	if l == nil {
		return nil
	}
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return nil
	}
	if in.PromptTokens < 0 || in.CompletionTokens < 0 {
		return fmt.Errorf("invalid token usage")
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.projects[projectID]
	if !ok {
		p = &projectLedger{
			byModel:    make(map[string]ModelUsage),
			byWorkflow: make(map[string]ModelUsage),
			daily:      make(map[string]int64),
		}
		l.projects[projectID] = p
	}

	add := func(u ModelUsage) ModelUsage {
		u.Calls++
		u.PromptTokens += int64(in.PromptTokens)
		u.CompletionTokens += int64(in.CompletionTokens)
		return u
	}
	p.total = add(p.total)
	p.byModel[strings.TrimSpace(in.Model)] = add(p.byModel[strings.TrimSpace(in.Model)])
	p.byWorkflow[strings.TrimSpace(in.Workflow)] = add(p.byWorkflow[strings.TrimSpace(in.Workflow)])
	p.daily[dayKey(now)] += int64(in.PromptTokens + in.CompletionTokens)
	p.lastUsedAt = now
	return nil
}

// Usage 项目用量快照
func (l *UsageLedger) Usage(projectID string) ProjectUsage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := ProjectUsage{
		ProjectID:  projectID,
		ByModel:    map[string]ModelUsage{},
		ByWorkflow: map[string]ModelUsage{},
	}
	p, ok := l.projects[projectID]
	if !ok {
		return out
	}
	out.Calls = p.total.Calls
	out.PromptTokens = p.total.PromptTokens
	out.CompletionTokens = p.total.CompletionTokens
	out.TodayTokens = p.daily[dayKey(l.now())]
	out.LastUsedAt = p.lastUsedAt
	for k, v := range p.byModel {
		out.ByModel[k] = v
	}
	for k, v := range p.byWorkflow {
		out.ByWorkflow[k] = v
	}
	return out
}

// TokensOn 项目在某个 UTC 日的 Token 总量
func (l *UsageLedger) TokensOn(projectID string, day time.Time) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.projects[projectID]; ok {
		return p.daily[dayKey(day)]
	}
	return 0
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
