package chain

import (
	"context"
	"fmt"
	"strings"

	wfmodel "z-novel-desk/internal/workflow/model"
	"z-novel-desk/internal/workflow/node"
	workflowprompt "z-novel-desk/internal/workflow/prompt"
)

// CritiquePrompt 组装章节点评提示：评审要点、项目概览、章节设置、世界设定、正文
func (b *PromptBuilder) CritiquePrompt(ctx context.Context, in *wfmodel.CritiquePromptInput) (string, error) {
	if in == nil {
		return "", fmt.Errorf("input is nil")
	}

	text := strings.TrimSpace(in.ChapterText)
	if text == "" {
		text = "(empty chapter)"
	}

	vars := map[string]any{
		"overview":         node.BuildOverviewBlock(in.Overview),
		"chapter_settings": node.BuildChapterSettingsBlock(in.Settings),
		"world_context":    node.BuildWorldContextBlock(in.World),
		"chapter_text":     text,
	}
	return b.registry.Render(ctx, workflowprompt.PromptCritiqueV1, vars)
}
