package chain

import (
	"context"
	"fmt"
	"strings"

	wfmodel "z-novel-desk/internal/workflow/model"
	"z-novel-desk/internal/workflow/node"
	workflowprompt "z-novel-desk/internal/workflow/prompt"
)

const chatChapterMaxRunes = 12000

// ChatPrompt 组装对话提示；章节正文过长时只保留末尾部分
func (b *PromptBuilder) ChatPrompt(ctx context.Context, in *wfmodel.ChatPromptInput) (string, error) {
	if in == nil {
		return "", fmt.Errorf("input is nil")
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return "", fmt.Errorf("message is required")
	}

	chapterBlock := ""
	if in.Settings != nil {
		chapterBlock += "\n## Current Chapter Settings\n" + node.BuildChapterSettingsBlock(*in.Settings) + "\n"
	}
	if text := strings.TrimSpace(in.ChapterText); text != "" {
		chapterBlock += optionalBlock("Current Chapter Text", node.TailByRunes(text, chatChapterMaxRunes))
	}

	vars := map[string]any{
		"overview":      node.BuildOverviewBlock(in.Overview),
		"chapter_block": chapterBlock,
		"history":       node.BuildChatHistoryBlock(in.History),
		"message":       message,
	}
	return b.registry.Render(ctx, workflowprompt.PromptChatV1, vars)
}
