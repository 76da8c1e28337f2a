package chain

import (
	"context"
	"fmt"
	"strings"

	"z-novel-desk/internal/domain/entity"
	wfmodel "z-novel-desk/internal/workflow/model"
	"z-novel-desk/internal/workflow/node"
	workflowprompt "z-novel-desk/internal/workflow/prompt"
)

// RewritePrompt 组装选区改写提示
func (b *PromptBuilder) RewritePrompt(ctx context.Context, in *wfmodel.RewritePromptInput) (string, error) {
	if in == nil {
		return "", fmt.Errorf("input is nil")
	}
	id, err := rewritePromptID(in.Mode)
	if err != nil {
		return "", err
	}
	if in.SelectedText == "" {
		return "", fmt.Errorf("selected text is required")
	}

	vars := map[string]any{
		"style_block":   optionalBlock("Style Notes", in.StyleNotes),
		"world_block":   optionalWorldBlock(in.World),
		"full_text":     in.FullText,
		"selected_text": in.SelectedText,
	}
	return b.registry.Render(ctx, id, vars)
}

func rewritePromptID(mode entity.AssistMode) (workflowprompt.PromptID, error) {
	switch mode {
	case entity.ModeRewrite:
		return workflowprompt.PromptRewriteV1, nil
	case entity.ModeShorten:
		return workflowprompt.PromptShortenV1, nil
	case entity.ModeLengthen:
		return workflowprompt.PromptLengthenV1, nil
	default:
		return "", fmt.Errorf("mode %q is not a rewrite mode", mode)
	}
}

// optionalBlock 内容为空时整块省略
func optionalBlock(title, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	return "\n## " + title + "\n" + body + "\n"
}

func optionalWorldBlock(entities []entity.WorldEntity) string {
	if len(entities) == 0 {
		return ""
	}
	return optionalBlock("World Context", node.BuildWorldContextBlock(entities))
}
