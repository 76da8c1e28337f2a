package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptRewriteV1  PromptID = "rewrite_v1"
	PromptShortenV1  PromptID = "shorten_v1"
	PromptLengthenV1 PromptID = "lengthen_v1"
	PromptCritiqueV1 PromptID = "critique_v1"
	PromptChatV1     PromptID = "chat_v1"
)

// Registry 缓存已解析的模板。每个模板只有一条 user 消息，整段提示作为单条消息发送。
type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	userPath, err := resolvePromptFile(id)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

// Render 格式化模板并返回提示正文
func (r *Registry) Render(ctx context.Context, id PromptID, vars map[string]any) (string, error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("format prompt %s: %w", id, err)
	}

	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}

func resolvePromptFile(id PromptID) (string, error) {
	switch id {
	case PromptRewriteV1, PromptShortenV1, PromptLengthenV1, PromptCritiqueV1, PromptChatV1:
		return "templates/" + string(id) + ".user.txt", nil
	default:
		return "", fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
