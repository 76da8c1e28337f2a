package assist

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"z-novel-desk/internal/application/editor"
	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/infrastructure/messaging"
	"z-novel-desk/internal/infrastructure/persistence/fs"
	"z-novel-desk/internal/infrastructure/persistence/memory"
	"z-novel-desk/internal/workflow/chain"
)

const testChapter = `<text>The cat sat on the mat.</text>
<settings>{"summary":"A quiet morning","ageOffset":"","style":"wry, short sentences"}</settings>
<critique></critique>`

type harness struct {
	store     *fs.Store
	bus       *messaging.MemoryBus
	locker    *memory.Locker
	workspace *editor.Workspace
	resolver  *fakeResolver
	rt        *Runtime
}

func newHarness(t *testing.T, m *fakeChatModel) *harness {
	t.Helper()
	ctx := context.Background()

	store := fs.NewStoreWithFs(afero.NewMemMapFs())
	require.NoError(t, store.SaveSettings(ctx, "p1", &entity.ProjectSettings{
		Title:          "Night Rain",
		Author:         "A. Writer",
		Plot:           "A detective story",
		ProviderConfig: entity.ProviderConfig{Provider: "openai", APIKey: "sk-test"},
	}))
	_, err := store.CreateChapter(ctx, "p1", "c1", testChapter)
	require.NoError(t, err)

	cfg := &config.Config{
		Assistant: config.AssistantConfig{FocusRelease: 10 * time.Millisecond, ChatHistoryTurns: 2},
	}
	h := &harness{
		store:     store,
		bus:       messaging.NewMemoryBus(time.Minute),
		locker:    memory.NewLocker(),
		workspace: editor.NewWorkspace(store),
		resolver:  &fakeResolver{model: m},
	}
	h.rt = NewRuntime(cfg, store, h.workspace, h.resolver, chain.NewPromptBuilder(), NewDispatcher(cfg), h.bus, h.locker, nil)
	return h
}

// openDoc 打开 p1/c1 并选中 [start, end)
func (h *harness) openDoc(t *testing.T, start, end int) *editor.OpenDocument {
	t.Helper()
	doc, err := h.workspace.Open(context.Background(), "p1", "c1", false)
	require.NoError(t, err)
	doc.Buffer.SetSelection(entity.Range{Start: start, End: end})
	return doc
}

// collectEvents 读取会话事件直到 closed
func collectEvents(t *testing.T, h *harness, sessionID string) []*entity.AssistEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := h.bus.Subscribe(ctx, sessionID)
	require.NoError(t, err)

	var out []*entity.AssistEvent
	for evt := range ch {
		out = append(out, evt)
		if evt.Kind == entity.EventClosed {
			return out
		}
	}
	t.Fatalf("session %s did not close", sessionID)
	return nil
}

func kinds(events []*entity.AssistEvent) []entity.EventKind {
	out := make([]entity.EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}
