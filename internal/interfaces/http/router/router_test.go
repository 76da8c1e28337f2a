package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-desk/internal/application/assist"
	"z-novel-desk/internal/application/editor"
	"z-novel-desk/internal/application/export"
	"z-novel-desk/internal/application/quota"
	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/entity"
	pdfexport "z-novel-desk/internal/infrastructure/export"
	"z-novel-desk/internal/infrastructure/messaging"
	"z-novel-desk/internal/infrastructure/persistence/fs"
	"z-novel-desk/internal/infrastructure/persistence/memory"
	"z-novel-desk/internal/interfaces/http/handler"
	"z-novel-desk/internal/workflow/chain"
	"z-novel-desk/internal/workflow/port"
)

type streamModel struct {
	chunks []string
}

var _ model.BaseChatModel = (*streamModel)(nil)

func (m *streamModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(strings.Join(m.chunks, ""), nil), nil
}

func (m *streamModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, sw := schema.Pipe[*schema.Message](len(m.chunks))
	go func() {
		defer sw.Close()
		for _, c := range m.chunks {
			sw.Send(&schema.Message{Role: schema.Assistant, Content: c}, nil)
		}
	}()
	return sr, nil
}

type staticResolver struct {
	model model.BaseChatModel
}

func (r staticResolver) Resolve(context.Context, entity.ProviderConfig) (*port.ResolvedModel, error) {
	return &port.ResolvedModel{Provider: entity.ProviderOpenAI, Model: "fake", ChatModel: r.model}, nil
}

type testServer struct {
	router *Router
	store  *fs.Store
}

func newTestServer(t *testing.T, chunks ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := fs.NewStoreWithFs(afero.NewMemMapFs())
	require.NoError(t, store.SaveSettings(ctx, "p1", &entity.ProjectSettings{
		Title:          "Night Rain",
		Author:         "A. Writer",
		Plot:           "A detective story",
		ProviderConfig: entity.ProviderConfig{Provider: "openai", APIKey: "sk-test-1234567890"},
	}))
	_, err := store.CreateChapter(ctx, "p1", "c1", "<text>The cat sat on the mat.</text>\n<settings>{}</settings>\n<critique></critique>")
	require.NoError(t, err)

	cfg := &config.Config{
		App:       config.AppConfig{Name: "desk-test", Env: "test"},
		Workspace: config.WorkspaceConfig{Root: t.TempDir(), ExportDir: "exports"},
		Assistant: config.AssistantConfig{FocusRelease: 10 * time.Millisecond, ChatHistoryTurns: 4},
	}

	bus := messaging.NewMemoryBus(time.Minute)
	workspace := editor.NewWorkspace(store)
	ledger := quota.NewUsageLedger()
	rt := assist.NewRuntime(cfg, store, workspace, staticResolver{model: &streamModel{chunks: chunks}},
		chain.NewPromptBuilder(), assist.NewDispatcher(cfg), bus, memory.NewLocker(),
		quota.NewTokenQuotaChecker(cfg, ledger))

	handlers := &Handlers{
		Health:  handler.NewHealthHandler(cfg.Workspace.Root, nil),
		Project: handler.NewProjectHandler(store, ledger),
		Chapter: handler.NewChapterHandler(store),
		Editor:  handler.NewEditorHandler(workspace, assist.NewRewriteService(rt)),
		Assist:  handler.NewAssistHandler(assist.NewCritiqueService(rt), assist.NewChatService(rt)),
		Session: handler.NewSessionHandler(bus),
		Export:  handler.NewExportHandler(export.NewService(cfg, store, pdfexport.NewPDFRenderer())),
	}
	return &testServer{router: New(cfg, handlers), store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.Engine().ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

// readEvents 通过真实 HTTP 连接读取 SSE 直到服务端结束
func readEvents(t *testing.T, s *testServer, sessionID string) string {
	t.Helper()
	srv := httptest.NewServer(s.router.Engine())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/sessions/"+sessionID+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"), resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRouter_SystemEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_SettingsMaskAndKeep(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/projects/p1/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[entity.ProjectSettings](t, w)
	assert.Equal(t, "sk-t****7890", got.APIKey)

	w = s.do(t, http.MethodPut, "/v1/projects/p1/settings", map[string]string{
		"title":    "Night Rain II",
		"provider": "openai",
		"apiKey":   got.APIKey,
	})
	require.Equal(t, http.StatusOK, w.Code)

	saved, err := s.store.LoadSettings(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Night Rain II", saved.Title)
	assert.Equal(t, "sk-test-1234567890", saved.APIKey)
}

func TestRouter_ChapterLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/projects/p1/chapters", map[string]string{"id": "c2", "text": "Second."})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPut, "/v1/projects/p1/chapters/order", map[string][]string{"chapter_ids": {"c2", "c1"}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/v1/projects/p1/chapters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData[struct {
		Chapters []entity.Chapter `json:"chapters"`
	}](t, w)
	require.Len(t, list.Chapters, 2)
	assert.Equal(t, "c2", list.Chapters[0].ID)

	w = s.do(t, http.MethodGet, "/v1/projects/p1/chapters/c2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"text":"Second."`)

	w = s.do(t, http.MethodGet, "/v1/projects/p1/chapters/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_EditorRewriteStreamsOverSSE(t *testing.T) {
	s := newTestServer(t, "dog ", "stood")

	w := s.do(t, http.MethodPost, "/v1/projects/p1/chapters/c1/editor", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, "/v1/projects/p1/chapters/c1/editor", map[string]any{
		"selection": entity.Range{Start: 4, End: 11},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/v1/projects/p1/chapters/c1/editor/rewrite", map[string]string{"mode": "rewrite"})
	require.Equal(t, http.StatusAccepted, w.Code)
	sess := decodeData[struct {
		SessionID string `json:"session_id"`
	}](t, w)
	require.NotEmpty(t, sess.SessionID)

	body := readEvents(t, s, sess.SessionID)
	assert.Contains(t, body, "event:thinking")
	assert.Contains(t, body, "event:chunk")
	assert.Contains(t, body, "event:end")
	assert.Contains(t, body, "event:closed")

	w = s.do(t, http.MethodGet, "/v1/projects/p1/chapters/c1/editor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeData[struct {
		Text string `json:"text"`
		Busy bool   `json:"busy"`
	}](t, w)
	assert.Equal(t, "The dog stood on the mat.", state.Text)
	assert.False(t, state.Busy)

	w = s.do(t, http.MethodPost, "/v1/projects/p1/chapters/c1/editor/save", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	raw, err := s.store.ReadChapter(context.Background(), "p1", "c1")
	require.NoError(t, err)
	assert.Contains(t, raw, "<text>The dog stood on the mat.</text>")
}

func TestRouter_RewriteRejectsUnknownMode(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/projects/p1/chapters/c1/editor/rewrite", map[string]string{"mode": "critique"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ChatAndHistory(t *testing.T) {
	s := newTestServer(t, "Try ", "a twist.")

	w := s.do(t, http.MethodPost, "/v1/projects/p1/chat", map[string]string{"message": "Any ideas?"})
	require.Equal(t, http.StatusAccepted, w.Code)
	sess := decodeData[struct {
		SessionID string `json:"session_id"`
	}](t, w)

	body := readEvents(t, s, sess.SessionID)
	assert.Contains(t, body, "Try ")
	assert.Contains(t, body, "event:closed")

	w = s.do(t, http.MethodGet, "/v1/projects/p1/chat", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decodeData[struct {
		Turns []entity.ChatTurn `json:"turns"`
	}](t, w)
	require.Len(t, hist.Turns, 2)
	assert.Equal(t, "Try a twist.", hist.Turns[1].Content)

	w = s.do(t, http.MethodDelete, "/v1/projects/p1/chat", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_CritiqueCommitsToChapter(t *testing.T) {
	s := newTestServer(t, "Pacing is slow.")

	w := s.do(t, http.MethodPost, "/v1/projects/p1/chapters/c1/critique", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	sess := decodeData[struct {
		SessionID string `json:"session_id"`
	}](t, w)

	body := readEvents(t, s, sess.SessionID)
	assert.Contains(t, body, "event:focus_critique")
	assert.Contains(t, body, "event:focus_release")

	raw, err := s.store.ReadChapter(context.Background(), "p1", "c1")
	require.NoError(t, err)
	assert.Contains(t, raw, "<critique>Pacing is slow.</critique>")
}

func TestRouter_UnknownSessionIsNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/sessions/nope/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ExportPDF(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/projects/p1/export/pdf", map[string]string{"name": "draft"})
	require.Equal(t, http.StatusCreated, w.Code)
	res := decodeData[export.Result](t, w)
	assert.Equal(t, "exports/draft.pdf", res.Path)
	assert.Equal(t, 1, res.Chapters)

	data, err := s.store.ReadFile(context.Background(), "p1", "exports/draft.pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
