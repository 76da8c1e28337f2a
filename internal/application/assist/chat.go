package assist

import (
	"context"
	"strings"
	"sync"
	"time"

	"z-novel-desk/internal/application/document"
	"z-novel-desk/internal/application/editor"
	"z-novel-desk/internal/domain/entity"
	wfmodel "z-novel-desk/internal/workflow/model"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
)

// ChatService 助手面板对话，每个项目同时只允许一个进行中的对话
type ChatService struct {
	rt *Runtime

	mu      sync.Mutex
	history map[string][]entity.ChatTurn
}

// NewChatService 创建对话服务
func NewChatService(rt *Runtime) *ChatService {
	return &ChatService{
		rt:      rt,
		history: make(map[string][]entity.ChatTurn),
	}
}

// Send 发送一条消息；chapterID 非空时把该章节设置与正文加入提示
func (s *ChatService) Send(ctx context.Context, projectID, message, chapterID string) (*entity.StreamSession, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.ErrInvalidParam.WithDetail("message is required")
	}

	settings, rm, err := s.rt.resolve(ctx, projectID)
	if err != nil {
		return nil, err
	}

	in := &wfmodel.ChatPromptInput{
		Overview: wfmodel.OverviewFromSettings(settings),
		History:  s.History(projectID),
		Message:  message,
	}
	documentKey := ""
	if chapterID != "" {
		chapter, err := s.chapter(ctx, projectID, chapterID)
		if err != nil {
			return nil, err
		}
		in.Settings = &chapter.Settings
		in.ChapterText = document.PlainText(chapter.Text)
		documentKey = editor.DocumentKey(projectID, chapterID)
	}

	prompt, err := s.rt.prompts.ChatPrompt(ctx, in)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "failed to build chat prompt")
	}

	lock := "chat:" + projectID
	if err := s.rt.acquire(ctx, lock); err != nil {
		return nil, err
	}

	sess := s.rt.newSession(projectID, documentKey, entity.ModeChat, prompt)
	em := NewEmitter(s.rt.bus, sess)
	em.Thinking(ctx)

	logger.Info(ctx, "chat started", "project_id", projectID, "session_id", sess.ID)
	s.rt.dispatcher.Dispatch(ctx, sess, rm, &chatListener{s: s, em: em, lock: lock, message: message})
	return sess, nil
}

func (s *ChatService) chapter(ctx context.Context, projectID, chapterID string) (entity.ChapterDocument, error) {
	if doc, ok := s.rt.workspace.Lookup(projectID, chapterID); ok {
		return doc.Snapshot(), nil
	}
	raw, err := s.rt.store.ReadChapter(ctx, projectID, chapterID)
	if err != nil {
		return entity.ChapterDocument{}, err
	}
	return document.Parse(raw), nil
}

// History 最近的对话轮次（副本）
func (s *ChatService) History(projectID string) []entity.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.history[projectID]
	if n := s.rt.historyTurns * 2; len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]entity.ChatTurn(nil), turns...)
}

// ClearHistory 清空项目对话历史
func (s *ChatService) ClearHistory(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, projectID)
}

func (s *ChatService) appendTurns(projectID string, turns ...entity.ChatTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := append(s.history[projectID], turns...)
	// 只保留提示会用到的部分
	if n := s.rt.historyTurns * 2; len(all) > n {
		all = append([]entity.ChatTurn(nil), all[len(all)-n:]...)
	}
	s.history[projectID] = all
}

type chatListener struct {
	s       *ChatService
	em      *Emitter
	lock    string
	message string
}

func (l *chatListener) OnChunk(ctx context.Context, _ *entity.StreamSession, chunk string) {
	l.em.Chunk(ctx, chunk)
}

func (l *chatListener) OnEnd(ctx context.Context, sess *entity.StreamSession) {
	ctx = context.WithoutCancel(ctx)

	now := time.Now()
	l.s.appendTurns(sess.ProjectID,
		entity.ChatTurn{Role: entity.ChatRoleUser, Content: l.message, SessionID: sess.ID, CreatedAt: sess.CreatedAt},
		entity.ChatTurn{Role: entity.ChatRoleAssistant, Content: sess.Accumulated(), SessionID: sess.ID, CreatedAt: now},
	)
	l.s.rt.release(ctx, l.lock)
	l.em.ThinkingEnd(ctx)
	l.em.End(ctx)
	l.em.Close(ctx)
}

func (l *chatListener) OnError(ctx context.Context, _ *entity.StreamSession, message string) {
	ctx = context.WithoutCancel(ctx)
	l.s.rt.release(ctx, l.lock)
	l.em.ThinkingEnd(ctx)
	l.em.Error(ctx, message)
	l.em.Close(ctx)
}
