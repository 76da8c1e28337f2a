package assist

import (
	"context"
	"time"

	"z-novel-desk/internal/application/document"
	"z-novel-desk/internal/application/editor"
	"z-novel-desk/internal/domain/entity"
	wfmodel "z-novel-desk/internal/workflow/model"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
)

// CritiqueService 章节点评：完成后把点评注入章节文件的 critique 段
type CritiqueService struct {
	rt *Runtime
	// afterFunc 延迟发布 focus_release，测试可替换
	afterFunc func(d time.Duration, f func())
}

// NewCritiqueService 创建点评服务
func NewCritiqueService(rt *Runtime) *CritiqueService {
	return &CritiqueService{
		rt: rt,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

func critiqueLock(projectID, chapterID string) string {
	return "critique:" + editor.DocumentKey(projectID, chapterID)
}

// Start 发起点评，立即返回会话；同一章节同时只允许一个点评
func (s *CritiqueService) Start(ctx context.Context, projectID, chapterID string) (*entity.StreamSession, error) {
	settings, rm, err := s.rt.resolve(ctx, projectID)
	if err != nil {
		return nil, err
	}

	chapter, err := s.currentDocument(ctx, projectID, chapterID)
	if err != nil {
		return nil, err
	}

	prompt, err := s.rt.prompts.CritiquePrompt(ctx, &wfmodel.CritiquePromptInput{
		Overview:    wfmodel.OverviewFromSettings(settings),
		Settings:    chapter.Settings,
		World:       s.rt.worldOrEmpty(ctx, projectID),
		ChapterText: document.PlainText(chapter.Text),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "failed to build critique prompt")
	}

	lock := critiqueLock(projectID, chapterID)
	if err := s.rt.acquire(ctx, lock); err != nil {
		return nil, err
	}

	key := editor.DocumentKey(projectID, chapterID)
	sess := s.rt.newSession(projectID, key, entity.ModeCritique, prompt)
	em := NewEmitter(s.rt.bus, sess)
	em.Thinking(ctx)

	logger.Info(ctx, "critique started", "document", key, "session_id", sess.ID)
	s.rt.dispatcher.Dispatch(ctx, sess, rm, &critiqueListener{
		s:         s,
		em:        em,
		lock:      lock,
		projectID: projectID,
		chapterID: chapterID,
	})
	return sess, nil
}

// currentDocument 已打开时使用编辑器中的内容，否则读取章节文件
func (s *CritiqueService) currentDocument(ctx context.Context, projectID, chapterID string) (entity.ChapterDocument, error) {
	if doc, ok := s.rt.workspace.Lookup(projectID, chapterID); ok {
		return doc.Snapshot(), nil
	}
	raw, err := s.rt.store.ReadChapter(ctx, projectID, chapterID)
	if err != nil {
		return entity.ChapterDocument{}, err
	}
	return document.Parse(raw), nil
}

// commit 重新读取当前章节原文再注入点评，期间对正文的修改得以保留
func (s *CritiqueService) commit(ctx context.Context, projectID, chapterID, critique string) error {
	raw, err := s.rt.store.ReadChapter(ctx, projectID, chapterID)
	if err != nil {
		return err
	}
	if err := s.rt.store.WriteChapter(ctx, projectID, chapterID, document.InjectCritique(raw, critique)); err != nil {
		return err
	}
	if doc, ok := s.rt.workspace.Lookup(projectID, chapterID); ok {
		doc.SetCritique(critique)
	}
	return nil
}

type critiqueListener struct {
	s         *CritiqueService
	em        *Emitter
	lock      string
	projectID string
	chapterID string
}

func (l *critiqueListener) OnChunk(ctx context.Context, _ *entity.StreamSession, chunk string) {
	l.em.Chunk(ctx, chunk)
}

func (l *critiqueListener) OnEnd(ctx context.Context, sess *entity.StreamSession) {
	ctx = context.WithoutCancel(ctx)

	l.em.ThinkingEnd(ctx)
	err := l.s.commit(ctx, l.projectID, l.chapterID, sess.Accumulated())
	l.s.rt.release(ctx, l.lock)
	if err != nil {
		logger.Error(ctx, "failed to save critique", err, "document", sess.DocumentKey)
		l.em.ChatMessage(ctx, "Critique could not be saved: "+errors.AsAppError(err).UserMessage())
		l.em.Close(ctx)
		return
	}
	l.em.End(ctx)

	l.em.Emit(ctx, entity.EventFocusCritique, "", "")
	l.s.afterFunc(l.s.rt.focusRelease, func() {
		l.em.Emit(ctx, entity.EventFocusRelease, "", "")
		l.em.Close(ctx)
	})
}

func (l *critiqueListener) OnError(ctx context.Context, sess *entity.StreamSession, message string) {
	ctx = context.WithoutCancel(ctx)
	l.s.rt.release(ctx, l.lock)
	l.em.ThinkingEnd(ctx)
	l.em.ChatMessage(ctx, "Critique failed: "+message)
	l.em.Error(ctx, message)
	l.em.Close(ctx)
}
