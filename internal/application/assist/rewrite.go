package assist

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"z-novel-desk/internal/application/editor"
	"z-novel-desk/internal/domain/entity"
	wfmodel "z-novel-desk/internal/workflow/model"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
	"z-novel-desk/pkg/metrics"
)

// RewriteController 单个打开文档的选区改写控制器。
// 同一文档同时只允许一个改写会话，入口标志同步检查。
type RewriteController struct {
	rt        *Runtime
	projectID string
	key       string
	doc       editor.LiveDocument
	style     func() string

	busy   atomic.Bool
	active atomic.Pointer[entity.StreamSession]
}

// NewRewriteController 绑定到一个实时文档；style 返回当前章节的风格说明，可为 nil
func NewRewriteController(rt *Runtime, projectID, documentKey string, doc editor.LiveDocument, style func() string) *RewriteController {
	return &RewriteController{
		rt:        rt,
		projectID: projectID,
		key:       documentKey,
		doc:       doc,
		style:     style,
	}
}

// Busy 是否有改写会话在进行
func (c *RewriteController) Busy() bool {
	return c.busy.Load()
}

// Active 当前会话（无则为 nil）
func (c *RewriteController) Active() *entity.StreamSession {
	return c.active.Load()
}

func (c *RewriteController) lockName() string {
	return "doc:" + c.key
}

// Start 对当前选区发起改写。
// 已有会话进行中或选区为空时忽略请求，返回 (nil, nil)，文档不变。
func (c *RewriteController) Start(ctx context.Context, mode entity.AssistMode) (*entity.StreamSession, error) {
	if !mode.IsRewriteClass() {
		return nil, errors.ErrInvalidParam.WithDetail(fmt.Sprintf("mode %q does not apply to a selection", mode))
	}
	if !c.busy.CompareAndSwap(false, true) {
		metrics.AssistSessionsTotal.WithLabelValues(string(mode), "ignored").Inc()
		logger.Debug(ctx, "rewrite ignored, another request is in flight", "document", c.key)
		return nil, nil
	}
	started := false
	defer func() {
		if !started {
			c.busy.Store(false)
		}
	}()

	sel := c.doc.Selection().Normalize()
	if sel.Empty() {
		return nil, nil
	}

	_, rm, err := c.rt.resolve(ctx, c.projectID)
	if err != nil {
		return nil, err
	}

	style := ""
	if c.style != nil {
		style = c.style()
	}
	prompt, err := c.rt.prompts.RewritePrompt(ctx, &wfmodel.RewritePromptInput{
		Mode:         mode,
		StyleNotes:   style,
		World:        c.rt.worldOrEmpty(ctx, c.projectID),
		FullText:     c.doc.Text(),
		SelectedText: c.doc.TextInRange(sel),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "failed to build rewrite prompt")
	}

	lock := c.lockName()
	if err := c.rt.acquire(ctx, lock); err != nil {
		return nil, err
	}

	sess := c.rt.newSession(c.projectID, c.key, mode, prompt)
	target := sel
	sess.TargetRange = &target

	c.doc.DeleteRange(sel)
	c.active.Store(sess)
	started = true

	em := NewEmitter(c.rt.bus, sess)
	em.Thinking(ctx)

	logger.Info(ctx, "rewrite started", "document", c.key, "mode", mode, "session_id", sess.ID, "selection_runes", sel.End-sel.Start)
	c.rt.dispatcher.Dispatch(ctx, sess, rm, &rewriteListener{c: c, em: em, lock: lock})
	return sess, nil
}

// finish 清除入口标志并释放文档锁；只对当前会话生效
func (c *RewriteController) finish(ctx context.Context, sess *entity.StreamSession, lock string) bool {
	if !c.active.CompareAndSwap(sess, nil) {
		return false
	}
	c.busy.Store(false)
	c.rt.release(ctx, lock)
	return true
}

// rewriteListener 回调时通过会话指针核对当前会话，不依赖注册时捕获的状态
type rewriteListener struct {
	c    *RewriteController
	em   *Emitter
	lock string
}

func (l *rewriteListener) OnChunk(ctx context.Context, sess *entity.StreamSession, chunk string) {
	if l.c.active.Load() != sess {
		return
	}
	l.c.doc.InsertAtCursor(chunk)
	l.em.Chunk(ctx, chunk)
}

func (l *rewriteListener) OnEnd(ctx context.Context, sess *entity.StreamSession) {
	ctx = context.WithoutCancel(ctx)
	if !l.c.finish(ctx, sess, l.lock) {
		return
	}
	l.em.ThinkingEnd(ctx)
	l.em.End(ctx)
	l.em.Close(ctx)
}

func (l *rewriteListener) OnError(ctx context.Context, sess *entity.StreamSession, message string) {
	ctx = context.WithoutCancel(ctx)
	if !l.c.finish(ctx, sess, l.lock) {
		return
	}
	l.em.ThinkingEnd(ctx)
	l.c.doc.InsertAtCursor(ErrorMarker(sess.Mode, message))
	l.em.Error(ctx, message)
	l.em.Close(ctx)
}

// ErrorMarker 插入到光标处的错误标记，如 "[Rewrite Error: request timed out]"
func ErrorMarker(mode entity.AssistMode, message string) string {
	return fmt.Sprintf("[%s Error: %s]", mode.Title(), message)
}

// RewriteService 按打开文档维护改写控制器
type RewriteService struct {
	rt *Runtime

	mu          sync.Mutex
	controllers map[string]*RewriteController
}

// NewRewriteService 创建改写服务
func NewRewriteService(rt *Runtime) *RewriteService {
	return &RewriteService{
		rt:          rt,
		controllers: make(map[string]*RewriteController),
	}
}

// Start 对打开文档的当前选区发起改写
func (s *RewriteService) Start(ctx context.Context, projectID, chapterID string, mode entity.AssistMode) (*entity.StreamSession, error) {
	doc, err := s.rt.workspace.Get(projectID, chapterID)
	if err != nil {
		return nil, err
	}
	return s.controllerFor(doc).Start(ctx, mode)
}

// Controller 返回打开文档的控制器
func (s *RewriteService) Controller(projectID, chapterID string) (*RewriteController, error) {
	doc, err := s.rt.workspace.Get(projectID, chapterID)
	if err != nil {
		return nil, err
	}
	return s.controllerFor(doc), nil
}

// controllerFor 文档被关闭后重新打开会得到新实例，此时换用新的控制器
func (s *RewriteService) controllerFor(doc *editor.OpenDocument) *RewriteController {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := doc.Key()
	if c, ok := s.controllers[key]; ok && (c.doc == editor.LiveDocument(doc.Buffer) || c.Busy()) {
		return c
	}
	c := NewRewriteController(s.rt, doc.ProjectID, key, doc.Buffer, func() string {
		return doc.Settings().Style
	})
	s.controllers[key] = c
	return c
}
