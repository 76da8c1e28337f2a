// Package assist 实现 AI 助手的流式分发与各控制器（改写 / 点评 / 对话）
package assist

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/schema"

	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/domain/service"
	"z-novel-desk/internal/workflow/node"
	"z-novel-desk/internal/workflow/port"
	"z-novel-desk/pkg/logger"
	"z-novel-desk/pkg/metrics"
	"z-novel-desk/pkg/tracer"
)

// Listener 接收一个会话的流式结果。
// 所有回调都在同一个 goroutine 内按到达顺序调用；OnEnd 与 OnError 二者恰好调用其一。
type Listener interface {
	OnChunk(ctx context.Context, sess *entity.StreamSession, chunk string)
	OnEnd(ctx context.Context, sess *entity.StreamSession)
	OnError(ctx context.Context, sess *entity.StreamSession, message string)
}

// ListenerFuncs 以函数组装 Listener，未设置的回调忽略
type ListenerFuncs struct {
	Chunk func(ctx context.Context, sess *entity.StreamSession, chunk string)
	End   func(ctx context.Context, sess *entity.StreamSession)
	Error func(ctx context.Context, sess *entity.StreamSession, message string)
}

func (f ListenerFuncs) OnChunk(ctx context.Context, sess *entity.StreamSession, chunk string) {
	if f.Chunk != nil {
		f.Chunk(ctx, sess, chunk)
	}
}

func (f ListenerFuncs) OnEnd(ctx context.Context, sess *entity.StreamSession) {
	if f.End != nil {
		f.End(ctx, sess)
	}
}

func (f ListenerFuncs) OnError(ctx context.Context, sess *entity.StreamSession, message string) {
	if f.Error != nil {
		f.Error(ctx, sess, message)
	}
}

// Dispatcher 流式补全分发器：一次发送、多次回复
type Dispatcher struct {
	timeout time.Duration

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher 创建分发器
func NewDispatcher(cfg *config.Config) *Dispatcher {
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		timeout: cfg.Assistant.SessionTimeout,
		base:    base,
		cancel:  cancel,
	}
}

// Dispatch 在后台 goroutine 中运行会话后立即返回。
// 会话不随请求 ctx 取消，只受会话超时与 Shutdown 约束。
func (d *Dispatcher) Dispatch(ctx context.Context, sess *entity.StreamSession, rm *port.ResolvedModel, l Listener) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(d.base, cancel)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer stop()
		defer cancel()
		d.Run(runCtx, sess, rm, l)
	}()
}

// Shutdown 取消所有进行中的会话并等待其结束
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.cancel()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type recvResult struct {
	msg *schema.Message
	err error
}

// Run 同步运行一个会话：提示作为单条 user 消息发送，分片按序回调，最后恰好一个终止回调
func (d *Dispatcher) Run(ctx context.Context, sess *entity.StreamSession, rm *port.ResolvedModel, l Listener) {
	mode := string(sess.Mode)
	workflow := "assist_" + mode

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	ctx = logger.WithContext(ctx, logger.SessionIDKey, sess.ID)
	ctx = service.WithProject(service.WithWorkflowProvider(ctx, workflow, string(rm.Provider)), sess.ProjectID)
	ctx, span := tracer.StartSession(ctx, "assist.session", sess.ID, mode)

	metrics.AssistActiveSessions.WithLabelValues(mode).Inc()
	defer metrics.AssistActiveSessions.WithLabelValues(mode).Dec()

	sess.MarkRequested()
	log := logger.FromContext(ctx)
	log.Debug("assist session started", "mode", mode, "provider", rm.Provider, "model", rm.Model)

	var runErr error
	defer func() {
		status := string(sess.State())
		metrics.AssistSessionsTotal.WithLabelValues(mode, status).Inc()
		metrics.AssistSessionDuration.WithLabelValues(mode).Observe(sess.Duration().Seconds())
		tracer.EndWithError(span, runErr)
		log.Info("assist session finished", "mode", mode, "state", status, "duration_ms", sess.Duration().Milliseconds())
	}()

	fail := func(err error) {
		runErr = err
		msg := node.OpaqueLLMError(err)
		if sess.Fail(msg) {
			// 密钥无效需要用户处理，其余按瞬时故障记录
			if node.IsAuthError(err) {
				log.Error("assist session failed", "error", err, "auth", true)
			} else {
				log.Warn("assist session failed", "error", err)
			}
			l.OnError(ctx, sess, msg)
		}
	}

	cbCtx := callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      workflow,
		Type:      rm.Model,
		Component: components.ComponentOfChatModel,
	})

	reader, err := rm.ChatModel.Stream(cbCtx, []*schema.Message{schema.UserMessage(sess.Prompt)})
	if err != nil {
		fail(err)
		return
	}
	defer reader.Close()

	results := pump(ctx, reader)
	for {
		var res recvResult
		var ok bool
		select {
		case <-ctx.Done():
			fail(ctx.Err())
			return
		case res, ok = <-results:
		}
		if !ok {
			fail(ctx.Err())
			return
		}

		if stderrors.Is(res.err, io.EOF) {
			break
		}
		if res.err != nil {
			fail(res.err)
			return
		}
		if res.msg == nil || res.msg.Content == "" {
			continue
		}
		if !sess.Append(res.msg.Content) {
			return
		}
		metrics.AssistChunksTotal.WithLabelValues(mode).Inc()
		l.OnChunk(ctx, sess, res.msg.Content)
	}

	if sess.Commit() {
		l.OnEnd(ctx, sess)
	}
}

// pump 在独立 goroutine 中读取流，使 ctx 取消可以打断阻塞的 Recv
func pump(ctx context.Context, reader *schema.StreamReader[*schema.Message]) <-chan recvResult {
	ch := make(chan recvResult)
	go func() {
		defer close(ch)
		for {
			msg, err := reader.Recv()
			select {
			case ch <- recvResult{msg: msg, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}
