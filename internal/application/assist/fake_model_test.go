package assist

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/workflow/port"
)

// fakeChatModel 以 schema.Pipe 模拟流式提供商
type fakeChatModel struct {
	chunks  []string
	openErr error
	recvErr error
	// release 非空时，发送完分片后阻塞直到关闭
	release chan struct{}
	// gate 非空时，每个分片发送前等待一次
	gate chan struct{}

	mu      sync.Mutex
	prompts [][]*schema.Message
}

var _ model.BaseChatModel = (*fakeChatModel)(nil)

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.record(input)
	return schema.AssistantMessage("", nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.record(input)
	if f.openErr != nil {
		return nil, f.openErr
	}

	sr, sw := schema.Pipe[*schema.Message](len(f.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range f.chunks {
			if f.gate != nil {
				<-f.gate
			}
			if closed := sw.Send(&schema.Message{Role: schema.Assistant, Content: c}, nil); closed {
				return
			}
		}
		if f.recvErr != nil {
			sw.Send(nil, f.recvErr)
			return
		}
		if f.release != nil {
			<-f.release
		}
	}()
	return sr, nil
}

func (f *fakeChatModel) record(input []*schema.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, input)
}

func (f *fakeChatModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeChatModel) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	msgs := f.prompts[len(f.prompts)-1]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}

// fakeResolver 返回固定模型或配置错误
type fakeResolver struct {
	model *fakeChatModel
	err   error

	mu   sync.Mutex
	seen []entity.ProviderConfig
}

func (r *fakeResolver) Resolve(_ context.Context, cfg entity.ProviderConfig) (*port.ResolvedModel, error) {
	r.mu.Lock()
	r.seen = append(r.seen, cfg)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return &port.ResolvedModel{Provider: entity.ProviderOpenAI, Model: "fake", ChatModel: r.model}, nil
}

func resolvedFake(m *fakeChatModel) *port.ResolvedModel {
	return &port.ResolvedModel{Provider: entity.ProviderOpenAI, Model: "fake", ChatModel: m}
}
