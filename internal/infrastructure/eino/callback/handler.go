package callback

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"z-novel-desk/internal/domain/service"
	"z-novel-desk/pkg/logger"
	"z-novel-desk/pkg/metrics"
)

type startTimeKey struct{}

func newChatModelCallbackHandler(usageRecorder service.LLMUsageRecorder) *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			workflow := service.WorkflowFromContext(ctx)
			provider := service.ProviderFromContext(ctx)
			modelName := modelNameFromInput(input)
			if modelName == "" && info != nil {
				modelName = info.Type
			}

			attrs := []attribute.KeyValue{
				attribute.String("eino.workflow", workflow),
				attribute.String("llm.provider", provider),
				attribute.String("llm.model", modelName),
			}
			if info != nil {
				attrs = append(attrs,
					attribute.String("eino.node_name", info.Name),
					attribute.String("eino.type", info.Type),
				)
			}
			if p := service.ProjectFromContext(ctx); p != "" {
				attrs = append(attrs, attribute.String("project.id", p))
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			var usage *model.TokenUsage
			if output != nil {
				usage = output.TokenUsage
			}
			finishCall(ctx, info, usageRecorder, modelNameFromOutput(output), usage)
			return ctx
		},

		// 流式输出：在独立 goroutine 中读完回调流，取最后一帧的用量
		OnEndWithStreamOutput: func(ctx context.Context, info *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			go func() {
				defer output.Close()

				var usage *model.TokenUsage
				modelName := ""
				for {
					frame, err := output.Recv()
					if stderrors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						failCall(ctx, info, err)
						return
					}
					if frame == nil {
						continue
					}
					if frame.TokenUsage != nil {
						usage = frame.TokenUsage
					}
					if name := modelNameFromOutput(frame); name != "" {
						modelName = name
					}
				}
				finishCall(ctx, info, usageRecorder, modelName, usage)
			}()
			return ctx
		},

		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			failCall(ctx, info, err)
			return ctx
		},
	}
}

func finishCall(ctx context.Context, info *einocb.RunInfo, usageRecorder service.LLMUsageRecorder, modelName string, usage *model.TokenUsage) {
	workflow := service.WorkflowFromContext(ctx)
	provider := service.ProviderFromContext(ctx)
	if modelName == "" && info != nil {
		modelName = info.Type
	}

	metrics.LLMCallTotal.WithLabelValues(workflow, provider, modelName, "success").Inc()
	if d := elapsedSeconds(ctx); d > 0 {
		metrics.LLMCallDuration.WithLabelValues(workflow, provider, modelName).Observe(d)
	}

	if usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(workflow, provider, modelName, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(workflow, provider, modelName, "completion").Add(float64(usage.CompletionTokens))

		// 用量统计从 callbacks 中解耦到应用层（quota），这里仅做 best-effort 调用。
		if usageRecorder != nil {
			if err := usageRecorder.Record(ctx, service.LLMUsageInput{
				ProjectID:        service.ProjectFromContext(ctx),
				Workflow:         workflow,
				Provider:         provider,
				Model:            modelName,
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				DurationMs:       int(elapsedSeconds(ctx) * 1000),
			}); err != nil {
				logger.Warn(ctx, "failed to record llm usage", "error", err.Error())
			}
		}
	}

	span := trace.SpanFromContext(ctx)
	if usage != nil {
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	span.End()
}

func failCall(ctx context.Context, info *einocb.RunInfo, err error) {
	workflow := service.WorkflowFromContext(ctx)
	provider := service.ProviderFromContext(ctx)
	modelName := ""
	if info != nil {
		modelName = info.Type
	}

	metrics.LLMCallTotal.WithLabelValues(workflow, provider, modelName, "error").Inc()
	if d := elapsedSeconds(ctx); d > 0 {
		metrics.LLMCallDuration.WithLabelValues(workflow, provider, modelName).Observe(d)
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

func elapsedSeconds(ctx context.Context) float64 {
	v := ctx.Value(startTimeKey{})
	start, ok := v.(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
