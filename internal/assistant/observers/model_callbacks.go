package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	amodel "github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/metrics"
	logx "github.com/community-assistant/server/pkg/logger"
)

func newModelHandler(m *metrics.Metrics) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Debug().Str("component", info.Name).Str("session_id", amodel.SessionIDFrom(ctx))
			if input != nil {
				ev = ev.Int("messages", len(input.Messages)).Int("tools", len(input.Tools))
			}
			ev.Msg("model start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			if output == nil {
				return ctx
			}
			name := modelName(info, output)
			if u := output.TokenUsage; u != nil {
				usage := &schema.TokenUsage{
					PromptTokens:     u.PromptTokens,
					CompletionTokens: u.CompletionTokens,
					TotalTokens:      u.TotalTokens,
				}
				_, _, cost := amodel.ComputeCost(usage, amodel.ResolvePricing(name))
				m.ObserveLLMUsage(name, u.PromptTokens, u.CompletionTokens, cost)
				logx.Debug().
					Str("model", name).
					Str("session_id", amodel.SessionIDFrom(ctx)).
					Int("prompt_tokens", u.PromptTokens).
					Int("completion_tokens", u.CompletionTokens).
					Float64("cost_usd", cost).
					Msg("LLM usage")
			}
			if output.Message != nil && len(output.Message.ToolCalls) > 0 {
				logx.Debug().Str("model", name).Int("tool_calls", len(output.Message.ToolCalls)).Msg("model requested tools")
			}
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("component", info.Name).Str("session_id", amodel.SessionIDFrom(ctx)).Msg("model call failed")
			return ctx
		},
	}
}

func modelName(info *einocb.RunInfo, output *model.CallbackOutput) string {
	if output.Config != nil && output.Config.Model != "" {
		return output.Config.Model
	}
	return info.Name
}
