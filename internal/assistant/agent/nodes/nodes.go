// Package nodes holds the FRC agent graph nodes and their state handlers.
package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/prompts"
	logx "github.com/community-assistant/server/pkg/logger"
)

const (
	NodeInputConverter    = "InputConverter"
	NodeResponseChatModel = "ResponseChatModel"
	NodeToolExecutor      = "ToolExecutor"
	NodeFinalize          = "Finalize"
)

// NoAnswer is returned when the model ends without any text.
const NoAnswer = "Sorry, I could not find an answer to that question."

// NewInputConverterPreHandler resets the per-question counters.
func NewInputConverterPreHandler() func(context.Context, model.QueryInput, *model.AgentState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AgentState) (model.QueryInput, error) {
		s.SessionID = in.SessionID
		s.History = nil
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode renders the system prompt and wraps the question.
func NewInputConverterNode(instructions string, toolNames [3]string) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.QueryInput) ([]*schema.Message, error) {
		system, err := prompts.RenderAgentSystem(ctx, instructions, toolNames)
		if err != nil {
			return nil, fmt.Errorf("render agent system prompt: %w", err)
		}
		return []*schema.Message{
			schema.SystemMessage(system),
			schema.UserMessage(in.Query),
		}, nil
	})
}

// NewResponseChatModelPreHandler feeds the model the full history and, once the
// tool budget is spent, a wrap-up notice.
func NewResponseChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AgentState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AgentState) ([]*schema.Message, error) {
		// Some OpenAI-compatible providers drop tool_call_id on tool results.
		for _, msg := range in {
			if msg != nil && msg.Role == schema.Tool && strings.TrimSpace(msg.ToolCallID) == "" {
				msg.ToolCallID = lastToolCallID(state.History)
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			state.History = append(state.History, schema.SystemMessage(fmt.Sprintf(
				"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
					"Answer with the information you have already gathered and say what you could not look up.",
				normalizeMaxToolCalls(maxToolCalls),
			)))
		}

		return state.History, nil
	}
}

// NewResponseChatModelPostHandler accumulates the run cost and fills missing tool call ids.
func NewResponseChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AgentState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AgentState) (*schema.Message, error) {
		if out == nil {
			return out, nil
		}
		if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			usage := out.ResponseMeta.Usage
			_, _, total := model.ComputeCost(usage, model.ResolvePricing(modelName))
			state.TotalCostUSD += total

			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
			logx.Debug().
				Str("session_id", state.SessionID).
				Str("node", NodeResponseChatModel).
				Str("model", modelName).
				Int("prompt_tokens", usage.PromptTokens).
				Int("completion_tokens", usage.CompletionTokens).
				Float64("total_cost_usd", state.TotalCostUSD).
				Msg("LLM usage")
		}

		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		state.History = append(state.History, out)
		return out, nil
	}
}

// NewToolExecutorCondition routes to the tools while the budget lasts.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, in *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AgentState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})
		if limitReached || len(in.ToolCalls) == 0 {
			return NodeFinalize, nil
		}
		logx.Debug().Int("tool_count", len(in.ToolCalls)).Msg("calling tools")
		return NodeToolExecutor, nil
	}
}

// NewToolExecutorPreHandler counts each round of tool calls.
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AgentState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AgentState) (*schema.Message, error) {
		if incrementToolCallAndCheck(state, maxToolCalls) {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Str("session_id", state.SessionID).
				Msg("tool call limit exceeded")
		}
		return in, nil
	}
}

// NewFinalizeNode turns the last model message into a reply listing the tool calls made.
func NewFinalizeNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, out *schema.Message) (*model.Reply, error) {
		var (
			steps     []model.Step
			sessionID string
			cost      float64
		)
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AgentState) error {
			sessionID, cost = state.SessionID, state.TotalCostUSD
			for _, msg := range state.History {
				if msg == nil || msg.Role != schema.Assistant {
					continue
				}
				for _, tc := range msg.ToolCalls {
					steps = append(steps, model.Step{
						Name:     "Calling " + tc.Function.Name,
						Language: "json",
						Output:   tc.Function.Arguments,
					})
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read agent state: %w", err)
		}

		content := strings.TrimSpace(out.Content)
		if content == "" {
			content = NoAnswer
		}
		logx.Debug().
			Str("session_id", sessionID).
			Int("tool_calls", len(steps)).
			Float64("total_cost_usd", cost).
			Msg("agent answered")
		return &model.Reply{Content: content, Steps: steps}, nil
	})
}

func lastToolCallID(history []*schema.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg != nil && msg.Role == schema.Assistant && len(msg.ToolCalls) > 0 {
			return msg.ToolCalls[0].ID
		}
	}
	return ""
}
