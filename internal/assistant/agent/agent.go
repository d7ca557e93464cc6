// Package agent answers FRC questions with a tool-calling graph over The Blue Alliance.
package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/community-assistant/server/internal/assistant/agent/nodes"
	"github.com/community-assistant/server/internal/assistant/agent/tools"
	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/model"
	errx "github.com/community-assistant/server/internal/core/error"
	"github.com/community-assistant/server/internal/metrics"
	logx "github.com/community-assistant/server/pkg/logger"
)

const graphName = "frc_agent"

// Agent is the compiled FRC agent graph.
type Agent struct {
	runnable compose.Runnable[model.QueryInput, *model.Reply]
}

// NewAgent binds the TBA tools to the configured chat model and compiles the graph.
func NewAgent(ctx context.Context, client *llm.Client, cfg model.AgentConfig, tba *tools.TBAClient, m *metrics.Metrics) (*Agent, error) {
	if client == nil || tba == nil {
		return nil, fmt.Errorf("agent: client and tba client are required")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = client.DefaultModel()
	}

	toolset := tools.New(tba, m)
	infos, err := tools.Infos(ctx, toolset)
	if err != nil {
		return nil, fmt.Errorf("agent: tool infos: %w", err)
	}
	cm, err := client.ChatModel(ctx, modelName)
	if err != nil {
		return nil, err
	}
	cm, err = cm.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("agent: bind tools: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               toolset,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().Str("tool_name", name).Str("arguments", input).Msg("unknown tool call")
			m.ToolCall(name, metrics.OutcomeError)
			return fmt.Sprintf(`{"error":"unknown_tool","name":%q}`, name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return tools.SanitizeArguments(name, arguments), nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("agent: tools node: %w", err)
	}

	g := compose.NewGraph[model.QueryInput, *model.Reply](
		compose.WithGenLocalState(func(ctx context.Context) *model.AgentState {
			return &model.AgentState{}
		}),
	)

	if err := g.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(cfg.Instructions, tools.Names()),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
	); err != nil {
		return nil, err
	}
	if err := g.AddChatModelNode(nodes.NodeResponseChatModel, cm,
		compose.WithStatePreHandler(nodes.NewResponseChatModelPreHandler(cfg.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewResponseChatModelPostHandler(modelName)),
	); err != nil {
		return nil, err
	}
	if err := g.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(cfg.ToolMaxCalls)),
	); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodes.NodeFinalize, nodes.NewFinalizeNode()); err != nil {
		return nil, err
	}

	for _, e := range [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeResponseChatModel},
		{nodes.NodeToolExecutor, nodes.NodeResponseChatModel},
		{nodes.NodeFinalize, compose.END},
	} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	if err := g.AddBranch(nodes.NodeResponseChatModel, compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{nodes.NodeToolExecutor: true, nodes.NodeFinalize: true},
	)); err != nil {
		return nil, fmt.Errorf("agent: tool branch: %w", err)
	}

	// Each tool round costs two steps.
	maxSteps := 10 + 2*cfg.ToolMaxCalls
	if maxSteps < 20 {
		maxSteps = 20
	}
	runnable, err := g.Compile(ctx, compose.WithGraphName(graphName), compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		return nil, fmt.Errorf("agent: compile: %w", err)
	}
	return &Agent{runnable: runnable}, nil
}

// Answer runs the agent for one question.
func (a *Agent) Answer(ctx context.Context, question string) (*model.Reply, error) {
	reply, err := a.runnable.Invoke(ctx, model.QueryInput{
		SessionID: model.SessionIDFrom(ctx),
		Query:     question,
	})
	if err != nil {
		return nil, errx.WrapLLM(err)
	}
	return reply, nil
}
