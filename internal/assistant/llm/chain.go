package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	errx "github.com/community-assistant/server/internal/core/error"
)

// PromptChain renders a chat template and sends it to one chat model.
type PromptChain struct {
	model    string
	runnable compose.Runnable[map[string]any, *schema.Message]
}

// NewPromptChain compiles tpl → chat model into a runnable chain.
func (c *Client) NewPromptChain(ctx context.Context, modelName string, tpl prompt.ChatTemplate) (*PromptChain, error) {
	if modelName == "" {
		modelName = c.defaultModel
	}
	cm, err := c.ChatModel(ctx, modelName)
	if err != nil {
		return nil, err
	}
	return newPromptChain(ctx, modelName, tpl, cm)
}

// NewStructuredPromptChain is NewPromptChain with replies constrained to format.
func (c *Client) NewStructuredPromptChain(ctx context.Context, modelName string, tpl prompt.ChatTemplate, format *ResponseFormat) (*PromptChain, error) {
	if modelName == "" {
		modelName = c.defaultModel
	}
	cm, err := c.StructuredChatModel(ctx, modelName, format)
	if err != nil {
		return nil, err
	}
	return newPromptChain(ctx, modelName, tpl, cm)
}

func newPromptChain(ctx context.Context, modelName string, tpl prompt.ChatTemplate, cm einomodel.BaseChatModel) (*PromptChain, error) {
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl).AppendChatModel(cm)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile prompt chain: %w", err)
	}
	return &PromptChain{model: modelName, runnable: runnable}, nil
}

// Model is the name of the model the chain sends to.
func (p *PromptChain) Model() string {
	return p.model
}

// Complete runs the chain and returns the trimmed reply text.
// Completion failures are wrapped as LLM AppErrors.
func (p *PromptChain) Complete(ctx context.Context, vars map[string]any) (string, error) {
	msg, err := p.runnable.Invoke(ctx, vars)
	if err != nil {
		return "", errx.WrapLLM(err)
	}
	if msg == nil {
		return "", errx.WrapLLM(fmt.Errorf("empty completion"))
	}
	return strings.TrimSpace(msg.Content), nil
}
