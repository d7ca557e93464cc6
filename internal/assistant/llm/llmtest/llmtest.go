// Package llmtest provides an in-memory chat model for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/community-assistant/server/internal/assistant/llm"
)

// ChatModel answers with Respond and records every call.
type ChatModel struct {
	Respond func(ctx context.Context, msgs []*schema.Message) (*schema.Message, error)

	mu    sync.Mutex
	calls [][]*schema.Message
	tools []*schema.ToolInfo
}

// Reply returns a model that always answers with content.
func Reply(content string) *ChatModel {
	return &ChatModel{Respond: func(context.Context, []*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage(content, nil), nil
	}}
}

// Fail returns a model whose every call fails with err.
func Fail(err error) *ChatModel {
	return &ChatModel{Respond: func(context.Context, []*schema.Message) (*schema.Message, error) {
		return nil, err
	}}
}

// Sequence answers with replies in order, repeating the last one.
func Sequence(replies ...*schema.Message) *ChatModel {
	var (
		mu sync.Mutex
		i  int
	)
	return &ChatModel{Respond: func(context.Context, []*schema.Message) (*schema.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		r := replies[i]
		if i < len(replies)-1 {
			i++
		}
		return r, nil
	}}
}

// Client wraps m into an llm.Client that returns it for every model name.
func Client(m *ChatModel) *llm.Client {
	return llm.New(func(context.Context, string) (einomodel.ToolCallingChatModel, error) {
		return m, nil
	}, "fake-model")
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls = append(m.calls, input)
	m.mu.Unlock()
	return m.Respond(ctx, input)
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *ChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = tools
	return m, nil
}

// Calls returns the message lists of all calls so far.
func (m *ChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// Tools returns the tools bound with WithTools.
func (m *ChatModel) Tools() []*schema.ToolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tools
}

// Content returns the concatenated content of messages with role.
func Content(msgs []*schema.Message, role schema.RoleType) string {
	var sb strings.Builder
	for _, m := range msgs {
		if m != nil && m.Role == role {
			sb.WriteString(m.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
