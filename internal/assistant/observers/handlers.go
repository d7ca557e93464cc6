// Package observers logs Eino component lifecycles and records LLM usage.
package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/community-assistant/server/internal/metrics"
)

// NewAllCallbacks aggregates the prompt, model and tool handlers into one callbacks.Handler.
func NewAllCallbacks(m *metrics.Metrics) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler()).
		ChatModel(newModelHandler(m)).
		Prompt(newPromptHandler()).
		Handler()
}

// Register installs the handlers for every graph and chain in the process.
// It must run once before any component is invoked.
func Register(m *metrics.Metrics) {
	einocb.AppendGlobalHandlers(NewAllCallbacks(m))
}
