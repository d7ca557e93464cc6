package model

import (
	"github.com/cloudwego/eino/schema"
)

// AgentState stores per-invocation state for the agent Graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - Read and written only inside Eino state handlers (WithStatePreHandler,
//     WithStatePostHandler) or compose.ProcessState, which serialize access.
type AgentState struct {
	SessionID            string
	History              []*schema.Message // mutated only inside Eino state handlers
	ToolCallCount        int
	ToolCallLimitReached bool
	ToolCallIDSeq        int // synthesizes tool_call_id when the provider omits it

	// Accumulated LLM cost (USD) across model invocations for this query
	TotalCostUSD float64
}

// QueryInput is the input of an agent invocation.
type QueryInput struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}
