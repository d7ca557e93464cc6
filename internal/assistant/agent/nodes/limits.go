package nodes

import "github.com/community-assistant/server/internal/assistant/model"

const DefaultMaxToolCalls = 10

func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit reports whether the limit was reached by this call.
func checkAndMarkToolLimit(state *model.AgentState, max int) bool {
	if !state.ToolCallLimitReached && state.ToolCallCount >= normalizeMaxToolCalls(max) {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// incrementToolCallAndCheck counts one tool round and reports whether it went over the limit.
func incrementToolCallAndCheck(state *model.AgentState, max int) bool {
	state.ToolCallCount++
	if state.ToolCallCount > normalizeMaxToolCalls(max) {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}
