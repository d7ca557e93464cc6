package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-assistant/server/internal/assistant/agent/nodes"
	"github.com/community-assistant/server/internal/assistant/agent/tools"
	"github.com/community-assistant/server/internal/assistant/llm/llmtest"
	"github.com/community-assistant/server/internal/assistant/model"
)

type tbaRecorder struct {
	mu    sync.Mutex
	paths []string
}

func newTBA(t *testing.T, rec *tbaRecorder) *tools.TBAClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.paths = append(rec.paths, r.URL.Path)
		rec.mu.Unlock()
		assert.Equal(t, "k", r.Header.Get("X-TBA-Auth-Key"))
		_, _ = w.Write([]byte(`[{"key":"2024cmptx_qm1","score_breakdown":{"blue":{}}}]`))
	}))
	t.Cleanup(srv.Close)
	return tools.NewTBAClient(model.TBAConfig{Key: "k", BaseURL: srv.URL, RatePerSec: 100})
}

func toolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

func TestAgentCallsToolsThenAnswers(t *testing.T) {
	rec := &tbaRecorder{}
	cm := llmtest.Sequence(
		toolCall("c1", tools.ToolMatchesByTeamEvent, `{"team_id":"frc5715","event_key":"2024CMPTX"}`),
		schema.AssistantMessage("Team 5715 played qualification match 1.", nil),
	)
	a, err := NewAgent(context.Background(), llmtest.Client(cm), model.AgentConfig{Instructions: "Be brief.", ToolMaxCalls: 3}, newTBA(t, rec), nil)
	require.NoError(t, err)

	reply, err := a.Answer(model.WithSessionID(context.Background(), "s1"), "Which matches did 5715 play at 2024cmptx?")
	require.NoError(t, err)

	assert.Equal(t, "Team 5715 played qualification match 1.", reply.Content)
	require.Len(t, reply.Steps, 1)
	assert.Equal(t, "Calling "+tools.ToolMatchesByTeamEvent, reply.Steps[0].Name)
	assert.Equal(t, []string{"/team/frc5715/event/2024cmptx/matches"}, rec.paths)
	assert.Len(t, cm.Tools(), 3)

	calls := cm.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, llmtest.Content(calls[0], schema.System), "Be brief.")
	toolOut := llmtest.Content(calls[1], schema.Tool)
	assert.Contains(t, toolOut, "2024cmptx_qm1")
	assert.NotContains(t, toolOut, "score_breakdown")
}

func TestAgentStopsAtToolLimit(t *testing.T) {
	rec := &tbaRecorder{}
	cm := llmtest.Sequence(toolCall("", tools.ToolAwardsByTeam, `{"team_id":5715}`))
	a, err := NewAgent(context.Background(), llmtest.Client(cm), model.AgentConfig{ToolMaxCalls: 1}, newTBA(t, rec), nil)
	require.NoError(t, err)

	reply, err := a.Answer(context.Background(), "awards of 5715?")
	require.NoError(t, err)

	assert.Equal(t, nodes.NoAnswer, reply.Content)
	assert.Len(t, rec.paths, 1)

	calls := cm.Calls()
	require.Len(t, calls, 2)
	assert.True(t, strings.Contains(llmtest.Content(calls[1], schema.System), "maximum tool call limit (1)"))
}

func TestAgentUnknownToolKeepsRunning(t *testing.T) {
	rec := &tbaRecorder{}
	cm := llmtest.Sequence(
		toolCall("c1", "get_weather", `{}`),
		schema.AssistantMessage("I can only look up FRC data.", nil),
	)
	a, err := NewAgent(context.Background(), llmtest.Client(cm), model.AgentConfig{}, newTBA(t, rec), nil)
	require.NoError(t, err)

	reply, err := a.Answer(context.Background(), "weather?")
	require.NoError(t, err)
	assert.Equal(t, "I can only look up FRC data.", reply.Content)
	assert.Empty(t, rec.paths)
	assert.Contains(t, llmtest.Content(cm.Calls()[1], schema.Tool), "unknown_tool")
}

func TestAgentModelFailure(t *testing.T) {
	cm := llmtest.Fail(assert.AnError)
	a, err := NewAgent(context.Background(), llmtest.Client(cm), model.AgentConfig{}, newTBA(t, &tbaRecorder{}), nil)
	require.NoError(t, err)

	_, err = a.Answer(context.Background(), "hi")
	require.Error(t, err)
}
