package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/community-assistant/server/internal/assistant/parsers"
)

// Community is the name the assistants speak for.
const Community = "Dabburiya Tech"

var (
	//go:embed template/community_system.txt
	communitySystem string
	//go:embed template/community_user.txt
	communityUser string
	//go:embed template/members_system.txt
	membersSystem string
	//go:embed template/sql_system.txt
	sqlSystem string
	//go:embed template/sql_user.txt
	sqlUser string
	//go:embed template/answer_system.txt
	answerSystem string
	//go:embed template/answer_user.txt
	answerUser string
	//go:embed template/chart_system.txt
	chartSystem string
	//go:embed template/chart_user.txt
	chartUser string
	//go:embed template/graph_extraction.txt
	graphExtraction string
	//go:embed template/graph_answer_system.txt
	graphAnswerSystem string
	//go:embed template/agent_system.txt
	agentSystem string
)

// SimpleChat answers from the fixed community description.
// Vars: Community, Subject, Question, Context.
func SimpleChat() prompt.ChatTemplate {
	return prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(communitySystem),
		schema.UserMessage(communityUser),
	)
}

// MembersChat answers from retrieved member profile chunks.
// Vars: Community, Subject, Question, Context.
func MembersChat() prompt.ChatTemplate {
	return prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(membersSystem),
		schema.UserMessage(communityUser),
	)
}

// SQLQuery asks for a JSON {sql_query, explanation} object.
// Vars: Question, Dialect, Limit, Schema.
func SQLQuery() prompt.ChatTemplate {
	return prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(sqlSystem),
		schema.UserMessage(sqlUser),
	)
}

// SQLAnswer turns a result table into an answer.
// Vars: Community, Question, Table.
func SQLAnswer() prompt.ChatTemplate {
	return prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(answerSystem),
		schema.UserMessage(answerUser),
	)
}

// Chart asks for a declarative chart description of a result table.
// Vars: Question, Columns, Table.
func Chart() prompt.ChatTemplate {
	return prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(chartSystem),
		schema.UserMessage(chartUser),
	)
}

// GraphAnswer answers from an assembled knowledge graph context.
// Vars: Community, Context, ResponseType, Question.
func GraphAnswer() prompt.ChatTemplate {
	return prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(graphAnswerSystem),
		schema.UserMessage("{{.Question}}"),
	)
}

// GraphExtraction returns the extraction template with delimiters and entity
// types substituted. The profile text is passed as the "document" message.
func GraphExtraction(entityTypes []string) prompt.ChatTemplate {
	// render known tokens only; the template carries angle-bracket placeholders
	content := strings.NewReplacer(
		"{TD}", parsers.TupleDelimiter,
		"{RD}", parsers.RecordDelimiter,
		"{CD}", parsers.CompletionDelimiter,
		"{entity_types}", strings.Join(entityTypes, ", "),
	).Replace(graphExtraction)

	return prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(content),
		schema.MessagesPlaceholder("document", false),
	)
}

// RenderAgentSystem renders the agent system prompt and triggers prompt callbacks.
func RenderAgentSystem(ctx context.Context, instructions string, toolNames [3]string) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(agentSystem),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"Instructions": instructions,
		"AwardsTool":   toolNames[0],
		"MatchesTool":  toolNames[1],
		"MatchTool":    toolNames[2],
	})
	if err != nil {
		return "", fmt.Errorf("agent prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("agent prompt render: empty result")
	}
	return msgs[0].Content, nil
}
