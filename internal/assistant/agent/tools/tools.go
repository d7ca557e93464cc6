// Package tools holds the FRC agent tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/community-assistant/server/internal/metrics"
	logx "github.com/community-assistant/server/pkg/logger"
)

// Tool names.
const (
	ToolAwardsByTeam       = "get_awards_by_team"
	ToolMatchesByTeamEvent = "get_matches_by_team_and_event"
	ToolMatchByKey         = "get_match_by_key"
)

// Names lists the tool names in prompt order.
func Names() [3]string {
	return [3]string{ToolAwardsByTeam, ToolMatchesByTeamEvent, ToolMatchByKey}
}

type AwardsInput struct {
	TeamID int `json:"team_id"`
}

type MatchesInput struct {
	TeamID   int    `json:"team_id"`
	EventKey string `json:"event_key"`
}

type MatchInput struct {
	MatchKey string `json:"match_key"`
}

// ToolError is returned to the model in place of a result.
type ToolError struct {
	Error string `json:"error"`
}

// New builds the agent tools over c.
func New(c *TBAClient, m *metrics.Metrics) []tool.BaseTool {
	return []tool.BaseTool{
		utils.NewTool(&schema.ToolInfo{
			Name: ToolAwardsByTeam,
			Desc: "Get ALL awards for the team by their team number, return event details like event_key of the awards.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"team_id": {Type: schema.Integer, Desc: "FRC team number, e.g. 5715", Required: true},
			}),
		}, func(ctx context.Context, in *AwardsInput) (any, error) {
			if in.TeamID <= 0 {
				return failed(m, ToolAwardsByTeam, fmt.Errorf("team_id must be a positive team number")), nil
			}
			out, err := c.TeamAwards(ctx, in.TeamID)
			return result(m, ToolAwardsByTeam, out, err), nil
		}),

		utils.NewTool(&schema.ToolInfo{
			Name: ToolMatchesByTeamEvent,
			Desc: "Get ALL matches for the team at a specific event including match key, without the points breakdown.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"team_id":   {Type: schema.Integer, Desc: "FRC team number, e.g. 5715", Required: true},
				"event_key": {Type: schema.String, Desc: "Event key, e.g. 2024cmptx", Required: true},
			}),
		}, func(ctx context.Context, in *MatchesInput) (any, error) {
			if in.TeamID <= 0 || in.EventKey == "" {
				return failed(m, ToolMatchesByTeamEvent, fmt.Errorf("team_id and event_key are required")), nil
			}
			out, err := c.TeamEventMatches(ctx, in.TeamID, in.EventKey)
			return result(m, ToolMatchesByTeamEvent, out, err), nil
		}),

		utils.NewTool(&schema.ToolInfo{
			Name: ToolMatchByKey,
			Desc: "Get match details by match key, with all the points breakdown.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"match_key": {Type: schema.String, Desc: "Match key, e.g. 2024cmptx_f1m2", Required: true},
			}),
		}, func(ctx context.Context, in *MatchInput) (any, error) {
			if in.MatchKey == "" {
				return failed(m, ToolMatchByKey, fmt.Errorf("match_key is required")), nil
			}
			out, err := c.Match(ctx, in.MatchKey)
			return result(m, ToolMatchByKey, out, err), nil
		}),
	}
}

// Infos returns the tool descriptions to bind to a chat model.
func Infos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func result(m *metrics.Metrics, name string, out any, err error) any {
	if err != nil {
		return failed(m, name, err)
	}
	m.ToolCall(name, metrics.OutcomeOK)
	return out
}

// failed reports err to the model so it can recover instead of aborting the run.
func failed(m *metrics.Metrics, name string, err error) ToolError {
	m.ToolCall(name, metrics.OutcomeError)
	logx.Warn().Err(err).Str("tool", name).Msg("tool call failed")
	return ToolError{Error: err.Error()}
}

// SanitizeArguments normalizes model supplied arguments before decoding.
// Team numbers given as "frc5715" or "5715" become integers; keys are trimmed and lowercased.
// Arguments that are not a JSON object are returned unchanged.
func SanitizeArguments(name, arguments string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return arguments
	}

	if v, ok := args["team_id"]; ok {
		switch vv := v.(type) {
		case string:
			s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(vv)), "frc")
			if n, err := strconv.Atoi(s); err == nil {
				args["team_id"] = n
			}
		case float64:
			args["team_id"] = int(vv)
		}
	}
	for _, k := range []string{"event_key", "match_key"} {
		if v, ok := args[k]; ok {
			args[k] = strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
		}
	}

	b, err := json.Marshal(args)
	if err != nil {
		return arguments
	}
	logx.Debug().Str("tool", name).Str("arguments", string(b)).Msg("tool arguments")
	return string(b)
}
