package chart

import (
	"context"
	"errors"
	"strings"

	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/prompts"
	"github.com/community-assistant/server/internal/metrics"
	logx "github.com/community-assistant/server/pkg/logger"
)

// Synthesizer asks for a chart description of a result table and draws it.
type Synthesizer struct {
	chain   *llm.PromptChain
	metrics *metrics.Metrics
}

func NewSynthesizer(ctx context.Context, client *llm.Client, modelName string, m *metrics.Metrics) (*Synthesizer, error) {
	chain, err := client.NewPromptChain(ctx, modelName, prompts.Chart())
	if err != nil {
		return nil, err
	}
	return &Synthesizer{chain: chain, metrics: m}, nil
}

// Synthesize returns a figure for rs, or nil. Failures are logged and never returned.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, rs *model.ResultSet) *model.Figure {
	if rs.Empty() {
		s.metrics.ChartOutcome(metrics.ChartSkipped)
		return nil
	}

	content, err := s.chain.Complete(ctx, map[string]any{
		"Question": question,
		"Columns":  strings.Join(rs.Columns, ", "),
		"Table":    rs.String(),
	})
	if err != nil {
		return s.fail(err, "chart completion failed")
	}

	spec, err := ParseSpec(content)
	if errors.Is(err, ErrNoChart) {
		s.metrics.ChartOutcome(metrics.ChartSkipped)
		logx.Debug().Msg("chart not applicable")
		return nil
	}
	if err != nil {
		return s.fail(err, "chart spec rejected")
	}

	fig, err := Interpret(spec, rs)
	if err != nil {
		return s.fail(err, "chart not drawn")
	}
	s.metrics.ChartOutcome(metrics.ChartRendered)
	logx.Debug().Str("kind", spec.Kind).Int("traces", len(fig.Data)).Msg("chart drawn")
	return fig
}

func (s *Synthesizer) fail(err error, msg string) *model.Figure {
	s.metrics.ChartOutcome(metrics.ChartFailed)
	logx.Warn().Err(err).Msg(msg)
	return nil
}
