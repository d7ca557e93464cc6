package text2sql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/metrics"
	logx "github.com/community-assistant/server/pkg/logger"
)

// Node keys of the pipeline graph.
const (
	NodeSynthesize = "synthesize"
	NodeValidate   = "validate"
	NodeExecute    = "execute"
	NodeCompose    = "compose"
	NodeChart      = "chart"
	NodeFinish     = "finish"
)

// Visible step names.
const (
	StepGenerateQuery = "Generating SQL Query"
	StepRunQuery      = "Running SQL Query"
)

type QuerySynthesizer interface {
	Synthesize(ctx context.Context, question string) (model.SQLQuery, error)
}

type AnswerComposer interface {
	Compose(ctx context.Context, question string, rs *model.ResultSet) (string, error)
}

// ChartSynthesizer returns a figure for rs, or nil when none can be drawn.
type ChartSynthesizer interface {
	Synthesize(ctx context.Context, question string, rs *model.ResultSet) *model.Figure
}

// PipelineConfig wires the stages of one Text-to-SQL turn. Charts and Metrics are optional.
type PipelineConfig struct {
	Synthesizer QuerySynthesizer
	Validator   *Validator
	Executor    QueryExecutor
	Composer    AnswerComposer
	Charts      ChartSynthesizer
	Metrics     *metrics.Metrics
}

// Pipeline answers questions by generating, validating and running SQL.
type Pipeline struct {
	cfg      PipelineConfig
	runnable compose.Runnable[*model.Turn, *model.Turn]
}

func NewPipeline(ctx context.Context, cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Synthesizer == nil || cfg.Validator == nil || cfg.Executor == nil || cfg.Composer == nil {
		return nil, fmt.Errorf("text2sql pipeline is not fully configured")
	}
	p := &Pipeline{cfg: cfg}

	g := compose.NewGraph[*model.Turn, *model.Turn]()
	nodes := map[string]func(context.Context, *model.Turn) (*model.Turn, error){
		NodeSynthesize: p.synthesize,
		NodeValidate:   p.validate,
		NodeExecute:    p.execute,
		NodeCompose:    p.compose,
		NodeChart:      p.chart,
		NodeFinish:     p.finish,
	}
	for key, fn := range nodes {
		if err := g.AddLambdaNode(key, compose.InvokableLambda(fn)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", key, err)
		}
	}

	if err := g.AddEdge(compose.START, NodeSynthesize); err != nil {
		return nil, err
	}
	// each stage continues only while the turn has not failed
	chain := [][2]string{
		{NodeSynthesize, NodeValidate},
		{NodeValidate, NodeExecute},
		{NodeExecute, NodeCompose},
		{NodeCompose, NodeChart},
	}
	for _, c := range chain {
		if err := g.AddBranch(c[0], continueOrFinish(c[1])); err != nil {
			return nil, fmt.Errorf("add branch after %s: %w", c[0], err)
		}
	}
	if err := g.AddEdge(NodeChart, NodeFinish); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeFinish, compose.END); err != nil {
		return nil, err
	}

	runnable, err := g.Compile(ctx, compose.WithGraphName("text2sql"), compose.WithMaxRunSteps(len(nodes)+4))
	if err != nil {
		return nil, fmt.Errorf("compile text2sql graph: %w", err)
	}
	p.runnable = runnable
	return p, nil
}

func continueOrFinish(next string) *compose.GraphBranch {
	return compose.NewGraphBranch(func(_ context.Context, t *model.Turn) (string, error) {
		if t.Failed() {
			return NodeFinish, nil
		}
		return next, nil
	}, map[string]bool{next: true, NodeFinish: true})
}

// Answer runs one turn. The reply is always set; on a stage failure it carries
// the visible error text and the steps completed so far, and err is the *model.StageError.
func (p *Pipeline) Answer(ctx context.Context, question string) (*model.Reply, error) {
	turn, err := p.runnable.Invoke(ctx, &model.Turn{Question: question})
	if err != nil {
		return nil, err
	}
	if turn.Failed() {
		return turn.Reply(), turn.Failure
	}
	return turn.Reply(), nil
}

func (p *Pipeline) synthesize(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	q, err := p.cfg.Synthesizer.Synthesize(ctx, t.Question)
	if err != nil {
		return t.Fail(model.StageSynthesize, err), nil
	}
	t.Query = &q
	return t, nil
}

func (p *Pipeline) validate(_ context.Context, t *model.Turn) (*model.Turn, error) {
	q, err := p.cfg.Validator.Validate(t.Question, *t.Query)
	if err != nil {
		t.Steps = append(t.Steps, queryStep(*t.Query))
		return t.Fail(model.StageValidate, err), nil
	}
	t.Query = &q
	t.Steps = append(t.Steps, queryStep(q))
	return t, nil
}

func (p *Pipeline) execute(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	rs, err := p.cfg.Executor.Execute(ctx, t.Query.SQLQuery)
	if err != nil {
		return t.Fail(model.StageExecute, err), nil
	}
	t.Result = rs
	t.Steps = append(t.Steps, model.Step{Name: StepRunQuery, Output: rs.String()})
	return t, nil
}

func (p *Pipeline) compose(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	answer, err := p.cfg.Composer.Compose(ctx, t.Question, t.Result)
	if err != nil {
		return t.Fail(model.StageCompose, err), nil
	}
	t.Answer = answer
	return t, nil
}

func (p *Pipeline) chart(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	if p.cfg.Charts == nil || t.Result.Empty() {
		p.cfg.Metrics.ChartOutcome(metrics.ChartSkipped)
		return t, nil
	}
	t.Figure = p.cfg.Charts.Synthesize(ctx, t.Question, t.Result)
	return t, nil
}

func (p *Pipeline) finish(_ context.Context, t *model.Turn) (*model.Turn, error) {
	if t.Failed() {
		p.cfg.Metrics.StageFailed(t.Failure.Stage)
		logx.Warn().Err(t.Failure.Err).Str("stage", t.Failure.Stage).Msg("text2sql turn failed")
		return t, nil
	}
	logx.Debug().Int("rows", len(t.Result.Rows)).Bool("figure", t.Figure != nil).Msg("text2sql turn answered")
	return t, nil
}

func queryStep(q model.SQLQuery) model.Step {
	b, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return model.Step{Name: StepGenerateQuery, Output: q.SQLQuery}
	}
	return model.Step{Name: StepGenerateQuery, Language: "json", Output: string(b)}
}
