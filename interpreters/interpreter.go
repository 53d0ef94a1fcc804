package interpreters

import (
	"context"
	"io"
	"strings"
	"time"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/functions"
	"fuse-query-go/planners"
	"fuse-query-go/processors"
	"fuse-query-go/sessions"
)

var (
	_ = (Interpreter)(&SelectInterpreter{})
	_ = (Interpreter)(&ExplainInterpreter{})
)

type Interpreter interface {
	Name() string
	Execute(ctx context.Context) ([]*datablocks.DataBlock, error)
}

// BuildPipeline turns plan into a chain of processors, leaf first. Every
// expression is lowered against its input's schema. Filter and projection
// stages evaluate up to MaxThreads blocks at once.
func BuildPipeline(qctx *sessions.QueryContext, plan planners.PlanNode) (processors.Processor, error) {
	switch p := plan.(type) {
	case *planners.ReadDataSourcePlan:
		return processors.NewSourceProcessor(qctx, p.Source)
	case *planners.FilterPlan:
		input, err := BuildPipeline(qctx, p.Input())
		if err != nil {
			return nil, err
		}
		pred, err := planners.ToFunction(p.Predicate, input.Schema())
		if err != nil {
			return nil, closeOnError(input, err)
		}
		filter, err := processors.NewFilterProcessor(input, pred)
		if err != nil {
			pred.Release()
			return nil, closeOnError(input, err)
		}
		return filter.WithWorkers(qctx.Settings.MaxThreads), nil
	case *planners.ProjectionPlan:
		input, err := BuildPipeline(qctx, p.Input())
		if err != nil {
			return nil, err
		}
		fns := make([]functions.Function, 0, len(p.Exprs))
		release := func() {
			for _, fn := range fns {
				fn.Release()
			}
		}
		for _, e := range p.Exprs {
			fn, err := planners.ToFunction(e, input.Schema())
			if err != nil {
				release()
				return nil, closeOnError(input, err)
			}
			fns = append(fns, fn)
		}
		proj, err := processors.NewProjectionProcessor(input, fns, p.Schema())
		if err != nil {
			release()
			return nil, closeOnError(input, err)
		}
		return proj.WithWorkers(qctx.Settings.MaxThreads), nil
	case *planners.LimitPlan:
		input, err := BuildPipeline(qctx, p.Input())
		if err != nil {
			return nil, err
		}
		return processors.NewLimitProcessor(input, p.N), nil
	case nil:
		return nil, errors.ErrBadArguments("cannot build a pipeline from a nil plan")
	default:
		return nil, errors.ErrNotImplemented("no processor for %s", plan.Name())
	}
}

func closeOnError(p processors.Processor, err error) error {
	_ = p.Close()
	return err
}

// SelectInterpreter runs a query plan and collects its output blocks.
type SelectInterpreter struct {
	qctx *sessions.QueryContext
	plan planners.PlanNode
}

func NewSelectInterpreter(qctx *sessions.QueryContext, plan planners.PlanNode) *SelectInterpreter {
	return &SelectInterpreter{qctx: qctx, plan: plan}
}

func (i *SelectInterpreter) Name() string { return "SelectInterpreter" }

// Execute drains the pipeline. The caller releases the returned blocks.
func (i *SelectInterpreter) Execute(ctx context.Context) ([]*datablocks.DataBlock, error) {
	start := time.Now()
	pipeline, err := BuildPipeline(i.qctx, i.plan)
	if err != nil {
		return nil, err
	}
	var (
		out  []*datablocks.DataBlock
		rows int
	)
	for {
		block, err := pipeline.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			for _, b := range out {
				b.Release()
			}
			return nil, closeOnError(pipeline, err)
		}
		rows += block.NumRows()
		out = append(out, block)
	}
	if err := pipeline.Close(); err != nil {
		for _, b := range out {
			b.Release()
		}
		return nil, err
	}
	i.qctx.Logger.Info("query finished", "rows", rows, "blocks", len(out), "elapsed", time.Since(start))
	return out, nil
}

// ExplainInterpreter returns the plan text as one Utf8 column "explain", a
// row per plan node.
type ExplainInterpreter struct {
	qctx *sessions.QueryContext
	plan planners.PlanNode
}

func NewExplainInterpreter(qctx *sessions.QueryContext, plan planners.PlanNode) *ExplainInterpreter {
	return &ExplainInterpreter{qctx: qctx, plan: plan}
}

func (i *ExplainInterpreter) Name() string { return "ExplainInterpreter" }

func (i *ExplainInterpreter) Execute(ctx context.Context) ([]*datablocks.DataBlock, error) {
	lines := strings.Split(planners.Explain(i.plan), "\n")
	bb := datablocks.NewDataBlockBuilder(i.qctx.Allocator)
	block, err := bb.WithColumn("explain", datavalues.Utf8, false, bb.GenStringArray(lines...)).Build()
	if err != nil {
		return nil, err
	}
	return []*datablocks.DataBlock{block}, nil
}
