package planners

import (
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/sessions"
)

// PlanBuilder stacks nodes on top of a source plan. The first error sticks
// and is returned by Build.
type PlanBuilder struct {
	qctx *sessions.QueryContext
	plan PlanNode
	err  error
}

func From(qctx *sessions.QueryContext, plan PlanNode) *PlanBuilder {
	b := &PlanBuilder{qctx: qctx, plan: plan}
	if plan == nil {
		b.err = errors.ErrBadArguments("plan builder needs an input plan")
	}
	return b
}

// Filter checks that predicate lowers to a Boolean function over the
// current schema.
func (b *PlanBuilder) Filter(predicate Expression) *PlanBuilder {
	if b.err != nil {
		return b
	}
	dt, _, err := checkExpression(predicate, b.plan.Schema())
	if err != nil {
		b.err = err
		return b
	}
	if dt != datavalues.Boolean && dt != datavalues.Null {
		b.err = errors.ErrType("filter predicate %s must be Boolean, got %s", predicate, dt)
		return b
	}
	b.plan = &FilterPlan{Predicate: predicate, input: b.plan}
	return b
}

func (b *PlanBuilder) Project(exprs ...Expression) *PlanBuilder {
	if b.err != nil {
		return b
	}
	if len(exprs) == 0 {
		b.err = errors.ErrBadArguments("projection needs at least one expression")
		return b
	}
	fields := make([]datavalues.DataField, 0, len(exprs))
	for _, e := range exprs {
		dt, nullable, err := checkExpression(e, b.plan.Schema())
		if err != nil {
			b.err = err
			return b
		}
		fields = append(fields, datavalues.NewDataField(ExpressionName(e), dt, nullable))
	}
	b.plan = &ProjectionPlan{Exprs: exprs, schema: datavalues.NewDataSchema(fields...), input: b.plan}
	return b
}

func (b *PlanBuilder) Limit(n uint64) *PlanBuilder {
	if b.err != nil {
		return b
	}
	b.plan = &LimitPlan{N: n, input: b.plan}
	return b
}

func (b *PlanBuilder) Build() (PlanNode, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.qctx != nil {
		b.qctx.Logger.Debug("plan built", "root", b.plan.Name(), "schema", b.plan.Schema().String())
	}
	return b.plan, nil
}

func checkExpression(e Expression, schema *datavalues.DataSchema) (datavalues.DataType, bool, error) {
	fn, err := ToFunction(e, schema)
	if err != nil {
		return datavalues.Null, false, err
	}
	defer fn.Release()
	dt, err := fn.ReturnType(schema)
	if err != nil {
		return datavalues.Null, false, err
	}
	nullable, err := fn.Nullable(schema)
	if err != nil {
		return datavalues.Null, false, err
	}
	return dt, nullable, nil
}
