package planners

import (
	"fmt"
	"strings"

	"fuse-query-go/datasources"
	"fuse-query-go/datavalues"
)

var (
	_ = (PlanNode)(&ReadDataSourcePlan{})
	_ = (PlanNode)(&FilterPlan{})
	_ = (PlanNode)(&ProjectionPlan{})
	_ = (PlanNode)(&LimitPlan{})
)

// PlanNode is one step of a logical plan. Input is nil for leaves.
type PlanNode interface {
	Name() string
	Schema() *datavalues.DataSchema
	Input() PlanNode
	fmt.Stringer
}

// ReadDataSourcePlan scans the partitions of a table.
type ReadDataSourcePlan struct {
	Source *datasources.ReadDataSourcePlan
}

func ReadSource(source *datasources.ReadDataSourcePlan) *ReadDataSourcePlan {
	return &ReadDataSourcePlan{Source: source}
}

func (p *ReadDataSourcePlan) Name() string                   { return "ReadDataSourcePlan" }
func (p *ReadDataSourcePlan) Schema() *datavalues.DataSchema { return p.Source.Schema }
func (p *ReadDataSourcePlan) Input() PlanNode                { return nil }
func (p *ReadDataSourcePlan) String() string {
	return fmt.Sprintf("ReadDataSource: scan parts [%d]%s", len(p.Source.Partitions), p.Source.Description)
}

// FilterPlan keeps the rows where Predicate is true. NULL drops the row.
type FilterPlan struct {
	Predicate Expression
	input     PlanNode
}

func (p *FilterPlan) Name() string                   { return "FilterPlan" }
func (p *FilterPlan) Schema() *datavalues.DataSchema { return p.input.Schema() }
func (p *FilterPlan) Input() PlanNode                { return p.input }
func (p *FilterPlan) String() string                 { return "Filter: " + p.Predicate.String() }

// ProjectionPlan computes Exprs for every row. schema holds one field per
// expression, named by ExpressionName.
type ProjectionPlan struct {
	Exprs  []Expression
	schema *datavalues.DataSchema
	input  PlanNode
}

func (p *ProjectionPlan) Name() string                   { return "ProjectionPlan" }
func (p *ProjectionPlan) Schema() *datavalues.DataSchema { return p.schema }
func (p *ProjectionPlan) Input() PlanNode                { return p.input }
func (p *ProjectionPlan) String() string                 { return "Projection: " + p.schema.String() }

type LimitPlan struct {
	N     uint64
	input PlanNode
}

func (p *LimitPlan) Name() string                   { return "LimitPlan" }
func (p *LimitPlan) Schema() *datavalues.DataSchema { return p.input.Schema() }
func (p *LimitPlan) Input() PlanNode                { return p.input }
func (p *LimitPlan) String() string                 { return fmt.Sprintf("Limit: %d", p.N) }

// Walk calls fn from the root down to the leaf, stopping at the first error.
func Walk(plan PlanNode, fn func(depth int, node PlanNode) error) error {
	for depth, node := 0, plan; node != nil; depth, node = depth+1, node.Input() {
		if err := fn(depth, node); err != nil {
			return err
		}
	}
	return nil
}

// Explain renders one node per line, each input indented two more spaces
// than its parent.
func Explain(plan PlanNode) string {
	var lines []string
	_ = Walk(plan, func(depth int, node PlanNode) error {
		lines = append(lines, strings.Repeat("  ", depth)+node.String())
		return nil
	})
	return strings.Join(lines, "\n")
}
