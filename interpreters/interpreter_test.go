package interpreters

import (
	"context"
	"testing"

	"fuse-query-go/config"
	"fuse-query-go/datablocks"
	"fuse-query-go/datasources"
	"fuse-query-go/errors"
	"fuse-query-go/planners"
	"fuse-query-go/sessions"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbersPlan(t *testing.T, rows uint64) (*sessions.QueryContext, *planners.PlanBuilder) {
	t.Helper()
	config.Reset()
	qctx, err := sessions.TryCreateContext()
	require.NoError(t, err)
	source, err := datasources.NewNumberTestData().NumberReadSourcePlanForTest(qctx, rows)
	require.NoError(t, err)
	return qctx, planners.From(qctx, planners.ReadSource(source))
}

func collectUint64(t *testing.T, blocks []*datablocks.DataBlock, col int) []uint64 {
	t.Helper()
	var out []uint64
	for _, b := range blocks {
		out = append(out, b.Column(col).(*array.Uint64).Uint64Values()...)
		b.Release()
	}
	return out
}

func TestSelectFilterProjection(t *testing.T) {
	qctx, builder := numbersPlan(t, 8)
	plan, err := builder.
		Filter(planners.Field("number").Eq(planners.Constant(1))).
		Project(planners.Field("number")).
		Build()
	require.NoError(t, err)

	blocks, err := NewSelectInterpreter(qctx, plan).Execute(qctx.Context())
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "number:UInt64", blocks[0].Schema().String())
	assert.Equal(t, []uint64{1}, collectUint64(t, blocks, 0))
}

func TestSelectComputedColumns(t *testing.T) {
	qctx, builder := numbersPlan(t, 20)
	plan, err := builder.
		Filter(planners.And(
			planners.Field("number").GtEq(planners.Constant(5)),
			planners.Field("number").Lt(planners.Constant(9)),
		)).
		Project(
			planners.Field("number"),
			planners.Alias("next", planners.Field("number").Plus(planners.Constant(1))),
		).
		Limit(3).
		Build()
	require.NoError(t, err)

	blocks, err := NewSelectInterpreter(qctx, plan).Execute(qctx.Context())
	require.NoError(t, err)
	var numbers, next []uint64
	for _, b := range blocks {
		assert.Equal(t, "number:UInt64, next:UInt64", b.Schema().String())
		numbers = append(numbers, b.Column(0).(*array.Uint64).Uint64Values()...)
		next = append(next, b.Column(1).(*array.Uint64).Uint64Values()...)
		b.Release()
	}
	assert.Equal(t, []uint64{5, 6, 7}, numbers)
	assert.Equal(t, []uint64{6, 7, 8}, next)
}

func TestSelectCancelled(t *testing.T) {
	qctx, builder := numbersPlan(t, 100)
	plan, err := builder.Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(qctx.Context())
	cancel()
	_, err = NewSelectInterpreter(qctx, plan).Execute(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.Cancelled, errors.CodeOf(err))
}

func TestBuildPipelineNilPlan(t *testing.T) {
	qctx, _ := numbersPlan(t, 1)
	_, err := BuildPipeline(qctx, nil)
	require.Error(t, err)
	assert.Equal(t, errors.BadArguments, errors.CodeOf(err))
}

func TestExplainInterpreter(t *testing.T) {
	qctx, builder := numbersPlan(t, 8)
	plan, err := builder.
		Filter(planners.Field("number").Eq(planners.Constant(1))).
		Project(planners.Field("number")).
		Build()
	require.NoError(t, err)

	blocks, err := NewExplainInterpreter(qctx, plan).Execute(qctx.Context())
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	defer blocks[0].Release()
	col := blocks[0].Column(0).(*array.String)
	require.Equal(t, 3, col.Len())
	assert.Equal(t, "Projection: number:UInt64", col.Value(0))
	assert.Equal(t, "  Filter: (number = 1)", col.Value(1))
	assert.Equal(t, "    ReadDataSource: scan parts [8](Read from system.numbers_mt table, Read Rows:8, Read Bytes:64)", col.Value(2))
}

func runNumbersWithThreads(t *testing.T, threads int) ([]uint64, []uint64) {
	t.Helper()
	config.Reset()
	qctx, err := sessions.TryCreateContext()
	require.NoError(t, err)
	require.NoError(t, qctx.SetMaxThreads(threads))
	require.NoError(t, qctx.SetMaxBlockSize(7))
	source, err := datasources.NewNumberTestData().NumberReadSourcePlanForTest(qctx, 100)
	require.NoError(t, err)
	plan, err := planners.From(qctx, planners.ReadSource(source)).
		Filter(planners.Field("number").GtEq(planners.Constant(10)).And(planners.Field("number").Lt(planners.Constant(60)))).
		Project(
			planners.Field("number"),
			planners.Alias("double", planners.Field("number").Mul(planners.Constant(2))),
		).
		Build()
	require.NoError(t, err)

	blocks, err := NewSelectInterpreter(qctx, plan).Execute(qctx.Context())
	require.NoError(t, err)
	var numbers, doubles []uint64
	for _, b := range blocks {
		numbers = append(numbers, b.Column(0).(*array.Uint64).Uint64Values()...)
		doubles = append(doubles, b.Column(1).(*array.Uint64).Uint64Values()...)
		b.Release()
	}
	return numbers, doubles
}

func TestSelectSameResultAcrossThreads(t *testing.T) {
	numbers, doubles := runNumbersWithThreads(t, 1)
	require.Len(t, numbers, 50)
	assert.Equal(t, uint64(10), numbers[0])
	assert.Equal(t, uint64(118), doubles[49])
	for _, threads := range []int{2, 4, 8} {
		n, d := runNumbersWithThreads(t, threads)
		assert.Equal(t, numbers, n, "threads=%d", threads)
		assert.Equal(t, doubles, d, "threads=%d", threads)
	}
}
