package functions

import (
	"context"
	"testing"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logicBlock has two nullable boolean columns a, b and a UInt64 column n.
func logicBlock(t *testing.T, mem memory.Allocator, a, b []any) *datablocks.DataBlock {
	t.Helper()
	n := make([]uint64, len(a))
	for i := range n {
		n[i] = uint64(i)
	}
	bb := datablocks.NewDataBlockBuilder(mem)
	block, err := bb.
		WithColumn("a", datavalues.Boolean, true, bb.GenNullableBoolArray(a...)).
		WithColumn("b", datavalues.Boolean, true, bb.GenNullableBoolArray(b...)).
		WithColumn("n", datavalues.UInt64, false, bb.GenUint64Array(n...)).
		Build()
	require.NoError(t, err)
	return block
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func andOf(t *testing.T, l, r Function) Function {
	return must(NewAndFunction(l, r))
}

func resultBools(t *testing.T, f Function) []any {
	t.Helper()
	v, err := f.Result()
	require.NoError(t, err)
	arr, ok := v.Array().(*array.Boolean)
	require.True(t, ok, "result is not a boolean array: %s", v)
	out := make([]any, arr.Len())
	for i := range out {
		if arr.IsValid(i) {
			out[i] = arr.Value(i)
		}
	}
	return out
}

func TestUninitialisedResult(t *testing.T) {
	fn := andOf(t, NewColumnFunction("a"), NewColumnFunction("b"))
	_, err := fn.Result()
	require.Error(t, err)
	assert.Equal(t, errors.Internal, errors.CodeOf(err))
	assert.Equal(t, "Saved cannot none", errors.MessageOf(err))
}

func TestReuseAcrossBlocks(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	ctx := compute.WithAllocator(context.Background(), mem)

	b1 := logicBlock(t, mem, []any{true, true, false, false}, []any{true, false, true, false})
	defer b1.Release()
	b2 := logicBlock(t, mem,
		[]any{true, nil, nil, false, true, nil, false},
		[]any{nil, true, false, nil, true, nil, false})
	defer b2.Release()

	fn := andOf(t, NewColumnFunction("a"), NewColumnFunction("b"))
	defer fn.Release()

	require.NoError(t, fn.Eval(ctx, b1))
	assert.Equal(t, []any{true, false, false, false}, resultBools(t, fn))

	require.NoError(t, fn.Eval(ctx, b2))
	v, err := fn.Result()
	require.NoError(t, err)
	assert.Equal(t, 7, v.Array().Len())
	assert.Equal(t, []any{nil, nil, false, false, true, nil, false}, resultBools(t, fn))
}

func TestTypeMismatchThroughTree(t *testing.T) {
	block := logicBlock(t, memory.DefaultAllocator, []any{true, false, true}, []any{true, true, true})
	defer block.Release()

	fn := andOf(t, NewColumnFunction("a"), NewColumnFunction("n"))
	err := fn.Eval(context.Background(), block)
	require.Error(t, err)
	assert.Equal(t, errors.Internal, errors.CodeOf(err))
	assert.Equal(t, "Cannot do data_array AND, left:Boolean, right:UInt64", errors.MessageOf(err))

	_, err = fn.Result()
	assert.Equal(t, "Saved cannot none", errors.MessageOf(err))
}

func TestFailedEvalResetsCache(t *testing.T) {
	good := logicBlock(t, memory.DefaultAllocator, []any{true}, []any{false})
	defer good.Release()
	bb := datablocks.NewDataBlockBuilder(nil)
	bad, err := bb.WithColumn("a", datavalues.Boolean, false, bb.GenBoolArray(true)).Build()
	require.NoError(t, err)
	defer bad.Release()

	fn := must(NewOrFunction(NewColumnFunction("a"), NewColumnFunction("b")))
	defer fn.Release()
	require.NoError(t, fn.Eval(context.Background(), good))

	err = fn.Eval(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, errors.UnknownColumn, errors.CodeOf(err))
	_, err = fn.Result()
	require.Error(t, err)
	assert.Equal(t, errors.Internal, errors.CodeOf(err))

	assert.Error(t, fn.Eval(context.Background(), nil))
}

func TestCloneIndependence(t *testing.T) {
	block := logicBlock(t, memory.DefaultAllocator, []any{true, nil}, []any{nil, false})
	defer block.Release()

	fn := must(NewOrFunction(NewColumnFunction("a"), must(NewNotFunction(NewColumnFunction("b")))))
	defer fn.Release()
	require.NoError(t, fn.Eval(context.Background(), block))

	clone := fn.Clone()
	defer clone.Release()
	_, err := clone.Result()
	require.Error(t, err)
	assert.Equal(t, "Saved cannot none", errors.MessageOf(err))
	for _, c := range clone.Children() {
		_, err := c.Result()
		assert.Error(t, err, "child %s of a clone must be fresh", c)
	}
	assert.Equal(t, fn.String(), clone.String())

	require.NoError(t, clone.Eval(context.Background(), block))
	assert.Equal(t, resultBools(t, fn), resultBools(t, clone))

	// releasing the clone leaves the original readable
	clone.Release()
	assert.Equal(t, []any{true, true}, resultBools(t, fn))
}

func TestSharedSubtree(t *testing.T) {
	block := logicBlock(t, memory.DefaultAllocator, []any{true, false, nil}, []any{false, false, true})
	defer block.Release()

	shared := must(NewXorFunction(NewColumnFunction("a"), NewColumnFunction("b")))
	fn := andOf(t, shared, must(NewNotFunction(shared)))
	defer fn.Release()

	require.NoError(t, fn.Eval(context.Background(), block))
	// x AND NOT x is false wherever x is known
	assert.Equal(t, []any{false, false, nil}, resultBools(t, fn))
	assert.Equal(t, []any{true, false, nil}, resultBools(t, shared))

	clone := fn.Clone()
	defer clone.Release()
	left := clone.Children()[0]
	notRight := clone.Children()[1]
	assert.Same(t, left, notRight.Children()[0])
	assert.NotSame(t, shared, left)
}

func TestEvalIdempotentAndLengthPreserving(t *testing.T) {
	block := logicBlock(t, memory.DefaultAllocator,
		[]any{true, false, nil, true, nil, false, true, true, false},
		[]any{nil, true, false, true, nil, false, false, nil, true})
	defer block.Release()

	one, err := NewConstantFunction(uint64(1))
	require.NoError(t, err)
	trees := []Function{
		andOf(t, NewColumnFunction("a"), NewColumnFunction("b")),
		must(NewOrFunction(NewColumnFunction("a"), must(NewConstantFunction(nil)))),
		must(Get("=", NewColumnFunction("n"), one)),
		must(Get("+", NewColumnFunction("n"), one)),
		must(Get("cast", NewColumnFunction("n"), must(NewConstantFunction("Int64")))),
		must(NewAliasFunction("x", NewColumnFunction("a"))),
		one,
	}
	for _, fn := range trees {
		t.Run(fn.String(), func(t *testing.T) {
			defer fn.Release()
			require.NoError(t, fn.Eval(context.Background(), block))
			first, err := fn.Result()
			require.NoError(t, err)
			assert.Equal(t, block.NumRows(), first.Len(block.NumRows()))
			firstArr, err := first.AsArray(memory.DefaultAllocator, block.NumRows())
			require.NoError(t, err)
			defer firstArr.Release()

			require.NoError(t, fn.Eval(context.Background(), block))
			second, err := fn.Result()
			require.NoError(t, err)
			secondArr, err := second.AsArray(memory.DefaultAllocator, block.NumRows())
			require.NoError(t, err)
			defer secondArr.Release()
			assert.True(t, array.Equal(firstArr, secondArr))
		})
	}
}

func TestConstructorArity(t *testing.T) {
	a := NewColumnFunction("a")
	_, err := NewAndFunction(a)
	require.Error(t, err)
	assert.Equal(t, errors.Arity, errors.CodeOf(err))

	_, err = NewNotFunction(a, a)
	assert.Equal(t, errors.Arity, errors.CodeOf(err))

	_, err = NewComparisonFunction(datavalues.Eq, a, nil)
	assert.Equal(t, errors.Arity, errors.CodeOf(err))

	_, err = NewLogicFunction(datavalues.Eq, a, a)
	assert.Equal(t, errors.BadArguments, errors.CodeOf(err))

	fn, err := Get("and", a)
	assert.Nil(t, fn)
	assert.Equal(t, errors.Arity, errors.CodeOf(err))
}

func TestReturnTypeAndNullable(t *testing.T) {
	schema := datavalues.NewDataSchema(
		datavalues.NewDataField("a", datavalues.Boolean, false),
		datavalues.NewDataField("b", datavalues.Boolean, true),
		datavalues.NewDataField("n", datavalues.UInt64, false),
		datavalues.NewDataField("i", datavalues.Int64, false),
	)
	a, b, n, i := NewColumnFunction("a"), NewColumnFunction("b"), NewColumnFunction("n"), NewColumnFunction("i")

	and := andOf(t, a, a)
	dt, err := and.ReturnType(schema)
	require.NoError(t, err)
	assert.Equal(t, datavalues.Boolean, dt)
	nullable, err := and.Nullable(schema)
	require.NoError(t, err)
	assert.False(t, nullable)

	nullable, err = andOf(t, a, b).Nullable(schema)
	require.NoError(t, err)
	assert.True(t, nullable)

	_, err = andOf(t, a, n).ReturnType(schema)
	require.Error(t, err)
	assert.Equal(t, errors.Type, errors.CodeOf(err))

	_, err = must(Get("=", n, i)).ReturnType(schema)
	assert.Equal(t, errors.Type, errors.CodeOf(err))

	plus := must(Get("+", i, i))
	dt, err = plus.ReturnType(schema)
	require.NoError(t, err)
	assert.Equal(t, datavalues.Int64, dt)

	_, err = must(Get("+", a, a)).ReturnType(schema)
	assert.Equal(t, errors.Type, errors.CodeOf(err))

	cast := must(Get("CAST", n, must(NewConstantFunction("Int64"))))
	dt, err = cast.ReturnType(schema)
	require.NoError(t, err)
	assert.Equal(t, datavalues.Int64, dt)

	_, err = NewColumnFunction("missing").ReturnType(schema)
	assert.Equal(t, errors.UnknownColumn, errors.CodeOf(err))

	null := must(NewConstantFunction(nil))
	nullable, err = null.Nullable(schema)
	require.NoError(t, err)
	assert.True(t, nullable)
}

func TestDisplay(t *testing.T) {
	a, b, c := NewColumnFunction("a"), NewColumnFunction("b"), NewColumnFunction("c")
	or := must(NewOrFunction(a, b))
	one := must(NewConstantFunction(1))
	two := must(NewConstantFunction(2))

	tests := []struct {
		fn   Function
		want string
	}{
		{andOf(t, a, b), "a AND b"},
		{andOf(t, or, c), "(a OR b) AND c"},
		{must(NewOrFunction(andOf(t, a, b), c)), "a AND b OR c"},
		{must(NewNotFunction(or)), "NOT (a OR b)"},
		{must(Get("=", a, one)), "a = 1"},
		{andOf(t, must(Get("=", a, one)), must(Get(">", b, two))), "a = 1 AND b > 2"},
		{must(Get("-", a, must(Get("-", b, c)))), "a - (b - c)"},
		{must(Get("*", must(Get("+", a, b)), c)), "(a + b) * c"},
		{must(Get("cast", a, must(NewConstantFunction("UInt64")))), "CAST(a AS UInt64)"},
		{must(NewConstantFunction("x")), "'x'"},
		{must(NewConstantFunction(nil)), "NULL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.fn.String())
	}
}

func TestFunctionFactory(t *testing.T) {
	for _, name := range []string{"and", "or", "xor", "not", "=", "<>", "<", "<=", ">", ">=", "+", "-", "*", "/", "cast"} {
		assert.Contains(t, defaultFactory.Names(), name)
	}

	fn, err := Get("AnD", NewColumnFunction("a"), NewColumnFunction("b"))
	require.NoError(t, err)
	assert.Equal(t, "and", fn.Name())

	_, err = Get("like", NewColumnFunction("a"))
	require.Error(t, err)
	assert.Equal(t, errors.BadArguments, errors.CodeOf(err))

	_, err = Get("cast", NewColumnFunction("a"), NewColumnFunction("b"))
	assert.Equal(t, errors.BadArguments, errors.CodeOf(err))
	_, err = Get("cast", NewColumnFunction("a"), must(NewConstantFunction("Decimal")))
	assert.Equal(t, errors.Type, errors.CodeOf(err))

	fn, err = ForOperator(datavalues.GtEq, NewColumnFunction("a"), NewColumnFunction("b"))
	require.NoError(t, err)
	assert.Equal(t, ">=", fn.Name())

	ff := NewFunctionFactory()
	ff.Register("Both", NewAndFunction)
	fn, err = ff.Get("both", NewColumnFunction("a"), NewColumnFunction("b"))
	require.NoError(t, err)
	assert.Equal(t, "a AND b", fn.String())
}

func TestEvalReleasesEverything(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	ctx := compute.WithAllocator(context.Background(), mem)

	block := logicBlock(t, mem, []any{true, nil, false, true}, []any{false, true, nil, true})
	defer block.Release()

	one := must(NewConstantFunction(uint64(1)))
	eq := must(Get("<>", NewColumnFunction("n"), one))
	fn := must(NewOrFunction(andOf(t, NewColumnFunction("a"), eq), must(NewNotFunction(NewColumnFunction("b")))))
	for i := 0; i < 3; i++ {
		require.NoError(t, fn.Eval(ctx, block))
	}
	assert.Equal(t, []any{true, false, nil, true}, resultBools(t, fn))
	fn.Release()
}
