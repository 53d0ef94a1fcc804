package datavalues

import (
	"context"
	"math/rand"
	"testing"

	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/arrow/scalar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// genBool builds a boolean array; a nil entry is a null.
func genBool(mem memory.Allocator, values ...any) *array.Boolean {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	for _, v := range values {
		if v == nil {
			b.AppendNull()
			continue
		}
		b.Append(v.(bool))
	}
	return b.NewBooleanArray()
}

func boolsOf(arr *array.Boolean) []any {
	out := make([]any, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			out[i] = nil
			continue
		}
		out[i] = arr.Value(i)
	}
	return out
}

func randomBool(rng *rand.Rand, mem memory.Allocator, n int, nullRate float64) *array.Boolean {
	values := make([]any, n)
	for i := range values {
		if rng.Float64() < nullRate {
			continue
		}
		values[i] = rng.Intn(2) == 1
	}
	return genBool(mem, values...)
}

func TestDataArrayAnd(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	l := genBool(mem, true, true, false, false)
	defer l.Release()
	r := genBool(mem, true, false, true, false)
	defer r.Release()

	out, err := DataArrayAnd(mem, l, r)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []any{true, false, false, false}, boolsOf(out))
	assert.Equal(t, 0, out.NullN())
	// no nulls means no validity bitmap at all
	assert.Nil(t, out.Data().Buffers()[0])
}

func TestDataArrayOr(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	l := genBool(mem, true, false, nil)
	defer l.Release()
	r := genBool(mem, nil, nil, nil)
	defer r.Release()

	out, err := DataArrayOr(mem, l, r)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []any{true, nil, nil}, boolsOf(out))
	assert.True(t, out.IsValid(0))
	assert.True(t, out.IsNull(1))
	assert.True(t, out.IsNull(2))
	assert.Equal(t, 2, out.NullN())
}

func TestKleeneTruthTables(t *testing.T) {
	operands := []any{true, false, nil}
	and := map[[2]any]any{
		{true, true}: true, {true, false}: false, {true, nil}: nil,
		{false, true}: false, {false, false}: false, {false, nil}: false,
		{nil, true}: nil, {nil, false}: false, {nil, nil}: nil,
	}
	or := map[[2]any]any{
		{true, true}: true, {true, false}: true, {true, nil}: true,
		{false, true}: true, {false, false}: false, {false, nil}: nil,
		{nil, true}: true, {nil, false}: nil, {nil, nil}: nil,
	}
	xor := map[[2]any]any{
		{true, true}: false, {true, false}: true, {true, nil}: nil,
		{false, true}: true, {false, false}: false, {false, nil}: nil,
		{nil, true}: nil, {nil, false}: nil, {nil, nil}: nil,
	}

	var lv, rv []any
	for _, a := range operands {
		for _, b := range operands {
			lv = append(lv, a)
			rv = append(rv, b)
		}
	}
	l := genBool(memory.DefaultAllocator, lv...)
	defer l.Release()
	r := genBool(memory.DefaultAllocator, rv...)
	defer r.Release()

	tests := []struct {
		name   string
		kernel func(memory.Allocator, arrow.Array, arrow.Array) (*array.Boolean, error)
		table  map[[2]any]any
	}{
		{"AND", DataArrayAnd, and},
		{"OR", DataArrayOr, or},
		{"XOR", DataArrayXor, xor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.kernel(memory.DefaultAllocator, l, r)
			require.NoError(t, err)
			defer out.Release()
			got := boolsOf(out)
			for i := range lv {
				assert.Equal(t, tt.table[[2]any{lv[i], rv[i]}], got[i], "%v %s %v", lv[i], tt.name, rv[i])
			}
		})
	}
}

func TestDataArrayNot(t *testing.T) {
	in := genBool(memory.DefaultAllocator, true, false, nil, true)
	defer in.Release()
	out, err := DataArrayNot(memory.DefaultAllocator, in)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []any{false, true, nil, false}, boolsOf(out))
}

func TestLogicKernelErrors(t *testing.T) {
	mem := memory.DefaultAllocator
	l := genBool(mem, true, false)
	defer l.Release()
	short := genBool(mem, true)
	defer short.Release()
	ub := array.NewUint64Builder(mem)
	ub.AppendValues([]uint64{1, 2}, nil)
	u := ub.NewArray()
	ub.Release()
	defer u.Release()

	_, err := DataArrayAnd(mem, l, short)
	require.Error(t, err)
	assert.Equal(t, errors.Internal, errors.CodeOf(err))
	assert.Contains(t, errors.MessageOf(err), "length mismatch")

	_, err = DataArrayOr(mem, l, u)
	require.Error(t, err)
	assert.Equal(t, errors.Internal, errors.CodeOf(err))

	_, err = DataArrayNot(mem, u)
	require.Error(t, err)
	assert.Equal(t, errors.Internal, errors.CodeOf(err))
}

func TestLogicKernelUnalignedSlices(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mem := memory.DefaultAllocator
	base := randomBool(rng, mem, 70, 0.2)
	defer base.Release()
	other := randomBool(rng, mem, 70, 0.2)
	defer other.Release()

	// offsets 3 and 11 force the bit-gathering path
	l := array.NewSlice(base, 3, 60).(*array.Boolean)
	defer l.Release()
	r := array.NewSlice(other, 11, 68).(*array.Boolean)
	defer r.Release()

	out, err := DataArrayAnd(mem, l, r)
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, l.Len(), out.Len())
	for i := 0; i < l.Len(); i++ {
		var want any
		switch {
		case l.IsValid(i) && !l.Value(i), r.IsValid(i) && !r.Value(i):
			want = false
		case l.IsValid(i) && r.IsValid(i):
			want = true
		}
		assert.Equal(t, want, boolsOf(out)[i], "position %d", i)
	}
}

func TestLogicKernelMatchesArrowKleene(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()
	for _, n := range []int{0, 1, 7, 8, 9, 63, 64, 65, 1000} {
		l := randomBool(rng, memory.DefaultAllocator, n, 0.3)
		r := randomBool(rng, memory.DefaultAllocator, n, 0.3)
		for name, kernel := range map[string]func(memory.Allocator, arrow.Array, arrow.Array) (*array.Boolean, error){
			"and_kleene": DataArrayAnd,
			"or_kleene":  DataArrayOr,
		} {
			ours, err := kernel(memory.DefaultAllocator, l, r)
			require.NoError(t, err)
			theirs, err := compute.CallFunction(ctx, name, nil, compute.NewDatum(l), compute.NewDatum(r))
			require.NoError(t, err)
			want := theirs.(*compute.ArrayDatum).MakeArray()
			assert.True(t, array.Equal(want, ours), "%s n=%d\nwant %s\ngot  %s", name, n, want, ours)
			want.Release()
			theirs.Release()
			ours.Release()
		}
		l.Release()
		r.Release()
	}
}

func TestLogicKernelLaws(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	mem := memory.DefaultAllocator
	for iter := 0; iter < 20; iter++ {
		n := rng.Intn(200)
		l := randomBool(rng, mem, n, 0.25)
		r := randomBool(rng, mem, n, 0.25)
		lBefore, rBefore := boolsOf(l), boolsOf(r)

		and1, err := DataArrayAnd(mem, l, r)
		require.NoError(t, err)
		and2, err := DataArrayAnd(mem, l, r)
		require.NoError(t, err)
		andSwapped, err := DataArrayAnd(mem, r, l)
		require.NoError(t, err)
		orSwapped, err := DataArrayOr(mem, r, l)
		require.NoError(t, err)
		or1, err := DataArrayOr(mem, l, r)
		require.NoError(t, err)

		// deterministic down to the bytes, and inputs untouched
		assert.Equal(t, and1.Data().Buffers()[1].Bytes(), and2.Data().Buffers()[1].Bytes())
		assert.Equal(t, lBefore, boolsOf(l))
		assert.Equal(t, rBefore, boolsOf(r))

		// commutativity holds at every position under three-valued logic
		assert.Equal(t, boolsOf(and1), boolsOf(andSwapped))
		assert.Equal(t, boolsOf(or1), boolsOf(orSwapped))

		// De Morgan: NOT(L AND R) == NOT(L) OR NOT(R)
		notAnd, err := DataArrayNot(mem, and1)
		require.NoError(t, err)
		notL, err := DataArrayNot(mem, l)
		require.NoError(t, err)
		notR, err := DataArrayNot(mem, r)
		require.NoError(t, err)
		orNots, err := DataArrayOr(mem, notL, notR)
		require.NoError(t, err)
		assert.Equal(t, boolsOf(notAnd), boolsOf(orNots))

		for _, a := range []arrow.Array{l, r, and1, and2, andSwapped, orSwapped, or1, notAnd, notL, notR, orNots} {
			a.Release()
		}
	}
}

func TestLogicKernelScalarBroadcast(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr := genBool(mem, true, false, nil)
	defer arr.Release()
	left, err := NewArrayValue(arr)
	require.NoError(t, err)

	tests := []struct {
		name  string
		op    DataValueOperator
		right scalar.Scalar
		want  []any
	}{
		{"AND true", And, scalar.NewBooleanScalar(true), []any{true, false, nil}},
		{"AND false", And, scalar.NewBooleanScalar(false), []any{false, false, false}},
		{"AND null", And, scalar.MakeNullScalar(arrow.FixedWidthTypes.Boolean), []any{nil, false, nil}},
		{"OR true", Or, scalar.NewBooleanScalar(true), []any{true, true, true}},
		{"OR null", Or, scalar.MakeNullScalar(arrow.Null), []any{true, nil, nil}},
		{"XOR true", Xor, scalar.NewBooleanScalar(true), []any{false, true, nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			right, err := NewScalarValue(tt.right)
			require.NoError(t, err)
			out, err := DataArrayBinaryOp(NewKernelContext(context.Background(), mem, 3), tt.op, left, right)
			require.NoError(t, err)
			defer out.Release()
			require.False(t, out.IsScalar())
			assert.Equal(t, tt.want, boolsOf(out.Array().(*array.Boolean)))
		})
	}
}
