package datavalues

import (
	"testing"

	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTypeArrowRoundTrip(t *testing.T) {
	for _, dt := range AllDataTypes {
		got, err := DataTypeFromArrow(dt.ToArrow())
		require.NoError(t, err, dt.String())
		assert.Equal(t, dt, got)

		byName, err := DataTypeFromName(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, byName)
	}

	_, err := DataTypeFromArrow(arrow.FixedWidthTypes.Date32)
	require.Error(t, err)
	assert.Equal(t, errors.Type, errors.CodeOf(err))

	_, err = DataTypeFromName("Decimal")
	assert.Error(t, err)
}

func TestDataTypeClassification(t *testing.T) {
	assert.True(t, UInt64.IsInteger())
	assert.False(t, UInt64.IsSigned())
	assert.True(t, Float32.IsSigned())
	assert.True(t, Float64.IsNumeric())
	assert.False(t, Boolean.IsNumeric())
	assert.False(t, Utf8.IsNumeric())
	assert.Equal(t, 8, UInt64.Width())
	assert.Equal(t, -1, Utf8.Width())
	assert.Equal(t, "DataType(99)", DataType(99).String())
}

func TestNumericSuperType(t *testing.T) {
	tests := []struct {
		l, r DataType
		want DataType
	}{
		{UInt64, UInt64, UInt64},
		{Int8, Int8, Int8},
		{UInt8, UInt64, UInt64},
		{UInt64, Int64, Int64},
		{Int32, UInt16, Int64},
		{Float32, Int64, Float64},
		{UInt64, Float64, Float64},
	}
	for _, tt := range tests {
		t.Run(tt.l.String()+"_"+tt.r.String(), func(t *testing.T) {
			got, err := NumericSuperType(tt.l, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NumericSuperType(Boolean, Int64)
	require.Error(t, err)
	assert.Equal(t, errors.Type, errors.CodeOf(err))
}

func TestOperatorFromSymbol(t *testing.T) {
	for op, sym := range operatorSymbols {
		got, err := OperatorFromSymbol(sym)
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
	got, err := OperatorFromSymbol("and")
	require.NoError(t, err)
	assert.Equal(t, And, got)
	got, err = OperatorFromSymbol("!=")
	require.NoError(t, err)
	assert.Equal(t, NotEq, got)

	_, err = OperatorFromSymbol("%")
	require.Error(t, err)
	assert.Equal(t, errors.BadArguments, errors.CodeOf(err))

	assert.Greater(t, And.Precedence(), Or.Precedence())
	assert.Greater(t, Eq.Precedence(), Not.Precedence())
	assert.True(t, Not.IsUnary())
	assert.True(t, Xor.IsLogic())
	assert.True(t, GtEq.IsComparison())
	assert.True(t, Div.IsArithmetic())
}
