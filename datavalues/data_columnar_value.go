package datavalues

import (
	"fmt"

	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/arrow/scalar"
)

// DataColumnarValue is either a column (Array) or a single value that stands
// for that value repeated to the block length (Scalar).
type DataColumnarValue struct {
	array  arrow.Array
	scalar scalar.Scalar
	dtype  DataType
}

// NewArrayValue wraps arr without taking an extra reference.
func NewArrayValue(arr arrow.Array) (DataColumnarValue, error) {
	if arr == nil {
		return DataColumnarValue{}, errors.ErrInternal("array value cannot be nil")
	}
	dt, err := DataTypeFromArrow(arr.DataType())
	if err != nil {
		return DataColumnarValue{}, err
	}
	return DataColumnarValue{array: arr, dtype: dt}, nil
}

func NewScalarValue(sc scalar.Scalar) (DataColumnarValue, error) {
	if sc == nil {
		return DataColumnarValue{}, errors.ErrInternal("scalar value cannot be nil")
	}
	dt, err := DataTypeFromArrow(sc.DataType())
	if err != nil {
		return DataColumnarValue{}, err
	}
	return DataColumnarValue{scalar: sc, dtype: dt}, nil
}

// NewConstantValue builds a scalar of type dt from a Go value. A nil v gives
// a null scalar of that type.
func NewConstantValue(v any, dt DataType) (DataColumnarValue, error) {
	if v == nil {
		return NewScalarValue(scalar.MakeNullScalar(dt.ToArrow()))
	}
	if dt == Null {
		return DataColumnarValue{}, errors.ErrType("non-null value %v cannot have type Null", v)
	}
	sc, err := scalar.MakeScalarParam(v, dt.ToArrow())
	if err != nil {
		return DataColumnarValue{}, errors.Wrap(errors.Type, err, "cannot build %s constant from %T", dt, v)
	}
	return NewScalarValue(sc)
}

// InferConstantValue picks the element type from the Go type of v.
func InferConstantValue(v any) (DataColumnarValue, error) {
	var dt DataType
	switch x := v.(type) {
	case nil:
		dt = Null
	case bool:
		dt = Boolean
	case int8:
		dt = Int8
	case int16:
		dt = Int16
	case int32:
		dt = Int32
	case int64:
		dt = Int64
	case int:
		dt, v = Int64, int64(x)
	case uint8:
		dt = UInt8
	case uint16:
		dt = UInt16
	case uint32:
		dt = UInt32
	case uint64:
		dt = UInt64
	case uint:
		dt, v = UInt64, uint64(x)
	case float32:
		dt = Float32
	case float64:
		dt = Float64
	case string:
		dt = Utf8
	default:
		return DataColumnarValue{}, errors.ErrType("unsupported constant %v of type %T", v, v)
	}
	return NewConstantValue(v, dt)
}

func (v DataColumnarValue) IsEmpty() bool {
	return v.array == nil && v.scalar == nil
}

func (v DataColumnarValue) IsScalar() bool {
	return v.scalar != nil
}

func (v DataColumnarValue) DataType() DataType {
	return v.dtype
}

func (v DataColumnarValue) Array() arrow.Array {
	return v.array
}

func (v DataColumnarValue) Scalar() scalar.Scalar {
	return v.scalar
}

// Len is the physical length for arrays and blockRows for scalars.
func (v DataColumnarValue) Len(blockRows int) int {
	if v.array != nil {
		return v.array.Len()
	}
	return blockRows
}

// AsArray returns a new reference the caller must release. Scalars are
// materialised to blockRows copies.
func (v DataColumnarValue) AsArray(mem memory.Allocator, blockRows int) (arrow.Array, error) {
	switch {
	case v.array != nil:
		v.array.Retain()
		return v.array, nil
	case v.scalar != nil:
		arr, err := scalar.MakeArrayFromScalar(v.scalar, blockRows, mem)
		if err != nil {
			return nil, errors.Wrap(errors.Internal, err, "cannot broadcast %s scalar", v.dtype)
		}
		return arr, nil
	}
	return nil, errors.ErrInternal("empty columnar value")
}

// toDatum hands out a datum holding its own reference.
func (v DataColumnarValue) toDatum() compute.Datum {
	if v.array != nil {
		return compute.NewDatum(v.array)
	}
	return compute.NewDatum(v.scalar)
}

func (v DataColumnarValue) Retain() {
	if v.array != nil {
		v.array.Retain()
	}
}

func (v DataColumnarValue) Release() {
	if v.array != nil {
		v.array.Release()
	}
}

func (v DataColumnarValue) String() string {
	switch {
	case v.array != nil:
		return fmt.Sprintf("Array(%s)", v.array)
	case v.scalar != nil:
		return fmt.Sprintf("Scalar(%s, %s)", v.scalar, v.dtype)
	}
	return "Empty"
}
