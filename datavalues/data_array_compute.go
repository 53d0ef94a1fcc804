package datavalues

import (
	"context"

	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/scalar"
)

// Comparison and arithmetic kernels delegate to Arrow compute. Compute
// accepts scalar operands directly, so no broadcast happens here either.

var comparisonFunctions = map[DataValueOperator]string{
	Eq:    "equal",
	NotEq: "not_equal",
	Lt:    "less",
	LtEq:  "less_equal",
	Gt:    "greater",
	GtEq:  "greater_equal",
}

func datumToArray(kctx *KernelContext, d compute.Datum) (arrow.Array, error) {
	switch v := d.(type) {
	case *compute.ArrayDatum:
		return v.MakeArray(), nil
	case *compute.ScalarDatum:
		arr, err := scalar.MakeArrayFromScalar(v.Value, kctx.Rows, kctx.allocator())
		if err != nil {
			return nil, errors.Wrap(errors.Internal, err, "cannot broadcast scalar result")
		}
		return arr, nil
	}
	return nil, errors.ErrInternal("datum %v is not of type array", d)
}

func comparisonKernel(kctx *KernelContext, op DataValueOperator, left, right DataColumnarValue) (arrow.Array, error) {
	name, ok := comparisonFunctions[op]
	if !ok {
		return nil, errors.ErrInternal("%s is not a comparison operator", op)
	}
	l, r := left.toDatum(), right.toDatum()
	defer l.Release()
	defer r.Release()
	out, err := compute.CallFunction(kctx.context(), name, nil, l, r)
	if err != nil {
		return nil, errors.Wrap(errors.Internal, err, "data_array %s, left:%s, right:%s", op, left.DataType(), right.DataType())
	}
	defer out.Release()
	return datumToArray(kctx, out)
}

func arithmeticKernel(kctx *KernelContext, op DataValueOperator, left, right DataColumnarValue) (arrow.Array, error) {
	l, r := left.toDatum(), right.toDatum()
	defer l.Release()
	defer r.Release()
	opt := compute.ArithmeticOptions{}
	var (
		out compute.Datum
		err error
	)
	ctx := kctx.context()
	switch op {
	case Plus:
		out, err = compute.Add(ctx, opt, l, r)
	case Minus:
		out, err = compute.Subtract(ctx, opt, l, r)
	case Mul:
		out, err = compute.Multiply(ctx, opt, l, r)
	case Div:
		out, err = compute.Divide(ctx, opt, l, r)
	default:
		return nil, errors.ErrInternal("%s is not an arithmetic operator", op)
	}
	if err != nil {
		return nil, errors.Wrap(errors.Internal, err, "data_array %s, left:%s, right:%s", op, left.DataType(), right.DataType())
	}
	defer out.Release()
	return datumToArray(kctx, out)
}

// DataArrayCast converts input to target using safe casting. Scalars stay
// scalars. Casting to the same type returns input with an extra reference.
func DataArrayCast(ctx context.Context, input DataColumnarValue, target DataType) (DataColumnarValue, error) {
	if input.IsEmpty() {
		return DataColumnarValue{}, errors.ErrInternal("cannot cast an empty value")
	}
	if input.DataType() == target {
		input.Retain()
		return input, nil
	}
	if input.IsScalar() {
		sc, err := input.Scalar().CastTo(target.ToArrow())
		if err != nil {
			return DataColumnarValue{}, errors.Wrap(errors.Type, err, "cannot cast %s to %s", input.DataType(), target)
		}
		return NewScalarValue(sc)
	}
	out, err := compute.CastArray(ctx, input.Array(), compute.SafeCastOptions(target.ToArrow()))
	if err != nil {
		return DataColumnarValue{}, errors.Wrap(errors.Type, err, "cannot cast %s to %s", input.DataType(), target)
	}
	return NewArrayValue(out)
}
