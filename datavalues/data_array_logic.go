package datavalues

import (
	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

func checkBooleanArray(side string, arr arrow.Array) error {
	if arr == nil {
		return errors.ErrInternal("%s input of logic kernel is nil", side)
	}
	switch arr.DataType().ID() {
	case arrow.BOOL, arrow.NULL:
		return nil
	}
	return errors.ErrInternal("logic kernel expects Boolean %s input, got %s", side, arr.DataType())
}

func checkLogicInputs(left, right arrow.Array) error {
	if err := checkBooleanArray("left", left); err != nil {
		return err
	}
	if err := checkBooleanArray("right", right); err != nil {
		return err
	}
	if left.Len() != right.Len() {
		return errors.ErrInternal("logic kernel length mismatch, left:%d, right:%d", left.Len(), right.Len())
	}
	return nil
}

// DataArrayAnd computes left AND right under three-valued logic: false wins
// over null, null wins over true.
func DataArrayAnd(mem memory.Allocator, left, right arrow.Array) (*array.Boolean, error) {
	if err := checkLogicInputs(left, right); err != nil {
		return nil, err
	}
	return kleeneBinary(mem, left.Len(), arrayOperand(left), arrayOperand(right), kleeneAnd), nil
}

// DataArrayOr computes left OR right under three-valued logic: true wins
// over null, null wins over false.
func DataArrayOr(mem memory.Allocator, left, right arrow.Array) (*array.Boolean, error) {
	if err := checkLogicInputs(left, right); err != nil {
		return nil, err
	}
	return kleeneBinary(mem, left.Len(), arrayOperand(left), arrayOperand(right), kleeneOr), nil
}

// DataArrayXor is null whenever either side is null.
func DataArrayXor(mem memory.Allocator, left, right arrow.Array) (*array.Boolean, error) {
	if err := checkLogicInputs(left, right); err != nil {
		return nil, err
	}
	return kleeneBinary(mem, left.Len(), arrayOperand(left), arrayOperand(right), kleeneXor), nil
}

func DataArrayNot(mem memory.Allocator, arr arrow.Array) (*array.Boolean, error) {
	if err := checkBooleanArray("unary", arr); err != nil {
		return nil, err
	}
	return kleeneUnary(mem, arr.Len(), arrayOperand(arr)), nil
}

var kleeneFuncs = map[DataValueOperator]func(lv, lk, rv, rk byte) (byte, byte){
	And: kleeneAnd,
	Or:  kleeneOr,
	Xor: kleeneXor,
}

func logicOperand(v DataColumnarValue) boolOperand {
	if v.IsScalar() {
		return scalarOperand(v.Scalar())
	}
	return arrayOperand(v.Array())
}

func logicOperandLen(v DataColumnarValue, rows int) int {
	if v.IsScalar() {
		return rows
	}
	return v.Array().Len()
}

// logicKernel is registered for every (And|Or|Xor, Boolean|Null, Boolean|Null)
// combination. Scalars are broadcast as constant bytes.
func logicKernel(kctx *KernelContext, op DataValueOperator, left, right DataColumnarValue) (arrow.Array, error) {
	fn, ok := kleeneFuncs[op]
	if !ok {
		return nil, errors.ErrInternal("%s is not a binary logic operator", op)
	}
	if !left.IsScalar() {
		if err := checkBooleanArray("left", left.Array()); err != nil {
			return nil, err
		}
	}
	if !right.IsScalar() {
		if err := checkBooleanArray("right", right.Array()); err != nil {
			return nil, err
		}
	}
	n := logicOperandLen(left, kctx.Rows)
	if m := logicOperandLen(right, kctx.Rows); m != n {
		return nil, errors.ErrInternal("logic kernel length mismatch, left:%d, right:%d", n, m)
	}
	return kleeneBinary(kctx.allocator(), n, logicOperand(left), logicOperand(right), fn), nil
}

func notKernel(kctx *KernelContext, op DataValueOperator, input DataColumnarValue) (arrow.Array, error) {
	if !input.IsScalar() {
		if err := checkBooleanArray("unary", input.Array()); err != nil {
			return nil, err
		}
	}
	return kleeneUnary(kctx.allocator(), logicOperandLen(input, kctx.Rows), logicOperand(input)), nil
}
