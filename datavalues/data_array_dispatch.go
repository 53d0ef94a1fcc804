package datavalues

import (
	"context"
	"sync"

	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// KernelContext carries what a kernel needs besides its operands. Rows is the
// current block row count, used to broadcast scalar operands.
type KernelContext struct {
	Ctx  context.Context
	Mem  memory.Allocator
	Rows int
}

func NewKernelContext(ctx context.Context, mem memory.Allocator, rows int) *KernelContext {
	return &KernelContext{Ctx: ctx, Mem: mem, Rows: rows}
}

func (k *KernelContext) allocator() memory.Allocator {
	if k == nil || k.Mem == nil {
		return memory.DefaultAllocator
	}
	return k.Mem
}

func (k *KernelContext) context() context.Context {
	if k == nil || k.Ctx == nil {
		return context.Background()
	}
	return k.Ctx
}

type BinaryKernel func(kctx *KernelContext, op DataValueOperator, left, right DataColumnarValue) (arrow.Array, error)
type UnaryKernel func(kctx *KernelContext, op DataValueOperator, input DataColumnarValue) (arrow.Array, error)

type binaryKey struct {
	op          DataValueOperator
	left, right DataType
}

type unaryKey struct {
	op    DataValueOperator
	input DataType
}

var (
	kernelsMu      sync.RWMutex
	binaryKernels  = map[binaryKey]BinaryKernel{}
	unaryKernels   = map[unaryKey]UnaryKernel{}
	logicInputs    = []DataType{Boolean, Null}
	comparableOnly = []DataType{Boolean, Int8, Int16, Int32, Int64, UInt8, UInt16, UInt32, UInt64, Float32, Float64, Utf8}
	numericOnly    = []DataType{Int8, Int16, Int32, Int64, UInt8, UInt16, UInt32, UInt64, Float32, Float64}
)

func init() {
	for _, op := range []DataValueOperator{And, Or, Xor} {
		for _, l := range logicInputs {
			for _, r := range logicInputs {
				RegisterBinaryKernel(op, l, r, logicKernel)
			}
		}
	}
	for _, t := range logicInputs {
		RegisterUnaryKernel(Not, t, notKernel)
	}
	for _, op := range []DataValueOperator{Eq, NotEq, Lt, LtEq, Gt, GtEq} {
		for _, t := range comparableOnly {
			RegisterBinaryKernel(op, t, t, comparisonKernel)
		}
	}
	for _, op := range []DataValueOperator{Plus, Minus, Mul, Div} {
		for _, t := range numericOnly {
			RegisterBinaryKernel(op, t, t, arithmeticKernel)
		}
	}
}

// RegisterBinaryKernel adds or replaces the kernel for (op, left, right).
func RegisterBinaryKernel(op DataValueOperator, left, right DataType, k BinaryKernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	binaryKernels[binaryKey{op: op, left: left, right: right}] = k
}

func RegisterUnaryKernel(op DataValueOperator, input DataType, k UnaryKernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	unaryKernels[unaryKey{op: op, input: input}] = k
}

func lookupBinary(op DataValueOperator, left, right DataType) (BinaryKernel, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, ok := binaryKernels[binaryKey{op: op, left: left, right: right}]
	return k, ok
}

func lookupUnary(op DataValueOperator, input DataType) (UnaryKernel, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, ok := unaryKernels[unaryKey{op: op, input: input}]
	return k, ok
}

// HasBinaryKernel reports whether DataArrayBinaryOp would accept the types.
func HasBinaryKernel(op DataValueOperator, left, right DataType) bool {
	_, ok := lookupBinary(op, left, right)
	return ok
}

func checkOperandLen(side string, v DataColumnarValue, rows int) error {
	if v.IsEmpty() {
		return errors.ErrInternal("%s operand is empty", side)
	}
	if !v.IsScalar() && v.Array().Len() != rows {
		return errors.ErrInternal("%s operand has %d rows, block has %d", side, v.Array().Len(), rows)
	}
	return nil
}

// DataArrayBinaryOp selects the kernel registered for (op, left type, right
// type) and runs it. The result is always an array of kctx.Rows elements.
func DataArrayBinaryOp(kctx *KernelContext, op DataValueOperator, left, right DataColumnarValue) (DataColumnarValue, error) {
	k, ok := lookupBinary(op, left.DataType(), right.DataType())
	if !ok {
		return DataColumnarValue{}, errors.ErrInternal("Cannot do data_array %s, left:%s, right:%s", op, left.DataType(), right.DataType())
	}
	if err := checkOperandLen("left", left, kctx.Rows); err != nil {
		return DataColumnarValue{}, err
	}
	if err := checkOperandLen("right", right, kctx.Rows); err != nil {
		return DataColumnarValue{}, err
	}
	out, err := k(kctx, op, left, right)
	if err != nil {
		return DataColumnarValue{}, err
	}
	return newKernelResult(out, kctx.Rows)
}

func DataArrayUnaryOp(kctx *KernelContext, op DataValueOperator, input DataColumnarValue) (DataColumnarValue, error) {
	k, ok := lookupUnary(op, input.DataType())
	if !ok {
		return DataColumnarValue{}, errors.ErrInternal("Cannot do data_array %s, input:%s", op, input.DataType())
	}
	if err := checkOperandLen("input", input, kctx.Rows); err != nil {
		return DataColumnarValue{}, err
	}
	out, err := k(kctx, op, input)
	if err != nil {
		return DataColumnarValue{}, err
	}
	return newKernelResult(out, kctx.Rows)
}

func newKernelResult(out arrow.Array, rows int) (DataColumnarValue, error) {
	if out.Len() != rows {
		n := out.Len()
		out.Release()
		return DataColumnarValue{}, errors.ErrInternal("kernel produced %d rows, expected %d", n, rows)
	}
	v, err := NewArrayValue(out)
	if err != nil {
		out.Release()
		return DataColumnarValue{}, err
	}
	return v, nil
}
