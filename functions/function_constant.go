package functions

import (
	"context"
	"fmt"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
)

// ConstantFunction yields the same scalar for every block. Kernels broadcast
// it to the block length.
type ConstantFunction struct {
	saved
	value datavalues.DataColumnarValue
}

// NewConstantFunction infers the type from the Go value (int -> Int64).
func NewConstantFunction(v any) (*ConstantFunction, error) {
	c, err := datavalues.InferConstantValue(v)
	if err != nil {
		return nil, err
	}
	return &ConstantFunction{value: c}, nil
}

func NewConstantFunctionWithType(v any, dt datavalues.DataType) (*ConstantFunction, error) {
	c, err := datavalues.NewConstantValue(v, dt)
	if err != nil {
		return nil, err
	}
	return &ConstantFunction{value: c}, nil
}

func (f *ConstantFunction) Name() string                        { return "constant" }
func (f *ConstantFunction) Value() datavalues.DataColumnarValue { return f.value }
func (f *ConstantFunction) Children() []Function                { return nil }
func (f *ConstantFunction) precedence() int                     { return leafPrecedence }
func (f *ConstantFunction) Release()                            { f.reset() }
func (f *ConstantFunction) Clone() Function                     { return f.clone(map[Function]Function{}) }

func (f *ConstantFunction) String() string {
	sc := f.value.Scalar()
	if !sc.IsValid() {
		return "NULL"
	}
	if f.value.DataType() == datavalues.Utf8 {
		return fmt.Sprintf("'%s'", sc)
	}
	return sc.String()
}

func (f *ConstantFunction) ReturnType(*datavalues.DataSchema) (datavalues.DataType, error) {
	return f.value.DataType(), nil
}

func (f *ConstantFunction) Nullable(*datavalues.DataSchema) (bool, error) {
	return !f.value.Scalar().IsValid(), nil
}

func (f *ConstantFunction) Eval(ctx context.Context, block *datablocks.DataBlock) error {
	return evalRoot(f, ctx, block)
}

func (f *ConstantFunction) eval(p *evalPass) error {
	return f.run(p, nil, func([]datavalues.DataColumnarValue) (datavalues.DataColumnarValue, error) {
		if f.value.IsEmpty() {
			return datavalues.DataColumnarValue{}, errors.ErrInternal("constant function has no value")
		}
		return f.value, nil
	})
}

func (f *ConstantFunction) clone(memo map[Function]Function) Function {
	if c, ok := memo[f]; ok {
		return c
	}
	c := &ConstantFunction{value: f.value}
	memo[f] = c
	return c
}
