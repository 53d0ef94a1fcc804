package functions

import (
	"context"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
)

type ArithmeticFunction struct {
	saved
	op          datavalues.DataValueOperator
	left, right Function
}

func NewArithmeticFunction(op datavalues.DataValueOperator, args ...Function) (*ArithmeticFunction, error) {
	if !op.IsArithmetic() {
		return nil, errors.ErrBadArguments("%s is not an arithmetic operator", op)
	}
	if err := checkArity(op.String(), 2, args); err != nil {
		return nil, err
	}
	return &ArithmeticFunction{op: op, left: args[0], right: args[1]}, nil
}

func (f *ArithmeticFunction) Name() string                     { return f.op.String() }
func (f *ArithmeticFunction) Op() datavalues.DataValueOperator { return f.op }
func (f *ArithmeticFunction) Children() []Function             { return []Function{f.left, f.right} }
func (f *ArithmeticFunction) precedence() int                  { return f.op.Precedence() }
func (f *ArithmeticFunction) Release()                         { releaseTree(f, &f.saved) }
func (f *ArithmeticFunction) Clone() Function                  { return f.clone(map[Function]Function{}) }

func (f *ArithmeticFunction) String() string {
	return displayChild(f.op, f.left, false) + " " + f.op.String() + " " + displayChild(f.op, f.right, true)
}

// ReturnType requires both sides to share one numeric type.
func (f *ArithmeticFunction) ReturnType(schema *datavalues.DataSchema) (datavalues.DataType, error) {
	l, r, err := childTypes(schema, f.left, f.right)
	if err != nil {
		return datavalues.Null, err
	}
	if !l.IsNumeric() || l != r {
		return datavalues.Null, errors.ErrType("cannot apply %s to %s and %s", f.op, l, r)
	}
	return l, nil
}

func (f *ArithmeticFunction) Nullable(schema *datavalues.DataSchema) (bool, error) {
	return eitherNullable(schema, f.left, f.right)
}

func (f *ArithmeticFunction) Eval(ctx context.Context, block *datablocks.DataBlock) error {
	return evalRoot(f, ctx, block)
}

func (f *ArithmeticFunction) eval(p *evalPass) error {
	return f.run(p, f.Children(), func(args []datavalues.DataColumnarValue) (datavalues.DataColumnarValue, error) {
		return datavalues.DataArrayBinaryOp(p.kctx, f.op, args[0], args[1])
	})
}

func (f *ArithmeticFunction) clone(memo map[Function]Function) Function {
	if c, ok := memo[f]; ok {
		return c
	}
	children := cloneChildren(memo, f.left, f.right)
	c := &ArithmeticFunction{op: f.op, left: children[0], right: children[1]}
	memo[f] = c
	return c
}
