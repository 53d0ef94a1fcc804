package functions

import (
	"context"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
)

// ComparisonFunction compares two children of the same type. Callers insert a
// CastFunction when the types differ.
type ComparisonFunction struct {
	saved
	op          datavalues.DataValueOperator
	left, right Function
}

func NewComparisonFunction(op datavalues.DataValueOperator, args ...Function) (*ComparisonFunction, error) {
	if !op.IsComparison() {
		return nil, errors.ErrBadArguments("%s is not a comparison operator", op)
	}
	if err := checkArity(op.String(), 2, args); err != nil {
		return nil, err
	}
	return &ComparisonFunction{op: op, left: args[0], right: args[1]}, nil
}

func (f *ComparisonFunction) Name() string                     { return f.op.String() }
func (f *ComparisonFunction) Op() datavalues.DataValueOperator { return f.op }
func (f *ComparisonFunction) Children() []Function             { return []Function{f.left, f.right} }
func (f *ComparisonFunction) precedence() int                  { return f.op.Precedence() }
func (f *ComparisonFunction) Release()                         { releaseTree(f, &f.saved) }
func (f *ComparisonFunction) Clone() Function                  { return f.clone(map[Function]Function{}) }

func (f *ComparisonFunction) String() string {
	return displayChild(f.op, f.left, false) + " " + f.op.String() + " " + displayChild(f.op, f.right, true)
}

func (f *ComparisonFunction) ReturnType(schema *datavalues.DataSchema) (datavalues.DataType, error) {
	l, r, err := childTypes(schema, f.left, f.right)
	if err != nil {
		return datavalues.Null, err
	}
	if l != r {
		return datavalues.Null, errors.ErrType("cannot compare %s with %s in %s", l, r, f)
	}
	return datavalues.Boolean, nil
}

func (f *ComparisonFunction) Nullable(schema *datavalues.DataSchema) (bool, error) {
	return eitherNullable(schema, f.left, f.right)
}

func (f *ComparisonFunction) Eval(ctx context.Context, block *datablocks.DataBlock) error {
	return evalRoot(f, ctx, block)
}

func (f *ComparisonFunction) eval(p *evalPass) error {
	return f.run(p, f.Children(), func(args []datavalues.DataColumnarValue) (datavalues.DataColumnarValue, error) {
		return datavalues.DataArrayBinaryOp(p.kctx, f.op, args[0], args[1])
	})
}

func (f *ComparisonFunction) clone(memo map[Function]Function) Function {
	if c, ok := memo[f]; ok {
		return c
	}
	children := cloneChildren(memo, f.left, f.right)
	c := &ComparisonFunction{op: f.op, left: children[0], right: children[1]}
	memo[f] = c
	return c
}

func childTypes(schema *datavalues.DataSchema, left, right Function) (datavalues.DataType, datavalues.DataType, error) {
	l, err := left.ReturnType(schema)
	if err != nil {
		return datavalues.Null, datavalues.Null, err
	}
	r, err := right.ReturnType(schema)
	if err != nil {
		return datavalues.Null, datavalues.Null, err
	}
	return l, r, nil
}
