package functions

import (
	"context"
	"strings"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
)

// LogicFunction is AND, OR or XOR over two boolean children under three-valued
// logic.
type LogicFunction struct {
	saved
	op          datavalues.DataValueOperator
	left, right Function
}

func NewLogicFunction(op datavalues.DataValueOperator, args ...Function) (*LogicFunction, error) {
	switch op {
	case datavalues.And, datavalues.Or, datavalues.Xor:
	default:
		return nil, errors.ErrBadArguments("%s is not a binary logic operator", op)
	}
	if err := checkArity(strings.ToLower(op.String()), 2, args); err != nil {
		return nil, err
	}
	return &LogicFunction{op: op, left: args[0], right: args[1]}, nil
}

func NewAndFunction(args ...Function) (Function, error) {
	return asFunction(NewLogicFunction(datavalues.And, args...))
}

func NewOrFunction(args ...Function) (Function, error) {
	return asFunction(NewLogicFunction(datavalues.Or, args...))
}

func NewXorFunction(args ...Function) (Function, error) {
	return asFunction(NewLogicFunction(datavalues.Xor, args...))
}

func (f *LogicFunction) Name() string                     { return strings.ToLower(f.op.String()) }
func (f *LogicFunction) Op() datavalues.DataValueOperator { return f.op }
func (f *LogicFunction) Children() []Function             { return []Function{f.left, f.right} }
func (f *LogicFunction) precedence() int                  { return f.op.Precedence() }
func (f *LogicFunction) Release()                         { releaseTree(f, &f.saved) }
func (f *LogicFunction) Clone() Function                  { return f.clone(map[Function]Function{}) }

func (f *LogicFunction) String() string {
	return displayChild(f.op, f.left, false) + " " + f.op.String() + " " + displayChild(f.op, f.right, true)
}

func checkLogicChild(op datavalues.DataValueOperator, c Function, schema *datavalues.DataSchema) error {
	dt, err := c.ReturnType(schema)
	if err != nil {
		return err
	}
	if dt != datavalues.Boolean && dt != datavalues.Null {
		return errors.ErrType("%s expects Boolean arguments, got %s from %s", op, dt, c)
	}
	return nil
}

func (f *LogicFunction) ReturnType(schema *datavalues.DataSchema) (datavalues.DataType, error) {
	for _, c := range f.Children() {
		if err := checkLogicChild(f.op, c, schema); err != nil {
			return datavalues.Null, err
		}
	}
	return datavalues.Boolean, nil
}

func (f *LogicFunction) Nullable(schema *datavalues.DataSchema) (bool, error) {
	return eitherNullable(schema, f.left, f.right)
}

func (f *LogicFunction) Eval(ctx context.Context, block *datablocks.DataBlock) error {
	return evalRoot(f, ctx, block)
}

func (f *LogicFunction) eval(p *evalPass) error {
	return f.run(p, f.Children(), func(args []datavalues.DataColumnarValue) (datavalues.DataColumnarValue, error) {
		return datavalues.DataArrayBinaryOp(p.kctx, f.op, args[0], args[1])
	})
}

func (f *LogicFunction) clone(memo map[Function]Function) Function {
	if c, ok := memo[f]; ok {
		return c
	}
	children := cloneChildren(memo, f.left, f.right)
	c := &LogicFunction{op: f.op, left: children[0], right: children[1]}
	memo[f] = c
	return c
}

// NotFunction negates a boolean child; null stays null.
type NotFunction struct {
	saved
	input Function
}

func NewNotFunction(args ...Function) (Function, error) {
	if err := checkArity("not", 1, args); err != nil {
		return nil, err
	}
	return &NotFunction{input: args[0]}, nil
}

func (f *NotFunction) Name() string         { return "not" }
func (f *NotFunction) Children() []Function { return []Function{f.input} }
func (f *NotFunction) precedence() int      { return datavalues.Not.Precedence() }
func (f *NotFunction) Release()             { releaseTree(f, &f.saved) }
func (f *NotFunction) Clone() Function      { return f.clone(map[Function]Function{}) }

func (f *NotFunction) String() string {
	return "NOT " + displayChild(datavalues.Not, f.input, false)
}

func (f *NotFunction) ReturnType(schema *datavalues.DataSchema) (datavalues.DataType, error) {
	if err := checkLogicChild(datavalues.Not, f.input, schema); err != nil {
		return datavalues.Null, err
	}
	return datavalues.Boolean, nil
}

func (f *NotFunction) Nullable(schema *datavalues.DataSchema) (bool, error) {
	return f.input.Nullable(schema)
}

func (f *NotFunction) Eval(ctx context.Context, block *datablocks.DataBlock) error {
	return evalRoot(f, ctx, block)
}

func (f *NotFunction) eval(p *evalPass) error {
	return f.run(p, f.Children(), func(args []datavalues.DataColumnarValue) (datavalues.DataColumnarValue, error) {
		return datavalues.DataArrayUnaryOp(p.kctx, datavalues.Not, args[0])
	})
}

func (f *NotFunction) clone(memo map[Function]Function) Function {
	if c, ok := memo[f]; ok {
		return c
	}
	c := &NotFunction{input: f.input.clone(memo)}
	memo[f] = c
	return c
}

func eitherNullable(schema *datavalues.DataSchema, left, right Function) (bool, error) {
	l, err := left.Nullable(schema)
	if err != nil {
		return false, err
	}
	r, err := right.Nullable(schema)
	if err != nil {
		return false, err
	}
	return l || r, nil
}
