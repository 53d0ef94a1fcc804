package functions

import (
	"context"
	"fmt"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
)

// CastFunction converts its child to a target type with safe casting:
// overflow and truncation are errors.
type CastFunction struct {
	saved
	input  Function
	target datavalues.DataType
}

func NewCastFunction(target datavalues.DataType, args ...Function) (*CastFunction, error) {
	if err := checkArity("cast", 1, args); err != nil {
		return nil, err
	}
	return &CastFunction{input: args[0], target: target}, nil
}

func (f *CastFunction) Name() string                { return "cast" }
func (f *CastFunction) Target() datavalues.DataType { return f.target }
func (f *CastFunction) Children() []Function        { return []Function{f.input} }
func (f *CastFunction) precedence() int             { return leafPrecedence }
func (f *CastFunction) Release()                    { releaseTree(f, &f.saved) }
func (f *CastFunction) Clone() Function             { return f.clone(map[Function]Function{}) }

func (f *CastFunction) String() string {
	return fmt.Sprintf("CAST(%s AS %s)", f.input, f.target)
}

func (f *CastFunction) ReturnType(schema *datavalues.DataSchema) (datavalues.DataType, error) {
	if _, err := f.input.ReturnType(schema); err != nil {
		return datavalues.Null, err
	}
	return f.target, nil
}

func (f *CastFunction) Nullable(schema *datavalues.DataSchema) (bool, error) {
	return f.input.Nullable(schema)
}

func (f *CastFunction) Eval(ctx context.Context, block *datablocks.DataBlock) error {
	return evalRoot(f, ctx, block)
}

func (f *CastFunction) eval(p *evalPass) error {
	return f.run(p, f.Children(), func(args []datavalues.DataColumnarValue) (datavalues.DataColumnarValue, error) {
		return datavalues.DataArrayCast(p.kctx.Ctx, args[0], f.target)
	})
}

func (f *CastFunction) clone(memo map[Function]Function) Function {
	if c, ok := memo[f]; ok {
		return c
	}
	c := &CastFunction{input: f.input.clone(memo), target: f.target}
	memo[f] = c
	return c
}
