package functions

import (
	"context"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
)

// AliasFunction renames its child's output; the value is shared, not copied.
type AliasFunction struct {
	saved
	alias string
	input Function
}

func NewAliasFunction(alias string, args ...Function) (*AliasFunction, error) {
	if err := checkArity("alias", 1, args); err != nil {
		return nil, err
	}
	return &AliasFunction{alias: alias, input: args[0]}, nil
}

func (f *AliasFunction) Name() string         { return "alias" }
func (f *AliasFunction) Alias() string        { return f.alias }
func (f *AliasFunction) Children() []Function { return []Function{f.input} }
func (f *AliasFunction) precedence() int      { return f.input.precedence() }
func (f *AliasFunction) Release()             { releaseTree(f, &f.saved) }
func (f *AliasFunction) Clone() Function      { return f.clone(map[Function]Function{}) }
func (f *AliasFunction) String() string       { return f.input.String() + " AS " + f.alias }

func (f *AliasFunction) ReturnType(schema *datavalues.DataSchema) (datavalues.DataType, error) {
	return f.input.ReturnType(schema)
}

func (f *AliasFunction) Nullable(schema *datavalues.DataSchema) (bool, error) {
	return f.input.Nullable(schema)
}

func (f *AliasFunction) Eval(ctx context.Context, block *datablocks.DataBlock) error {
	return evalRoot(f, ctx, block)
}

func (f *AliasFunction) eval(p *evalPass) error {
	return f.run(p, f.Children(), func(args []datavalues.DataColumnarValue) (datavalues.DataColumnarValue, error) {
		args[0].Retain()
		return args[0], nil
	})
}

func (f *AliasFunction) clone(memo map[Function]Function) Function {
	if c, ok := memo[f]; ok {
		return c
	}
	c := &AliasFunction{alias: f.alias, input: f.input.clone(memo)}
	memo[f] = c
	return c
}
