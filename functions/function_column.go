package functions

import (
	"context"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
)

// ColumnFunction resolves a column of the input block by name.
type ColumnFunction struct {
	saved
	name string
}

func NewColumnFunction(name string) *ColumnFunction {
	return &ColumnFunction{name: name}
}

func (f *ColumnFunction) Name() string         { return "column" }
func (f *ColumnFunction) ColumnName() string   { return f.name }
func (f *ColumnFunction) Children() []Function { return nil }
func (f *ColumnFunction) precedence() int      { return leafPrecedence }
func (f *ColumnFunction) String() string       { return f.name }
func (f *ColumnFunction) Release()             { f.reset() }
func (f *ColumnFunction) Clone() Function      { return f.clone(map[Function]Function{}) }

func (f *ColumnFunction) ReturnType(schema *datavalues.DataSchema) (datavalues.DataType, error) {
	field, err := schema.FieldByName(f.name)
	if err != nil {
		return datavalues.Null, err
	}
	return field.Type, nil
}

func (f *ColumnFunction) Nullable(schema *datavalues.DataSchema) (bool, error) {
	field, err := schema.FieldByName(f.name)
	if err != nil {
		return false, err
	}
	return field.Nullable, nil
}

func (f *ColumnFunction) Eval(ctx context.Context, block *datablocks.DataBlock) error {
	return evalRoot(f, ctx, block)
}

func (f *ColumnFunction) eval(p *evalPass) error {
	return f.run(p, nil, func([]datavalues.DataColumnarValue) (datavalues.DataColumnarValue, error) {
		col, err := p.block.ColumnByName(f.name)
		if err != nil {
			return datavalues.DataColumnarValue{}, err
		}
		v, err := datavalues.NewArrayValue(col)
		if err != nil {
			return datavalues.DataColumnarValue{}, err
		}
		v.Retain()
		return v, nil
	})
}

func (f *ColumnFunction) clone(memo map[Function]Function) Function {
	if c, ok := memo[f]; ok {
		return c
	}
	c := &ColumnFunction{name: f.name}
	memo[f] = c
	return c
}
