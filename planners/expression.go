package planners

import (
	"fmt"

	"fuse-query-go/datavalues"
)

var (
	_ = (Expression)(&FieldExpression{})
	_ = (Expression)(&ConstantExpression{})
	_ = (Expression)(&BinaryExpression{})
	_ = (Expression)(&UnaryExpression{})
	_ = (Expression)(&AliasExpression{})
	_ = (Expression)(&CastExpression{})
)

// Expression is the planner side of a scalar expression. It is lowered to a
// functions.Function with ToFunction once the input schema is known.
type Expression interface {
	// empty method, only for the sake of polymorphism
	exprNode()
	fmt.Stringer
}

// resolves a column of the input by name
type FieldExpression struct {
	Name string
}

func Field(name string) *FieldExpression {
	return &FieldExpression{Name: name}
}

func (f *FieldExpression) exprNode()      {}
func (f *FieldExpression) String() string { return f.Name }

// ConstantExpression holds a Go value; the element type is inferred from it
// (int becomes Int64, uint becomes UInt64, nil is NULL).
type ConstantExpression struct {
	Value any
}

func Constant(v any) *ConstantExpression {
	return &ConstantExpression{Value: v}
}

func (c *ConstantExpression) exprNode() {}
func (c *ConstantExpression) String() string {
	switch v := c.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + v + "'"
	default:
		return fmt.Sprintf("%v", v)
	}
}

type BinaryExpression struct {
	Left  Expression
	Op    datavalues.DataValueOperator
	Right Expression
}

func NewBinaryExpression(left Expression, op datavalues.DataValueOperator, right Expression) *BinaryExpression {
	return &BinaryExpression{Left: left, Op: op, Right: right}
}

func (b *BinaryExpression) exprNode() {}
func (b *BinaryExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// UnaryExpression is NOT; the only unary operator.
type UnaryExpression struct {
	Op    datavalues.DataValueOperator
	Input Expression
}

func (u *UnaryExpression) exprNode() {}
func (u *UnaryExpression) String() string {
	return fmt.Sprintf("(%s %s)", u.Op, u.Input)
}

// AliasExpression renames its input in the output schema. Type is unchanged.
type AliasExpression struct {
	Input Expression
	Name  string
}

func Alias(name string, input Expression) *AliasExpression {
	return &AliasExpression{Input: input, Name: name}
}

func (a *AliasExpression) exprNode() {}
func (a *AliasExpression) String() string {
	return fmt.Sprintf("%s AS %s", a.Input, a.Name)
}

type CastExpression struct {
	Input  Expression
	Target datavalues.DataType
}

func Cast(input Expression, target datavalues.DataType) *CastExpression {
	return &CastExpression{Input: input, Target: target}
}

func (c *CastExpression) exprNode() {}
func (c *CastExpression) String() string {
	return fmt.Sprintf("CAST(%s AS %s)", c.Input, c.Target)
}

func Eq(l, r Expression) *BinaryExpression    { return NewBinaryExpression(l, datavalues.Eq, r) }
func NotEq(l, r Expression) *BinaryExpression { return NewBinaryExpression(l, datavalues.NotEq, r) }
func Lt(l, r Expression) *BinaryExpression    { return NewBinaryExpression(l, datavalues.Lt, r) }
func LtEq(l, r Expression) *BinaryExpression  { return NewBinaryExpression(l, datavalues.LtEq, r) }
func Gt(l, r Expression) *BinaryExpression    { return NewBinaryExpression(l, datavalues.Gt, r) }
func GtEq(l, r Expression) *BinaryExpression  { return NewBinaryExpression(l, datavalues.GtEq, r) }
func And(l, r Expression) *BinaryExpression   { return NewBinaryExpression(l, datavalues.And, r) }
func Or(l, r Expression) *BinaryExpression    { return NewBinaryExpression(l, datavalues.Or, r) }
func Xor(l, r Expression) *BinaryExpression   { return NewBinaryExpression(l, datavalues.Xor, r) }
func Plus(l, r Expression) *BinaryExpression  { return NewBinaryExpression(l, datavalues.Plus, r) }
func Minus(l, r Expression) *BinaryExpression { return NewBinaryExpression(l, datavalues.Minus, r) }
func Mul(l, r Expression) *BinaryExpression   { return NewBinaryExpression(l, datavalues.Mul, r) }
func Div(l, r Expression) *BinaryExpression   { return NewBinaryExpression(l, datavalues.Div, r) }

func Not(input Expression) *UnaryExpression {
	return &UnaryExpression{Op: datavalues.Not, Input: input}
}

// Builder methods so filters read left to right: Field("number").Eq(Constant(1)).

func (f *FieldExpression) Eq(r Expression) *BinaryExpression    { return Eq(f, r) }
func (f *FieldExpression) NotEq(r Expression) *BinaryExpression { return NotEq(f, r) }
func (f *FieldExpression) Lt(r Expression) *BinaryExpression    { return Lt(f, r) }
func (f *FieldExpression) LtEq(r Expression) *BinaryExpression  { return LtEq(f, r) }
func (f *FieldExpression) Gt(r Expression) *BinaryExpression    { return Gt(f, r) }
func (f *FieldExpression) GtEq(r Expression) *BinaryExpression  { return GtEq(f, r) }
func (f *FieldExpression) Plus(r Expression) *BinaryExpression  { return Plus(f, r) }
func (f *FieldExpression) Minus(r Expression) *BinaryExpression { return Minus(f, r) }
func (f *FieldExpression) Mul(r Expression) *BinaryExpression   { return Mul(f, r) }
func (f *FieldExpression) Div(r Expression) *BinaryExpression   { return Div(f, r) }

func (b *BinaryExpression) Eq(r Expression) *BinaryExpression  { return Eq(b, r) }
func (b *BinaryExpression) And(r Expression) *BinaryExpression { return And(b, r) }
func (b *BinaryExpression) Or(r Expression) *BinaryExpression  { return Or(b, r) }
func (b *BinaryExpression) Xor(r Expression) *BinaryExpression { return Xor(b, r) }
func (b *BinaryExpression) Not() *UnaryExpression              { return Not(b) }

// ExpressionName is the output column name an expression produces.
func ExpressionName(e Expression) string {
	switch ex := e.(type) {
	case *FieldExpression:
		return ex.Name
	case *AliasExpression:
		return ex.Name
	default:
		return e.String()
	}
}
