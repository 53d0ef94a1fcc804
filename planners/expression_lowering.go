package planners

import (
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/functions"
)

// ToFunction lowers e to a function tree over schema. Binary operands of
// different types are unified: a constant operand is cast to the other side's
// type, otherwise both sides are cast to their numeric super type. The
// returned tree type checks against schema.
func ToFunction(e Expression, schema *datavalues.DataSchema) (functions.Function, error) {
	fn, err := lower(e, schema)
	if err != nil {
		return nil, err
	}
	if _, err := fn.ReturnType(schema); err != nil {
		fn.Release()
		return nil, err
	}
	return fn, nil
}

func lower(e Expression, schema *datavalues.DataSchema) (functions.Function, error) {
	switch ex := e.(type) {
	case *FieldExpression:
		if schema.IndexOf(ex.Name) < 0 {
			return nil, errors.ErrUnknownColumn(ex.Name)
		}
		return functions.NewColumnFunction(ex.Name), nil
	case *ConstantExpression:
		return functionOf(functions.NewConstantFunction(ex.Value))
	case *AliasExpression:
		input, err := lower(ex.Input, schema)
		if err != nil {
			return nil, err
		}
		return functionOf(functions.NewAliasFunction(ex.Name, input))
	case *CastExpression:
		input, err := lower(ex.Input, schema)
		if err != nil {
			return nil, err
		}
		return functionOf(functions.NewCastFunction(ex.Target, input))
	case *UnaryExpression:
		input, err := lower(ex.Input, schema)
		if err != nil {
			return nil, err
		}
		return functions.ForOperator(ex.Op, input)
	case *BinaryExpression:
		return lowerBinary(ex, schema)
	case nil:
		return nil, errors.ErrBadArguments("nil expression")
	default:
		return nil, errors.ErrNotImplemented("unsupported expression %s", e)
	}
}

func lowerBinary(b *BinaryExpression, schema *datavalues.DataSchema) (functions.Function, error) {
	left, err := lower(b.Left, schema)
	if err != nil {
		return nil, err
	}
	right, err := lower(b.Right, schema)
	if err != nil {
		left.Release()
		return nil, err
	}
	if !b.Op.IsLogic() {
		left, right, err = unifyOperands(left, right, schema)
		if err != nil {
			return nil, err
		}
	}
	return functions.ForOperator(b.Op, left, right)
}

// unifyOperands releases both sides on error.
func unifyOperands(left, right functions.Function, schema *datavalues.DataSchema) (functions.Function, functions.Function, error) {
	fail := func(err error) (functions.Function, functions.Function, error) {
		left.Release()
		right.Release()
		return nil, nil, err
	}
	lt, err := left.ReturnType(schema)
	if err != nil {
		return fail(err)
	}
	rt, err := right.ReturnType(schema)
	if err != nil {
		return fail(err)
	}
	if lt == rt {
		return left, right, nil
	}
	_, leftConst := left.(*functions.ConstantFunction)
	_, rightConst := right.(*functions.ConstantFunction)
	var target datavalues.DataType
	switch {
	case rightConst && !leftConst:
		target = lt
	case leftConst && !rightConst:
		target = rt
	case lt == datavalues.Null:
		target = rt
	case rt == datavalues.Null:
		target = lt
	default:
		if target, err = datavalues.NumericSuperType(lt, rt); err != nil {
			return fail(err)
		}
	}
	if lt != target {
		cast, err := functionOf(functions.NewCastFunction(target, left))
		if err != nil {
			return fail(err)
		}
		left = cast
	}
	if rt != target {
		cast, err := functionOf(functions.NewCastFunction(target, right))
		if err != nil {
			return fail(err)
		}
		right = cast
	}
	return left, right, nil
}

func functionOf[T functions.Function](f T, err error) (functions.Function, error) {
	if err != nil {
		return nil, err
	}
	return f, nil
}
