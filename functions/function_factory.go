package functions

import (
	"sort"
	"strings"
	"sync"

	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
)

// FactoryCreator builds a function node from its arguments.
type FactoryCreator func(args ...Function) (Function, error)

// FunctionFactory maps case-insensitive function names to creators.
type FunctionFactory struct {
	mu       sync.RWMutex
	creators map[string]FactoryCreator
}

func NewFunctionFactory() *FunctionFactory {
	ff := &FunctionFactory{creators: map[string]FactoryCreator{}}
	ff.Register("and", NewAndFunction)
	ff.Register("or", NewOrFunction)
	ff.Register("xor", NewXorFunction)
	ff.Register("not", NewNotFunction)
	for _, op := range []datavalues.DataValueOperator{
		datavalues.Eq, datavalues.NotEq, datavalues.Lt, datavalues.LtEq, datavalues.Gt, datavalues.GtEq,
	} {
		ff.Register(op.String(), func(args ...Function) (Function, error) {
			return asFunction(NewComparisonFunction(op, args...))
		})
	}
	for _, op := range []datavalues.DataValueOperator{
		datavalues.Plus, datavalues.Minus, datavalues.Mul, datavalues.Div,
	} {
		ff.Register(op.String(), func(args ...Function) (Function, error) {
			return asFunction(NewArithmeticFunction(op, args...))
		})
	}
	ff.Register("cast", newCastFromArgs)
	return ff
}

// newCastFromArgs follows CAST(x, 'Type'): the second argument is a string
// constant naming the target type.
func newCastFromArgs(args ...Function) (Function, error) {
	if err := checkArity("cast", 2, args); err != nil {
		return nil, err
	}
	c, ok := args[1].(*ConstantFunction)
	if !ok || c.Value().DataType() != datavalues.Utf8 || !c.Value().Scalar().IsValid() {
		return nil, errors.ErrBadArguments("cast target must be a string constant, got %s", args[1])
	}
	target, err := datavalues.DataTypeFromName(strings.Trim(c.Value().Scalar().String(), "'"))
	if err != nil {
		return nil, err
	}
	return asFunction(NewCastFunction(target, args[0]))
}

func (ff *FunctionFactory) Register(name string, creator FactoryCreator) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	ff.creators[strings.ToLower(name)] = creator
}

func (ff *FunctionFactory) Get(name string, args ...Function) (Function, error) {
	ff.mu.RLock()
	creator, ok := ff.creators[strings.ToLower(strings.TrimSpace(name))]
	ff.mu.RUnlock()
	if !ok {
		return nil, errors.ErrBadArguments("Unsupported Function: %s", name)
	}
	return creator(args...)
}

func (ff *FunctionFactory) Names() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	names := make([]string, 0, len(ff.creators))
	for n := range ff.creators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// asFunction keeps a failed constructor from leaking a typed nil.
func asFunction[T Function](f T, err error) (Function, error) {
	if err != nil {
		return nil, err
	}
	return f, nil
}

var defaultFactory = NewFunctionFactory()

// Get builds a function from the default factory.
func Get(name string, args ...Function) (Function, error) {
	return defaultFactory.Get(name, args...)
}

// ForOperator builds the node for op with the default factory.
func ForOperator(op datavalues.DataValueOperator, args ...Function) (Function, error) {
	return defaultFactory.Get(op.String(), args...)
}
