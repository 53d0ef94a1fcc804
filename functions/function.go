package functions

import (
	"context"
	"fmt"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow/compute"
)

var (
	_ = (Function)(&ColumnFunction{})
	_ = (Function)(&ConstantFunction{})
	_ = (Function)(&LogicFunction{})
	_ = (Function)(&NotFunction{})
	_ = (Function)(&ComparisonFunction{})
	_ = (Function)(&ArithmeticFunction{})
	_ = (Function)(&CastFunction{})
	_ = (Function)(&AliasFunction{})
)

/*
Eval(fn, block):

	new pass
	fn.eval(pass):
	    already evaluated in this pass -> nothing to do
	    eval every child
	    dispatch kernel over the children's results
	    store the output in the node cache

Result() reads the cache. The value stays valid until the next Eval or
Release of the same node.
*/
type Function interface {
	Name() string
	ReturnType(schema *datavalues.DataSchema) (datavalues.DataType, error)
	Nullable(schema *datavalues.DataSchema) (bool, error)
	Eval(ctx context.Context, block *datablocks.DataBlock) error
	Result() (datavalues.DataColumnarValue, error)
	// Clone returns an independent copy of the tree with every cache reset.
	Clone() Function
	Children() []Function
	// Release frees the cached results of the whole tree.
	Release()
	fmt.Stringer

	// closed set of node kinds
	eval(p *evalPass) error
	clone(memo map[Function]Function) Function
	precedence() int
}

// evalPass identifies one Eval call. A node reached twice within the same
// pass is only computed once.
type evalPass struct {
	kctx  *datavalues.KernelContext
	block *datablocks.DataBlock
}

func newEvalPass(ctx context.Context, block *datablocks.DataBlock) (*evalPass, error) {
	if block == nil {
		return nil, errors.ErrInternal("cannot evaluate against a nil block")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &evalPass{
		kctx:  datavalues.NewKernelContext(ctx, compute.GetAllocator(ctx), block.NumRows()),
		block: block,
	}, nil
}

func evalRoot(f Function, ctx context.Context, block *datablocks.DataBlock) error {
	p, err := newEvalPass(ctx, block)
	if err != nil {
		return err
	}
	return f.eval(p)
}

// saved is the per-node result cache.
type saved struct {
	value datavalues.DataColumnarValue
	ok    bool
	pass  *evalPass
}

func (s *saved) Result() (datavalues.DataColumnarValue, error) {
	if !s.ok {
		return datavalues.DataColumnarValue{}, errors.ErrInternal("Saved cannot none")
	}
	return s.value, nil
}

func (s *saved) store(p *evalPass, v datavalues.DataColumnarValue) {
	s.reset()
	s.value, s.ok, s.pass = v, true, p
}

func (s *saved) reset() {
	if s.ok {
		s.value.Release()
	}
	s.value, s.ok, s.pass = datavalues.DataColumnarValue{}, false, nil
}

// run evaluates children then calls fn with their results. Any failure
// leaves the node Fresh.
func (s *saved) run(p *evalPass, children []Function, fn func(args []datavalues.DataColumnarValue) (datavalues.DataColumnarValue, error)) error {
	if s.ok && s.pass == p {
		return nil
	}
	args := make([]datavalues.DataColumnarValue, len(children))
	for i, c := range children {
		if err := c.eval(p); err != nil {
			s.reset()
			return err
		}
		v, err := c.Result()
		if err != nil {
			s.reset()
			return err
		}
		args[i] = v
	}
	v, err := fn(args)
	if err != nil {
		s.reset()
		return err
	}
	if n := v.Len(p.block.NumRows()); n != p.block.NumRows() {
		v.Release()
		s.reset()
		return errors.ErrInternal("function produced %d rows, block has %d", n, p.block.NumRows())
	}
	s.store(p, v)
	return nil
}

func releaseTree(f Function, s *saved) {
	s.reset()
	for _, c := range f.Children() {
		c.Release()
	}
}

func cloneChildren(memo map[Function]Function, children ...Function) []Function {
	out := make([]Function, len(children))
	for i, c := range children {
		out[i] = c.clone(memo)
	}
	return out
}

func checkArity(name string, want int, args []Function) error {
	if len(args) != want {
		return errors.ErrArity("Function Error: %s function args length must be %d, got %d", name, want, len(args))
	}
	for i, a := range args {
		if a == nil {
			return errors.ErrArity("Function Error: %s function arg %d is nil", name, i)
		}
	}
	return nil
}

const leafPrecedence = 100

// displayChild wraps c in parentheses when it binds looser than the parent.
// The right operand of a non associative operator also needs them at equal
// precedence.
func displayChild(parent datavalues.DataValueOperator, c Function, right bool) string {
	cp, pp := c.precedence(), parent.Precedence()
	if cp < pp || (right && cp == pp && !associative(parent)) {
		return "(" + c.String() + ")"
	}
	return c.String()
}

func associative(op datavalues.DataValueOperator) bool {
	switch op {
	case datavalues.And, datavalues.Or, datavalues.Xor, datavalues.Plus, datavalues.Mul:
		return true
	}
	return false
}
