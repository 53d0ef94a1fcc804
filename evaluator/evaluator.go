package evaluator

import (
	"context"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/functions"
	"fuse-query-go/logger"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"golang.org/x/sync/errgroup"
)

// Evaluate runs fn over block and returns the root result. The value belongs to
// fn and stays valid until its next Eval or Release; Retain it to keep it.
func Evaluate(ctx context.Context, fn functions.Function, block *datablocks.DataBlock) (datavalues.DataColumnarValue, error) {
	if fn == nil {
		return datavalues.DataColumnarValue{}, errors.ErrInternal("cannot evaluate a nil function")
	}
	if err := fn.Eval(ctx, block); err != nil {
		return datavalues.DataColumnarValue{}, err
	}
	v, err := fn.Result()
	if err != nil {
		return datavalues.DataColumnarValue{}, err
	}
	if n := v.Len(block.NumRows()); n != block.NumRows() {
		return datavalues.DataColumnarValue{}, errors.ErrInternal("%s produced %d rows for a block of %d", fn, n, block.NumRows())
	}
	return v, nil
}

// EvaluateToArray is Evaluate with scalar results broadcast to the block
// length. The caller owns the returned array.
func EvaluateToArray(ctx context.Context, fn functions.Function, block *datablocks.DataBlock) (arrow.Array, error) {
	v, err := Evaluate(ctx, fn, block)
	if err != nil {
		return nil, err
	}
	return v.AsArray(compute.GetAllocator(ctx), block.NumRows())
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errors.ErrCancelled(context.Cause(ctx))
	default:
		return nil
	}
}

// EvaluateBlocks evaluates fn over each block in turn. Cancellation is only
// observed between blocks. On error the already produced arrays are released.
func EvaluateBlocks(ctx context.Context, fn functions.Function, blocks []*datablocks.DataBlock) ([]arrow.Array, error) {
	out := make([]arrow.Array, 0, len(blocks))
	for i, b := range blocks {
		if err := checkCancelled(ctx); err != nil {
			releaseArrays(out)
			logger.Debug("evaluation cancelled", "function", fn.String(), "block", i)
			return nil, err
		}
		arr, err := EvaluateToArray(ctx, fn, b)
		if err != nil {
			releaseArrays(out)
			return nil, err
		}
		out = append(out, arr)
	}
	return out, nil
}

// EvaluateParallel spreads blocks over workers, each with its own clone of fn.
// Output order follows blocks; the first error cancels the rest.
func EvaluateParallel(ctx context.Context, fn functions.Function, blocks []*datablocks.DataBlock, workers int) ([]arrow.Array, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(blocks) {
		workers = len(blocks)
	}
	out := make([]arrow.Array, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		clone := fn.Clone()
		g.Go(func() error {
			defer clone.Release()
			for i := w; i < len(blocks); i += workers {
				if err := checkCancelled(gctx); err != nil {
					return err
				}
				arr, err := EvaluateToArray(gctx, clone, blocks[i])
				if err != nil {
					return err
				}
				out[i] = arr
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		releaseArrays(out)
		return nil, err
	}
	logger.Debug("parallel evaluation finished", "function", fn.String(), "blocks", len(blocks), "workers", workers)
	return out, nil
}

func releaseArrays(arrs []arrow.Array) {
	for _, a := range arrs {
		if a != nil {
			a.Release()
		}
	}
}
