package processors

import (
	"context"
	"io"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/functions"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/compute"
)

// FilterProcessor keeps the rows where the predicate is true. Null
// predicate values drop the row. Blocks left empty are skipped.
type FilterProcessor struct {
	input     Processor
	predicate functions.Function
	workers   int
	pending   []*datablocks.DataBlock
	done      bool
}

// NewFilterProcessor takes ownership of predicate; Close releases it.
func NewFilterProcessor(input Processor, predicate functions.Function) (*FilterProcessor, error) {
	dt, err := predicate.ReturnType(input.Schema())
	if err != nil {
		return nil, err
	}
	if dt != datavalues.Boolean && dt != datavalues.Null {
		return nil, errors.ErrType("predicate %s returns %s, expected Boolean", predicate, dt)
	}
	return &FilterProcessor{input: input, predicate: predicate, workers: 1}, nil
}

// WithWorkers evaluates the predicate over up to n input blocks at a time.
// Output order is unchanged.
func (f *FilterProcessor) WithWorkers(n int) *FilterProcessor {
	if n < 1 {
		n = 1
	}
	f.workers = n
	return f
}

func (f *FilterProcessor) Name() string                   { return "FilterProcessor" }
func (f *FilterProcessor) Schema() *datavalues.DataSchema { return f.input.Schema() }

func (f *FilterProcessor) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	for {
		if len(f.pending) > 0 {
			block := f.pending[0]
			f.pending = f.pending[1:]
			return block, nil
		}
		if f.done {
			return nil, io.EOF
		}
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		batch, err := nextBatch(ctx, f.input, f.workers)
		if err != nil {
			if err == io.EOF {
				f.done = true
			}
			return nil, err
		}
		out, err := f.filterBatch(ctx, batch)
		releaseBlocks(batch)
		if err != nil {
			return nil, err
		}
		f.pending = out
	}
}

func (f *FilterProcessor) filterBatch(ctx context.Context, batch []*datablocks.DataBlock) ([]*datablocks.DataBlock, error) {
	masks, err := evaluateBatch(ctx, f.predicate, batch, f.workers)
	if err != nil {
		return nil, err
	}
	defer releaseArrays(masks)
	out := make([]*datablocks.DataBlock, 0, len(batch))
	for i, block := range batch {
		filtered, err := filterBlock(ctx, block, masks[i])
		if err != nil {
			releaseBlocks(out)
			return nil, err
		}
		if filtered.NumRows() == 0 {
			filtered.Release()
			continue
		}
		out = append(out, filtered)
	}
	return out, nil
}

func filterBlock(ctx context.Context, block *datablocks.DataBlock, mask arrow.Array) (*datablocks.DataBlock, error) {
	boolMask, ok := mask.(*array.Boolean)
	if !ok {
		// a NULL typed predicate keeps nothing
		return block.Slice(0, 0)
	}
	cols := make([]arrow.Array, block.NumColumns())
	var err error
	for i, col := range block.Columns() {
		cols[i], err = ApplyBooleanMask(ctx, col, boolMask)
		if err != nil {
			releaseArrays(cols[:i])
			return nil, err
		}
	}
	out, err := datablocks.NewDataBlock(block.Schema(), cols)
	if err != nil {
		releaseArrays(cols)
		return nil, err
	}
	return out, nil
}

func (f *FilterProcessor) Close() error {
	f.done = true
	releaseBlocks(f.pending)
	f.pending = nil
	f.predicate.Release()
	return f.input.Close()
}

// ApplyBooleanMask keeps the entries of col where mask is true.
func ApplyBooleanMask(ctx context.Context, col arrow.Array, mask *array.Boolean) (arrow.Array, error) {
	values, filter := compute.NewDatum(col), compute.NewDatum(mask)
	defer values.Release()
	defer filter.Release()
	datum, err := compute.Filter(ctx, values, filter, *compute.DefaultFilterOptions())
	if err != nil {
		return nil, errors.Wrap(errors.Internal, err, "cannot filter %s column", col.DataType())
	}
	defer datum.Release()
	return datum.(*compute.ArrayDatum).MakeArray(), nil
}

func releaseArrays(arrs []arrow.Array) {
	for _, a := range arrs {
		if a != nil {
			a.Release()
		}
	}
}
