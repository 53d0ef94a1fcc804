package processors

import (
	"context"
	"io"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/functions"

	"github.com/apache/arrow/go/v17/arrow"
)

// ProjectionProcessor evaluates one function per output column.
type ProjectionProcessor struct {
	input   Processor
	exprs   []functions.Function
	schema  *datavalues.DataSchema
	workers int
	pending []*datablocks.DataBlock
	done    bool
}

// NewProjectionProcessor takes ownership of exprs. schema names the output
// columns and must have one field per expression of the matching type.
func NewProjectionProcessor(input Processor, exprs []functions.Function, schema *datavalues.DataSchema) (*ProjectionProcessor, error) {
	if len(exprs) != schema.Len() {
		return nil, errors.ErrInternal("projection has %d expressions for %d fields", len(exprs), schema.Len())
	}
	for i, fn := range exprs {
		dt, err := fn.ReturnType(input.Schema())
		if err != nil {
			return nil, err
		}
		if want := schema.Field(i).Type; dt != want {
			return nil, errors.ErrInternal("Type mismatch at position %d: %s returns '%s', but schema expects '%s'.", i, fn, dt, want)
		}
	}
	return &ProjectionProcessor{input: input, exprs: exprs, schema: schema, workers: 1}, nil
}

// WithWorkers evaluates each expression over up to n input blocks at a time.
func (p *ProjectionProcessor) WithWorkers(n int) *ProjectionProcessor {
	if n < 1 {
		n = 1
	}
	p.workers = n
	return p
}

func (p *ProjectionProcessor) Name() string                   { return "ProjectionProcessor" }
func (p *ProjectionProcessor) Schema() *datavalues.DataSchema { return p.schema }

func (p *ProjectionProcessor) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	if len(p.pending) > 0 {
		block := p.pending[0]
		p.pending = p.pending[1:]
		return block, nil
	}
	if p.done {
		return nil, io.EOF
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	batch, err := nextBatch(ctx, p.input, p.workers)
	if err != nil {
		if err == io.EOF {
			p.done = true
		}
		return nil, err
	}
	defer releaseBlocks(batch)
	out, err := p.projectBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	p.pending = out[1:]
	return out[0], nil
}

func (p *ProjectionProcessor) projectBatch(ctx context.Context, batch []*datablocks.DataBlock) ([]*datablocks.DataBlock, error) {
	// columns[e][b] is expression e over block b
	columns := make([][]arrow.Array, len(p.exprs))
	release := func() {
		for _, arrs := range columns {
			releaseArrays(arrs)
		}
	}
	for e, fn := range p.exprs {
		arrs, err := evaluateBatch(ctx, fn, batch, p.workers)
		if err != nil {
			release()
			return nil, err
		}
		columns[e] = arrs
	}
	out := make([]*datablocks.DataBlock, len(batch))
	for b := range batch {
		cols := make([]arrow.Array, len(p.exprs))
		for e := range p.exprs {
			cols[e] = columns[e][b]
			columns[e][b] = nil
		}
		block, err := datablocks.NewDataBlock(p.schema, cols)
		if err != nil {
			releaseArrays(cols)
			releaseBlocks(out)
			release()
			return nil, err
		}
		out[b] = block
	}
	return out, nil
}

func (p *ProjectionProcessor) Close() error {
	p.done = true
	releaseBlocks(p.pending)
	p.pending = nil
	for _, fn := range p.exprs {
		fn.Release()
	}
	return p.input.Close()
}
