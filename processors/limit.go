package processors

import (
	"context"
	"io"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
)

// LimitProcessor passes through the first n rows and stops pulling its
// input once they are out.
type LimitProcessor struct {
	input     Processor
	remaining uint64
}

func NewLimitProcessor(input Processor, n uint64) *LimitProcessor {
	return &LimitProcessor{input: input, remaining: n}
}

func (l *LimitProcessor) Name() string                   { return "LimitProcessor" }
func (l *LimitProcessor) Schema() *datavalues.DataSchema { return l.input.Schema() }

func (l *LimitProcessor) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	if l.remaining == 0 {
		return nil, io.EOF
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	block, err := l.input.Next(ctx)
	if err != nil {
		return nil, err
	}
	rows := uint64(block.NumRows())
	if rows <= l.remaining {
		l.remaining -= rows
		return block, nil
	}
	defer block.Release()
	out, err := block.Slice(0, int(l.remaining))
	if err != nil {
		return nil, err
	}
	l.remaining = 0
	return out, nil
}

func (l *LimitProcessor) Close() error {
	l.remaining = 0
	return l.input.Close()
}
