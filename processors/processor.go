package processors

import (
	"context"
	"io"

	"fuse-query-go/datablocks"
	"fuse-query-go/datasources"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/evaluator"
	"fuse-query-go/functions"
	"fuse-query-go/sessions"

	"github.com/apache/arrow/go/v17/arrow"
)

var (
	_ = (Processor)(&SourceProcessor{})
	_ = (Processor)(&FilterProcessor{})
	_ = (Processor)(&ProjectionProcessor{})
	_ = (Processor)(&LimitProcessor{})
)

// Processor is a pull based pipeline stage. Next returns io.EOF once the
// stage is drained; call Close afterwards to release its resources. Blocks
// returned by Next belong to the caller.
type Processor interface {
	Name() string
	Next(ctx context.Context) (*datablocks.DataBlock, error)
	Schema() *datavalues.DataSchema
	Close() error
}

func checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return errors.ErrCancelled(context.Cause(ctx))
	}
	return nil
}

// nextBatch pulls up to n blocks from input. It returns io.EOF only when
// input had nothing left.
func nextBatch(ctx context.Context, input Processor, n int) ([]*datablocks.DataBlock, error) {
	if n <= 0 {
		n = 1
	}
	batch := make([]*datablocks.DataBlock, 0, n)
	for len(batch) < n {
		block, err := input.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			releaseBlocks(batch)
			return nil, err
		}
		batch = append(batch, block)
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// evaluateBatch returns one array per block, in block order. With more than
// one worker each gets its own clone of fn.
func evaluateBatch(ctx context.Context, fn functions.Function, batch []*datablocks.DataBlock, workers int) ([]arrow.Array, error) {
	if workers <= 1 || len(batch) == 1 {
		return evaluator.EvaluateBlocks(ctx, fn, batch)
	}
	return evaluator.EvaluateParallel(ctx, fn, batch, workers)
}

func releaseBlocks(blocks []*datablocks.DataBlock) {
	for _, b := range blocks {
		if b != nil {
			b.Release()
		}
	}
}

// SourceProcessor reads the partitions of a read plan one after another.
type SourceProcessor struct {
	qctx   *sessions.QueryContext
	plan   *datasources.ReadDataSourcePlan
	next   int
	stream datasources.BlockStream
}

func NewSourceProcessor(qctx *sessions.QueryContext, plan *datasources.ReadDataSourcePlan) (*SourceProcessor, error) {
	if plan == nil || plan.Source == nil {
		return nil, errors.ErrBadArguments("source processor needs a read plan with a table")
	}
	return &SourceProcessor{qctx: qctx, plan: plan}, nil
}

func (s *SourceProcessor) Name() string                   { return "SourceProcessor" }
func (s *SourceProcessor) Schema() *datavalues.DataSchema { return s.plan.Schema }

func (s *SourceProcessor) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	for {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		if s.stream == nil {
			if s.next >= len(s.plan.Partitions) {
				return nil, io.EOF
			}
			part := s.plan.Partitions[s.next]
			s.next++
			stream, err := s.plan.Source.Read(s.qctx, s.plan, part)
			if err != nil {
				return nil, err
			}
			s.stream = stream
		}
		block, err := s.stream.Next(ctx)
		if err == io.EOF {
			if err := s.closeStream(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return block, nil
	}
}

func (s *SourceProcessor) closeStream() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

func (s *SourceProcessor) Close() error {
	s.next = len(s.plan.Partitions)
	return s.closeStream()
}
