package datasources

import (
	"context"
	"fmt"
	"io"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/sessions"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// NumbersTable is system.numbers / system.numbers_mt: a single UInt64 column
// "number" counting from zero. The _mt variant is split into MaxThreads
// partitions.
type NumbersTable struct {
	name   string
	schema *datavalues.DataSchema
}

func NewNumbersTable(name string) *NumbersTable {
	return &NumbersTable{
		name:   name,
		schema: datavalues.NewDataSchema(datavalues.NewDataField("number", datavalues.UInt64, false)),
	}
}

func (t *NumbersTable) Name() string                   { return t.name }
func (t *NumbersTable) Database() string               { return "system" }
func (t *NumbersTable) Engine() string                 { return "SystemNumbers" }
func (t *NumbersTable) Schema() *datavalues.DataSchema { return t.schema }

func (t *NumbersTable) ReadPlan(qctx *sessions.QueryContext, scan ScanPlan) (*ReadDataSourcePlan, error) {
	rows := qctx.Settings.DefaultSourceRows
	if scan.Rows != nil {
		rows = *scan.Rows
	}
	parts := 1
	if t.name == "numbers_mt" {
		parts = qctx.Settings.MaxThreads
	}
	schema := t.schema
	if len(scan.Columns) > 0 {
		var err error
		if schema, err = t.schema.Project(scan.Columns...); err != nil {
			return nil, err
		}
	}
	bytes := rows * uint64(datavalues.UInt64.Width())
	return &ReadDataSourcePlan{
		Database:    t.Database(),
		Table:       t.name,
		Source:      t,
		Schema:      schema,
		Partitions:  rangePartitions("number", rows, parts),
		Statistics:  Statistics{ReadRows: rows, ReadBytes: bytes},
		Description: fmt.Sprintf("(Read from system.%s table, Read Rows:%d, Read Bytes:%d)", t.name, rows, bytes),
	}, nil
}

func (t *NumbersTable) Read(qctx *sessions.QueryContext, plan *ReadDataSourcePlan, part Partition) (BlockStream, error) {
	if part.End < part.Begin {
		return nil, errors.ErrBadArguments("invalid numbers partition %s", part.Name)
	}
	return &numbersStream{
		schema:    plan.Schema,
		mem:       qctx.Allocator,
		next:      part.Begin,
		end:       part.End,
		blockSize: uint64(qctx.Settings.MaxBlockSize),
	}, nil
}

type numbersStream struct {
	schema    *datavalues.DataSchema
	mem       memory.Allocator
	next, end uint64
	blockSize uint64
}

func (s *numbersStream) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	if s.next >= s.end {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled(err)
	}
	stop := s.next + s.blockSize
	if stop > s.end {
		stop = s.end
	}
	b := array.NewUint64Builder(s.mem)
	defer b.Release()
	b.Reserve(int(stop - s.next))
	for v := s.next; v < stop; v++ {
		b.UnsafeAppend(v)
	}
	s.next = stop
	return datablocks.NewDataBlock(s.schema, []arrow.Array{b.NewArray()})
}

func (s *numbersStream) Close() error {
	s.next = s.end
	return nil
}
