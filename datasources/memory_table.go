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

var (
	ErrInvalidInMemoryDataType = func(col any) error {
		return errors.ErrType("%T is not a supported in memory data type", col)
	}
)

// MemoryTable serves Go slices as a table. Mostly used in tests.
type MemoryTable struct {
	name    string
	schema  *datavalues.DataSchema
	columns []arrow.Array
	rows    int
}

// NewMemoryTable builds one column per entry of columns, each a typed Go
// slice ([]int, []uint64, []string, []bool, ...). Columns are nullable.
func NewMemoryTable(name string, names []string, columns []any) (*MemoryTable, error) {
	if len(names) != len(columns) {
		return nil, errors.ErrBadArguments("number of column names and columns do not match")
	}
	mem := memory.NewGoAllocator()
	fields := make([]datavalues.DataField, 0, len(names))
	arrays := make([]arrow.Array, 0, len(names))
	for i, col := range columns {
		field, arr, err := unpackColumn(mem, names[i], col)
		if err != nil {
			for _, a := range arrays {
				a.Release()
			}
			return nil, err
		}
		fields = append(fields, field)
		arrays = append(arrays, arr)
	}
	// validates equal lengths; the block is only used for that
	block, err := datablocks.NewDataBlock(datavalues.NewDataSchema(fields...), arrays)
	if err != nil {
		for _, a := range arrays {
			a.Release()
		}
		return nil, err
	}
	return &MemoryTable{name: name, schema: block.Schema(), columns: arrays, rows: block.NumRows()}, nil
}

func (t *MemoryTable) Name() string                   { return t.name }
func (t *MemoryTable) Database() string               { return "default" }
func (t *MemoryTable) Engine() string                 { return "Memory" }
func (t *MemoryTable) Schema() *datavalues.DataSchema { return t.schema }

func (t *MemoryTable) ReadPlan(qctx *sessions.QueryContext, scan ScanPlan) (*ReadDataSourcePlan, error) {
	schema := t.schema
	if len(scan.Columns) > 0 {
		var err error
		if schema, err = t.schema.Project(scan.Columns...); err != nil {
			return nil, err
		}
	}
	var bytes uint64
	for _, c := range t.columns {
		for _, buf := range c.Data().Buffers() {
			if buf != nil {
				bytes += uint64(buf.Len())
			}
		}
	}
	rows := uint64(t.rows)
	return &ReadDataSourcePlan{
		Database:    t.Database(),
		Table:       t.name,
		Source:      t,
		Schema:      schema,
		Partitions:  rangePartitions("memory", rows, qctx.Settings.MaxThreads),
		Statistics:  Statistics{ReadRows: rows, ReadBytes: bytes},
		Description: fmt.Sprintf("(Read from %s table, Read Rows:%d, Read Bytes:%d)", t.name, rows, bytes),
	}, nil
}

func (t *MemoryTable) Read(qctx *sessions.QueryContext, plan *ReadDataSourcePlan, part Partition) (BlockStream, error) {
	if part.End > uint64(t.rows) || part.Begin > part.End {
		return nil, errors.ErrBadArguments("partition %s out of range for %d rows", part.Name, t.rows)
	}
	cols := make([]arrow.Array, plan.Schema.Len())
	for i, f := range plan.Schema.Fields() {
		idx := t.schema.IndexOf(f.Name)
		if idx < 0 {
			return nil, errors.ErrUnknownColumn(f.Name)
		}
		cols[i] = t.columns[idx]
	}
	return &sliceStream{
		schema:    plan.Schema,
		columns:   cols,
		pos:       int(part.Begin),
		end:       int(part.End),
		blockSize: qctx.Settings.MaxBlockSize,
	}, nil
}

// Release frees the table columns.
func (t *MemoryTable) Release() {
	for _, c := range t.columns {
		c.Release()
	}
}

// sliceStream cuts zero copy blocks out of fixed columns.
type sliceStream struct {
	schema    *datavalues.DataSchema
	columns   []arrow.Array
	pos, end  int
	blockSize int
}

func (s *sliceStream) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	if s.pos >= s.end {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled(err)
	}
	toRead := s.blockSize
	if remaining := s.end - s.pos; remaining < toRead {
		toRead = remaining
	}
	out := make([]arrow.Array, len(s.columns))
	for i, col := range s.columns {
		out[i] = array.NewSlice(col, int64(s.pos), int64(s.pos+toRead))
	}
	s.pos += toRead
	return datablocks.NewDataBlock(s.schema, out)
}

func (s *sliceStream) Close() error {
	s.pos = s.end
	return nil
}

func unpackColumn(mem memory.Allocator, name string, col any) (datavalues.DataField, arrow.Array, error) {
	field := datavalues.DataField{Name: name, Nullable: true}
	switch colType := col.(type) {
	case []int:
		field.Type = datavalues.Int64
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range colType {
			b.Append(int64(v))
		}
		return field, b.NewArray(), nil
	case []int8:
		field.Type = datavalues.Int8
		b := array.NewInt8Builder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []int16:
		field.Type = datavalues.Int16
		b := array.NewInt16Builder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []int32:
		field.Type = datavalues.Int32
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []int64:
		field.Type = datavalues.Int64
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []uint:
		field.Type = datavalues.UInt64
		b := array.NewUint64Builder(mem)
		defer b.Release()
		for _, v := range colType {
			b.Append(uint64(v))
		}
		return field, b.NewArray(), nil
	case []uint8:
		field.Type = datavalues.UInt8
		b := array.NewUint8Builder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []uint16:
		field.Type = datavalues.UInt16
		b := array.NewUint16Builder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []uint32:
		field.Type = datavalues.UInt32
		b := array.NewUint32Builder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []uint64:
		field.Type = datavalues.UInt64
		b := array.NewUint64Builder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []float32:
		field.Type = datavalues.Float32
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []float64:
		field.Type = datavalues.Float64
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []string:
		field.Type = datavalues.Utf8
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []bool:
		field.Type = datavalues.Boolean
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(colType, nil)
		return field, b.NewArray(), nil
	case []*bool:
		// nil entries are nulls
		field.Type = datavalues.Boolean
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range colType {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(*v)
		}
		return field, b.NewArray(), nil
	case arrow.Array:
		dt, err := datavalues.DataTypeFromArrow(colType.DataType())
		if err != nil {
			return field, nil, err
		}
		field.Type = dt
		colType.Retain()
		return field, colType, nil
	}
	return field, nil, ErrInvalidInMemoryDataType(col)
}
