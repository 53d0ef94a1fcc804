package datablocks

import (
	"fuse-query-go/datavalues"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// DataBlockBuilder collects fields and columns and validates them together.
// The Gen* helpers are mostly used by tests and the system tables.
type DataBlockBuilder struct {
	mem     memory.Allocator
	fields  []datavalues.DataField
	columns []arrow.Array
}

func NewDataBlockBuilder(mem memory.Allocator) *DataBlockBuilder {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &DataBlockBuilder{
		mem:     mem,
		fields:  make([]datavalues.DataField, 0, 10),
		columns: make([]arrow.Array, 0, 10),
	}
}

// WithColumn appends a field and takes ownership of col.
func (bb *DataBlockBuilder) WithColumn(name string, dtype datavalues.DataType, nullable bool, col arrow.Array) *DataBlockBuilder {
	bb.fields = append(bb.fields, datavalues.NewDataField(name, dtype, nullable))
	bb.columns = append(bb.columns, col)
	return bb
}

func (bb *DataBlockBuilder) Schema() *datavalues.DataSchema {
	return datavalues.NewDataSchema(bb.fields...)
}

// Build validates and returns the block. On error the collected columns are
// released.
func (bb *DataBlockBuilder) Build() (*DataBlock, error) {
	b, err := NewDataBlock(bb.Schema(), bb.columns)
	if err != nil {
		releaseAll(bb.columns)
	}
	bb.fields, bb.columns = nil, nil
	return b, err
}

func (bb *DataBlockBuilder) GenBoolArray(values ...bool) arrow.Array {
	builder := array.NewBooleanBuilder(bb.mem)
	defer builder.Release()
	builder.AppendValues(values, nil)
	return builder.NewArray()
}

// GenNullableBoolArray treats a nil entry as null.
func (bb *DataBlockBuilder) GenNullableBoolArray(values ...any) arrow.Array {
	builder := array.NewBooleanBuilder(bb.mem)
	defer builder.Release()
	for _, v := range values {
		if v == nil {
			builder.AppendNull()
			continue
		}
		builder.Append(v.(bool))
	}
	return builder.NewArray()
}

func (bb *DataBlockBuilder) GenInt32Array(values ...int32) arrow.Array {
	builder := array.NewInt32Builder(bb.mem)
	defer builder.Release()
	builder.AppendValues(values, nil)
	return builder.NewArray()
}

func (bb *DataBlockBuilder) GenInt64Array(values ...int64) arrow.Array {
	builder := array.NewInt64Builder(bb.mem)
	defer builder.Release()
	builder.AppendValues(values, nil)
	return builder.NewArray()
}

// GenUint64Array generates a UInt64 array
func (bb *DataBlockBuilder) GenUint64Array(values ...uint64) arrow.Array {
	builder := array.NewUint64Builder(bb.mem)
	defer builder.Release()
	builder.AppendValues(values, nil)
	return builder.NewArray()
}

func (bb *DataBlockBuilder) GenFloat64Array(values ...float64) arrow.Array {
	builder := array.NewFloat64Builder(bb.mem)
	defer builder.Release()
	builder.AppendValues(values, nil)
	return builder.NewArray()
}

func (bb *DataBlockBuilder) GenStringArray(values ...string) arrow.Array {
	builder := array.NewStringBuilder(bb.mem)
	defer builder.Release()
	builder.AppendValues(values, nil)
	return builder.NewArray()
}

// GenNullArray generates an all-null array of type Null.
func (bb *DataBlockBuilder) GenNullArray(n int) arrow.Array {
	return array.NewNull(n)
}
