package datablocks

import (
	"fmt"
	"strings"

	"fuse-query-go/datavalues"
	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

// DataBlock is a horizontal slice of a table: one array per schema field, all
// of the same length. The block owns one reference on each column.
type DataBlock struct {
	schema  *datavalues.DataSchema
	columns []arrow.Array
	rows    int
}

// schema is always right in case of type mismatches
func validate(schema *datavalues.DataSchema, columns []arrow.Array) (int, error) {
	if schema == nil {
		return 0, errors.ErrInternal("data block schema cannot be nil")
	}
	if schema.Len() != len(columns) {
		return 0, errors.ErrInternal("schema has %d fields but %d columns were given", schema.Len(), len(columns))
	}
	var problems []string
	rows := -1
	for i, col := range columns {
		field := schema.Field(i)
		if col == nil {
			problems = append(problems, fmt.Sprintf("column '%s' at position %d is nil.", field.Name, i))
			continue
		}
		if !arrow.TypeEqual(col.DataType(), field.Type.ToArrow()) {
			problems = append(problems,
				fmt.Sprintf("Type mismatch at position %d: column '%s' has type '%s', but schema expects '%s'.",
					i, field.Name, col.DataType(), field.Type))
		}
		if rows < 0 {
			rows = col.Len()
		} else if col.Len() != rows {
			problems = append(problems,
				fmt.Sprintf("column '%s' has %d rows, expected %d.", field.Name, col.Len(), rows))
		}
	}
	if len(problems) > 0 {
		return 0, errors.ErrInternal("invalid data block: %s", strings.Join(problems, " "))
	}
	if rows < 0 {
		rows = 0
	}
	return rows, nil
}

// NewDataBlock takes ownership of columns. On error the caller keeps them.
func NewDataBlock(schema *datavalues.DataSchema, columns []arrow.Array) (*DataBlock, error) {
	rows, err := validate(schema, columns)
	if err != nil {
		return nil, err
	}
	return &DataBlock{schema: schema, columns: columns, rows: rows}, nil
}

// NewDataBlockFromRecord retains the record's columns.
func NewDataBlockFromRecord(rec arrow.Record) (*DataBlock, error) {
	schema, err := datavalues.NewDataSchemaFromArrow(rec.Schema())
	if err != nil {
		return nil, err
	}
	cols := make([]arrow.Array, rec.NumCols())
	for i := range cols {
		cols[i] = rec.Column(i)
		cols[i].Retain()
	}
	b, err := NewDataBlock(schema, cols)
	if err != nil {
		releaseAll(cols)
		return nil, err
	}
	return b, nil
}

func (b *DataBlock) Schema() *datavalues.DataSchema { return b.schema }
func (b *DataBlock) NumRows() int                   { return b.rows }
func (b *DataBlock) NumColumns() int                { return len(b.columns) }

func (b *DataBlock) Column(i int) arrow.Array {
	return b.columns[i]
}

func (b *DataBlock) ColumnByName(name string) (arrow.Array, error) {
	i := b.schema.IndexOf(name)
	if i < 0 {
		return nil, errors.ErrUnknownColumn(name)
	}
	return b.columns[i], nil
}

// Columns returns the backing slice; callers must not release its entries.
func (b *DataBlock) Columns() []arrow.Array {
	return b.columns
}

// Slice returns a zero copy view of rows [offset, offset+length).
func (b *DataBlock) Slice(offset, length int) (*DataBlock, error) {
	if offset < 0 || length < 0 || offset+length > b.rows {
		return nil, errors.ErrBadArguments("slice [%d, %d) out of range for %d rows", offset, offset+length, b.rows)
	}
	cols := make([]arrow.Array, len(b.columns))
	for i, c := range b.columns {
		cols[i] = array.NewSlice(c, int64(offset), int64(offset+length))
	}
	return &DataBlock{schema: b.schema, columns: cols, rows: length}, nil
}

// Project keeps the named columns, retaining them for the new block.
func (b *DataBlock) Project(names ...string) (*DataBlock, error) {
	schema, err := b.schema.Project(names...)
	if err != nil {
		return nil, err
	}
	cols := make([]arrow.Array, len(names))
	for i, n := range names {
		cols[i] = b.columns[b.schema.IndexOf(n)]
		cols[i].Retain()
	}
	return &DataBlock{schema: schema, columns: cols, rows: b.rows}, nil
}

// ToRecord hands out a record holding its own references.
func (b *DataBlock) ToRecord() arrow.Record {
	return array.NewRecord(b.schema.ToArrow(), b.columns, int64(b.rows))
}

// MemorySize is the sum of the column buffer sizes.
func (b *DataBlock) MemorySize() int {
	total := 0
	for _, c := range b.columns {
		for _, buf := range c.Data().Buffers() {
			if buf != nil {
				total += buf.Len()
			}
		}
	}
	return total
}

func (b *DataBlock) Retain() {
	for _, c := range b.columns {
		c.Retain()
	}
}

func (b *DataBlock) Release() {
	releaseAll(b.columns)
}

func (b *DataBlock) Equal(other *DataBlock) bool {
	if b == nil || other == nil {
		return b == other
	}
	if !b.schema.Equal(other.schema) || b.rows != other.rows || len(b.columns) != len(other.columns) {
		return false
	}
	for i := range b.columns {
		if !array.Equal(b.columns[i], other.columns[i]) {
			return false
		}
	}
	return true
}

func (b *DataBlock) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DataBlock[%s] rows=%d\n", b.schema, b.rows)
	for i, c := range b.columns {
		fmt.Fprintf(&sb, "  %s: %s\n", b.schema.Field(i).Name, c)
	}
	return sb.String()
}

func releaseAll(cols []arrow.Array) {
	for _, c := range cols {
		if c != nil {
			c.Release()
		}
	}
}
