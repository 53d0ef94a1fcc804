package datasources

import (
	"context"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fuse-query-go/config"
	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/sessions"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/csv"
)

// Opener returns a fresh stream over the table's bytes. Tables open once for
// schema inference and once per partition read.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// FileOpener opens a local file.
func FileOpener(path string) Opener {
	return func(context.Context) (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.ErrIO(err, "cannot open %s", path)
		}
		return f, nil
	}
}

// CSVTable reads a headered csv file. Column types are inferred from the
// first data row; cells that are empty or NULL read as nulls.
type CSVTable struct {
	name      string
	location  string
	open      Opener
	schema    *datavalues.DataSchema
	batchSize int
}

func NewCSVTable(ctx context.Context, name, location string, open Opener) (*CSVTable, error) {
	rc, err := open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	schema, err := inferCSVSchema(rc)
	if err != nil {
		return nil, err
	}
	return &CSVTable{
		name:      name,
		location:  location,
		open:      open,
		schema:    schema,
		batchSize: config.GetConfig().Storage.CSVBatchSize,
	}, nil
}

func (t *CSVTable) Name() string                   { return t.name }
func (t *CSVTable) Database() string               { return "default" }
func (t *CSVTable) Engine() string                 { return "CSV" }
func (t *CSVTable) Schema() *datavalues.DataSchema { return t.schema }

// ReadPlan returns a single partition; csv cannot be split without a scan.
func (t *CSVTable) ReadPlan(qctx *sessions.QueryContext, scan ScanPlan) (*ReadDataSourcePlan, error) {
	schema := t.schema
	if len(scan.Columns) > 0 {
		var err error
		if schema, err = t.schema.Project(scan.Columns...); err != nil {
			return nil, err
		}
	}
	return &ReadDataSourcePlan{
		Database:    t.Database(),
		Table:       t.name,
		Source:      t,
		Schema:      schema,
		Partitions:  []Partition{{Name: t.location, Begin: 0, End: 1}},
		Description: fmt.Sprintf("(Read from %s csv file %s)", t.name, t.location),
	}, nil
}

func (t *CSVTable) Read(qctx *sessions.QueryContext, plan *ReadDataSourcePlan, part Partition) (BlockStream, error) {
	rc, err := t.open(qctx.Context())
	if err != nil {
		return nil, err
	}
	var include []int
	for _, f := range plan.Schema.Fields() {
		include = append(include, t.schema.IndexOf(f.Name))
	}
	r := csv.NewReader(rc, t.schema.ToArrow(),
		csv.WithHeader(true),
		csv.WithChunk(t.batchSize),
		csv.WithNullReader(true, "", "NULL"),
		csv.WithAllocator(qctx.Allocator),
	)
	return &recordStream{
		reader:  r,
		closer:  rc,
		schema:  plan.Schema,
		include: include,
	}, nil
}

// first call to the csv reader
func inferCSVSchema(r io.Reader) (*datavalues.DataSchema, error) {
	cr := stdcsv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.ErrIO(err, "cannot read csv header")
	}
	firstDataRow, err := cr.Read()
	if err != nil && err != io.EOF {
		return nil, errors.ErrIO(err, "cannot read first csv row")
	}
	fields := make([]datavalues.DataField, 0, len(header))
	for i, colName := range header {
		sample := ""
		if i < len(firstDataRow) {
			sample = firstDataRow[i]
		}
		fields = append(fields, datavalues.NewDataField(strings.TrimSpace(colName), parseDataType(sample), true))
	}
	return datavalues.NewDataSchema(fields...), nil
}

func parseDataType(sample string) datavalues.DataType {
	sample = strings.TrimSpace(sample)

	// Nulls or empty fields → treat as nullable string in inference
	if sample == "" || strings.EqualFold(sample, "NULL") {
		return datavalues.Utf8
	}
	if sample == "true" || sample == "false" {
		return datavalues.Boolean
	}
	if _, err := strconv.ParseInt(sample, 10, 64); err == nil {
		return datavalues.Int64
	}
	if _, err := strconv.ParseFloat(sample, 64); err == nil {
		return datavalues.Float64
	}
	return datavalues.Utf8
}

// recordReader is the part of arrow's csv and parquet record readers we use.
type recordReader interface {
	Next() bool
	Record() arrow.Record
	Err() error
	Release()
}

// recordStream turns a record reader into blocks, keeping the include columns.
type recordStream struct {
	reader  recordReader
	closer  io.Closer
	schema  *datavalues.DataSchema
	include []int // nil keeps every column
	done    bool
}

func (s *recordStream) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled(err)
	}
	if !s.reader.Next() {
		s.done = true
		if err := s.reader.Err(); err != nil && err != io.EOF {
			return nil, errors.ErrIO(err, "cannot read records")
		}
		return nil, io.EOF
	}
	rec := s.reader.Record()
	cols := make([]arrow.Array, 0, s.schema.Len())
	if s.include == nil {
		for i := 0; i < int(rec.NumCols()); i++ {
			cols = append(cols, rec.Column(i))
		}
	} else {
		for _, idx := range s.include {
			cols = append(cols, rec.Column(idx))
		}
	}
	for _, c := range cols {
		c.Retain()
	}
	return datablocks.NewDataBlock(s.schema, cols)
}

func (s *recordStream) Close() error {
	s.done = true
	if s.reader != nil {
		s.reader.Release()
		s.reader = nil
	}
	if s.closer != nil {
		err := s.closer.Close()
		s.closer = nil
		return err
	}
	return nil
}
