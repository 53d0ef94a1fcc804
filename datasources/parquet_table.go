package datasources

import (
	"context"
	"fmt"
	"io"
	"os"

	"fuse-query-go/config"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/logger"
	"fuse-query-go/sessions"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
)

// ParquetFile is what the parquet reader needs, plus Close.
type ParquetFile interface {
	parquet.ReaderAtSeeker
	io.Closer
}

type ParquetOpener func(ctx context.Context) (ParquetFile, error)

func ParquetFileOpener(path string) ParquetOpener {
	return func(context.Context) (ParquetFile, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.ErrIO(err, "cannot open %s", path)
		}
		return f, nil
	}
}

// ParquetTable exposes a parquet file with one partition per row group.
type ParquetTable struct {
	name      string
	location  string
	open      ParquetOpener
	schema    *datavalues.DataSchema
	rowGroups []Statistics
	batchSize int64
	parallel  bool
}

func NewParquetTable(ctx context.Context, name, location string, open ParquetOpener) (*ParquetTable, error) {
	f, err := open(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fileReader, err := file.NewParquetReader(f)
	if err != nil {
		return nil, errors.ErrIO(err, "cannot read parquet footer of %s", location)
	}
	defer func() {
		if err := fileReader.Close(); err != nil {
			logger.Warn("failed to close parquet reader", "location", location, "error", err)
		}
	}()
	arrowReader, err := pqarrow.NewFileReader(fileReader, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, errors.ErrIO(err, "cannot open parquet file %s", location)
	}
	as, err := arrowReader.Schema()
	if err != nil {
		return nil, errors.ErrIO(err, "cannot read parquet schema of %s", location)
	}
	schema, err := datavalues.NewDataSchemaFromArrow(as)
	if err != nil {
		return nil, err
	}

	groups := make([]Statistics, fileReader.NumRowGroups())
	for i := range groups {
		rg := fileReader.MetaData().RowGroup(i)
		groups[i] = Statistics{ReadRows: uint64(rg.NumRows()), ReadBytes: uint64(rg.TotalByteSize())}
	}
	storage := config.GetConfig().Storage
	return &ParquetTable{
		name:      name,
		location:  location,
		open:      open,
		schema:    schema,
		rowGroups: groups,
		batchSize: storage.ParquetBatchSize,
		parallel:  storage.ParquetParallel,
	}, nil
}

func (t *ParquetTable) Name() string                   { return t.name }
func (t *ParquetTable) Database() string               { return "default" }
func (t *ParquetTable) Engine() string                 { return "Parquet" }
func (t *ParquetTable) Schema() *datavalues.DataSchema { return t.schema }

func (t *ParquetTable) ReadPlan(qctx *sessions.QueryContext, scan ScanPlan) (*ReadDataSourcePlan, error) {
	schema := t.schema
	if len(scan.Columns) > 0 {
		var err error
		if schema, err = t.schema.Project(scan.Columns...); err != nil {
			return nil, err
		}
	}
	var stats Statistics
	parts := make([]Partition, len(t.rowGroups))
	for i, rg := range t.rowGroups {
		parts[i] = Partition{Name: fmt.Sprintf("%s-rg%d", t.location, i), Begin: uint64(i), End: uint64(i + 1)}
		stats.ReadRows += rg.ReadRows
		stats.ReadBytes += rg.ReadBytes
	}
	return &ReadDataSourcePlan{
		Database:    t.Database(),
		Table:       t.name,
		Source:      t,
		Schema:      schema,
		Partitions:  parts,
		Statistics:  stats,
		Description: fmt.Sprintf("(Read from %s parquet file %s, Read Rows:%d, Read Bytes:%d)", t.name, t.location, stats.ReadRows, stats.ReadBytes),
	}, nil
}

// Read opens the file and streams the partition's row group, reading only
// the planned columns.
func (t *ParquetTable) Read(qctx *sessions.QueryContext, plan *ReadDataSourcePlan, part Partition) (BlockStream, error) {
	if part.Begin >= uint64(len(t.rowGroups)) {
		return nil, errors.ErrBadArguments("row group %d out of range", part.Begin)
	}
	f, err := t.open(qctx.Context())
	if err != nil {
		return nil, err
	}
	fileReader, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, errors.ErrIO(err, "cannot read parquet footer of %s", t.location)
	}
	arrowReader, err := pqarrow.NewFileReader(
		fileReader,
		pqarrow.ArrowReadProperties{Parallel: t.parallel, BatchSize: t.batchSize},
		qctx.Allocator,
	)
	if err != nil {
		fileReader.Close()
		f.Close()
		return nil, errors.ErrIO(err, "cannot open parquet file %s", t.location)
	}
	wanted := make([]int, 0, plan.Schema.Len())
	for _, field := range plan.Schema.Fields() {
		wanted = append(wanted, t.schema.IndexOf(field.Name))
	}
	rdr, err := arrowReader.GetRecordReader(qctx.Context(), wanted, []int{int(part.Begin)})
	if err != nil {
		fileReader.Close()
		f.Close()
		return nil, errors.ErrIO(err, "cannot read row group %d of %s", part.Begin, t.location)
	}
	return &recordStream{
		reader: rdr,
		closer: multiCloser{fileReader, f},
		schema: plan.Schema,
	}, nil
}

// multiCloser closes in order. The parquet reader may already have closed
// the file, so ErrClosed is not an error here.
type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) && first == nil {
			first = err
		}
	}
	return first
}
