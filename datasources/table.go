package datasources

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"fuse-query-go/datablocks"
	"fuse-query-go/datavalues"
	"fuse-query-go/errors"
	"fuse-query-go/sessions"
)

var (
	_ = (Table)(&NumbersTable{})
	_ = (Table)(&MemoryTable{})
	_ = (Table)(&CSVTable{})
	_ = (Table)(&ParquetTable{})
)

// Partition is one unit of scan work. Range tables use [Begin, End) as row
// offsets; file tables use Begin as the row group or file index.
type Partition struct {
	Name       string
	Begin, End uint64
}

type Statistics struct {
	ReadRows  uint64
	ReadBytes uint64
}

// ScanPlan carries what the planner pushes down into a table.
type ScanPlan struct {
	// Rows is the table function argument, e.g. numbers(8). Nil means the
	// configured default; numbers(0) reads nothing.
	Rows    *uint64
	Columns []string
}

// ScanRows is a ScanPlan for a table function called with n rows.
func ScanRows(n uint64) ScanPlan {
	return ScanPlan{Rows: &n}
}

// ReadDataSourcePlan describes what a scan will read.
type ReadDataSourcePlan struct {
	Database    string
	Table       string
	Source      Table
	Schema      *datavalues.DataSchema
	Partitions  []Partition
	Statistics  Statistics
	Description string
}

// BlockStream yields blocks until io.EOF.
type BlockStream interface {
	Next(ctx context.Context) (*datablocks.DataBlock, error)
	Close() error
}

type Table interface {
	Name() string
	Database() string
	Engine() string
	Schema() *datavalues.DataSchema
	ReadPlan(qctx *sessions.QueryContext, scan ScanPlan) (*ReadDataSourcePlan, error)
	Read(qctx *sessions.QueryContext, plan *ReadDataSourcePlan, part Partition) (BlockStream, error)
}

// rangePartitions splits [0, rows) into at most parts chunks of
// ceil(rows/parts) rows.
func rangePartitions(prefix string, rows uint64, parts int) []Partition {
	if rows == 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	chunk := (rows + uint64(parts) - 1) / uint64(parts)
	out := make([]Partition, 0, parts)
	for begin := uint64(0); begin < rows; begin += chunk {
		end := begin + chunk
		if end > rows {
			end = rows
		}
		out = append(out, Partition{Name: fmt.Sprintf("%s-%d-%d", prefix, begin, end), Begin: begin, End: end})
	}
	return out
}

// DataSource is the catalog: database name -> table name -> table.
type DataSource struct {
	mu        sync.RWMutex
	databases map[string]map[string]Table
}

// NewDataSource returns a catalog holding the system tables.
func NewDataSource() *DataSource {
	ds := &DataSource{databases: map[string]map[string]Table{}}
	ds.AddTable(NewNumbersTable("numbers"))
	ds.AddTable(NewNumbersTable("numbers_mt"))
	return ds
}

func (ds *DataSource) AddTable(t Table) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	db, ok := ds.databases[t.Database()]
	if !ok {
		db = map[string]Table{}
		ds.databases[t.Database()] = db
	}
	db[t.Name()] = t
}

func (ds *DataSource) GetTable(database, name string) (Table, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	db, ok := ds.databases[database]
	if !ok {
		return nil, errors.ErrBadArguments("Unknown database: '%s'", database)
	}
	t, ok := db[name]
	if !ok {
		return nil, errors.ErrBadArguments("Unknown table: '%s.%s'", database, name)
	}
	return t, nil
}

// GetTableByPath accepts "db.table" or a bare table name in "default".
func (ds *DataSource) GetTableByPath(path string) (Table, error) {
	if db, name, ok := strings.Cut(path, "."); ok {
		return ds.GetTable(db, name)
	}
	return ds.GetTable("default", path)
}

func (ds *DataSource) Tables() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	var out []string
	for db, tables := range ds.databases {
		for name := range tables {
			out = append(out, db+"."+name)
		}
	}
	sort.Strings(out)
	return out
}
