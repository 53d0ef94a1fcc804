package datasources

import (
	"fuse-query-go/sessions"
)

// NumberTestData builds numbers_mt read plans for tests in other packages.
type NumberTestData struct {
	db    string
	table string
}

func NewNumberTestData() *NumberTestData {
	return &NumberTestData{db: "system", table: "numbers_mt"}
}

func (d *NumberTestData) NumberSchemaForTest() (*ReadDataSourcePlan, error) {
	qctx, err := sessions.TryCreateContext()
	if err != nil {
		return nil, err
	}
	table, err := NewDataSource().GetTable(d.db, d.table)
	if err != nil {
		return nil, err
	}
	return table.ReadPlan(qctx, ScanPlan{})
}

func (d *NumberTestData) NumberReadSourcePlanForTest(qctx *sessions.QueryContext, rows uint64) (*ReadDataSourcePlan, error) {
	table, err := NewDataSource().GetTable(d.db, d.table)
	if err != nil {
		return nil, err
	}
	return table.ReadPlan(qctx, ScanRows(rows))
}
