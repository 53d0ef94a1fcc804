package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"fuse-query-go/config"
	"fuse-query-go/datablocks"
	"fuse-query-go/datasources"
	"fuse-query-go/datavalues"
	"fuse-query-go/interpreters"
	"fuse-query-go/logger"
	"fuse-query-go/planners"
	"fuse-query-go/sessions"

	"github.com/spf13/cobra"
)

type queryFlags struct {
	rows      uint64
	eq        string
	column    string
	limit     uint64
	csv       string
	parquet   string
	objectKey string
}

var (
	configFile string
	envFile    string
	flags      queryFlags
)

var rootCmd = &cobra.Command{
	Use:           "fuse-query",
	Short:         "Columnar scalar expression evaluator",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Reset()
		if configFile != "" {
			if err := config.Decode(configFile); err != nil {
				return err
			}
		}
		if err := config.LoadSecrets(envFile); err != nil {
			return err
		}
		cfg := config.GetConfig()
		logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		return nil
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Print the plan of SELECT <column> FROM <table> WHERE <column> = <eq>",
	RunE: func(cmd *cobra.Command, args []string) error {
		qctx, plan, err := buildPlan(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), planners.Explain(plan))
		qctx.Logger.Debug("explained plan", "root", plan.Name())
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run SELECT <column> FROM <table> WHERE <column> = <eq> and print the rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		qctx, plan, err := buildPlan(cmd)
		if err != nil {
			return err
		}
		blocks, err := interpreters.NewSelectInterpreter(qctx, plan).Execute(qctx.Context())
		if err != nil {
			return err
		}
		defer func() {
			for _, b := range blocks {
				b.Release()
			}
		}()
		return printBlocks(cmd.OutOrStdout(), plan.Schema().Fields(), blocks)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "yaml configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file holding object store credentials")
	for _, c := range []*cobra.Command{explainCmd, runCmd} {
		c.Flags().Uint64Var(&flags.rows, "rows", 8, "rows of system.numbers_mt to read")
		c.Flags().StringVar(&flags.eq, "eq", "", "keep rows where the column equals this value; empty keeps all rows")
		c.Flags().StringVar(&flags.column, "column", "number", "column to select and filter on")
		c.Flags().Uint64Var(&flags.limit, "limit", 0, "stop after this many rows; 0 means no limit")
		c.Flags().StringVar(&flags.csv, "csv", "", "read a local csv file instead of system.numbers_mt")
		c.Flags().StringVar(&flags.parquet, "parquet", "", "read a local parquet file instead of system.numbers_mt")
		c.Flags().StringVar(&flags.objectKey, "s3", "", "read a csv or parquet object from the configured bucket")
		c.MarkFlagsMutuallyExclusive("csv", "parquet", "s3")
		rootCmd.AddCommand(c)
	}
}

// Execute runs the root command. An interrupt cancels the running query.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func buildPlan(cmd *cobra.Command) (*sessions.QueryContext, planners.PlanNode, error) {
	qctx, err := sessions.TryCreateContextWithParent(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	table, err := openTable(qctx)
	if err != nil {
		return nil, nil, err
	}
	source, err := table.ReadPlan(qctx, datasources.ScanRows(flags.rows))
	if err != nil {
		return nil, nil, err
	}
	builder := planners.From(qctx, planners.ReadSource(source))
	if flags.eq != "" {
		builder = builder.Filter(planners.Field(flags.column).Eq(parseConstant(flags.eq)))
	}
	builder = builder.Project(planners.Field(flags.column))
	if flags.limit > 0 {
		builder = builder.Limit(flags.limit)
	}
	plan, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}
	return qctx, plan, nil
}

func openTable(qctx *sessions.QueryContext) (datasources.Table, error) {
	ctx := qctx.Context()
	switch {
	case flags.csv != "":
		return datasources.NewCSVTable(ctx, tableName(flags.csv), flags.csv, datasources.FileOpener(flags.csv))
	case flags.parquet != "":
		return datasources.NewParquetTable(ctx, tableName(flags.parquet), flags.parquet, datasources.ParquetFileOpener(flags.parquet))
	case flags.objectKey != "":
		store, err := datasources.NewObjectStore()
		if err != nil {
			return nil, err
		}
		location := store.Bucket() + "/" + flags.objectKey
		if strings.EqualFold(filepath.Ext(flags.objectKey), ".parquet") {
			return datasources.NewParquetTable(ctx, tableName(flags.objectKey), location, store.ParquetOpener(flags.objectKey))
		}
		return datasources.NewCSVTable(ctx, tableName(flags.objectKey), location, store.Opener(flags.objectKey))
	default:
		return datasources.NewDataSource().GetTable("system", "numbers_mt")
	}
}

func tableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseConstant reads integers, floats and booleans, anything else is a
// string.
func parseConstant(s string) planners.Expression {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return planners.Constant(v)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return planners.Constant(v)
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return planners.Constant(v)
	}
	return planners.Constant(s)
}

func printBlocks(w io.Writer, fields []datavalues.DataField, blocks []*datablocks.DataBlock) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))
	rows := 0
	for _, b := range blocks {
		for r := 0; r < b.NumRows(); r++ {
			cells := make([]string, b.NumColumns())
			for c := range cells {
				cells[c] = b.Column(c).ValueStr(r)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		rows += b.NumRows()
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d rows)\n", rows)
	return err
}
