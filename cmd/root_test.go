package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// cobra keeps the previous run's values for flags that are not passed
	flags = queryFlags{rows: 8, column: "number"}
	configFile, envFile = "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExplainCommand(t *testing.T) {
	out, err := execute(t, "explain", "--rows", "8", "--eq", "1")
	require.NoError(t, err)
	assert.Equal(t, "Projection: number:UInt64\n"+
		"  Filter: (number = 1)\n"+
		"    ReadDataSource: scan parts [8](Read from system.numbers_mt table, Read Rows:8, Read Bytes:64)\n", out)
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "--rows", "8", "--eq", "3")
	require.NoError(t, err)
	assert.Equal(t, "number\n3\n(1 rows)\n", out)

	out, err = execute(t, "run", "--rows", "100", "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, "number\n0\n1\n(2 rows)\n", out)
}

func TestRunCommandCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,population\nparis,2100000\noslo,700000\n"), 0o644))
	out, err := execute(t, "run", "--csv", path, "--column", "name", "--eq", "oslo")
	require.NoError(t, err)
	assert.Equal(t, "name\noslo\n(1 rows)\n", out)
}

func TestCommandErrors(t *testing.T) {
	_, err := execute(t, "run", "--column", "missing")
	require.Error(t, err)

	_, err = execute(t, "explain", "--config", "settings.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".yaml or .yml")
}

func TestParseConstant(t *testing.T) {
	assert.Equal(t, "1", parseConstant("1").String())
	assert.Equal(t, "1.5", parseConstant("1.5").String())
	assert.Equal(t, "true", parseConstant("true").String())
	assert.Equal(t, "'oslo'", parseConstant("oslo").String())
}
