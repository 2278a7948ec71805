package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFileTableSourceCSV(t *testing.T) {
	dir := t.TempDir()
	content := "\ufeffNum_Day,actual_rr,actual_arpu\n1,1.0,10\n2,,8\n\n3,0.4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ltv.csv"), []byte(content), 0o600))

	tbl, err := NewFileTableSource(dir, nil).Fetch(context.Background(), "ltv.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"num_day", "actual_rr", "actual_arpu"}, tbl.Columns)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, "1", tbl.Rows[0]["num_day"])
	assert.Nil(t, tbl.Rows[1]["actual_rr"])
	assert.Nil(t, tbl.Rows[2]["actual_arpu"])
}

func TestFileTableSourceXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mau.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("History")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("History", "A1", &[]interface{}{"data_date", "nuu", "ouu", "ruu"}))
	require.NoError(t, f.SetSheetRow("History", "A2", &[]interface{}{"2024-01-01", 100, 50, 10}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := NewFileTableSource(dir, nil).Fetch(context.Background(), "mau.xlsx#History")
	require.NoError(t, err)
	assert.Equal(t, []string{"data_date", "nuu", "ouu", "ruu"}, tbl.Columns)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "2024-01-01", tbl.Rows[0]["data_date"])
	assert.Equal(t, "100", tbl.Rows[0]["nuu"])
}

func TestFileTableSourceErrors(t *testing.T) {
	s := NewFileTableSource(t.TempDir(), nil)
	_, err := s.Fetch(context.Background(), "data.parquet")
	assert.Error(t, err)

	_, err = s.Fetch(context.Background(), "missing.csv")
	assert.Error(t, err)

	_, err = s.Fetch(context.Background(), "  ")
	assert.Error(t, err)
}
