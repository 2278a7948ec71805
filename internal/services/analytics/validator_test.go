package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthLens/internal/domain/models"
)

func TestCleanLTVDataMissingColumns(t *testing.T) {
	v := NewDataValidator(nil, nil)
	_, err := v.CleanLTVData(models.RawTable{Columns: []string{"num_day", "actual_rr"}})
	require.Error(t, err)

	var mce *MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "LTV", mce.Dataset)
	assert.Equal(t, []string{"actual_arpu"}, mce.Columns)
}

func TestCleanLTVDataCoercesAndSorts(t *testing.T) {
	m := newRecordingMetrics()
	v := NewDataValidator(nil, m)
	raw := models.RawTable{
		Columns: []string{"num_day", "actual_rr", "actual_arpu"},
		Rows: []map[string]any{
			{"num_day": "3", "actual_rr": "0.4", "actual_arpu": 6},
			{"num_day": 1.0, "actual_rr": 1.0, "actual_arpu": "10"},
			{"num_day": 0, "actual_rr": 1.0, "actual_arpu": 1},
			{"num_day": -2, "actual_rr": 1.0, "actual_arpu": 1},
			{"num_day": "n/a", "actual_rr": 1.0, "actual_arpu": 1},
			{"num_day": int64(2), "actual_rr": "bad", "actual_arpu": nil},
			{"num_day": 4.9, "actual_rr": []byte("0.3")},
		},
	}

	rows, err := v.CleanLTVData(raw)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	days := []int{rows[0].NumDay, rows[1].NumDay, rows[2].NumDay, rows[3].NumDay}
	assert.Equal(t, []int{1, 2, 3, 4}, days)

	assert.Equal(t, 1.0, *rows[0].ActualRR)
	assert.Equal(t, 10.0, *rows[0].ActualARPU)
	assert.Equal(t, 0.0, *rows[1].ActualRR)
	assert.Equal(t, 0.0, *rows[1].ActualARPU)
	assert.Equal(t, 0.3, *rows[3].ActualRR)
	assert.Equal(t, 0.0, *rows[3].ActualARPU)
	assert.Equal(t, 4, m.rows["ltv"])
}

func TestCleanLTVDataDropsFractionalDayBelowOne(t *testing.T) {
	v := NewDataValidator(nil, nil)
	rows, err := v.CleanLTVData(models.RawTable{
		Columns: []string{"num_day", "actual_rr", "actual_arpu"},
		Rows: []map[string]any{
			{"num_day": 0.5, "actual_rr": 1.0, "actual_arpu": 1.0},
			{"num_day": "1.5", "actual_rr": 1.0, "actual_arpu": 1.0},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].NumDay)
}

func TestCleanLTVDataDoesNotMutateInput(t *testing.T) {
	v := NewDataValidator(nil, nil)
	rows := []map[string]any{
		{"num_day": 2, "actual_rr": "x", "actual_arpu": 1},
		{"num_day": 1, "actual_rr": 1, "actual_arpu": 1},
	}
	_, err := v.CleanLTVData(models.RawTable{Columns: ltvColumns, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, 2, rows[0]["num_day"])
	assert.Equal(t, "x", rows[0]["actual_rr"])
}

func TestCleanMAUDataMissingColumns(t *testing.T) {
	m := newRecordingMetrics()
	v := NewDataValidator(nil, m)
	_, err := v.CleanMAUData(models.RawTable{Columns: []string{"data_date", "nuu"}})

	var mce *MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, []string{"ouu", "ruu"}, mce.Columns)
	assert.Contains(t, err.Error(), "ouu, ruu")
	assert.Equal(t, 1, m.errors["mau_missing_columns"])
}

func TestCleanMAUDataDropsUnparseableDate(t *testing.T) {
	v := NewDataValidator(nil, nil)
	raw := models.RawTable{
		Columns: []string{"data_date", "nuu", "ouu", "ruu", "ouu_retention_rate"},
		Rows: []map[string]any{
			{"data_date": "2024-02-01", "nuu": "100", "ouu": 50, "ruu": "x", "ouu_retention_rate": "0.5"},
			{"data_date": "garbage", "nuu": 1, "ouu": 1, "ruu": 1, "ouu_retention_rate": 0.5},
			{"data_date": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "nuu": 90, "ouu": nil, "ruu": 5, "ouu_retention_rate": nil},
		},
	}

	rows, err := v.CleanMAUData(raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rows[0].DataDate)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), rows[1].DataDate)
	assert.Equal(t, 0.0, rows[0].OUU)
	assert.Equal(t, 0.0, *rows[0].OUURetentionRate)
	assert.Equal(t, 100.0, rows[1].NUU)
	assert.Equal(t, 0.0, rows[1].RUU)
	assert.Equal(t, 0.5, *rows[1].OUURetentionRate)
	assert.Nil(t, rows[1].NUURetentionRate)
	assert.Nil(t, rows[1].RUURetentionRate)
}
