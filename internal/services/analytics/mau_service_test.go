package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthLens/internal/domain/models"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func sixMonths() []models.MAURow {
	var rows []models.MAURow
	for i := 0; i < 6; i++ {
		rows = append(rows, models.MAURow{
			DataDate:         month(2024, time.Month(i+1)),
			NUU:              100,
			OUU:              float64(200 + 10*i),
			RUU:              20,
			OUURetentionRate: floatPtr(0.5),
		})
	}
	return rows
}

func TestMAUPredictOneMonth(t *testing.T) {
	m := newRecordingMetrics()
	svc := NewMAUService(sixMonths(), WithMAUMetrics(m))

	res := svc.Predict(1, 1.0)
	require.Len(t, res, 7)

	lastMAU := 100.0 + 250 + 20
	p := res[6]
	assert.True(t, p.IsPredicted)
	assert.Equal(t, month(2024, time.July), p.DataDate)
	assert.Equal(t, 100.0, p.NUU)
	assert.Equal(t, lastMAU*0.5, p.OUU)
	assert.Equal(t, 10.0, p.RUU)
	assert.Equal(t, 100+lastMAU*0.5+10, p.MAU)

	for _, h := range res[:6] {
		assert.False(t, h.IsPredicted)
		assert.Equal(t, h.NUU+h.OUU+h.RUU, h.MAU)
	}
	assert.Equal(t, 1, m.predictions["mau"])
	assert.Equal(t, res, svc.Results())
}

func TestMAUPredictChainsPreviousMonth(t *testing.T) {
	res := NewMAUService(sixMonths()).Predict(3, 1.5)
	require.Len(t, res, 9)

	prev := res[5].MAU
	for _, p := range res[6:] {
		assert.Equal(t, 150.0, p.NUU)
		assert.Equal(t, prev*0.5, p.OUU)
		assert.Equal(t, 15.0, p.RUU)
		prev = p.MAU
	}
	assert.Equal(t, month(2024, time.September), res[8].DataDate)
}

func TestMAUPredictWindowIsTrailingSix(t *testing.T) {
	rows := sixMonths()
	older := []models.MAURow{
		{DataDate: month(2023, time.November), NUU: 10000, OUURetentionRate: floatPtr(0.9)},
		{DataDate: month(2023, time.December), NUU: 10000, OUURetentionRate: floatPtr(0.9)},
	}
	// unsorted on purpose
	rows = append(rows, older...)
	res := NewMAUService(rows).Predict(1, 1)

	require.Len(t, res, 9)
	assert.Equal(t, month(2023, time.November), res[0].DataDate)
	assert.Equal(t, 100.0, res[8].NUU)
	assert.Equal(t, res[7].MAU*0.5, res[8].OUU)
}

func TestMAUPredictShortHistoryUsesAll(t *testing.T) {
	rows := sixMonths()[:2]
	rows[1].NUU = 300
	res := NewMAUService(rows).Predict(1, 1)
	require.Len(t, res, 3)
	assert.Equal(t, 200.0, res[2].NUU)
}

func TestMAUPredictAbsentRetentionAveragesZero(t *testing.T) {
	rows := sixMonths()
	for i := range rows {
		rows[i].OUURetentionRate = nil
	}
	res := NewMAUService(rows).Predict(1, 1)
	assert.Equal(t, 0.0, res[6].OUU)
}

func TestMAUPredictEmpty(t *testing.T) {
	m := newRecordingMetrics()
	svc := NewMAUService(nil, WithMAUMetrics(m))
	assert.Nil(t, svc.Predict(12, 1))
	assert.Nil(t, svc.Results())
	assert.Equal(t, 1, m.errors["mau_empty_history"])
}

func TestMAUPredictMonthEndClamping(t *testing.T) {
	rows := []models.MAURow{{DataDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), NUU: 1}}
	res := NewMAUService(rows).Predict(2, 1)
	require.Len(t, res, 3)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), res[1].DataDate)
	assert.Equal(t, time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), res[2].DataDate)
}

func TestMAUBaselineMonthsOption(t *testing.T) {
	res := NewMAUService(sixMonths(), WithBaselineMonths(1)).Predict(1, 1)
	require.Len(t, res, 7)
	assert.Equal(t, 100.0, res[6].NUU)
	assert.Equal(t, res[5].MAU*0.5, res[6].OUU)
}
