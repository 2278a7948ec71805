package models

import "time"

// RawTable is an untyped tabular payload as delivered by a data source:
// a BI query result, a database result set or an exported file.
// Values keep whatever type the source produced (string, float64, int64,
// time.Time, []byte, nil).
type RawTable struct {
	Columns []string
	Rows    []map[string]any
}

// HasColumn reports whether name is one of the table columns.
func (t RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RetentionRow is one cohort day of LTV input. Nil pointers are missing values.
type RetentionRow struct {
	NumDay     int      `json:"num_day"`
	ActualRR   *float64 `json:"actual_rr"`
	ActualARPU *float64 `json:"actual_arpu"`
}

// RetentionFitParams are the coefficients of actual_rr = A * (num_day-1)^B.
type RetentionFitParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// LTVResult is a RetentionRow extended with the model outputs.
type LTVResult struct {
	RetentionRow
	PredictedRR   float64  `json:"predicted_rr"`
	PredictedARPU float64  `json:"predicted_arpu"`
	PredictedLTV  float64  `json:"predicted_ltv"`
	RequiredLTV   *float64 `json:"required_ltv"` // nil when the final LTV is not positive
}

// LTVBenchmark is the result row closest to a reporting milestone day.
type LTVBenchmark struct {
	Milestone int `json:"milestone"`
	LTVResult
}

// MAURow is one calendar month of MAU input.
type MAURow struct {
	DataDate         time.Time `json:"data_date"`
	NUU              float64   `json:"nuu"`
	OUU              float64   `json:"ouu"`
	RUU              float64   `json:"ruu"`
	NUURetentionRate *float64  `json:"nuu_retention_rate,omitempty"`
	OUURetentionRate *float64  `json:"ouu_retention_rate,omitempty"`
	RUURetentionRate *float64  `json:"ruu_retention_rate,omitempty"`
}

// MAU is the raw sum of the three user-unit counts.
func (r MAURow) MAU() float64 {
	return r.NUU + r.OUU + r.RUU
}

// MAUResult is an observed or projected month.
type MAUResult struct {
	MAURow
	MAU         float64 `json:"mau"`
	IsPredicted bool    `json:"is_predicted"`
}
