package analytics

import (
	"math"
	"sort"

	"GrowthLens/internal/domain/models"
	domrepo "GrowthLens/internal/domain/repository"
	applogger "GrowthLens/pkg/logger"
)

var (
	ltvColumns          = []string{"num_day", "actual_rr", "actual_arpu"}
	mauColumns          = []string{"data_date", "nuu", "ouu", "ruu"}
	mauRetentionColumns = []string{"nuu_retention_rate", "ouu_retention_rate", "ruu_retention_rate"}
)

// DataValidator normalises raw tables before they reach a prediction model.
// It never mutates its input.
type DataValidator struct {
	l       *applogger.Logger
	metrics domrepo.Metrics
}

func NewDataValidator(l *applogger.Logger, m domrepo.Metrics) *DataValidator {
	if l == nil {
		l = applogger.NewNop()
	}
	return &DataValidator{l: l, metrics: m}
}

func missingColumns(t models.RawTable, required []string) []string {
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// CleanLTVData returns day-sorted retention rows. Rows whose num_day is not a
// positive number are dropped; rr and arpu that are missing or unparseable
// become 0.
func (v *DataValidator) CleanLTVData(t models.RawTable) ([]models.RetentionRow, error) {
	if missing := missingColumns(t, ltvColumns); len(missing) > 0 {
		v.recordError("ltv_missing_columns")
		return nil, &MissingColumnError{Dataset: "LTV", Columns: missing}
	}

	rows := make([]models.RetentionRow, 0, len(t.Rows))
	for _, raw := range t.Rows {
		day, ok := toFloat(raw["num_day"])
		if !ok {
			continue
		}
		numDay := int(math.Trunc(day))
		if numDay <= 0 {
			continue
		}
		rows = append(rows, models.RetentionRow{
			NumDay:     numDay,
			ActualRR:   floatPtr(toFloatOrZero(raw["actual_rr"])),
			ActualARPU: floatPtr(toFloatOrZero(raw["actual_arpu"])),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].NumDay < rows[j].NumDay })

	v.l.Info("Data validated", applogger.Int("rows", len(rows)), applogger.String("dataset", "ltv"))
	if v.metrics != nil {
		v.metrics.RecordRows("ltv", len(rows))
	}
	return rows, nil
}

// CleanMAUData returns date-sorted monthly rows. Counts and rates are coerced
// to numbers (invalid becomes 0) while rows with an unparseable data_date are
// dropped: they cannot be ordered or projected from.
func (v *DataValidator) CleanMAUData(t models.RawTable) ([]models.MAURow, error) {
	if missing := missingColumns(t, mauColumns); len(missing) > 0 {
		v.recordError("mau_missing_columns")
		return nil, &MissingColumnError{Dataset: "MAU", Columns: missing}
	}

	present := make(map[string]bool, len(mauRetentionColumns))
	for _, c := range mauRetentionColumns {
		present[c] = t.HasColumn(c)
	}
	rate := func(raw map[string]any, col string) *float64 {
		if !present[col] {
			return nil
		}
		return floatPtr(toFloatOrZero(raw[col]))
	}

	rows := make([]models.MAURow, 0, len(t.Rows))
	dropped := 0
	for _, raw := range t.Rows {
		date, ok := toTime(raw["data_date"])
		if !ok {
			dropped++
			continue
		}
		rows = append(rows, models.MAURow{
			DataDate:         date,
			NUU:              toFloatOrZero(raw["nuu"]),
			OUU:              toFloatOrZero(raw["ouu"]),
			RUU:              toFloatOrZero(raw["ruu"]),
			NUURetentionRate: rate(raw, "nuu_retention_rate"),
			OUURetentionRate: rate(raw, "ouu_retention_rate"),
			RUURetentionRate: rate(raw, "ruu_retention_rate"),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DataDate.Before(rows[j].DataDate) })

	if dropped > 0 {
		v.l.Warn("Dropped rows with unparseable data_date", applogger.Int("dropped", dropped))
	}
	v.l.Info("Data validated", applogger.Int("months", len(rows)), applogger.String("dataset", "mau"))
	if v.metrics != nil {
		v.metrics.RecordRows("mau", len(rows))
	}
	return rows, nil
}

func (v *DataValidator) recordError(kind string) {
	if v.metrics != nil {
		v.metrics.RecordError(kind)
	}
}
