package analytics

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"GrowthLens/internal/domain/models"
	domrepo "GrowthLens/internal/domain/repository"
	domsvc "GrowthLens/internal/domain/service"
	applogger "GrowthLens/pkg/logger"
	"GrowthLens/pkg/util"
)

const (
	// DefaultBaselineMonths is the trailing window the projection averages over.
	DefaultBaselineMonths = 6

	// returningShare is the fraction of average new users that come back as
	// returning users in a projected month.
	returningShare = 0.1
)

// MAUService projects monthly active users from a historical monthly series.
// It owns a private copy of its rows; instances are not safe for concurrent use.
type MAUService struct {
	rows           []models.MAURow
	baselineMonths int
	l              *applogger.Logger
	metrics        domrepo.Metrics

	results []models.MAUResult
}

var _ domsvc.MAUPredictor = (*MAUService)(nil)

type MAUOption func(*MAUService)

func WithBaselineMonths(n int) MAUOption {
	return func(s *MAUService) {
		if n > 0 {
			s.baselineMonths = n
		}
	}
}

func WithMAULogger(l *applogger.Logger) MAUOption {
	return func(s *MAUService) {
		if l != nil {
			s.l = l
		}
	}
}

func WithMAUMetrics(m domrepo.Metrics) MAUOption {
	return func(s *MAUService) { s.metrics = m }
}

func NewMAUService(rows []models.MAURow, opts ...MAUOption) *MAUService {
	s := &MAUService{
		rows:           cloneMAURows(rows),
		baselineMonths: DefaultBaselineMonths,
		l:              applogger.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	sort.SliceStable(s.rows, func(i, j int) bool { return s.rows[i].DataDate.Before(s.rows[j].DataDate) })
	return s
}

func cloneMAURows(rows []models.MAURow) []models.MAURow {
	out := make([]models.MAURow, len(rows))
	for i, r := range rows {
		out[i] = r
		out[i].NUURetentionRate = cloneFloat(r.NUURetentionRate)
		out[i].OUURetentionRate = cloneFloat(r.OUURetentionRate)
		out[i].RUURetentionRate = cloneFloat(r.RUURetentionRate)
	}
	return out
}

// Predict returns the full history followed by monthsToPredict projected
// months. An empty history yields nil.
func (s *MAUService) Predict(monthsToPredict int, growthFactor float64) []models.MAUResult {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordLatency("mau_predict", time.Since(start).Seconds())
		}
	}()

	window := s.rows
	if len(window) > s.baselineMonths {
		window = window[len(window)-s.baselineMonths:]
	}
	if len(window) == 0 {
		s.l.Error("No historical data for MAU prediction")
		if s.metrics != nil {
			s.metrics.RecordError("mau_empty_history")
		}
		s.results = nil
		return nil
	}

	nuu := make([]float64, len(window))
	for i, r := range window {
		nuu[i] = r.NUU
	}
	avgNUU := stat.Mean(nuu, nil) * growthFactor
	avgNUURR := s.meanRate(window, "nuu_retention_rate", func(r models.MAURow) *float64 { return r.NUURetentionRate })
	avgOUURR := s.meanRate(window, "ouu_retention_rate", func(r models.MAURow) *float64 { return r.OUURetentionRate })
	avgRUURR := s.meanRate(window, "ruu_retention_rate", func(r models.MAURow) *float64 { return r.RUURetentionRate })
	s.l.Debug("MAU baseline",
		applogger.Int("window", len(window)),
		applogger.Float64("avg_nuu", avgNUU),
		applogger.Float64("avg_nuu_rr", avgNUURR),
		applogger.Float64("avg_ouu_rr", avgOUURR),
		applogger.Float64("avg_ruu_rr", avgRUURR),
	)

	out := make([]models.MAUResult, 0, len(s.rows)+max(monthsToPredict, 0))
	for _, r := range s.rows {
		out = append(out, models.MAUResult{MAURow: r, MAU: r.MAU()})
	}

	last := window[len(window)-1]
	prevMAU := last.MAU()
	date := last.DataDate
	for i := 0; i < monthsToPredict; i++ {
		date = util.AddMonths(date, 1)
		row := models.MAURow{
			DataDate: date,
			NUU:      avgNUU,
			OUU:      prevMAU * avgOUURR,
			RUU:      avgNUU * returningShare,
		}
		mau := row.MAU()
		out = append(out, models.MAUResult{MAURow: row, MAU: mau, IsPredicted: true})
		prevMAU = mau
	}

	if s.metrics != nil {
		s.metrics.RecordPrediction("mau")
	}
	s.results = out
	return out
}

// meanRate averages one retention-rate column over the window. A column that
// is absent from every row averages to 0.
func (s *MAUService) meanRate(window []models.MAURow, column string, get func(models.MAURow) *float64) float64 {
	vals := make([]float64, 0, len(window))
	for _, r := range window {
		if v := get(r); v != nil {
			vals = append(vals, *v)
		}
	}
	if len(vals) == 0 {
		s.l.Warn("Retention rate column absent, assuming 0", applogger.String("column", column))
		return 0
	}
	return stat.Mean(vals, nil)
}

// Results returns the table stored by the last Predict.
func (s *MAUService) Results() []models.MAUResult {
	return s.results
}
