package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"GrowthLens/internal/domain/models"
	domrepo "GrowthLens/internal/domain/repository"
	domsvc "GrowthLens/internal/domain/service"
	applogger "GrowthLens/pkg/logger"
)

// arpuWindow is the number of trailing observed days averaged for an ARPU estimate.
const arpuWindow = 7

// BenchmarkDays are the lifetime milestones reported by SummaryBenchmarks.
var BenchmarkDays = []int{1, 3, 7, 14, 30, 60, 90}

// LTVService predicts retention, ARPU and cumulative LTV for one cohort table.
// It owns a private copy of its rows; instances are not safe for concurrent use.
type LTVService struct {
	rows    []models.RetentionRow
	fitter  domsvc.RetentionFitter
	l       *applogger.Logger
	metrics domrepo.Metrics

	params  *models.RetentionFitParams
	results []models.LTVResult
	done    bool
}

var _ domsvc.LTVPredictor = (*LTVService)(nil)

type LTVOption func(*LTVService)

func WithFitter(f domsvc.RetentionFitter) LTVOption {
	return func(s *LTVService) {
		if f != nil {
			s.fitter = f
		}
	}
}

func WithLogger(l *applogger.Logger) LTVOption {
	return func(s *LTVService) {
		if l != nil {
			s.l = l
		}
	}
}

func WithMetrics(m domrepo.Metrics) LTVOption {
	return func(s *LTVService) { s.metrics = m }
}

// NewLTVService copies rows (as produced by CleanLTVData) into a new service.
func NewLTVService(rows []models.RetentionRow, opts ...LTVOption) *LTVService {
	s := &LTVService{
		rows:   cloneRetentionRows(rows),
		fitter: NewPowerLawFitter(DefaultMaxEvaluations),
		l:      applogger.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	sort.SliceStable(s.rows, func(i, j int) bool { return s.rows[i].NumDay < s.rows[j].NumDay })
	return s
}

func cloneRetentionRows(rows []models.RetentionRow) []models.RetentionRow {
	out := make([]models.RetentionRow, len(rows))
	for i, r := range rows {
		out[i] = models.RetentionRow{
			NumDay:     r.NumDay,
			ActualRR:   cloneFloat(r.ActualRR),
			ActualARPU: cloneFloat(r.ActualARPU),
		}
	}
	return out
}

// fitRetention fits rr ≈ a * (num_day-1)^b over rows with num_day > 1 and an
// observed rr.
func (s *LTVService) fitRetention() (params *models.RetentionFitParams, err error) {
	var x, y []float64
	for _, r := range s.rows {
		if r.NumDay > 1 && r.ActualRR != nil {
			x = append(x, float64(r.NumDay-1))
			y = append(y, *r.ActualRR)
		}
	}
	if len(x) < 2 {
		return nil, errInsufficientFitData
	}

	defer func() {
		if rec := recover(); rec != nil {
			params, err = nil, fmt.Errorf("%w: %v", ErrFitFailed, rec)
		}
	}()
	p, err := s.fitter.Fit(x, y)
	if err != nil {
		if !errors.Is(err, ErrFitFailed) {
			err = fmt.Errorf("%w: %w", ErrFitFailed, err)
		}
		return nil, err
	}
	if !finite(p.A) || !finite(p.B) {
		return nil, fmt.Errorf("%w: non-finite coefficients", ErrFitFailed)
	}
	return &p, nil
}

// Predict computes the full prediction table. The result is also retained
// for SummaryBenchmarks.
func (s *LTVService) Predict(targetCostPerInstall, netRevenueShare float64) []models.LTVResult {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordLatency("ltv_predict", time.Since(start).Seconds())
			s.metrics.RecordPrediction("ltv")
		}
	}()

	params, err := s.fitRetention()
	switch {
	case err == nil:
		s.l.Debug("Retention curve fitted", applogger.Float64("a", params.A), applogger.Float64("b", params.B))
	case errors.Is(err, errInsufficientFitData):
		s.l.Warn("Not enough points to fit retention, using observed values", applogger.Int("rows", len(s.rows)))
		s.recordFallback("insufficient_data")
	default:
		s.l.Error("Failed to fit retention curve", applogger.Error(err))
		s.recordFallback("fit_failed")
	}
	s.params = params

	results := make([]models.LTVResult, len(s.rows))
	for i, r := range s.rows {
		results[i].RetentionRow = models.RetentionRow{
			NumDay:     r.NumDay,
			ActualRR:   cloneFloat(r.ActualRR),
			ActualARPU: cloneFloat(r.ActualARPU),
		}
		results[i].PredictedRR = predictedRR(r, params)
	}

	var fold arpuFold
	cum := 0.0
	for i, r := range s.rows {
		var arpu float64
		fold, arpu = fold.step(r.ActualARPU)
		results[i].PredictedARPU = arpu
		cum += arpu * results[i].PredictedRR
		results[i].PredictedLTV = cum
	}

	if n := len(results); n > 0 {
		last := results[n-1].PredictedLTV
		if last > 0 {
			target := targetCostPerInstall / netRevenueShare
			for i := range results {
				growth := last / results[i].PredictedLTV
				req := target / growth
				results[i].RequiredLTV = &req
			}
		} else {
			s.l.Warn("Final predicted LTV is not positive, required LTV undefined", applogger.Float64("ltv", last))
		}
	}

	s.results = results
	s.done = true
	return results
}

func predictedRR(r models.RetentionRow, p *models.RetentionFitParams) float64 {
	if p == nil {
		return valueOr(r.ActualRR, 0)
	}
	if r.NumDay == 1 {
		return 1.0
	}
	return PowerLaw(float64(r.NumDay-1), p.A, p.B)
}

func (s *LTVService) recordFallback(reason string) {
	if s.metrics != nil {
		s.metrics.RecordFitFallback(reason)
	}
}

// arpuFold carries the ARPU recurrence across rows in day order.
type arpuFold struct {
	started      bool
	window       []*float64
	cumActual    float64
	cumPredicted float64
	cumError     float64
}

// step consumes the next observed ARPU (nil when missing) and returns the
// updated accumulator with the predicted ARPU for that row.
func (f arpuFold) step(actual *float64) (arpuFold, float64) {
	next := f
	if !f.started {
		pred := valueOr(actual, 0)
		next.started = true
		next.cumActual = pred
		next.cumPredicted = pred
		next.cumError = 0
		next.window = []*float64{actual}
		return next, pred
	}

	avg := meanObserved(f.window)
	pred := avg
	if actual != nil {
		pred = avg * (1 - f.cumError)
	}

	next.cumActual = f.cumActual + valueOr(actual, 0)
	next.cumPredicted = f.cumPredicted + pred
	if next.cumActual > 0 {
		next.cumError = next.cumPredicted/next.cumActual - 1
	} else {
		next.cumError = 0
	}

	w := append(make([]*float64, 0, arpuWindow), f.window...)
	w = append(w, actual)
	if len(w) > arpuWindow {
		w = w[len(w)-arpuWindow:]
	}
	next.window = w
	return next, pred
}

func meanObserved(window []*float64) float64 {
	vals := make([]float64, 0, len(window))
	for _, v := range window {
		if v != nil {
			vals = append(vals, *v)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

// SummaryBenchmarks picks, for each milestone day, the predicted row whose
// num_day is closest (earliest on ties). It is empty before Predict or when
// the prediction table is empty.
func (s *LTVService) SummaryBenchmarks() []models.LTVBenchmark {
	if !s.done || len(s.results) == 0 {
		return nil
	}
	out := make([]models.LTVBenchmark, 0, len(BenchmarkDays))
	for _, day := range BenchmarkDays {
		best := 0
		bestDiff := math.MaxInt
		for i, r := range s.results {
			diff := r.NumDay - day
			if diff < 0 {
				diff = -diff
			}
			if diff < bestDiff {
				best, bestDiff = i, diff
			}
		}
		out = append(out, models.LTVBenchmark{Milestone: day, LTVResult: s.results[best]})
	}
	return out
}

// FitParams returns the coefficients of the last Predict, nil when it fell
// back to observed retention.
func (s *LTVService) FitParams() *models.RetentionFitParams {
	if s.params == nil {
		return nil
	}
	p := *s.params
	return &p
}
