package service

import (
	"GrowthLens/internal/domain/models"
)

// RetentionFitter fits actual_rr = a * x^b to (x, y) pairs, x = num_day-1.
type RetentionFitter interface {
	Fit(x, y []float64) (models.RetentionFitParams, error)
}

// LTVPredictor projects retention, ARPU and cumulative LTV for one cohort.
type LTVPredictor interface {
	Predict(targetCostPerInstall, netRevenueShare float64) []models.LTVResult
	SummaryBenchmarks() []models.LTVBenchmark
	FitParams() *models.RetentionFitParams
}

// MAUPredictor projects monthly active users forward from history.
type MAUPredictor interface {
	Predict(monthsToPredict int, growthFactor float64) []models.MAUResult
}
