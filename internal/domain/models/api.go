package models

// LTVPredictRequest carries a raw cohort table and the LTV parameters.
type LTVPredictRequest struct {
	Rows                 []map[string]any `json:"rows" validate:"required,min=1"`
	TargetCostPerInstall float64          `json:"target_cost_per_install" validate:"gt=0"`
	NetRevenueShare      float64          `json:"net_revenue_share" validate:"gt=0,lte=1"`
}

type LTVPredictResponse struct {
	Rows       []LTVResult         `json:"rows"`
	Fit        *RetentionFitParams `json:"fit"`
	Benchmarks []LTVBenchmark      `json:"benchmarks"`
}

// MAUPredictRequest carries monthly history and the projection parameters.
type MAUPredictRequest struct {
	Rows            []map[string]any `json:"rows" validate:"required,min=1"`
	MonthsToPredict int              `json:"months_to_predict" validate:"gte=0,lte=120"`
	GrowthFactor    float64          `json:"growth_factor" validate:"gte=0"`
}

type MAUPredictResponse struct {
	Rows []MAUResult `json:"rows"`
}

// ReportInfo describes a configured report for listing.
type ReportInfo struct {
	Name     string     `json:"name"`
	Kind     ReportKind `json:"kind"`
	Source   string     `json:"source"`
	Schedule string     `json:"schedule,omitempty"`
}
