package models

import "time"

// ReportKind selects which prediction model a report runs.
type ReportKind string

const (
	ReportLTV ReportKind = "ltv"
	ReportMAU ReportKind = "mau"
)

// Report describes one scheduled or on-demand prediction run.
type Report struct {
	Name       string
	Kind       ReportKind
	Source     string
	Query      string
	Schedule   string
	Recipients []string
	ExportDir  string

	// LTV parameters
	TargetCostPerInstall float64
	NetRevenueShare      float64

	// MAU parameters
	MonthsToPredict int
	GrowthFactor    float64
}

// ReportOutcome summarises a finished report run.
type ReportOutcome struct {
	Report     string              `json:"report"`
	Kind       ReportKind          `json:"kind"`
	InputRows  int                 `json:"input_rows"`
	OutputRows int                 `json:"output_rows"`
	Files      []string            `json:"files,omitempty"`
	Fit        *RetentionFitParams `json:"fit,omitempty"`
	Published  bool                `json:"published"`
	Mailed     bool                `json:"mailed"`
	StartedAt  time.Time           `json:"started_at"`
	Duration   time.Duration       `json:"duration"`
}
