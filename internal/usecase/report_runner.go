package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"GrowthLens/internal/domain/models"
	drepo "GrowthLens/internal/domain/repository"
	"GrowthLens/internal/services/analytics"
	applogger "GrowthLens/pkg/logger"
)

var (
	ErrUnknownReport = errors.New("unknown report")
	ErrReportRunning = errors.New("report already running")
	ErrUnknownSource = errors.New("unknown source")
)

// Exporter persists finished tables and returns the written file path.
type Exporter interface {
	WriteLTV(report string, rows []models.LTVResult, benchmarks []models.LTVBenchmark, fit *models.RetentionFitParams) (string, error)
	WriteMAU(report string, rows []models.MAUResult) (string, error)
}

// ReportMetrics extends domain metrics with per-report outcomes.
type ReportMetrics interface {
	drepo.Metrics
	RecordReport(name string, success bool)
}

// ReportRunnerConfig holds model settings that are not per report.
type ReportRunnerConfig struct {
	FitMaxEvaluations int
	BaselineMonths    int
}

// ReportRunner executes configured reports end to end: fetch, validate,
// predict, export, publish, mail. Publisher and notifier are optional.
type ReportRunner struct {
	cfg       ReportRunnerConfig
	reports   map[string]models.Report
	order     []string
	sources   map[string]drepo.TableSource
	validator *analytics.DataValidator
	exporter  Exporter
	publisher drepo.ResultPublisher
	notifier  drepo.Notifier
	metrics   ReportMetrics
	l         *applogger.Logger

	running sync.Map
	now     func() time.Time
}

func NewReportRunner(
	cfg ReportRunnerConfig,
	reports []models.Report,
	sources map[string]drepo.TableSource,
	exporter Exporter,
	publisher drepo.ResultPublisher,
	notifier drepo.Notifier,
	metrics ReportMetrics,
	l *applogger.Logger,
) *ReportRunner {
	if l == nil {
		l = applogger.NewNop()
	}
	r := &ReportRunner{
		cfg:       cfg,
		reports:   make(map[string]models.Report, len(reports)),
		sources:   sources,
		validator: analytics.NewDataValidator(l, metrics),
		exporter:  exporter,
		publisher: publisher,
		notifier:  notifier,
		metrics:   metrics,
		l:         l,
		now:       time.Now,
	}
	for _, rep := range reports {
		r.reports[rep.Name] = rep
		r.order = append(r.order, rep.Name)
	}
	return r
}

// Reports returns configured reports in declaration order.
func (r *ReportRunner) Reports() []models.Report {
	out := make([]models.Report, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.reports[n])
	}
	return out
}

// RunByName runs a configured report.
func (r *ReportRunner) RunByName(ctx context.Context, name string) (*models.ReportOutcome, error) {
	rep, ok := r.reports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}
	return r.Run(ctx, rep)
}

// Run executes one report. Concurrent runs of the same report are refused.
func (r *ReportRunner) Run(ctx context.Context, rep models.Report) (*models.ReportOutcome, error) {
	if _, busy := r.running.LoadOrStore(rep.Name, struct{}{}); busy {
		return nil, fmt.Errorf("%w: %s", ErrReportRunning, rep.Name)
	}
	defer r.running.Delete(rep.Name)

	log := r.l.With(applogger.String("report", rep.Name), applogger.String("kind", string(rep.Kind)))
	out := &models.ReportOutcome{Report: rep.Name, Kind: rep.Kind, StartedAt: r.now()}

	err := r.run(ctx, rep, out, log)
	out.Duration = r.now().Sub(out.StartedAt)
	if r.metrics != nil {
		r.metrics.RecordReport(rep.Name, err == nil)
	}
	if err != nil {
		log.Error("Report failed", applogger.Error(err))
		return out, err
	}
	log.Info("Report finished",
		applogger.Int("input_rows", out.InputRows),
		applogger.Int("output_rows", out.OutputRows),
		applogger.Bool("published", out.Published),
		applogger.Bool("mailed", out.Mailed),
		applogger.Duration("duration", out.Duration),
	)
	return out, nil
}

func (r *ReportRunner) run(ctx context.Context, rep models.Report, out *models.ReportOutcome, log *applogger.Logger) error {
	src, ok := r.sources[rep.Source]
	if !ok || src == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSource, rep.Source)
	}
	table, err := src.Fetch(ctx, rep.Query)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	out.InputRows = len(table.Rows)

	var summary string
	switch rep.Kind {
	case models.ReportLTV:
		summary, err = r.runLTV(ctx, rep, table, out, log)
	case models.ReportMAU:
		summary, err = r.runMAU(ctx, rep, table, out, log)
	default:
		err = fmt.Errorf("unsupported report kind %q", rep.Kind)
	}
	if err != nil {
		return err
	}

	if r.notifier != nil && len(rep.Recipients) > 0 {
		subject := fmt.Sprintf("GrowthLens %s report: %s", strings.ToUpper(string(rep.Kind)), rep.Name)
		switch err := r.notifier.Notify(ctx, rep.Recipients, subject, summary, out.Files); {
		case errors.Is(err, drepo.ErrDeliverySkipped):
			log.Warn("Report mail skipped")
		case err != nil:
			return fmt.Errorf("notify: %w", err)
		default:
			out.Mailed = true
		}
	}
	return nil
}

func (r *ReportRunner) runLTV(ctx context.Context, rep models.Report, table models.RawTable, out *models.ReportOutcome, log *applogger.Logger) (string, error) {
	rows, err := r.validator.CleanLTVData(table)
	if err != nil {
		return "", err
	}
	svc := analytics.NewLTVService(rows,
		analytics.WithFitter(analytics.NewPowerLawFitter(r.cfg.FitMaxEvaluations)),
		analytics.WithLogger(log),
		analytics.WithMetrics(r.metrics),
	)
	results := svc.Predict(rep.TargetCostPerInstall, rep.NetRevenueShare)
	bench := svc.SummaryBenchmarks()
	out.OutputRows = len(results)
	out.Fit = svc.FitParams()

	if r.exporter != nil {
		path, err := r.exporter.WriteLTV(rep.Name, results, bench, out.Fit)
		if err != nil {
			return "", fmt.Errorf("export: %w", err)
		}
		out.Files = append(out.Files, path)
	}
	if r.publisher != nil {
		if err := r.publisher.PublishLTV(ctx, rep.Name, results); err != nil {
			return "", fmt.Errorf("publish: %w", err)
		}
		out.Published = true
	}
	return ltvSummary(rep, results, bench, out.Fit), nil
}

func (r *ReportRunner) runMAU(ctx context.Context, rep models.Report, table models.RawTable, out *models.ReportOutcome, log *applogger.Logger) (string, error) {
	rows, err := r.validator.CleanMAUData(table)
	if err != nil {
		return "", err
	}
	svc := analytics.NewMAUService(rows,
		analytics.WithBaselineMonths(r.cfg.BaselineMonths),
		analytics.WithMAULogger(log),
		analytics.WithMAUMetrics(r.metrics),
	)
	results := svc.Predict(rep.MonthsToPredict, rep.GrowthFactor)
	out.OutputRows = len(results)

	if r.exporter != nil {
		path, err := r.exporter.WriteMAU(rep.Name, results)
		if err != nil {
			return "", fmt.Errorf("export: %w", err)
		}
		out.Files = append(out.Files, path)
	}
	if r.publisher != nil {
		if err := r.publisher.PublishMAU(ctx, rep.Name, results); err != nil {
			return "", fmt.Errorf("publish: %w", err)
		}
		out.Published = true
	}
	return mauSummary(rep, results), nil
}

func ltvSummary(rep models.Report, rows []models.LTVResult, bench []models.LTVBenchmark, fit *models.RetentionFitParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report %s: %d cohort days.\n", rep.Name, len(rows))
	fmt.Fprintf(&b, "Target CPI %.2f, net revenue share %.2f.\n", rep.TargetCostPerInstall, rep.NetRevenueShare)
	if fit != nil {
		fmt.Fprintf(&b, "Retention fit: rr = %.4f * (day-1)^%.4f\n", fit.A, fit.B)
	} else {
		b.WriteString("Retention fit unavailable, observed retention used.\n")
	}
	if len(bench) > 0 {
		b.WriteString("\nMilestones:\n")
		for _, m := range bench {
			fmt.Fprintf(&b, "  D%-3d LTV %.4f\n", m.Milestone, m.PredictedLTV)
		}
	}
	return b.String()
}

func mauSummary(rep models.Report, rows []models.MAUResult) string {
	var b strings.Builder
	predicted := 0
	for _, r := range rows {
		if r.IsPredicted {
			predicted++
		}
	}
	fmt.Fprintf(&b, "Report %s: %d observed months, %d projected (growth factor %.2f).\n",
		rep.Name, len(rows)-predicted, predicted, rep.GrowthFactor)
	if predicted > 0 {
		last := rows[len(rows)-1]
		fmt.Fprintf(&b, "Projected MAU for %s: %.0f\n", last.DataDate.Format("2006-01"), last.MAU)
	}
	return b.String()
}
