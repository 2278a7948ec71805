package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthLens/internal/domain/models"
	drepo "GrowthLens/internal/domain/repository"
	"GrowthLens/internal/services/analytics"
	"GrowthLens/pkg/metrics"
)

type fakeSource struct {
	table models.RawTable
	err   error
	block chan struct{}
	query string
}

func (f *fakeSource) Fetch(ctx context.Context, q string) (models.RawTable, error) {
	f.query = q
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return models.RawTable{}, ctx.Err()
		}
	}
	return f.table, f.err
}

type fakeExporter struct {
	ltv, mau int
	err      error
}

func (f *fakeExporter) WriteLTV(report string, _ []models.LTVResult, _ []models.LTVBenchmark, _ *models.RetentionFitParams) (string, error) {
	f.ltv++
	return "/tmp/" + report + "_ltv.xlsx", f.err
}

func (f *fakeExporter) WriteMAU(report string, _ []models.MAUResult) (string, error) {
	f.mau++
	return "/tmp/" + report + "_mau.xlsx", f.err
}

type fakePublisher struct {
	ltvRows, mauRows int
}

func (f *fakePublisher) PublishLTV(_ context.Context, _ string, rows []models.LTVResult) error {
	f.ltvRows += len(rows)
	return nil
}

func (f *fakePublisher) PublishMAU(_ context.Context, _ string, rows []models.MAUResult) error {
	f.mauRows += len(rows)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeNotifier struct {
	err         error
	subject     string
	body        string
	attachments []string
}

func (f *fakeNotifier) Notify(_ context.Context, _ []string, subject, body string, attachments []string) error {
	f.subject, f.body, f.attachments = subject, body, attachments
	return f.err
}

type reportCounter struct {
	metrics.Noop
	mu  sync.Mutex
	ok  map[string]int
	bad map[string]int
}

func (c *reportCounter) RecordReport(name string, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		c.ok[name]++
	} else {
		c.bad[name]++
	}
}

func newCounter() *reportCounter {
	return &reportCounter{ok: map[string]int{}, bad: map[string]int{}}
}

func ltvTable() models.RawTable {
	return models.RawTable{
		Columns: []string{"num_day", "actual_rr", "actual_arpu"},
		Rows: []map[string]any{
			{"num_day": 1, "actual_rr": 1.0, "actual_arpu": 10.0},
			{"num_day": 2, "actual_rr": 0.5, "actual_arpu": 10.0},
			{"num_day": 3, "actual_rr": 0.4, "actual_arpu": 8.0},
		},
	}
}

func mauTable() models.RawTable {
	return models.RawTable{
		Columns: []string{"data_date", "nuu", "ouu", "ruu", "nuu_retention_rate", "ouu_retention_rate", "ruu_retention_rate"},
		Rows: []map[string]any{
			{"data_date": "2024-01-01", "nuu": 100.0, "ouu": 50.0, "ruu": 10.0, "nuu_retention_rate": 0.3, "ouu_retention_rate": 0.6, "ruu_retention_rate": 0.2},
			{"data_date": "2024-02-01", "nuu": 120.0, "ouu": 60.0, "ruu": 12.0, "nuu_retention_rate": 0.3, "ouu_retention_rate": 0.6, "ruu_retention_rate": 0.2},
		},
	}
}

func ltvReport() models.Report {
	return models.Report{
		Name: "ltv-weekly", Kind: models.ReportLTV, Source: "file", Query: "ltv.csv",
		Recipients: []string{"a@example.com"}, TargetCostPerInstall: 50, NetRevenueShare: 0.35,
	}
}

func mauReport() models.Report {
	return models.Report{Name: "mau-monthly", Kind: models.ReportMAU, Source: "file", Query: "mau.csv", MonthsToPredict: 3, GrowthFactor: 1}
}

func newRunner(src drepo.TableSource, exp Exporter, pub drepo.ResultPublisher, n drepo.Notifier, m ReportMetrics, reports ...models.Report) *ReportRunner {
	return NewReportRunner(
		ReportRunnerConfig{FitMaxEvaluations: 2000, BaselineMonths: 6},
		reports,
		map[string]drepo.TableSource{"file": src},
		exp, pub, n, m, nil,
	)
}

func TestRunLTVReportEndToEnd(t *testing.T) {
	src := &fakeSource{table: ltvTable()}
	exp := &fakeExporter{}
	pub := &fakePublisher{}
	n := &fakeNotifier{}
	m := newCounter()
	r := newRunner(src, exp, pub, n, m, ltvReport())

	out, err := r.RunByName(context.Background(), "ltv-weekly")
	require.NoError(t, err)

	assert.Equal(t, "ltv.csv", src.query)
	assert.Equal(t, 3, out.InputRows)
	assert.Equal(t, 3, out.OutputRows)
	assert.NotNil(t, out.Fit)
	assert.True(t, out.Published)
	assert.True(t, out.Mailed)
	assert.Equal(t, []string{"/tmp/ltv-weekly_ltv.xlsx"}, out.Files)
	assert.Equal(t, 3, pub.ltvRows)
	assert.Equal(t, "GrowthLens LTV report: ltv-weekly", n.subject)
	assert.Contains(t, n.body, "Milestones")
	assert.Equal(t, out.Files, n.attachments)
	assert.Equal(t, 1, m.ok["ltv-weekly"])
}

func TestRunMAUReport(t *testing.T) {
	exp := &fakeExporter{}
	pub := &fakePublisher{}
	r := newRunner(&fakeSource{table: mauTable()}, exp, pub, nil, nil, mauReport())

	out, err := r.RunByName(context.Background(), "mau-monthly")
	require.NoError(t, err)
	assert.Equal(t, 5, out.OutputRows)
	assert.Equal(t, 1, exp.mau)
	assert.Equal(t, 5, pub.mauRows)
	assert.False(t, out.Mailed)
}

func TestRunReportMissingColumns(t *testing.T) {
	m := newCounter()
	src := &fakeSource{table: models.RawTable{Columns: []string{"num_day"}}}
	r := newRunner(src, &fakeExporter{}, nil, nil, m, ltvReport())

	_, err := r.RunByName(context.Background(), "ltv-weekly")
	var mc *analytics.MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, []string{"actual_rr", "actual_arpu"}, mc.Columns)
	assert.Equal(t, 1, m.bad["ltv-weekly"])
}

func TestRunReportFetchError(t *testing.T) {
	boom := errors.New("boom")
	r := newRunner(&fakeSource{err: boom}, nil, nil, nil, nil, ltvReport())
	_, err := r.RunByName(context.Background(), "ltv-weekly")
	assert.ErrorIs(t, err, boom)
}

func TestRunUnknownReportAndSource(t *testing.T) {
	r := newRunner(&fakeSource{}, nil, nil, nil, nil)
	_, err := r.RunByName(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownReport)

	rep := ltvReport()
	rep.Source = "clickhouse"
	_, err = r.Run(context.Background(), rep)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestRunSkippedMailIsNotAFailure(t *testing.T) {
	n := &fakeNotifier{err: drepo.ErrDeliverySkipped}
	r := newRunner(&fakeSource{table: ltvTable()}, nil, nil, n, nil, ltvReport())
	out, err := r.RunByName(context.Background(), "ltv-weekly")
	require.NoError(t, err)
	assert.False(t, out.Mailed)
}

func TestRunFailsWhenMailDeliveryFails(t *testing.T) {
	n := &fakeNotifier{err: errors.New("smtp: 535 authentication failed")}
	exp := &fakeExporter{}
	m := newCounter()
	r := newRunner(&fakeSource{table: ltvTable()}, exp, nil, n, m, ltvReport())

	out, err := r.RunByName(context.Background(), "ltv-weekly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify")
	require.NotNil(t, out)
	assert.False(t, out.Mailed)
	assert.Equal(t, 1, exp.ltv)
	assert.Equal(t, 1, m.bad["ltv-weekly"])
	assert.Zero(t, m.ok["ltv-weekly"])
}

func TestRunRefusesConcurrentRunOfSameReport(t *testing.T) {
	src := &fakeSource{table: ltvTable(), block: make(chan struct{})}
	r := newRunner(src, nil, nil, nil, nil, ltvReport())

	done := make(chan error, 1)
	go func() {
		_, err := r.RunByName(context.Background(), "ltv-weekly")
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, busy := r.running.Load("ltv-weekly")
		return busy
	}, time.Second, 5*time.Millisecond)

	_, err := r.RunByName(context.Background(), "ltv-weekly")
	assert.ErrorIs(t, err, ErrReportRunning)

	close(src.block)
	require.NoError(t, <-done)
}

func TestReportsKeepsDeclarationOrder(t *testing.T) {
	r := newRunner(&fakeSource{}, nil, nil, nil, nil, mauReport(), ltvReport())
	got := r.Reports()
	require.Len(t, got, 2)
	assert.Equal(t, "mau-monthly", got[0].Name)
	assert.Equal(t, "ltv-weekly", got[1].Name)
}
