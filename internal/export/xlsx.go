// Package export writes prediction tables to xlsx workbooks.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/xuri/excelize/v2"

	"GrowthLens/internal/domain/models"
)

const (
	SheetLTV        = "LTV"
	SheetBenchmarks = "Benchmarks"
	SheetMAU        = "MAU"
	SheetFit        = "Fit"
)

var (
	ltvHeader       = []any{"num_day", "actual_rr", "actual_arpu", "predicted_rr", "predicted_arpu", "predicted_ltv", "required_ltv"}
	benchmarkHeader = append([]any{"milestone"}, ltvHeader...)
	mauHeader       = []any{"data_date", "nuu", "ouu", "ruu", "nuu_retention_rate", "ouu_retention_rate", "ruu_retention_rate", "mau", "is_predicted"}

	unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// XLSXWriter writes one workbook per report run into Dir.
type XLSXWriter struct {
	Dir string
	now func() time.Time
}

func NewXLSXWriter(dir string) *XLSXWriter {
	return &XLSXWriter{Dir: dir, now: time.Now}
}

// WriteLTV stores per-day results, the milestone benchmarks and, when set,
// the fitted coefficients. It returns the workbook path.
func (w *XLSXWriter) WriteLTV(report string, rows []models.LTVResult, benchmarks []models.LTVBenchmark, fit *models.RetentionFitParams) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetLTV); err != nil {
		return "", err
	}
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, ltvCells(r))
	}
	if err := writeTable(f, SheetLTV, ltvHeader, data); err != nil {
		return "", err
	}

	if _, err := f.NewSheet(SheetBenchmarks); err != nil {
		return "", err
	}
	data = data[:0]
	for _, b := range benchmarks {
		data = append(data, append([]any{b.Milestone}, ltvCells(b.LTVResult)...))
	}
	if err := writeTable(f, SheetBenchmarks, benchmarkHeader, data); err != nil {
		return "", err
	}

	if fit != nil {
		if _, err := f.NewSheet(SheetFit); err != nil {
			return "", err
		}
		if err := writeTable(f, SheetFit, []any{"a", "b"}, [][]any{{fit.A, fit.B}}); err != nil {
			return "", err
		}
	}

	return w.save(f, report, models.ReportLTV)
}

// WriteMAU stores observed and projected months in one sheet.
func (w *XLSXWriter) WriteMAU(report string, rows []models.MAUResult) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetMAU); err != nil {
		return "", err
	}
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, []any{
			r.DataDate.Format("2006-01-02"),
			r.NUU, r.OUU, r.RUU,
			ptr(r.NUURetentionRate), ptr(r.OUURetentionRate), ptr(r.RUURetentionRate),
			r.MAU, r.IsPredicted,
		})
	}
	if err := writeTable(f, SheetMAU, mauHeader, data); err != nil {
		return "", err
	}
	return w.save(f, report, models.ReportMAU)
}

func (w *XLSXWriter) save(f *excelize.File, report string, kind models.ReportKind) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s.xlsx", unsafeName.ReplaceAllString(report, "_"), kind, w.now().UTC().Format("20060102_150405"))
	path := filepath.Join(w.Dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func writeTable(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return err
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func ltvCells(r models.LTVResult) []any {
	return []any{
		r.NumDay,
		ptr(r.ActualRR), ptr(r.ActualARPU),
		r.PredictedRR, r.PredictedARPU, r.PredictedLTV,
		ptr(r.RequiredLTV),
	}
}

// ptr yields nil for a missing value so the cell stays empty.
func ptr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
