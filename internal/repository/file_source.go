package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"GrowthLens/internal/domain/models"
	domrepo "GrowthLens/internal/domain/repository"
	applogger "GrowthLens/pkg/logger"
)

// FileTableSource reads exported BI result files. The query is a path
// relative to the source directory; "report.xlsx#Sheet2" selects a sheet.
type FileTableSource struct {
	dir string
	l   *applogger.Logger
}

var _ domrepo.TableSource = (*FileTableSource)(nil)

func NewFileTableSource(dir string, l *applogger.Logger) *FileTableSource {
	if l == nil {
		l = applogger.NewNop()
	}
	return &FileTableSource{dir: dir, l: l}
}

func (s *FileTableSource) Fetch(ctx context.Context, query string) (models.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return models.RawTable{}, err
	}
	path, sheet, _ := strings.Cut(strings.TrimSpace(query), "#")
	if path == "" {
		return models.RawTable{}, fmt.Errorf("file source: empty path")
	}
	if !filepath.IsAbs(path) && s.dir != "" {
		path = filepath.Join(s.dir, path)
	}

	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readCSV(path)
	case ".xlsx", ".xlsm":
		records, err = readXLSX(path, sheet)
	default:
		return models.RawTable{}, fmt.Errorf("file source: unsupported extension %q", filepath.Ext(path))
	}
	if err != nil {
		return models.RawTable{}, fmt.Errorf("file source %s: %w", path, err)
	}

	t := tableFromRecords(records)
	s.l.Info("file source loaded", applogger.String("path", path), applogger.Int("rows", len(t.Rows)))
	return t, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	return f.GetRows(sheet)
}

// tableFromRecords treats the first record as the header. Empty cells become
// nil so they read as missing values.
func tableFromRecords(records [][]string) models.RawTable {
	if len(records) == 0 {
		return models.RawTable{}
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	t := models.RawTable{Columns: header, Rows: make([]map[string]any, 0, len(records)-1)}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) && strings.TrimSpace(rec[i]) != "" {
				row[col] = rec[i]
			} else {
				row[col] = nil
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
