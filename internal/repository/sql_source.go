package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"GrowthLens/internal/domain/models"
	domrepo "GrowthLens/internal/domain/repository"
	applogger "GrowthLens/pkg/logger"
)

// SQLTableSource runs a query against a database/sql pool (ClickHouse or
// MySQL) and returns the result set untyped.
type SQLTableSource struct {
	db      *sql.DB
	name    string
	timeout time.Duration
	l       *applogger.Logger
}

var _ domrepo.TableSource = (*SQLTableSource)(nil)

func NewSQLTableSource(db *sql.DB, name string, timeout time.Duration, l *applogger.Logger) *SQLTableSource {
	if l == nil {
		l = applogger.NewNop()
	}
	return &SQLTableSource{db: db, name: name, timeout: timeout, l: l}
}

func (s *SQLTableSource) Fetch(ctx context.Context, query string) (models.RawTable, error) {
	if strings.TrimSpace(query) == "" {
		return models.RawTable{}, fmt.Errorf("%s: empty query", s.name)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.l.Error("sql source query error", applogger.String("source", s.name), applogger.Error(err))
		return models.RawTable{}, fmt.Errorf("%s query: %w", s.name, err)
	}
	defer rows.Close()

	t, err := scanTable(rows)
	if err != nil {
		s.l.Error("sql source scan error", applogger.String("source", s.name), applogger.Error(err))
		return models.RawTable{}, fmt.Errorf("%s scan: %w", s.name, err)
	}
	s.l.Info("sql source fetched",
		applogger.String("source", s.name),
		applogger.Int("rows", len(t.Rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return t, nil
}

type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanTable reads every row into a column-keyed map. Column names are
// lower-cased; []byte values become strings.
func scanTable(rows rowScanner) (models.RawTable, error) {
	cols, err := rows.Columns()
	if err != nil {
		return models.RawTable{}, fmt.Errorf("columns: %w", err)
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = strings.ToLower(strings.TrimSpace(c))
	}

	t := models.RawTable{Columns: names}
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return models.RawTable{}, err
		}
		row := make(map[string]any, len(names))
		for i, n := range names {
			if b, ok := vals[i].([]byte); ok {
				row[n] = string(b)
				continue
			}
			row[n] = vals[i]
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return models.RawTable{}, fmt.Errorf("rows: %w", err)
	}
	return t, nil
}
