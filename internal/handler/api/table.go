package api

import (
	"sort"
	"strings"

	"GrowthLens/internal/domain/models"
)

// rawTable turns JSON row objects into a RawTable. Columns are the
// lowercased union of row keys in sorted order.
func rawTable(rows []map[string]any) models.RawTable {
	seen := make(map[string]struct{})
	out := models.RawTable{Rows: make([]map[string]any, 0, len(rows))}
	for _, r := range rows {
		row := make(map[string]any, len(r))
		for k, v := range r {
			k = strings.ToLower(strings.TrimSpace(k))
			row[k] = v
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				out.Columns = append(out.Columns, k)
			}
		}
		out.Rows = append(out.Rows, row)
	}
	sort.Strings(out.Columns)
	return out
}
