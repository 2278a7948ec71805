package thinkingdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"GrowthLens/internal/domain/models"
	drepo "GrowthLens/internal/domain/repository"
	pkghttp "GrowthLens/pkg/http"
	applogger "GrowthLens/pkg/logger"
)

var (
	headerKeys = []string{"headers", "columns", "header"}
	rowKeys    = []string{"rows", "result", "results", "list"}
)

// Client runs SQL against the BI tool's query endpoint and returns the
// result grid as a RawTable.
type Client struct {
	http      *pkghttp.Client
	queryPath string
	l         *applogger.Logger
}

var _ drepo.TableSource = (*Client)(nil)

type Config struct {
	URL       string
	QueryPath string
	User      string
	Password  string
	Token     string
	Timeout   time.Duration
}

// New creates a client. Token auth wins over user/password.
func New(cfg Config, l *applogger.Logger, opts ...pkghttp.ClientOption) *Client {
	if l == nil {
		l = applogger.NewNop()
	}
	base := []pkghttp.ClientOption{
		pkghttp.WithBaseURL(strings.TrimRight(cfg.URL, "/")),
		pkghttp.WithTimeout(cfg.Timeout),
		pkghttp.WithRetries(2, time.Second),
		pkghttp.WithLogger(l),
	}
	if cfg.Token != "" {
		base = append(base, pkghttp.WithBearerToken(cfg.Token))
	} else if cfg.User != "" {
		base = append(base, pkghttp.WithBasicAuth(cfg.User, cfg.Password))
	}
	path := cfg.QueryPath
	if path == "" {
		path = "/api/v1/sql/query"
	}
	return &Client{
		http:      pkghttp.NewClient(append(base, opts...)...),
		queryPath: path,
		l:         l,
	}
}

type queryRequest struct {
	SQL    string `json:"sql"`
	Format string `json:"format"`
}

// Fetch executes sql and decodes the grid.
func (c *Client) Fetch(ctx context.Context, sql string) (models.RawTable, error) {
	if strings.TrimSpace(sql) == "" {
		return models.RawTable{}, fmt.Errorf("thinkingdata: empty query")
	}
	start := time.Now()
	var raw []byte
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: http.MethodPost,
		URL:    c.queryPath,
		Body:   queryRequest{SQL: sql, Format: "json"},
	}, &raw)
	if err != nil {
		c.l.Error("thinkingdata query failed", applogger.Error(err))
		return models.RawTable{}, fmt.Errorf("thinkingdata query: %w", err)
	}

	t, err := ParseResult(raw)
	if err != nil {
		return models.RawTable{}, err
	}
	c.l.Info("thinkingdata query done",
		applogger.Int("rows", len(t.Rows)),
		applogger.Int("columns", len(t.Columns)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return t, nil
}

// ParseResult decodes a query response. The grid may sit under "data" or at
// the top level; the header under headers/columns/header, and rows under
// rows/result/results/list as arrays or objects.
func ParseResult(body []byte) (models.RawTable, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var top map[string]any
	if err := dec.Decode(&top); err != nil {
		return models.RawTable{}, fmt.Errorf("thinkingdata: decode response: %w", err)
	}

	payload := top
	if inner, ok := top["data"].(map[string]any); ok {
		payload = inner
	}
	if code, ok := top["return_code"]; ok && fmt.Sprint(code) != "0" {
		return models.RawTable{}, fmt.Errorf("thinkingdata: return_code %v: %v", code, top["return_message"])
	}

	var header []string
	for _, k := range headerKeys {
		if h, ok := payload[k].([]any); ok {
			header = headerNames(h)
			break
		}
	}
	var rows []any
	for _, k := range rowKeys {
		if r, ok := payload[k].([]any); ok {
			rows = r
			break
		}
	}
	if header == nil {
		if rows == nil {
			return models.RawTable{}, fmt.Errorf("thinkingdata: response has no result grid")
		}
		header = headerFromObjects(rows)
	}

	t := models.RawTable{Columns: header, Rows: make([]map[string]any, 0, len(rows))}
	for _, r := range rows {
		row := make(map[string]any, len(header))
		switch v := r.(type) {
		case []any:
			for i, col := range header {
				if i < len(v) {
					row[col] = v[i]
				} else {
					row[col] = nil
				}
			}
		case map[string]any:
			lower := make(map[string]any, len(v))
			for k, val := range v {
				lower[strings.ToLower(k)] = val
			}
			for _, col := range header {
				row[col] = lower[col]
			}
		default:
			return models.RawTable{}, fmt.Errorf("thinkingdata: unexpected row type %T", r)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func headerNames(h []any) []string {
	out := make([]string, 0, len(h))
	for _, v := range h {
		switch x := v.(type) {
		case string:
			out = append(out, strings.ToLower(strings.TrimSpace(x)))
		case map[string]any:
			for _, k := range []string{"name", "field", "title", "columnName"} {
				if s, ok := x[k].(string); ok && s != "" {
					out = append(out, strings.ToLower(strings.TrimSpace(s)))
					break
				}
			}
		}
	}
	return out
}

func headerFromObjects(rows []any) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		for k := range m {
			k = strings.ToLower(k)
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
