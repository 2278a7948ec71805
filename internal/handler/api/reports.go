package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"GrowthLens/internal/domain/models"
	"GrowthLens/internal/services/analytics"
	"GrowthLens/internal/usecase"
	xhttp "GrowthLens/pkg/http"
	xlogger "GrowthLens/pkg/logger"
)

type reportService interface {
	RunByName(ctx context.Context, name string) (*models.ReportOutcome, error)
	Reports() []models.Report
}

// ReportsHandler lists configured reports and runs them on demand.
type ReportsHandler struct {
	logger *xlogger.Logger
	runner reportService
}

func NewReportsHandler(logger *xlogger.Logger, runner reportService) *ReportsHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &ReportsHandler{logger: logger, runner: runner}
}

func (h *ReportsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/reports")
	g.GET("", h.List)
	g.POST("/:name/run", h.Run)
}

func (h *ReportsHandler) List(c echo.Context) error {
	reports := h.runner.Reports()
	out := make([]models.ReportInfo, 0, len(reports))
	for _, r := range reports {
		out = append(out, models.ReportInfo{Name: r.Name, Kind: r.Kind, Source: r.Source, Schedule: r.Schedule})
	}
	return xhttp.SuccessResponse(c, out)
}

// Run executes the report synchronously and returns its outcome.
func (h *ReportsHandler) Run(c echo.Context) error {
	name := c.Param("name")
	out, err := h.runner.RunByName(c.Request().Context(), name)
	if err != nil {
		var mc *analytics.MissingColumnError
		switch {
		case errors.Is(err, usecase.ErrUnknownReport):
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("report %q not found", name))
		case errors.Is(err, usecase.ErrReportRunning):
			return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
		case errors.As(err, &mc):
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_MISSING_COLUMNS", "", mc.Error(), http.StatusBadRequest).WithParam("columns", mc.Columns))
		}
		h.logger.Error("report run error", xlogger.String("report", name), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("report %s failed", name).WithError(err))
	}
	return xhttp.SuccessResponse(c, out)
}
