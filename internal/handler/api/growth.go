package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"GrowthLens/internal/domain/models"
	domrepo "GrowthLens/internal/domain/repository"
	icache "GrowthLens/internal/service/cache"
	"GrowthLens/internal/services/analytics"
	xhttp "GrowthLens/pkg/http"
	xlogger "GrowthLens/pkg/logger"
)

// Defaults are applied to request fields the client leaves out.
type Defaults struct {
	TargetCostPerInstall float64
	NetRevenueShare      float64
	FitMaxEvaluations    int
	MonthsToPredict      int
	GrowthFactor         float64
	BaselineMonths       int
}

// GrowthHandler serves the LTV and MAU prediction endpoints.
type GrowthHandler struct {
	logger   *xlogger.Logger
	metrics  domrepo.Metrics
	cache    icache.BytesCache
	ttl      time.Duration
	defaults Defaults
}

func NewGrowthHandler(logger *xlogger.Logger, metrics domrepo.Metrics, defaults Defaults) *GrowthHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &GrowthHandler{logger: logger, metrics: metrics, defaults: defaults}
}

// SetCache enables response caching keyed by the normalised request.
func (h *GrowthHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache, h.ttl = c, ttl
}

func (h *GrowthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/ltv/predict", h.PredictLTV)
	g.POST("/mau/predict", h.PredictMAU)
}

func (h *GrowthHandler) PredictLTV(c echo.Context) error {
	req := &models.LTVPredictRequest{
		TargetCostPerInstall: h.defaults.TargetCostPerInstall,
		NetRevenueShare:      h.defaults.NetRevenueShare,
	}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	return h.cached(c, "ltv", req, func() (any, error) {
		rows, err := analytics.NewDataValidator(h.logger, h.metrics).CleanLTVData(rawTable(req.Rows))
		if err != nil {
			return nil, err
		}
		svc := analytics.NewLTVService(rows,
			analytics.WithFitter(analytics.NewPowerLawFitter(h.defaults.FitMaxEvaluations)),
			analytics.WithLogger(h.logger),
			analytics.WithMetrics(h.metrics),
		)
		res := svc.Predict(req.TargetCostPerInstall, req.NetRevenueShare)
		return models.LTVPredictResponse{Rows: res, Fit: svc.FitParams(), Benchmarks: svc.SummaryBenchmarks()}, nil
	})
}

func (h *GrowthHandler) PredictMAU(c echo.Context) error {
	req := &models.MAUPredictRequest{
		MonthsToPredict: h.defaults.MonthsToPredict,
		GrowthFactor:    h.defaults.GrowthFactor,
	}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	return h.cached(c, "mau", req, func() (any, error) {
		rows, err := analytics.NewDataValidator(h.logger, h.metrics).CleanMAUData(rawTable(req.Rows))
		if err != nil {
			return nil, err
		}
		svc := analytics.NewMAUService(rows,
			analytics.WithBaselineMonths(h.defaults.BaselineMonths),
			analytics.WithMAULogger(h.logger),
			analytics.WithMAUMetrics(h.metrics),
		)
		res := svc.Predict(req.MonthsToPredict, req.GrowthFactor)
		if res == nil {
			res = []models.MAUResult{}
		}
		return models.MAUPredictResponse{Rows: res}, nil
	})
}

// cached serves a stored response for an identical request or computes,
// stores and writes a fresh one.
func (h *GrowthHandler) cached(c echo.Context, namespace string, req any, compute func() (any, error)) error {
	ctx := c.Request().Context()
	var key string
	if h.cache != nil {
		if body, err := json.Marshal(req); err == nil {
			key = icache.Key(namespace, body)
			if b, ok, err := h.cache.GetBytes(ctx, key); err != nil {
				h.logger.Warn("cache get error", xlogger.String("key", key), xlogger.Error(err))
			} else if ok {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, b)
			}
		}
	}

	data, err := compute()
	if err != nil {
		return h.predictionError(c, namespace, err)
	}

	body, err := json.Marshal(xhttp.APIResponse{Status: http.StatusOK, Message: http.StatusText(http.StatusOK), Data: data})
	if err != nil {
		h.logger.Error("encode response", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if key != "" {
		if err := h.cache.SetBytes(ctx, key, body, h.ttl); err != nil {
			h.logger.Warn("cache set error", xlogger.String("key", key), xlogger.Error(err))
		}
		c.Response().Header().Set("X-Cache", "MISS")
	}
	return c.JSONBlob(http.StatusOK, body)
}

func (h *GrowthHandler) predictionError(c echo.Context, namespace string, err error) error {
	var mc *analytics.MissingColumnError
	if errors.As(err, &mc) {
		appErr := xhttp.NewAppError("ERR_MISSING_COLUMNS", "rows", mc.Error(), http.StatusBadRequest).
			WithParam("columns", mc.Columns).
			WithError(err)
		return xhttp.AppErrorResponse(c, appErr)
	}
	h.logger.Error(namespace+" prediction error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
