package api

import (
	"github.com/labstack/echo/v4"

	xhttp "GrowthLens/pkg/http"
)

type HealthHandler struct{}

func (HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
	})
}
