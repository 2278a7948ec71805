package api

import (
	"strings"

	"github.com/labstack/echo/v4"

	"GrowthLens/internal/service/ratelimit"
	xhttp "GrowthLens/pkg/http"
	xlogger "GrowthLens/pkg/logger"
)

// RateLimit rejects /api requests from a client IP once its bucket is empty.
func RateLimit(l *ratelimit.Limiter, logger *xlogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, "/api/") {
				return next(c)
			}
			ip := c.RealIP()
			if !l.Allow(ip) {
				if logger != nil {
					logger.Warn("rate limited", xlogger.String("remote", ip), xlogger.String("path", c.Path()))
				}
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}
