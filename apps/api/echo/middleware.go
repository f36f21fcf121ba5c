package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kazi/services/metrics"
)

// metricsMiddleware observes the duration of each request by route, method and status.
// Errors are handled here so that the recorded status is the one sent.
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		if err := next(ctx); err != nil {
			ctx.Error(err)
		}
		metrics.APIRequestDuration.
			WithLabelValues(ctx.Path(), ctx.Request().Method, strconv.Itoa(ctx.Response().Status)).
			Observe(time.Since(start).Seconds())
		return nil
	}
}
