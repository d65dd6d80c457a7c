package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ali_portfolio/internal/metrics"

	"github.com/labstack/echo/v4"
)

// служебные ручки не попадают в метрики запросов
var unmeasured = []string{"/metrics", "/live", "/ready", "/swagger/"}

func PrometheusMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		for _, p := range unmeasured {
			if strings.HasPrefix(req.URL.Path, p) {
				return next(c)
			}
		}

		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()

		start := time.Now()
		err := next(c)
		duration := time.Since(start).Seconds()

		// шаблон маршрута вместо URL
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			req.Method,
			route,
			strconv.Itoa(responseStatus(c, err)),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			req.Method,
			route,
		).Observe(duration)

		return err
	}
}

// responseStatus учитывает ошибку, которую echo ещё не успел записать в ответ
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
