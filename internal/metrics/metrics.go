package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photowall",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "photowall",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	// Intake outcomes: accepted, duplicate, cooldown, invalid, error
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photowall",
			Name:      "submissions_total",
			Help:      "Submissions received by outcome",
		},
		[]string{"result"},
	)

	ModerationTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photowall",
			Name:      "moderation_transitions_total",
			Help:      "Moderator actions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	LikesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photowall",
			Name:      "likes_total",
			Help:      "Like operations by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	RejectedPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "photowall",
			Name:      "rejected_purged_total",
			Help:      "Rejected submission records removed by retention cleanup",
		},
	)
)

// Middleware records request counts and durations per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
