package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/brk3/habitkit/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_http_requests_total",
			Help: "Total number of HTTP requests by endpoint, method, and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habits_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	userRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_user_requests_total",
			Help: "Total number of authenticated requests per user",
		},
		[]string{"user_id", "endpoint", "method"},
	)

	authEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_auth_events_total",
			Help: "Total authentication events by type and result",
		},
		[]string{"event_type", "result", "provider"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "habits_rate_limited_requests_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)

	habitsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "habits_created_total",
			Help: "Total number of habits created",
		},
	)

	completionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_completions_total",
			Help: "Total number of habit completions recorded, by habit frequency",
		},
		[]string{"frequency"},
	)

	activeHabitsPerUser = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "habits_active_habits_per_user",
			Help: "Number of unarchived habits per user",
		},
		[]string{"user_id"},
	)

	activeHabits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "habits_active_habits_total",
			Help: "Total number of unarchived habits across all users",
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routePattern labels requests by their chi pattern rather than the raw
// path so habit ids do not explode metric cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(wrapped.statusCode)
		endpoint := routePattern(r)

		httpRequestsTotal.WithLabelValues(endpoint, r.Method, statusCode).Inc()
		httpRequestDuration.WithLabelValues(endpoint, r.Method, statusCode).Observe(duration)
	})
}

func (s *Server) userAwareMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		if user, ok := r.Context().Value(userCtxKey{}).(*User); ok {
			userRequestsTotal.WithLabelValues(user.UserID, routePattern(r), r.Method).Inc()
		}
	})
}

func RecordAuthEvent(eventType, result, provider string) {
	authEventsTotal.WithLabelValues(eventType, result, provider).Inc()
	logger.Debug("Recorded auth event", "type", eventType, "result", result, "provider", provider)
}

func (s *Server) countActive(userID string) (int, error) {
	habits, err := s.store.ListHabits(userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, h := range habits {
		if !h.IsArchived() {
			n++
		}
	}
	return n, nil
}

// refreshActiveHabitGauges recomputes the active habit gauges for every user.
func (s *Server) refreshActiveHabitGauges() error {
	users, err := s.store.ListUsers()
	if err != nil {
		return err
	}
	total := 0
	for _, u := range users {
		n, err := s.countActive(u)
		if err != nil {
			return err
		}
		activeHabitsPerUser.WithLabelValues(u).Set(float64(n))
		total += n
	}
	activeHabits.Set(float64(total))
	return nil
}

func (s *Server) updateActiveHabits(userID string) {
	if err := s.refreshActiveHabitGauges(); err != nil {
		logger.Warn("Failed to update active habits metric", "user_id", userID, "error", err)
	}
}
