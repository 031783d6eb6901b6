package httpform

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/reoring/goform/metrics"
)

// RouterConfig holds optional router settings.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // served at MetricsPath; promhttp.Handler() when nil
	MetricsPath    string       // "" disables the metrics endpoint
	Timeout        time.Duration
}

// NewRouter creates the form router.
func NewRouter(srv *Server, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsPath != "" {
		h := cfg.MetricsHandler
		if h == nil {
			h = promhttp.Handler()
		}
		r.Method(http.MethodGet, cfg.MetricsPath, h)
	}

	r.Get("/state", srv.State)
	r.Get("/fields/*", srv.Field)
	r.Post("/change", srv.Change)
	r.Post("/blur", srv.Blur)
	r.Post("/validate", srv.Validate)
	r.Post("/validate-fields", srv.ValidateFields)
	r.Post("/submit", srv.Submit)
	r.Post("/reset", srv.Reset)
	r.Post("/touched", srv.SetTouched)
	r.Post("/errors", srv.SetErrors)
	r.Put("/errors", srv.SetErrors)

	return r
}

func internal(path, metricsPath string) bool {
	return strings.HasPrefix(path, "/health") || (metricsPath != "" && path == metricsPath)
}

// NewLoggingMiddleware logs every request except health and metrics probes
// at debug level.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if internal(r.URL.Path, metricsPath) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// NewMetricsMiddleware records request count and latency per route pattern.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if internal(r.URL.Path, metricsPath) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			m.ObserveRequest(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}
