package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Health is the /health response body.
type Health struct {
	Status         string     `json:"status"`
	InstanceID     string     `json:"instance_id"`
	Version        string     `json:"version"`
	AttachedProbes int        `json:"attached_probes"`
	LastCollection *time.Time `json:"last_collection,omitempty"`
}

// HealthFunc reports the current health. Status is filled in by the handler.
type HealthFunc func() Health

// NewHandler serves /metrics from gatherer and /health from health.
// Every other path returns 404.
func NewHandler(gatherer prometheus.Gatherer, health HealthFunc, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: promLogger{logger},
	}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		var h Health
		if health != nil {
			h = health()
		}
		h.Status = "healthy"

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h); err != nil {
			logger.Error().Err(err).Msg("Failed to encode health response")
		}
	})

	return requestLogMiddleware(mux, logger)
}

func requestLogMiddleware(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug().
			Str("remote_addr", r.RemoteAddr).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request received")

		next.ServeHTTP(w, r)
	})
}

// promLogger adapts zerolog to promhttp.Logger.
type promLogger struct {
	logger zerolog.Logger
}

func (l promLogger) Println(v ...interface{}) {
	l.logger.Error().Msg(fmt.Sprint(v...))
}
