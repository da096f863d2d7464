// Package metrics exposes trigger counters on a Prometheus endpoint, for
// long-running bench use where a trigger chain is watched over time.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	TriggersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scantrig_triggers_total",
			Help: "Total triggers accepted",
		},
		[]string{"device"},
	)

	TriggersSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scantrig_triggers_skipped_total",
			Help: "Leading triggers discarded by skip_scans",
		},
		[]string{"device"},
	)

	TriggerInterval = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scantrig_trigger_interval_seconds",
			Help:    "Time between consecutive accepted triggers",
			Buckets: []float64{.25, .5, .75, 1, 1.25, 1.5, 2, 3, 5, 10},
		},
		[]string{"device"},
	)

	SourceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scantrig_source_errors_total",
			Help: "Trigger source errors",
		},
		[]string{"device"},
	)
)

func init() {
	prometheus.MustRegister(
		TriggersTotal,
		TriggersSkipped,
		TriggerInterval,
		SourceErrors,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
