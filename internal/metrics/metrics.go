package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Feed metrics
	FeedConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feewatch_feed_connected",
			Help: "Whether the mempool feed connection is streaming (1) or not (0)",
		},
	)

	FeedMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feewatch_feed_messages_total",
			Help: "Total number of frames received from the mempool feed",
		},
		[]string{"type"}, // type: text, binary
	)

	FeedReadErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feewatch_feed_read_errors_total",
			Help: "Total number of transport read errors on the mempool feed",
		},
	)

	FeedDecodeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feewatch_feed_decode_failures_total",
			Help: "Total number of feed frames dropped because they were not valid JSON",
		},
	)

	FeedLastUpdate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feewatch_feed_last_update_timestamp_seconds",
			Help: "Unix time of the latest decoded projection",
		},
	)

	// Evaluation metrics
	ProjectedBlocks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feewatch_projected_blocks",
			Help: "Number of projected blocks in the latest update",
		},
	)

	BlockMinFeeRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feewatch_block_min_fee_rate",
			Help: "Minimum fee rate of a projected block in the latest update",
		},
		[]string{"position"},
	)

	// Alert metrics
	AlertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feewatch_alerts_total",
			Help: "Total number of updates that triggered an alert",
		},
	)

	NotifyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feewatch_notify_failures_total",
			Help: "Total number of failed alert deliveries",
		},
		[]string{"channel"},
	)
)

// Server exposes the default registry on /metrics.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer prepares a metrics server bound to addr.
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler returns the HTTP handler serving the metrics endpoints.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves metrics in the background until Shutdown is called.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("metrics server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// Shutdown stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
