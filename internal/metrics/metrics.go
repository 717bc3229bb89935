package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	IntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "transfer_intents_total", Help: "Transfer intents handed to the batch submitter"},
		[]string{"network"},
	)
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "transfer_events_total", Help: "Lifecycle events observed per kind"},
		[]string{"kind"},
	)
	ConfirmSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transfer_confirm_seconds",
			Help:    "Time from submission response to committed outcome",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(IntentsTotal, EventsTotal, ConfirmSeconds)
}

// Serve binds addr and exposes /metrics on it in the background. A bind
// failure is returned; later serve errors are logged. srv.Addr holds the
// bound address.
func Serve(addr string, log zerolog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("metrics server stopped")
		}
	}()
	return srv, nil
}
