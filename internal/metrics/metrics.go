// Package metrics exposes watcher counters to Prometheus. Collection is
// off until Register is called; the helpers are no-ops before that.
package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	regOK atomic.Bool

	recordsDrained = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crashwatch",
			Name:      "records_drained_total",
			Help:      "Number of crash records drained from the record source.",
		},
	)
	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crashwatch",
			Name:      "deliveries_total",
			Help:      "Number of payloads handed to an output channel.",
		}, []string{"channel"},
	)
	wakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crashwatch",
			Name:      "wakes_total",
			Help:      "Number of wait loop wake-ups by reason.",
		}, []string{"reason"},
	)
)

// Register registers all collectors with r. Calling it again after a
// successful call is a no-op.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	for _, c := range []prometheus.Collector{recordsDrained, deliveries, wakes} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// AddDrained counts records drained during one wake.
func AddDrained(n int) {
	if regOK.Load() && n > 0 {
		recordsDrained.Add(float64(n))
	}
}

// ObserveDelivery counts one payload delivered to channel.
func ObserveDelivery(channel string) {
	if regOK.Load() {
		deliveries.WithLabelValues(channel).Inc()
	}
}

// ObserveWake counts one wake of the wait loop.
func ObserveWake(reason string) {
	if regOK.Load() {
		wakes.WithLabelValues(reason).Inc()
	}
}

// Server serves /metrics for a gatherer.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Serve registers the collectors with the default registry and starts an
// HTTP listener on addr in the background.
func Serve(addr string) (*Server, error) {
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return serve(addr, prometheus.DefaultGatherer)
}

func serve(addr string, g prometheus.Gatherer) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	s := &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	go s.srv.Serve(ln)
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops the listener.
func (s *Server) Close() error {
	return s.srv.Close()
}
