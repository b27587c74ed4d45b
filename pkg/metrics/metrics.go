// Package metrics exposes proxy metrics in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records proxy metrics. All methods are safe on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	playersOnline     prometheus.Gauge
	connectionsTotal  *prometheus.CounterVec
	backendConnects   *prometheus.CounterVec
	packetsSuppressed *prometheus.CounterVec
	pingMs            prometheus.Histogram
}

// New returns Metrics registered with a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		playersOnline: f.NewGauge(prometheus.GaugeOpts{
			Name: "xenon_players_online", Help: "Players connected to the proxy"}),
		connectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xenon_connections_total", Help: "Inbound connections by outcome"}, []string{"result"}),
		backendConnects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xenon_backend_connects_total", Help: "Backend connect attempts by server and result"}, []string{"server", "result"}),
		packetsSuppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xenon_packets_suppressed_total", Help: "Packets consumed by the proxy instead of relayed"}, []string{"kind"}),
		pingMs: f.NewHistogram(prometheus.HistogramOpts{
			Name: "xenon_ping_ms", Help: "Player keep-alive round trips in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10)}),
	}
}

// SetPlayersOnline sets the online player gauge.
func (m *Metrics) SetPlayersOnline(n int) {
	if m == nil {
		return
	}
	m.playersOnline.Set(float64(n))
}

// Connection counts an inbound connection outcome (status, login, rejected...).
func (m *Metrics) Connection(result string) {
	if m == nil {
		return
	}
	m.connectionsTotal.WithLabelValues(result).Inc()
}

// BackendConnect counts a backend connect attempt.
func (m *Metrics) BackendConnect(server, result string) {
	if m == nil {
		return
	}
	m.backendConnects.WithLabelValues(server, result).Inc()
}

// PacketSuppressed counts a packet of kind the proxy did not relay.
func (m *Metrics) PacketSuppressed(kind string) {
	if m == nil {
		return
	}
	m.packetsSuppressed.WithLabelValues(kind).Inc()
}

// Ping observes a keep-alive round trip.
func (m *Metrics) Ping(d time.Duration) {
	if m == nil {
		return
	}
	m.pingMs.Observe(float64(d.Milliseconds()))
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve serves /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	log := logr.FromContextOrDiscard(ctx).WithName("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
