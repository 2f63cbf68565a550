package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
)

// NotApplied labels dispatches that returned the input unchanged.
const NotApplied = "none"

// Metrics counts dispatch decisions. The zero value is not usable; call
// NewMetrics.
type Metrics struct {
	registry   *prometheus.Registry
	dispatches *prometheus.CounterVec
}

// NewMetrics returns counters registered on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cyrill",
			Name:      "dispatches_total",
			Help:      "Augmentation dispatches by chosen transformation.",
		}, []string{"transformation", "applied"}),
	}
	m.registry.MustRegister(m.dispatches)
	return m
}

// Observe records d. It matches the signature expected by
// augment.WithObserver.
func (m *Metrics) Observe(d augment.Decision) {
	name := d.Name
	if !d.Applied {
		name = NotApplied
	}
	m.dispatches.WithLabelValues(name, strconv.FormatBool(d.Applied)).Inc()
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return m.serve(ctx, ln)
}

func (m *Metrics) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	klog.Infof("telemetry: serving metrics on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
