package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter publishes controller state as Prometheus metrics on a registry
// of its own.
type Exporter struct {
	registry    *prometheus.Registry
	ticks       *prometheus.CounterVec
	completions *prometheus.CounterVec
	localTime   *prometheus.GaugeVec
	speed       *prometheus.GaugeVec
	iteration   *prometheus.GaugeVec
}

// NewExporter creates an exporter whose metric names start with namespace.
func NewExporter(namespace string) *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := []string{"timeline"}

	return &Exporter{
		registry: reg,
		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "The total number of controller updates",
		}, labels),
		completions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "The total number of completed timelines",
		}, labels),
		localTime: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "local_time_seconds",
			Help:      "The local time handed to the playable on the last update",
		}, labels),
		speed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speed",
			Help:      "The current playback rate",
		}, labels),
		iteration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "iteration",
			Help:      "The iteration progress observed on the last update",
		}, labels),
	}
}

// Observe updates the metrics of the named timeline.
func (e *Exporter) Observe(name string, tick Tick) {
	e.ticks.WithLabelValues(name).Inc()
	if tick.Completed {
		e.completions.WithLabelValues(name).Inc()
	}
	e.localTime.WithLabelValues(name).Set(tick.Local)
	e.speed.WithLabelValues(name).Set(tick.Speed)
	e.iteration.WithLabelValues(name).Set(tick.Iteration)
}

// Registry returns the exporter's registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns the /metrics HTTP handler.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve serves /metrics on addr until ctx is cancelled.
func (e *Exporter) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.LogAttrs(ctx, slog.LevelInfo, "serving metrics", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
