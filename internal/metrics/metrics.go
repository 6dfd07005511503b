// Package metrics exposes prometheus collectors for simulated sensors and
// their publishers.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the simulator collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ReadingsPublished *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
	PublishDuration   *prometheus.HistogramVec
	SensorValue       *prometheus.GaugeVec
	UnitState         *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReadingsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sensorsim",
				Subsystem: "readings",
				Name:      "published_total",
				Help:      "Total number of readings handed to the publisher successfully",
			},
			[]string{"sensor", "topic"},
		),

		PublishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sensorsim",
				Subsystem: "readings",
				Name:      "publish_failures_total",
				Help:      "Total number of failed publishes",
			},
			[]string{"sensor"},
		),

		PublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sensorsim",
				Subsystem: "readings",
				Name:      "publish_duration_seconds",
				Help:      "Time spent in a single publish call",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"sensor"},
		),

		SensorValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sensorsim",
				Subsystem: "sensor",
				Name:      "value",
				Help:      "Last value published by the sensor",
			},
			[]string{"sensor", "units"},
		),

		UnitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sensorsim",
				Subsystem: "unit",
				Name:      "state",
				Help:      "Execution unit state (0=created, 1=running, 2=terminated)",
			},
			[]string{"sensor"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.ReadingsPublished,
			m.PublishFailures,
			m.PublishDuration,
			m.SensorValue,
			m.UnitState,
		)
	}
	return m
}

func (m *Metrics) Published(sensor, topic, units string, value float64, took time.Duration) {
	if m == nil {
		return
	}
	m.ReadingsPublished.WithLabelValues(sensor, topic).Inc()
	m.PublishDuration.WithLabelValues(sensor).Observe(took.Seconds())
	m.SensorValue.WithLabelValues(sensor, units).Set(value)
}

func (m *Metrics) Failed(sensor string) {
	if m == nil {
		return
	}
	m.PublishFailures.WithLabelValues(sensor).Inc()
}

func (m *Metrics) State(sensor string, state int) {
	if m == nil {
		return
	}
	m.UnitState.WithLabelValues(sensor).Set(float64(state))
}

// Serve exposes the registry on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
