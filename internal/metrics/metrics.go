// Package metrics exposes the latest reading as Prometheus gauges.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/allbin/cleanroom/reading"
)

// Exporter is a recorder sink that mirrors each reading into gauges. Fields
// that are absent in a reading keep their previous value.
type Exporter struct {
	registry *prometheus.Registry

	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	pressure    prometheus.Gauge
	particles   *prometheus.GaugeVec
	isoClass    prometheus.Gauge
	cycles      prometheus.Counter
	lastReading prometheus.Gauge
}

// NewExporter registers the cleanroom metrics, plus Go runtime and build
// info collectors, on a fresh registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cleanroom_temperature_celsius",
			Help: "Air temperature (units: degrees Celsius)",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cleanroom_humidity_percent",
			Help: "Relative humidity (units: %)",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cleanroom_pressure_pascal",
			Help: "Barometric pressure (units: Pa)",
		}),
		particles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cleanroom_particles",
			Help: "Particle count above the labelled size",
		}, []string{"size"}),
		isoClass: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cleanroom_iso_class",
			Help: "ISO 14644-1 class of the last cycle",
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cleanroom_cycles_total",
			Help: "Sampling cycles recorded",
		}),
		lastReading: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cleanroom_last_reading_timestamp_seconds",
			Help: "Unix time of the last reading",
		}),
	}

	e.registry.MustRegister(
		e.temperature,
		e.humidity,
		e.pressure,
		e.particles,
		e.isoClass,
		e.cycles,
		e.lastReading,
		collectors.NewGoCollector(),
		collectors.NewBuildInfoCollector(),
	)
	return e
}

// Record implements the recorder sink interface
func (e *Exporter) Record(_ context.Context, r reading.Reading) error {
	e.cycles.Inc()
	e.lastReading.Set(float64(r.Time.Unix()))
	e.isoClass.Set(float64(r.ISO))

	if v, ok := r.Temperature.Get(); ok {
		e.temperature.Set(v)
	}
	if v, ok := r.Humidity.Get(); ok {
		e.humidity.Set(v)
	}
	if v, ok := r.Pressure.Get(); ok {
		e.pressure.Set(float64(v))
	}
	if v, ok := r.Count05.Get(); ok {
		e.particles.WithLabelValues("0.5um").Set(v)
	}
	if v, ok := r.Count25.Get(); ok {
		e.particles.WithLabelValues("2.5um").Set(v)
	}
	return nil
}

// Registry returns the registry the metrics live on
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
