package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/clientbuild"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal       metric.Int64Counter
	BuildErrorsTotal  metric.Int64Counter
	BuildDuration     metric.Float64Histogram
	OutputBytes       metric.Int64Counter
	CompressedOutputs metric.Int64Counter

	// Style pipeline metrics
	CSSModulesTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments come from the global meter provider, a no-op until InitTelemetry runs.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	return initMetricsFrom(otel.GetMeterProvider())
}

func initMetricsFrom(provider metric.MeterProvider) *Metrics {
	meter := provider.Meter(meterName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"clientbuild.builds.total",
		metric.WithDescription("Total number of bundler runs"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"clientbuild.builds.errors.total",
		metric.WithDescription("Total number of bundler runs that reported errors"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"clientbuild.builds.duration",
		metric.WithDescription("Duration of bundler runs"),
		metric.WithUnit("ms"),
	)

	m.OutputBytes, _ = meter.Int64Counter(
		"clientbuild.outputs.bytes",
		metric.WithDescription("Total bytes written to the output directory"),
		metric.WithUnit("By"),
	)

	m.CompressedOutputs, _ = meter.Int64Counter(
		"clientbuild.outputs.compressed.total",
		metric.WithDescription("Total number of precompressed output files written"),
		metric.WithUnit("{file}"),
	)

	m.CSSModulesTotal, _ = meter.Int64Counter(
		"clientbuild.css.modules.total",
		metric.WithDescription("Total number of stylesheets run through the style pipeline"),
		metric.WithUnit("{file}"),
	)

	return m
}
