package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MetricsAPI forwards every report to an inner API and additionally
// exports broken/warning counters and count gauges through the global otel
// meter provider.
type MetricsAPI struct {
	inner    API
	broken   metric.Int64Counter
	warnings metric.Int64Counter
	counts   metric.Int64Gauge
}

const report_metrics_instrument = "metrics.instrument"

func NewMetricsAPI(inner API) MetricsAPI {
	return newMetricsAPI(inner, otel.Meter("gradesync"))
}

// newMetricsAPI reports instruments the meter refuses to inner and keeps a
// noop instrument in their place.
func newMetricsAPI(inner API, meter metric.Meter) MetricsAPI {
	fallback := noop.NewMeterProvider().Meter("gradesync")
	m := MetricsAPI{inner: inner}

	var err error
	m.broken, err = meter.Int64Counter("gradesync.broken")
	if err != nil {
		inner.ReportWarning(report_metrics_instrument, "gradesync.broken", err)
		m.broken, _ = fallback.Int64Counter("gradesync.broken")
	}
	m.warnings, err = meter.Int64Counter("gradesync.warnings")
	if err != nil {
		inner.ReportWarning(report_metrics_instrument, "gradesync.warnings", err)
		m.warnings, _ = fallback.Int64Counter("gradesync.warnings")
	}
	m.counts, err = meter.Int64Gauge("gradesync.count")
	if err != nil {
		inner.ReportWarning(report_metrics_instrument, "gradesync.count", err)
		m.counts, _ = fallback.Int64Gauge("gradesync.count")
	}
	return m
}

func (m MetricsAPI) ReportBroken(id string, params ...any) {
	m.inner.ReportBroken(id, params...)
	m.broken.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
}

func (m MetricsAPI) ReportWarning(id string, params ...any) {
	m.inner.ReportWarning(id, params...)
	m.warnings.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
}

func (m MetricsAPI) ReportDebug(msg string, params ...any) {
	m.inner.ReportDebug(msg, params...)
}

func (m MetricsAPI) ReportCount(id string, count int64) {
	m.inner.ReportCount(id, count)
	m.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
}
