package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// gaugelessMeter refuses to create gauges.
type gaugelessMeter struct {
	noop.Meter
}

func (gaugelessMeter) Int64Gauge(string, ...metric.Int64GaugeOption) (metric.Int64Gauge, error) {
	return nil, errors.New("gauges are not supported")
}

func TestMetricsAPIReportsInstrumentErrors(t *testing.T) {
	rec := NewRecorder()
	api := newMetricsAPI(rec, gaugelessMeter{})

	warnings := rec.Find("warning", "metrics.instrument")
	require.Len(t, warnings, 1)
	require.Equal(t, "gradesync.count", warnings[0].Params[0])

	require.NotPanics(t, func() {
		api.ReportCount("runner.succeeded", 2)
		api.ReportBroken("adapter.login", "boom")
	})
	require.Len(t, rec.Find("count", "runner.succeeded"), 1)
	require.Len(t, rec.Find("broken", "adapter.login"), 1)
}

func TestMetricsAPIForwards(t *testing.T) {
	rec := NewRecorder()
	api := NewMetricsAPI(rec)
	api.ReportWarning("portal.fetch", "slow")
	api.ReportDebug("run finished")

	require.Empty(t, rec.Find("warning", "metrics.instrument"))
	require.Len(t, rec.Find("warning", "portal.fetch"), 1)
	require.Len(t, rec.Find("debug", "run finished"), 1)
}
