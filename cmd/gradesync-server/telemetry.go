package main

import (
	"context"
	"log/slog"

	"gradesync-backend/internal/components/configutil"
	"gradesync-backend/internal/components/serviceutil"
	"gradesync-backend/internal/components/telemetry"
)

// InitTelemetry installs the slog handler and, when telemetry.json5 exists,
// the OTLP exporters. The returned API also exports every report as a
// metric.
func InitTelemetry(ctx context.Context, verbose bool) telemetry.API {
	telemetry.InitSlog(verbose)
	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	var tel telemetry.API = telemetry.SlogAPI{}

	cfg, err := configutil.ReadConfig[telemetry.Config]("telemetry.json5")
	if err != nil {
		slog.Warn("telemetry.json5 not loaded, otlp export disabled", "err", err)
		return tel
	}
	providers, err := telemetry.Setup(ctx, "gradesync-server", cfg)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		providers.Shutdown(context.Background())
	}()

	tel = telemetry.NewMetricsAPI(tel)
	telemetry.InstrumentPerfStats(ctx, tel)
	return tel
}
