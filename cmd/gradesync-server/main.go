package main

import (
	"flag"
	"log/slog"

	"gradesync-backend/internal/app"
	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/serviceutil"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/httpapi"
	"gradesync-backend/internal/notify"
	"gradesync-backend/internal/runner"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	syncNow := flag.Bool("sync-now", false, "Trigger a sync of every saved credential immediately on run.")
	flag.Parse()

	ctx := serviceutil.SignalContext()
	tel := InitTelemetry(ctx, *verbose)

	cfg, err := app.ReadConfig("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	var output telemetry.MessageOutput
	if *verbose {
		fs, err := telemetry.NewFilesystemOutput(cfg.DumpDir, tel)
		if err != nil {
			serviceutil.Fatal("create dump dir", err)
		}
		output = fs
	}

	clock := chrono.NewStandardTime()
	a, err := app.New(cfg, tel, clock, output)
	if err != nil {
		serviceutil.Fatal("init app", err)
	}
	defer a.Close()

	var notifier runner.Notifier
	if len(cfg.Notify.Recipients) > 0 {
		notifier = notify.NewMailer(cfg.Notify)
	}
	opts, err := cfg.Sync.RunnerOptions(notifier)
	if err != nil {
		serviceutil.Fatal("read sync config", err)
	}
	syncRunner := runner.NewRunner(a.Credentials.Service(), a.Service, tel, clock, opts)

	cron := chrono.NewStandardCron(tel)
	defer cron.Stop()
	if cfg.Sync.Cron != "" {
		err = syncRunner.Schedule(cron, cfg.Sync.Cron)
		if err != nil {
			serviceutil.Fatal("schedule sync", err)
		}
		slog.Info("scheduled sync", "cron", cfg.Sync.Cron)
	}
	if *syncNow {
		go syncRunner.Run(ctx)
	}

	router := httpapi.NewRouter(a.Service, a.Identity, tel)
	serviceutil.StartHttpServer(ctx, cfg.Port, router)
}
