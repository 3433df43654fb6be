package commands

import (
	"fmt"
	"time"

	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/serviceutil"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/notify"
	"gradesync-backend/internal/runner"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var syncNotify *bool

func init() {
	syncNotify = syncAllCmd.Flags().Bool("notify", false, "Email the report to the configured recipients.")
	rootCmd.AddCommand(syncAllCmd)
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all [--notify]",
	Short: "Runs the scheduled sync once for every saved credential and prints the report.",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		var notifier runner.Notifier
		if *syncNotify {
			notifier = notify.NewMailer(a.Config.Notify)
		}
		opts, err := a.Config.Sync.RunnerOptions(notifier)
		if err != nil {
			serviceutil.Fatal("read sync config", err)
		}

		r := runner.NewRunner(a.Credentials.Service(), a.Service, telemetry.SlogAPI{}, chrono.NewStandardTime(), opts)
		report := r.Run(cmd.Context())
		renderReport(report)
	},
}

func renderReport(report runner.Report) {
	fmt.Println(notify.Subject(report))
	if report.Error != "" {
		fmt.Println(report.Error)
		return
	}

	t := newTable()
	t.AppendHeader(table.Row{"User", "Source", "Outcome", "Reason", "Grades", "Took"})
	for _, r := range report.Results {
		outcome := "failed"
		switch {
		case r.Skipped:
			outcome = "skipped"
		case r.Success:
			outcome = "ok"
		}
		t.AppendRow(table.Row{r.UserID, r.Source, outcome, r.Reason, r.GradesCount, r.Duration.Round(time.Millisecond)})
	}
	t.Render()
}
