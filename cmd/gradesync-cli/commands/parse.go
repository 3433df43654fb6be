package commands

import (
	"fmt"
	"os"

	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/serviceutil"
	"gradesync-backend/internal/portal"
	"gradesync-backend/internal/portal/gradeparse"

	"github.com/spf13/cobra"
)

var parseSource, parseKind *string

func init() {
	parseSource = parseCmd.Flags().StringP("source", "s", portal.SourceTamo, "The portal whose selector cascade is used.")
	parseKind = parseCmd.Flags().StringP("kind", "k", "grades", "What the page contains: grades, schedule or homework.")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <file.html> [--source <source>] [--kind grades|schedule|homework]",
	Short: "Parses a saved portal page offline and prints what was found.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		contents, err := os.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("read page", err)
		}
		cfg, err := portal.Lookup(*parseSource)
		if err != nil {
			serviceutil.Fatal("unsupported source", err)
		}

		switch *parseKind {
		case "grades":
			renderGrades(gradeparse.Parse(string(contents), cfg.Cascade, chrono.NewStandardTime().Now()))
		case "schedule":
			renderLessons(gradeparse.ParseSchedule(string(contents)))
		case "homework":
			renderAssignments(gradeparse.ParseHomework(string(contents)))
		default:
			serviceutil.Fatal("unknown kind", fmt.Errorf("%q is not one of grades, schedule, homework", *parseKind))
		}
	},
}
