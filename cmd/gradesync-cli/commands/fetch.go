package commands

import (
	"fmt"
	"os"

	"gradesync-backend/internal/components/serviceutil"
	"gradesync-backend/internal/credentials"
	"gradesync-backend/internal/portal/gradeparse"
	"gradesync-backend/internal/portal/session"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	fetchUsername, fetchPassword *string
	fetchKind                    *string
)

func init() {
	fetchUsername, fetchPassword = credentialFlags(fetchCmd)
	fetchKind = fetchCmd.Flags().StringP("kind", "k", "grades", "What to fetch: grades, schedule or homework.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <source> --username <username> [--kind grades|schedule|homework]",
	Short: "Logs into a portal and prints the parsed grades, schedule or homework without storing anything.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		adapter, err := a.Adapter(args[0])
		if err != nil {
			serviceutil.Fatal("unsupported source", err)
		}
		username, err := credentials.SanitizeUsername(*fetchUsername)
		if err != nil {
			serviceutil.Fatal("invalid username", err)
		}

		state := session.NewState()
		ok, err := adapter.Login(cmd.Context(), state, username, resolvePassword(*fetchPassword))
		if err != nil {
			serviceutil.Fatal("login failed", err)
		}
		if !ok {
			serviceutil.Fatal("login rejected", fmt.Errorf("%s did not accept the credentials", args[0]))
		}

		switch *fetchKind {
		case "grades":
			grades, err := adapter.FetchGrades(cmd.Context(), state)
			if err != nil {
				serviceutil.Fatal("fetch grades", err)
			}
			renderGrades(grades)
		case "schedule":
			lessons, err := adapter.FetchSchedule(cmd.Context(), state)
			if err != nil {
				serviceutil.Fatal("fetch schedule", err)
			}
			renderLessons(lessons)
		case "homework":
			assignments, err := adapter.FetchHomework(cmd.Context(), state)
			if err != nil {
				serviceutil.Fatal("fetch homework", err)
			}
			renderAssignments(assignments)
		default:
			serviceutil.Fatal("unknown kind", fmt.Errorf("%q is not one of grades, schedule, homework", *fetchKind))
		}
	},
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	return t
}

func renderGrades(grades []gradeparse.Grade) {
	t := newTable()
	t.AppendHeader(table.Row{"Subject", "Grade", "Type", "Date", "Semester", "Teacher", "Comment"})
	for _, g := range grades {
		t.AppendRow(table.Row{g.Subject, g.Value, g.Type, g.Date, g.Semester, g.Teacher, g.Comment})
	}
	t.AppendFooter(table.Row{"", len(grades)})
	t.Render()
}

func renderLessons(lessons []gradeparse.Lesson) {
	t := newTable()
	t.AppendHeader(table.Row{"Day", "Time", "Subject", "Teacher", "Room"})
	for _, l := range lessons {
		t.AppendRow(table.Row{l.Day, l.Time, l.Subject, l.Teacher, l.Room})
	}
	t.Render()
}

func renderAssignments(assignments []gradeparse.Assignment) {
	t := newTable()
	t.AppendHeader(table.Row{"Subject", "Description", "Assigned", "Due"})
	for _, a := range assignments {
		t.AppendRow(table.Row{a.Subject, a.Description, a.Assigned, a.Due})
	}
	t.Render()
}
