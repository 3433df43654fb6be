package commands

import (
	"gradesync-backend/internal/components/serviceutil"
	"gradesync-backend/internal/gradestore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var gradesSource *string

func init() {
	gradesSource = gradesCmd.Flags().StringP("source", "s", "", "Only print grades of this source.")
	rootCmd.AddCommand(gradesCmd)
}

var gradesCmd = &cobra.Command{
	Use:   "grades <user-id> [--source <source>]",
	Short: "Prints the stored grades of a user.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		var (
			grades []gradestore.Stored
			err    error
		)
		if *gradesSource != "" {
			grades, err = a.Grades.Get(cmd.Context(), args[0], *gradesSource)
		} else {
			grades, err = a.Grades.GetAll(cmd.Context(), args[0])
		}
		if err != nil {
			serviceutil.Fatal("read grades", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Source", "Subject", "Grade", "Type", "Date", "Semester", "Teacher", "Synced"})
		for _, g := range grades {
			t.AppendRow(table.Row{
				g.Source, g.Subject, g.Value, g.Type, g.Date, g.Semester, g.Teacher,
				g.SyncedAt.Format("2006-01-02 15:04"),
			})
		}
		t.AppendFooter(table.Row{"", "", len(grades)})
		t.Render()
	},
}
