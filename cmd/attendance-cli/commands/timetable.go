package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var refreshTimetable bool

func init() {
	timetableCmd.Flags().BoolVar(&refreshTimetable, "refresh", false, "Fetch the timetable from the portal instead of the cache.")
	rootCmd.AddCommand(timetableCmd)
}

var timetableCmd = &cobra.Command{
	Use:   "timetable [--refresh]",
	Short: "Prints the timetable, slots show subject aliases where one is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tt, err := application.Service.FetchTimetable(cmd.Context(), refreshTimetable)
		if err != nil {
			return err
		}

		grid := newTable(table.Row{"Day", "Time", "Subject"})
		for _, day := range tt.Days {
			for _, slot := range day.Slots {
				subject := slot.SubjectCode
				if slot.Alias != "" {
					subject = slot.Alias
				}
				grid.AppendRow(table.Row{day.Day, slot.Time, subject})
			}
			grid.AppendSeparator()
		}
		grid.Render()

		courses := newTable(table.Row{"Code", "Subject"})
		for _, c := range tt.Courses {
			courses.AppendRow(table.Row{c.Code, c.Name})
		}
		courses.Render()
		return nil
	},
}
