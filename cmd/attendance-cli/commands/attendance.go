package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(attendanceCmd)
}

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Prints course-wise attendance and the absences of every month.",
	RunE: func(cmd *cobra.Command, args []string) error {
		attendance, err := application.Service.FetchAttendance(cmd.Context())
		if err != nil {
			return err
		}

		courses := newTable(table.Row{"Code", "Subject", "Attended", "Total", "Percentage"})
		for _, c := range attendance.Courses {
			courses.AppendRow(table.Row{
				c.SubjectCode,
				c.SubjectName,
				c.AttendedHours,
				c.TotalHours,
				fmt.Sprintf("%.2f%%", c.Percentage),
			})
		}
		courses.Render()

		absences := newTable(table.Row{"Month", "Date", "Code", "Hours", "Status"})
		for _, a := range attendance.Absences {
			absences.AppendRow(table.Row{
				a.Period.String(),
				a.Date.Format("02 Jan 2006"),
				a.SubjectCode,
				a.LectureCount,
				a.Status,
			})
		}
		absences.Render()
		return nil
	},
}
