package srmtest

import (
	"fmt"
	"html"
	"strings"
)

type Course struct {
	Code       string
	Title      string
	MaxHours   string
	AttHours   string
	Percentage string
}

type Absence struct {
	Date   string
	Hours  string
	Code   string
	Status string
}

func cells(tag string, values ...string) string {
	var out strings.Builder
	out.WriteString("<tr>")
	for _, v := range values {
		fmt.Fprintf(&out, "<%s>%s</%s>", tag, html.EscapeString(v), tag)
	}
	out.WriteString("</tr>\n")
	return out.String()
}

// AttendancePage renders the attendance page with a course table and a summary table
// listing months, in order. A layout table precedes them like on the real page.
func AttendancePage(courses []Course, months []string) string {
	var out strings.Builder
	out.WriteString(`<html><body><table class="layout"><tr><td>Student Portal</td></tr></table>`)

	out.WriteString("<table class=\"table\">\n<thead>")
	out.WriteString(`<tr><th colspan="9">Attendance Details</th></tr>`)
	out.WriteString(cells("th", "Code", "Course Title", "Max. Hours", "Att. Hours", "Absent Hours", "Average %", "OD/ML Percentage", "Percentage"))
	out.WriteString("</thead><tbody>\n")
	for _, c := range courses {
		out.WriteString(cells("td", c.Code, c.Title, c.MaxHours, c.AttHours, "0", c.Percentage, "0", c.Percentage))
	}
	out.WriteString("</tbody></table>\n")

	out.WriteString("<table class=\"table\">\n")
	out.WriteString(cells("th", "Month / Year", "Max. Hours", "Att. Hours"))
	for _, m := range months {
		out.WriteString(cells("td", m, "10", "9"))
	}
	out.WriteString("</table></body></html>")
	return out.String()
}

// AbsencePage renders one month's absence detail table.
func AbsencePage(absences []Absence) string {
	var out strings.Builder
	out.WriteString("<html><body><table class=\"table\">\n")
	out.WriteString(cells("th", "S.No", "Date", "Code", "No. of Hours", "Status"))
	if len(absences) == 0 {
		out.WriteString(`<tr><td colspan="5">No Records Found</td></tr>`)
	}
	for i, a := range absences {
		out.WriteString(cells("td", fmt.Sprint(i+1), a.Date, a.Code, a.Hours, a.Status))
	}
	out.WriteString("</table></body></html>")
	return out.String()
}

// TimetablePage renders a schedule grid, one row per entry of days with cells in slot
// order, and a course list.
func TimetablePage(slots []string, days map[string][]string, order []string, courses []Course) string {
	var out strings.Builder
	out.WriteString("<html><body><table class=\"table\">\n")
	out.WriteString(cells("th", append([]string{"Day Order"}, slots...)...))
	for _, day := range order {
		out.WriteString(cells("td", append([]string{day}, days[day]...)...))
	}
	out.WriteString("</table>\n<table class=\"table\">\n")
	out.WriteString(cells("th", "Code", "Course Title"))
	for _, c := range courses {
		out.WriteString(cells("td", c.Code, c.Title))
	}
	out.WriteString("</table></body></html>")
	return out.String()
}
