package srm

import (
	"attendance-backend/internal/components/chrono"
	"attendance-backend/pkg/htmltable"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	dataTableSelector = "table.table"

	courseTableIndex  = 0
	summaryTableIndex = 1

	gridTableIndex       = 0
	courseListTableIndex = 1

	defaultAbsenceStatus = "Absent"
)

// rows whose code is one of these are aggregates or leave categories, not subjects
var subjectDenylist = []string{"CL", "Total"}

var (
	codeColumn       = []string{"Code", "Subject Code", "Course Code"}
	nameColumn       = []string{"Course Title", "Description", "Subject Name", "Course Name", "Title"}
	totalColumn      = []string{"Max. Hours", "Total Hours", "Hours Conducted", "Conducted"}
	attendedColumn   = []string{"Att. Hours", "Attended Hours", "Hours Attended", "Attended"}
	percentageColumn = []string{"Percentage", "Total Percentage", "Attendance %", "Average %"}
	periodColumn     = []string{"Month / Year", "Month"}
	dateColumn       = []string{"Date", "Absent Date", "Attendance Date"}
	countColumn      = []string{"No. of Hours", "Hours", "Lecture Count", "No. of Lectures", "Absent Hours", "Hours Absent"}
	statusColumn     = []string{"Status", "Attendance", "Type"}
)

var monthAbbreviations = map[time.Month]string{
	time.January:   "JAN",
	time.February:  "FEB",
	time.March:     "MAR",
	time.April:     "APR",
	time.May:       "MAY",
	time.June:      "JUN",
	time.July:      "JUL",
	time.August:    "AUG",
	time.September: "SEP",
	time.October:   "OCT",
	time.November:  "NOV",
	time.December:  "DEC",
}

var monthsByAbbreviation = func() map[string]time.Month {
	out := make(map[string]time.Month, len(monthAbbreviations))
	for month, abbr := range monthAbbreviations {
		out[abbr] = month
	}
	return out
}()

var absenceDateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"02-Jan-2006",
	"02 Jan 2006",
	"02-Jan-06",
	"2-1-2006",
}

var placeholderRow = regexp.MustCompile(`(?i)^no (records?|data)`)

func parseFailure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParseFailure, fmt.Sprintf(format, args...))
}

func findTable(doc *goquery.Document, selector string, index int) (htmltable.Table, error) {
	table, err := htmltable.Find(doc, selector, index)
	if err != nil {
		return htmltable.Table{}, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}
	return table, nil
}

func column(table htmltable.Table, names []string) (int, error) {
	idx, err := table.Column(names...)
	if err != nil {
		return -1, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}
	return idx, nil
}

func denylisted(code string) bool {
	for _, denied := range subjectDenylist {
		if strings.EqualFold(code, denied) {
			return true
		}
	}
	return false
}

func parseNumber(raw, columnName string, row int) (float64, error) {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, parseFailure("row %d: %s '%s' is not a number", row, columnName, raw)
	}
	return value, nil
}

// ParseAttendancePage reads the course-wise attendance table and the monthly
// summary table of the attendance page.
func ParseAttendancePage(doc *goquery.Document) ([]AttendanceRecord, []SummaryRow, error) {
	courses, err := findTable(doc, dataTableSelector, courseTableIndex)
	if err != nil {
		return nil, nil, err
	}
	records, err := parseCourses(courses)
	if err != nil {
		return nil, nil, err
	}

	summary, err := findTable(doc, dataTableSelector, summaryTableIndex)
	if err != nil {
		return nil, nil, err
	}
	rows, err := parseSummary(summary)
	if err != nil {
		return nil, nil, err
	}
	return records, rows, nil
}

func parseCourses(table htmltable.Table) ([]AttendanceRecord, error) {
	codeIdx, err := column(table, codeColumn)
	if err != nil {
		return nil, err
	}
	nameIdx, err := column(table, nameColumn)
	if err != nil {
		return nil, err
	}
	totalIdx, err := column(table, totalColumn)
	if err != nil {
		return nil, err
	}
	attendedIdx, err := column(table, attendedColumn)
	if err != nil {
		return nil, err
	}
	percentageIdx, err := column(table, percentageColumn)
	if err != nil {
		return nil, err
	}

	var records []AttendanceRecord
	for i, row := range table.Rows {
		code := row.Get(codeIdx)
		if code == "" || denylisted(code) {
			continue
		}

		total, err := parseNumber(row.Get(totalIdx), "total hours", i)
		if err != nil {
			return nil, err
		}
		attended, err := parseNumber(row.Get(attendedIdx), "attended hours", i)
		if err != nil {
			return nil, err
		}
		percentage, err := parseNumber(row.Get(percentageIdx), "percentage", i)
		if err != nil {
			return nil, err
		}
		if percentage < 0 || percentage > 100 {
			return nil, parseFailure("row %d: percentage %v of %s is outside [0, 100]", i, percentage, code)
		}

		records = append(records, AttendanceRecord{
			SubjectCode:   code,
			SubjectName:   row.Get(nameIdx),
			AttendedHours: attended,
			TotalHours:    total,
			Percentage:    percentage,
		})
	}
	return records, nil
}

func parseSummary(table htmltable.Table) ([]SummaryRow, error) {
	periodIdx, err := column(table, periodColumn)
	if err != nil {
		return nil, err
	}

	var rows []SummaryRow
	for _, row := range table.Rows {
		label := row.Get(periodIdx)
		if label == "" || denylisted(label) {
			continue
		}
		rows = append(rows, SummaryRow{Label: label})
	}
	return rows, nil
}

// ParsePeriod reads a "JAN / 2024" style label, the month is matched on its first
// three letters regardless of case.
func ParsePeriod(label string) (PeriodKey, error) {
	monthPart, yearPart, ok := strings.Cut(label, "/")
	if !ok {
		return PeriodKey{}, parseFailure("period '%s' has no separator", label)
	}
	monthPart = strings.ToUpper(strings.TrimSpace(monthPart))
	if len(monthPart) < 3 {
		return PeriodKey{}, parseFailure("period '%s' has no month", label)
	}
	month, ok := monthsByAbbreviation[monthPart[:3]]
	if !ok {
		return PeriodKey{}, parseFailure("period '%s' has unknown month '%s'", label, monthPart)
	}
	year, err := strconv.Atoi(strings.TrimSpace(yearPart))
	if err != nil || year < 1000 || year > 9999 {
		return PeriodKey{}, parseFailure("period '%s' has invalid year", label)
	}
	return PeriodKey{Month: month, Year: year}, nil
}

// PeriodsFromSummary derives one PeriodKey per summary row in table order. A period
// listed more than once is kept at its first position only.
func PeriodsFromSummary(rows []SummaryRow) ([]PeriodKey, error) {
	seen := make(map[PeriodKey]struct{}, len(rows))
	periods := make([]PeriodKey, 0, len(rows))
	for _, row := range rows {
		period, err := ParsePeriod(row.Label)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[period]; dup {
			continue
		}
		seen[period] = struct{}{}
		periods = append(periods, period)
	}
	return periods, nil
}

func parseAbsenceDate(raw string) (time.Time, error) {
	for _, layout := range absenceDateLayouts {
		date, err := time.ParseInLocation(layout, raw, chrono.IST())
		if err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown date format '%s'", raw)
}

// ParseAbsences reads the absence table of one month's detail page.
func ParseAbsences(doc *goquery.Document, period PeriodKey) ([]AbsenceRecord, error) {
	selector := dataTableSelector
	if doc.Find(selector).Length() == 0 {
		selector = "table"
	}
	table, err := findTable(doc, selector, 0)
	if err != nil {
		return nil, err
	}

	dateIdx, err := column(table, dateColumn)
	if err != nil {
		return nil, err
	}
	countIdx, err := column(table, countColumn)
	if err != nil {
		return nil, err
	}
	codeIdx := table.OptionalColumn(codeColumn...)
	statusIdx := table.OptionalColumn(statusColumn...)

	var records []AbsenceRecord
	for i, row := range table.Rows {
		rawDate := row.Get(dateIdx)
		if placeholderRow.MatchString(rawDate) || (len(row) == 1 && placeholderRow.MatchString(row.Get(0))) {
			continue
		}

		date, err := parseAbsenceDate(rawDate)
		if err != nil {
			return nil, parseFailure("%s row %d: %s", period, i, err)
		}
		count, err := parseNumber(row.Get(countIdx), "lecture count", i)
		if err != nil {
			return nil, err
		}
		if count < 0 || count != math.Trunc(count) {
			return nil, parseFailure("%s row %d: lecture count %v is not a whole number", period, i, count)
		}

		status := row.Get(statusIdx)
		if status == "" {
			status = defaultAbsenceStatus
		}
		records = append(records, AbsenceRecord{
			Period:       period,
			SubjectCode:  row.Get(codeIdx),
			Date:         date,
			LectureCount: int(count),
			Status:       status,
		})
	}
	return records, nil
}

// ParseTimetablePage reads the schedule grid and the course list of the timetable page.
func ParseTimetablePage(doc *goquery.Document) (Timetable, error) {
	grid, err := findTable(doc, dataTableSelector, gridTableIndex)
	if err != nil {
		return Timetable{}, err
	}
	if len(grid.Headers) < 2 {
		return Timetable{}, parseFailure("timetable grid has %d columns", len(grid.Headers))
	}

	var days []TimetableDay
	for _, row := range grid.Rows {
		day := TimetableDay{Day: row.Get(0), Slots: []Slot{}}
		if day.Day == "" {
			continue
		}
		for col := 1; col < len(grid.Headers); col++ {
			code := row.Get(col)
			if code == "" || code == "-" {
				continue
			}
			day.Slots = append(day.Slots, Slot{
				Time:        grid.Headers[col],
				SubjectCode: code,
			})
		}
		days = append(days, day)
	}

	list, err := findTable(doc, dataTableSelector, courseListTableIndex)
	if err != nil {
		return Timetable{}, err
	}
	codeIdx, err := column(list, codeColumn)
	if err != nil {
		return Timetable{}, err
	}
	nameIdx, err := column(list, nameColumn)
	if err != nil {
		return Timetable{}, err
	}

	var courses []Course
	for _, row := range list.Rows {
		code := row.Get(codeIdx)
		if code == "" || denylisted(code) {
			continue
		}
		courses = append(courses, Course{Code: code, Name: row.Get(nameIdx)})
	}

	return Timetable{Days: days, Courses: courses}, nil
}
