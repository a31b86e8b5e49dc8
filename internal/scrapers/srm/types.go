package srm

import (
	"fmt"
	"log/slog"
	"time"
)

// Credentials are the portal net id and password of one student.
type Credentials struct {
	Identifier string
	Secret     string
}

func (c Credentials) String() string {
	return fmt.Sprintf("%s:<redacted>", c.Identifier)
}

func (c Credentials) LogValue() slog.Value {
	return slog.StringValue(c.String())
}

// State is the authentication state of a Session.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// PeriodKey identifies one month of absence details.
type PeriodKey struct {
	Month time.Month
	Year  int
}

func (p PeriodKey) String() string {
	return fmt.Sprintf("%s / %04d", monthAbbreviations[p.Month], p.Year)
}

func (p PeriodKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// AttendanceRecord is one row of the course-wise attendance table.
type AttendanceRecord struct {
	SubjectCode   string  `json:"subject_code"`
	SubjectName   string  `json:"subject_name"`
	AttendedHours float64 `json:"attended_hours"`
	TotalHours    float64 `json:"total_hours"`
	Percentage    float64 `json:"percentage"`
}

// AbsenceRecord is one row of a month's absence detail table.
type AbsenceRecord struct {
	Period PeriodKey `json:"period"`
	// SubjectCode is empty when the month table does not break absences down by subject.
	SubjectCode  string    `json:"subject_code,omitempty"`
	Date         time.Time `json:"date"`
	LectureCount int       `json:"lecture_count"`
	Status       string    `json:"status"`
}

// SummaryRow is one row of the cumulative monthly summary table.
type SummaryRow struct {
	Label string
}

// Attendance is the result of one full attendance fetch.
type Attendance struct {
	Courses  []AttendanceRecord
	Absences []AbsenceRecord
}

// Slot is one occupied cell of the timetable grid.
type Slot struct {
	Time        string `json:"time"`
	SubjectCode string `json:"subject_code"`
	Alias       string `json:"alias,omitempty"`
}

// TimetableDay is one row of the timetable grid.
type TimetableDay struct {
	Day   string `json:"day"`
	Slots []Slot `json:"slots"`
}

// Course is one row of the course list below the timetable grid.
type Course struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Timetable is the parsed timetable page.
type Timetable struct {
	Days    []TimetableDay `json:"days"`
	Courses []Course       `json:"courses"`
}

// SubjectName returns the name of the course with the given code.
func (t Timetable) SubjectName(code string) (string, bool) {
	for _, c := range t.Courses {
		if c.Code == code {
			return c.Name, true
		}
	}
	return "", false
}
