package srm

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_attendance_page    = "session.attendance-page"
	report_attendance_period  = "session.fetch-period"
	report_attendance_periods = "attendance.periods"
)

// page posts to a report page and parses the response. Anything but 200 means the
// session was not accepted, the portal redirects expired sessions to the login page.
func (s *Session) page(ctx context.Context, endpoint string, form map[string]string) (*goquery.Document, error) {
	if err := s.requireAuthenticated(); err != nil {
		return nil, err
	}

	res, err := s.Request(ctx, http.MethodPost, endpoint, form)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: %s responded %s", ErrPortalUnavailable, endpoint, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParseFailure, endpoint, err)
	}
	return doc, nil
}

// AttendancePage fetches and parses the course-wise attendance page.
func (s *Session) AttendancePage(ctx context.Context) ([]AttendanceRecord, []SummaryRow, error) {
	doc, err := s.page(ctx, attendancePath, nil)
	if err != nil {
		return nil, nil, err
	}
	records, summary, err := ParseAttendancePage(doc)
	if err != nil {
		s.tel.ReportBroken(report_attendance_page, err)
		return nil, nil, err
	}
	return records, summary, nil
}

// FetchPeriod fetches and parses the absence details of one month.
func (s *Session) FetchPeriod(ctx context.Context, period PeriodKey) ([]AbsenceRecord, error) {
	doc, err := s.page(ctx, monthlyAbsencesPath, map[string]string{
		"ids":             "1",
		"attendanceMonth": strconv.Itoa(int(period.Month)),
		"attendanceYear":  strconv.Itoa(period.Year),
	})
	if err != nil {
		return nil, err
	}
	records, err := ParseAbsences(doc, period)
	if err != nil {
		s.tel.ReportBroken(report_attendance_period, err, period.String())
		return nil, err
	}
	s.tel.ReportDebug(report_attendance_period, period.String(), len(records))
	return records, nil
}

// FetchAttendance reads the course-wise attendance of an authenticated session and the
// absence details of every month listed in its summary table.
func FetchAttendance(ctx context.Context, sess *Session, limit int) (Attendance, error) {
	courses, summary, err := sess.AttendancePage(ctx)
	if err != nil {
		return Attendance{}, err
	}

	periods, err := PeriodsFromSummary(summary)
	if err != nil {
		sess.tel.ReportBroken(report_attendance_page, err)
		return Attendance{}, err
	}
	if len(periods) != len(summary) {
		sess.tel.ReportWarning(report_attendance_periods, "duplicate periods in summary", len(summary), len(periods))
	}

	absences, err := AggregateAbsences(ctx, sess, periods, limit)
	if err != nil {
		sess.tel.ReportBroken(report_attendance_periods, err)
		return Attendance{}, err
	}

	if courses == nil {
		courses = []AttendanceRecord{}
	}
	return Attendance{Courses: courses, Absences: absences}, nil
}
