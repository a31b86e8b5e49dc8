package srm

import (
	"context"
	"fmt"
)

const report_timetable_page = "session.timetable"

// Timetable fetches and parses the timetable page.
func (s *Session) Timetable(ctx context.Context) (Timetable, error) {
	doc, err := s.page(ctx, timetablePath, nil)
	if err != nil {
		return Timetable{}, err
	}
	timetable, err := ParseTimetablePage(doc)
	if err != nil {
		s.tel.ReportBroken(report_timetable_page, err)
		return Timetable{}, err
	}
	return timetable, nil
}

// ResolveSubjectName looks up a subject's name in the course list of the timetable page.
func (s *Session) ResolveSubjectName(ctx context.Context, code string) (string, error) {
	timetable, err := s.Timetable(ctx)
	if err != nil {
		return "", err
	}
	name, ok := timetable.SubjectName(code)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSubjectNotFound, code)
	}
	return name, nil
}
