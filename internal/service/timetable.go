package service

import (
	"attendance-backend/internal/scrapers/srm"
	"attendance-backend/internal/timetable"
	"context"
	"errors"
	"time"
)

type timetableFetcher struct {
	service *Service
}

func (f timetableFetcher) FetchTimetable(ctx context.Context) (srm.Timetable, error) {
	ctx, cancel := context.WithTimeout(ctx, f.service.timeout)
	defer cancel()

	tt, err := f.service.portal.FetchTimetable(ctx, f.service.creds)
	if err != nil {
		f.service.tel.ReportWarning(report_service_fetch_timetable, err)
		return srm.Timetable{}, err
	}
	return tt, nil
}

// InitTimetable fills the timetable cache from disk or from the portal, retrying
// every interval while the portal is unavailable.
func (s *Service) InitTimetable(ctx context.Context, interval time.Duration) error {
	return s.cache.Init(ctx, interval)
}

// FetchTimetable returns the cached timetable, fetching it first when refresh is set
// or nothing is cached. Slots carry the stored alias of their subject.
func (s *Service) FetchTimetable(ctx context.Context, refresh bool) (srm.Timetable, error) {
	var tt srm.Timetable
	var err error
	if !refresh {
		tt, err = s.cache.Get()
	}
	if refresh || errors.Is(err, timetable.ErrNotLoaded) {
		tt, err = s.cache.Refresh(ctx)
	}
	if err != nil {
		return srm.Timetable{}, err
	}

	aliases, err := s.subjects.Aliases(ctx)
	if err != nil {
		s.tel.ReportBroken(report_service_fetch_timetable, err)
		return srm.Timetable{}, err
	}
	return withAliases(tt, aliases), nil
}

// withAliases returns a copy of tt with aliases set, the cached value is shared and
// must not be modified.
func withAliases(tt srm.Timetable, aliases map[string]string) srm.Timetable {
	days := make([]srm.TimetableDay, len(tt.Days))
	for i, day := range tt.Days {
		slots := make([]srm.Slot, len(day.Slots))
		for j, slot := range day.Slots {
			slot.Alias = aliases[slot.SubjectCode]
			slots[j] = slot
		}
		days[i] = srm.TimetableDay{Day: day.Day, Slots: slots}
	}
	return srm.Timetable{Days: days, Courses: tt.Courses}
}
