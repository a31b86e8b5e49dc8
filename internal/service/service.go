// Package service is the attendance engine: portal fetches, the timetable cache,
// subject aliases, and reconciliation of stored attendance.
package service

import (
	"attendance-backend/internal/components/assert"
	"attendance-backend/internal/components/chrono"
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/db"
	"attendance-backend/internal/notify"
	"attendance-backend/internal/reconcile"
	"attendance-backend/internal/scrapers/srm"
	"attendance-backend/internal/secrets"
	"attendance-backend/internal/subjects"
	"attendance-backend/internal/timetable"
	"context"
	"time"
)

const (
	report_service_fetch_attendance = "service.fetch-attendance"
	report_service_fetch_timetable  = "service.fetch-timetable"
	report_service_resolve_name     = "service.resolve-subject-name"

	DefaultFetchTimeout = 2 * time.Minute
)

// Portal performs operations on freshly authenticated portal sessions.
//
// note: fault injection point
type Portal interface {
	FetchAttendance(ctx context.Context, creds srm.Credentials) (srm.Attendance, error)
	FetchTimetable(ctx context.Context, creds srm.Credentials) (srm.Timetable, error)
	ResolveSubjectName(ctx context.Context, creds srm.Credentials, code string) (string, error)
}

type Options struct {
	// Credentials of the account used for attendance, timetable and subject lookups.
	Credentials srm.Credentials
	// FetchTimeout bounds one portal operation, login included.
	FetchTimeout time.Duration
	// TimetableCache is the file the timetable is cached in.
	TimetableCache string
	Sinks          []notify.Sink
	Breaker        BreakerOptions
	// Sealer seals the portal passwords of stored users.
	Sealer secrets.Sealer
}

type Service struct {
	portal  Portal
	creds   srm.Credentials
	timeout time.Duration

	qry        *db.Queries
	makeTx     db.MakeTx
	sealer     secrets.Sealer
	subjects   subjects.Service
	reconciler reconcile.Reconciler
	dispatcher notify.Dispatcher
	cache      *timetable.Cache

	tel telemetry.API
}

func New(portal Portal, qry *db.Queries, makeTx db.MakeTx, opts Options, timeAPI chrono.TimeAPI, tel telemetry.API) *Service {
	assert.NotNil(portal, "portal")
	assert.NotNil(qry, "qry")
	assert.NotNil(makeTx, "makeTx")
	assert.NotEmptyStr(opts.TimetableCache, "timetable cache")
	assert.NotNil(timeAPI, "time")
	assert.NotNil(tel, "tel")

	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	scoped := telemetry.NewScopedAPI("service", tel)
	s := &Service{
		portal:     newBreakerPortal(portal, opts.Breaker, scoped),
		creds:      opts.Credentials,
		timeout:    opts.FetchTimeout,
		qry:        qry,
		makeTx:     makeTx,
		sealer:     opts.Sealer,
		reconciler: reconcile.NewReconciler(makeTx, timeAPI, tel),
		dispatcher: notify.NewDispatcher(qry, opts.Sinks, timeAPI, tel),
		tel:        scoped,
	}
	s.subjects = subjects.NewService(qry, nameResolver{service: s}, tel)
	s.cache = timetable.NewCache(opts.TimetableCache, timetableFetcher{service: s}, tel)
	return s
}

func (s *Service) Subjects() subjects.Service {
	return s.subjects
}

// FetchAttendance fetches the course-wise attendance and monthly absences of the
// configured account.
func (s *Service) FetchAttendance(ctx context.Context) (srm.Attendance, error) {
	return s.FetchAttendanceFor(ctx, s.creds)
}

func (s *Service) FetchAttendanceFor(ctx context.Context, creds srm.Credentials) (srm.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	attendance, err := s.portal.FetchAttendance(ctx, creds)
	if err != nil {
		s.tel.ReportWarning(report_service_fetch_attendance, creds, err)
		return srm.Attendance{}, err
	}
	return attendance, nil
}

// ResolveSubjectName looks up a subject name on the portal.
func (s *Service) ResolveSubjectName(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	name, err := s.portal.ResolveSubjectName(ctx, s.creds, code)
	if err != nil {
		s.tel.ReportWarning(report_service_resolve_name, code, err)
		return "", err
	}
	return name, nil
}

type nameResolver struct {
	service *Service
}

func (r nameResolver) ResolveSubjectName(ctx context.Context, code string) (string, error) {
	return r.service.ResolveSubjectName(ctx, code)
}
