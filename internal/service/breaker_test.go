package service

import (
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/scrapers/srm"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

type flakyPortal struct {
	err   atomic.Pointer[error]
	calls atomic.Int64
}

func (f *flakyPortal) fail(err error) {
	f.err.Store(&err)
}

func (f *flakyPortal) result() error {
	f.calls.Add(1)
	if err := f.err.Load(); err != nil {
		return *err
	}
	return nil
}

func (f *flakyPortal) FetchAttendance(context.Context, srm.Credentials) (srm.Attendance, error) {
	return srm.Attendance{}, f.result()
}

func (f *flakyPortal) FetchTimetable(context.Context, srm.Credentials) (srm.Timetable, error) {
	return srm.Timetable{}, f.result()
}

func (f *flakyPortal) ResolveSubjectName(context.Context, srm.Credentials, string) (string, error) {
	err := f.result()
	if err != nil {
		return "", err
	}
	return "Design and Analysis of Algorithms", nil
}

func TestBreakerOpensOnOutages(t *testing.T) {
	tel := telemetry.NewTestAPI(t)
	inner := &flakyPortal{}
	inner.fail(fmt.Errorf("%w: connection refused", srm.ErrPortalUnavailable))
	portal := newBreakerPortal(inner, BreakerOptions{Failures: 3, Cooldown: 50 * time.Millisecond}, tel)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := portal.FetchAttendance(ctx, srm.Credentials{})
		require.True(t, errors.Is(err, srm.ErrPortalUnavailable))
	}
	require.Equal(t, int64(3), inner.calls.Load())

	_, err := portal.FetchTimetable(ctx, srm.Credentials{})
	require.True(t, errors.Is(err, srm.ErrPortalUnavailable))
	require.True(t, errors.Is(err, gobreaker.ErrOpenState))
	require.Equal(t, int64(3), inner.calls.Load(), "an open breaker does not call the portal")
	require.Equal(t, 1, tel.Warnings(report_breaker_state))

	inner.err.Store(nil)
	time.Sleep(80 * time.Millisecond)
	name, err := portal.ResolveSubjectName(ctx, srm.Credentials{}, "21CSC204J")
	require.NoError(t, err)
	require.Equal(t, "Design and Analysis of Algorithms", name)
}

func TestBreakerIgnoresInvalidCredentials(t *testing.T) {
	inner := &flakyPortal{}
	inner.fail(srm.ErrInvalidCredentials)
	portal := newBreakerPortal(inner, BreakerOptions{Failures: 2}, telemetry.NewTestAPI(t))

	for i := 0; i < 5; i++ {
		_, err := portal.FetchAttendance(context.Background(), srm.Credentials{})
		require.True(t, errors.Is(err, srm.ErrInvalidCredentials))
	}
	require.Equal(t, int64(5), inner.calls.Load())
}

func TestBreakerDisabled(t *testing.T) {
	inner := &flakyPortal{}
	require.Same(t, inner, newBreakerPortal(inner, BreakerOptions{}, telemetry.NewTestAPI(t)))
}
