package service

import (
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/scrapers/srm"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

const (
	report_breaker_state = "breaker.state-change"

	DefaultBreakerCooldown = time.Minute
)

// BreakerOptions configure the circuit breaker in front of the portal.
type BreakerOptions struct {
	// Failures is how many consecutive outages open the breaker, 0 disables it.
	Failures uint32
	// Cooldown is how long the breaker stays open before one trial request.
	Cooldown time.Duration
}

// breakerPortal stops calling the portal after it has been unavailable a number of
// times in a row. Only outages count, a wrong password says nothing about the portal.
type breakerPortal struct {
	inner Portal
	cb    *gobreaker.CircuitBreaker
}

func newBreakerPortal(inner Portal, opts BreakerOptions, tel telemetry.API) Portal {
	if opts.Failures == 0 {
		return inner
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultBreakerCooldown
	}

	return breakerPortal{
		inner: inner,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "srm_portal",
			MaxRequests: 1,
			Timeout:     opts.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= opts.Failures
			},
			IsSuccessful: func(err error) bool {
				// a caller giving up is not an outage
				return !errors.Is(err, srm.ErrPortalUnavailable) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				tel.ReportWarning(report_breaker_state, name, from.String(), to.String())
			},
		}),
	}
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	out, err := cb.Execute(func() (any, error) {
		value, err := fn()
		return value, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %w", srm.ErrPortalUnavailable, err)
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

func (b breakerPortal) FetchAttendance(ctx context.Context, creds srm.Credentials) (srm.Attendance, error) {
	return execute(b.cb, func() (srm.Attendance, error) {
		return b.inner.FetchAttendance(ctx, creds)
	})
}

func (b breakerPortal) FetchTimetable(ctx context.Context, creds srm.Credentials) (srm.Timetable, error) {
	return execute(b.cb, func() (srm.Timetable, error) {
		return b.inner.FetchTimetable(ctx, creds)
	})
}

func (b breakerPortal) ResolveSubjectName(ctx context.Context, creds srm.Credentials, code string) (string, error) {
	return execute(b.cb, func() (string, error) {
		return b.inner.ResolveSubjectName(ctx, creds, code)
	})
}
