package srm

import (
	"attendance-backend/internal/components/assert"
	"attendance-backend/internal/components/telemetry"
	"context"
)

const report_portal_session = "portal.with-session"

// Portal creates freshly authenticated sessions, one per operation.
type Portal struct {
	options SessionOptions
	auth    Authenticator
	limit   int
	tel     telemetry.API
}

// NewPortal returns a Portal whose attendance fetches run at most periodLimit monthly
// requests at once, periodLimit <= 0 means no limit.
func NewPortal(options SessionOptions, auth Authenticator, periodLimit int, tel telemetry.API) Portal {
	assert.NotNil(tel, "tel")
	assert.NotNil(auth.solver, "auth")

	return Portal{
		options: options,
		auth:    auth,
		limit:   periodLimit,
		tel:     tel,
	}
}

// WithSession opens a session, logs in with creds and calls fn with it. The session is
// closed on every return path.
func (p Portal) WithSession(ctx context.Context, creds Credentials, fn func(sess *Session) error) error {
	sess, err := Open(p.options, p.tel)
	if err != nil {
		return err
	}
	defer sess.Close()

	err = p.auth.Login(ctx, sess, creds)
	if err != nil {
		return err
	}
	err = fn(sess)
	if err != nil {
		sess.tel.ReportDebug(report_portal_session, creds, err)
	}
	return err
}

func (p Portal) FetchAttendance(ctx context.Context, creds Credentials) (Attendance, error) {
	var out Attendance
	err := p.WithSession(ctx, creds, func(sess *Session) error {
		var err error
		out, err = FetchAttendance(ctx, sess, p.limit)
		return err
	})
	return out, err
}

func (p Portal) FetchTimetable(ctx context.Context, creds Credentials) (Timetable, error) {
	var out Timetable
	err := p.WithSession(ctx, creds, func(sess *Session) error {
		var err error
		out, err = sess.Timetable(ctx)
		return err
	})
	return out, err
}

func (p Portal) ResolveSubjectName(ctx context.Context, creds Credentials, code string) (string, error) {
	var out string
	err := p.WithSession(ctx, creds, func(sess *Session) error {
		var err error
		out, err = sess.ResolveSubjectName(ctx, code)
		return err
	})
	return out, err
}
