package srm

import (
	"attendance-backend/internal/components/assert"
	"attendance-backend/internal/components/telemetry"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	report_login_attempt       = "authenticator.login"
	report_login_captcha       = "authenticator.captcha"
	report_login_rejected      = "authenticator.captcha-rejected"
	report_login_invalid_creds = "authenticator.invalid-credentials"
	report_login_unexpected    = "authenticator.unexpected-status"
	report_login_exhausted     = "authenticator.attempts-exhausted"
	report_login_ok            = "authenticator.authenticated"
)

const (
	invalidCredentialsMarker = "Login Error : Invalid net id or password"
	captchaRejectedMarker    = "Invalid Captcha...."
	expectedLoginStatus      = http.StatusFound

	DefaultMaxCaptchaAttempts = 5
)

// CaptchaSolver turns a captcha image into its text.
//
// note: fault injection point
type CaptchaSolver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// Authenticator drives the login handshake of a Session.
type Authenticator struct {
	solver      CaptchaSolver
	maxAttempts int
	tel         telemetry.API
}

// NewAuthenticator returns an Authenticator that gives up after maxAttempts rejected
// captchas, maxAttempts <= 0 means DefaultMaxCaptchaAttempts.
func NewAuthenticator(solver CaptchaSolver, maxAttempts int, tel telemetry.API) Authenticator {
	assert.NotNil(solver, "solver")
	assert.NotNil(tel, "tel")

	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxCaptchaAttempts
	}
	return Authenticator{
		solver:      solver,
		maxAttempts: maxAttempts,
		tel:         telemetry.NewScopedAPI("srm_scraper", tel),
	}
}

type loginOutcome int

const (
	outcomeAuthenticated loginOutcome = iota
	outcomeCaptchaRejected
	outcomeInvalidCredentials
	outcomeUnavailable
)

// classifyLogin decides what a login response means. Markers take precedence over
// the status code.
func classifyLogin(status int, body string) loginOutcome {
	if strings.Contains(body, invalidCredentialsMarker) {
		return outcomeInvalidCredentials
	}
	if strings.Contains(body, captchaRejectedMarker) {
		return outcomeCaptchaRejected
	}
	if status != expectedLoginStatus {
		return outcomeUnavailable
	}
	return outcomeAuthenticated
}

// Login authenticates sess with creds. Every attempt fetches the login page and a
// new captcha, a stale captcha is never resubmitted. On failure the session is
// left in StateFailed.
func (a Authenticator) Login(ctx context.Context, sess *Session, creds Credentials) error {
	err := a.login(ctx, sess, creds)
	if err != nil {
		sess.setState(StateFailed)
		return err
	}
	sess.setState(StateAuthenticated)
	a.tel.ReportDebug(report_login_ok, creds)
	return nil
}

func (a Authenticator) login(ctx context.Context, sess *Session, creds Credentials) error {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		a.tel.ReportDebug(report_login_attempt, creds, attempt)

		outcome, err := a.attempt(ctx, sess, creds)
		if err != nil {
			return err
		}

		switch outcome {
		case outcomeAuthenticated:
			return nil
		case outcomeInvalidCredentials:
			a.tel.ReportWarning(report_login_invalid_creds, creds)
			return ErrInvalidCredentials
		case outcomeUnavailable:
			return fmt.Errorf("%w: login did not redirect", ErrPortalUnavailable)
		case outcomeCaptchaRejected:
			a.tel.ReportDebug(report_login_rejected, creds, attempt)
		}
	}

	a.tel.ReportWarning(report_login_exhausted, creds, a.maxAttempts)
	return fmt.Errorf("%w: captcha rejected %d times", ErrPortalUnavailable, a.maxAttempts)
}

func (a Authenticator) attempt(ctx context.Context, sess *Session, creds Credentials) (loginOutcome, error) {
	// initial cookies
	_, err := sess.Request(ctx, http.MethodGet, loginPath, nil)
	if err != nil {
		return 0, err
	}

	res, err := sess.Request(ctx, http.MethodGet, captchaPath, nil)
	if err != nil {
		return 0, err
	}
	if res.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("%w: captcha responded %s", ErrPortalUnavailable, res.Status())
	}

	guess, err := a.solver.Solve(ctx, res.Body())
	if err != nil {
		a.tel.ReportWarning(report_login_captcha, err)
		if !errors.Is(err, ErrCaptchaUnavailable) {
			err = fmt.Errorf("%w: %w", ErrCaptchaUnavailable, err)
		}
		return 0, err
	}

	res, err = sess.Request(ctx, http.MethodPost, loginPath, map[string]string{
		"txtPageAction": "1",
		"txtAN":         creds.Identifier,
		"txtSK":         creds.Secret,
		"hdnCaptcha":    guess,
	})
	if err != nil {
		return 0, err
	}

	outcome := classifyLogin(res.StatusCode(), res.String())
	if outcome == outcomeUnavailable {
		a.tel.ReportWarning(report_login_unexpected, res.StatusCode())
	}
	return outcome, nil
}
