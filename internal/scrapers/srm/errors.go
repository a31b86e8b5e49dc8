package srm

import (
	"attendance-backend/internal/captcha"
	"errors"
)

var (
	// ErrInvalidCredentials is terminal, retrying with the same credentials cannot succeed.
	ErrInvalidCredentials = errors.New("invalid net id or password")
	// ErrPortalUnavailable is transient, the caller may retry later.
	ErrPortalUnavailable = errors.New("portal is down or login failed, try again later")
	// ErrCaptchaUnavailable means no captcha guess could be produced for the current attempt.
	ErrCaptchaUnavailable = captcha.ErrUnavailable
	// ErrParseFailure means a page no longer has the structure it is expected to have.
	ErrParseFailure = errors.New("unexpected page structure")
	// ErrAggregationFailure means at least one monthly sub-request failed.
	ErrAggregationFailure = errors.New("monthly attendance aggregation failed")
	// ErrSubjectNotFound means the subject code is not in the student's course list.
	ErrSubjectNotFound = errors.New("subject not found")

	ErrSessionClosed    = errors.New("session closed")
	ErrNotAuthenticated = errors.New("session is not authenticated")
)
