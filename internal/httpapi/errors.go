package httpapi

import (
	"attendance-backend/internal/scrapers/srm"
	"attendance-backend/internal/service"
	"attendance-backend/internal/subjects"
	"attendance-backend/internal/timetable"
	"errors"
	"net/http"
)

const (
	detailInvalidCredentials = "Invalid Username or Password"
	detailUnavailable        = "SRM Student Portal is Down or Login Failed. Try Again Later."
	detailInternal           = "The portal returned data that could not be read."
)

// statusOf maps an engine error to a status code and the detail shown to the caller.
// Parse and aggregation failures are checked first, an aggregation failure may wrap
// a transport failure of one period.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, srm.ErrInvalidCredentials):
		return http.StatusUnauthorized, detailInvalidCredentials
	case errors.Is(err, srm.ErrParseFailure), errors.Is(err, srm.ErrAggregationFailure):
		return http.StatusInternalServerError, detailInternal
	case errors.Is(err, srm.ErrPortalUnavailable), errors.Is(err, srm.ErrCaptchaUnavailable):
		return http.StatusServiceUnavailable, detailUnavailable
	case errors.Is(err, timetable.ErrNotLoaded):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, srm.ErrSubjectNotFound),
		errors.Is(err, subjects.ErrNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, subjects.ErrAliasExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, subjects.ErrMissingQuery), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

var errBadRequest = errors.New("bad request")
