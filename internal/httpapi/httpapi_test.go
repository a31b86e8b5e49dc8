package httpapi

import (
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/db"
	"attendance-backend/internal/reconcile"
	"attendance-backend/internal/scrapers/srm"
	"attendance-backend/internal/service"
	"attendance-backend/internal/subjects"
	"attendance-backend/internal/testutil"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	attendance srm.Attendance
	timetable  srm.Timetable
	names      map[string]string
	err        error
	refreshed  bool
	subjects   subjects.Service
	unread     map[string][]reconcile.ChangeEvent
}

func (f *fakeEngine) FetchAttendance(context.Context) (srm.Attendance, error) {
	return f.attendance, f.err
}

func (f *fakeEngine) FetchTimetable(_ context.Context, refresh bool) (srm.Timetable, error) {
	f.refreshed = refresh
	return f.timetable, f.err
}

func (f *fakeEngine) ResolveSubjectName(_ context.Context, code string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	name, ok := f.names[code]
	if !ok {
		return "", fmt.Errorf("%w: %s", srm.ErrSubjectNotFound, code)
	}
	return name, nil
}

func (f *fakeEngine) Subjects() subjects.Service {
	return f.subjects
}

func (f *fakeEngine) Unread(_ context.Context, username string) ([]reconcile.ChangeEvent, error) {
	return f.unread[username], f.err
}

func (f *fakeEngine) ReconcileAll(context.Context) (service.ReconcileSummary, error) {
	return service.ReconcileSummary{Users: 2, Failed: 1, Events: 3, Delivered: 3}, f.err
}

func setup(t *testing.T) (*httptest.Server, *fakeEngine) {
	tel := telemetry.NewTestAPI(t)
	engine := &fakeEngine{
		names:  map[string]string{"21CSC204J": "Design and Analysis of Algorithms"},
		unread: map[string][]reconcile.ChangeEvent{},
	}
	engine.subjects = subjects.NewService(db.New(testutil.OpenDB(t)), engine, tel)

	server := httptest.NewServer(NewHandler(engine, tel))
	t.Cleanup(server.Close)
	return server, engine
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var raw json.RawMessage
	err = json.NewDecoder(res.Body).Decode(&raw)
	require.NoError(t, err)
	return res.StatusCode, raw
}

func detail(t *testing.T, raw []byte) string {
	var res errorResponse
	require.NoError(t, json.Unmarshal(raw, &res))
	return res.Detail
}

func TestAttendance(t *testing.T) {
	server, engine := setup(t)
	engine.attendance = srm.Attendance{
		Courses: []srm.AttendanceRecord{{
			SubjectCode:   "21CSC204J",
			SubjectName:   "Design and Analysis of Algorithms",
			AttendedHours: 36,
			TotalHours:    40,
			Percentage:    90,
		}},
		Absences: []srm.AbsenceRecord{{
			Period:       srm.PeriodKey{Month: time.January, Year: 2024},
			Date:         time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
			LectureCount: 2,
			Status:       "Absent",
		}},
	}

	status, raw := do(t, http.MethodPost, server.URL+"/attendance", "")
	require.Equal(t, http.StatusOK, status)

	var res struct {
		CourseWiseAttendance []map[string]any
		MonthlyAttendance    []map[string]any
	}
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Len(t, res.CourseWiseAttendance, 1)
	require.Equal(t, "21CSC204J", res.CourseWiseAttendance[0]["subject_code"])
	require.Len(t, res.MonthlyAttendance, 1)
	require.Equal(t, "JAN / 2024", res.MonthlyAttendance[0]["period"])
	require.Equal(t, float64(2), res.MonthlyAttendance[0]["lecture_count"])
}

func TestErrorStatus(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{
			name:   "invalid credentials",
			err:    fmt.Errorf("login: %w", srm.ErrInvalidCredentials),
			status: http.StatusUnauthorized,
			detail: detailInvalidCredentials,
		},
		{
			name:   "portal down",
			err:    fmt.Errorf("%w: connection refused", srm.ErrPortalUnavailable),
			status: http.StatusServiceUnavailable,
			detail: detailUnavailable,
		},
		{
			name:   "captcha unavailable",
			err:    srm.ErrCaptchaUnavailable,
			status: http.StatusServiceUnavailable,
			detail: detailUnavailable,
		},
		{
			name:   "parse failure",
			err:    fmt.Errorf("%w: missing column", srm.ErrParseFailure),
			status: http.StatusInternalServerError,
			detail: detailInternal,
		},
		{
			name: "aggregation wins over the failure it wraps",
			err: fmt.Errorf(
				"%w: JAN / 2024: %w",
				srm.ErrAggregationFailure, srm.ErrPortalUnavailable,
			),
			status: http.StatusInternalServerError,
			detail: detailInternal,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server, engine := setup(t)
			engine.err = tc.err

			status, raw := do(t, http.MethodPost, server.URL+"/attendance", "")
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.detail, detail(t, raw))
		})
	}
}

func TestTimetable(t *testing.T) {
	server, engine := setup(t)
	engine.timetable = srm.Timetable{
		Days:    []srm.TimetableDay{{Day: "Day 1", Slots: []srm.Slot{{Time: "08:00-08:50", SubjectCode: "21CSC204J"}}}},
		Courses: []srm.Course{{Code: "21CSC204J", Name: "Design and Analysis of Algorithms"}},
	}

	status, raw := do(t, http.MethodGet, server.URL+"/timetable", "")
	require.Equal(t, http.StatusOK, status)
	require.False(t, engine.refreshed)

	var tt srm.Timetable
	require.NoError(t, json.Unmarshal(raw, &tt))
	if diff := cmp.Diff(engine.timetable, tt); diff != "" {
		t.Fatal(diff)
	}

	status, _ = do(t, http.MethodGet, server.URL+"/timetable?refresh=true", "")
	require.Equal(t, http.StatusOK, status)
	require.True(t, engine.refreshed)

	status, _ = do(t, http.MethodGet, server.URL+"/timetable?refresh=maybe", "")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestAlias(t *testing.T) {
	server, _ := setup(t)
	body := `{"subject_code":"21CSC204J","alias":"DAA"}`

	status, raw := do(t, http.MethodPost, server.URL+"/alias", body)
	require.Equal(t, http.StatusCreated, status)
	var subject subjects.Subject
	require.NoError(t, json.Unmarshal(raw, &subject))
	require.Equal(t, subjects.Subject{
		SubjectCode: "21CSC204J",
		SubjectName: "Design and Analysis of Algorithms",
		Alias:       "DAA",
	}, subject)

	status, _ = do(t, http.MethodPost, server.URL+"/alias", body)
	require.Equal(t, http.StatusConflict, status)

	status, _ = do(t, http.MethodPost, server.URL+"/alias", `{"subject_code":"21XYZ999J","alias":"X"}`)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodPost, server.URL+"/alias", `{"subject_code":`)
	require.Equal(t, http.StatusBadRequest, status)

	status, raw = do(t, http.MethodGet, server.URL+"/alias?alias=DAA", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &subject))
	require.Equal(t, "21CSC204J", subject.SubjectCode)

	status, raw = do(t, http.MethodGet, server.URL+"/alias?subject_name=design+and+analysis+of+algorithm", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &subject))
	require.Equal(t, "DAA", subject.Alias)

	status, _ = do(t, http.MethodGet, server.URL+"/alias", "")
	require.Equal(t, http.StatusBadRequest, status)

	status, raw = do(t, http.MethodPut, server.URL+"/alias", `{"subject_code":"21CSC204J","alias":"Algo"}`)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &subject))
	require.Equal(t, "Algo", subject.Alias)

	status, _ = do(t, http.MethodPut, server.URL+"/alias", `{"subject_code":"21MAB204T","alias":"PQT"}`)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodDelete, server.URL+"/alias?alias=Algo", "")
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, http.MethodGet, server.URL+"/alias?alias=Algo", "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestSubjectName(t *testing.T) {
	server, _ := setup(t)

	status, raw := do(t, http.MethodGet, server.URL+"/subjects/21CSC204J/name", "")
	require.Equal(t, http.StatusOK, status)
	var res subjectNameResponse
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Equal(t, subjectNameResponse{
		SubjectCode: "21CSC204J",
		SubjectName: "Design and Analysis of Algorithms",
	}, res)

	status, _ = do(t, http.MethodGet, server.URL+"/subjects/21XYZ999J/name", "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestUnread(t *testing.T) {
	server, engine := setup(t)
	engine.unread["dm0359"] = []reconcile.ChangeEvent{{
		Username:      "dm0359",
		SubjectCode:   "21CSC204J",
		OldPercentage: 90,
		NewPercentage: 85,
	}}

	status, raw := do(t, http.MethodGet, server.URL+"/notifications/unread?username=dm0359", "")
	require.Equal(t, http.StatusOK, status)
	var events []reconcile.ChangeEvent
	require.NoError(t, json.Unmarshal(raw, &events))
	require.Len(t, events, 1)
	require.Equal(t, 85.0, events[0].NewPercentage)

	status, raw = do(t, http.MethodGet, server.URL+"/notifications/unread?username=nobody", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "[]", string(raw))

	status, _ = do(t, http.MethodGet, server.URL+"/notifications/unread", "")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestReconcile(t *testing.T) {
	server, _ := setup(t)

	status, raw := do(t, http.MethodPost, server.URL+"/reconcile", "")
	require.Equal(t, http.StatusOK, status)
	var summary service.ReconcileSummary
	require.NoError(t, json.Unmarshal(raw, &summary))
	require.Equal(t, service.ReconcileSummary{Users: 2, Failed: 1, Events: 3, Delivered: 3}, summary)
}
