// Package httpapi exposes the attendance engine over HTTP with JSON bodies.
package httpapi

import (
	"attendance-backend/internal/components/assert"
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/reconcile"
	"attendance-backend/internal/scrapers/srm"
	"attendance-backend/internal/service"
	"attendance-backend/internal/subjects"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	report_handler_request = "handler.request"
	report_handler_error   = "handler.error"
	report_handler_encode  = "handler.encode"
)

// Engine is what the routes are served by.
//
// note: fault injection point
type Engine interface {
	FetchAttendance(ctx context.Context) (srm.Attendance, error)
	FetchTimetable(ctx context.Context, refresh bool) (srm.Timetable, error)
	ResolveSubjectName(ctx context.Context, code string) (string, error)
	Subjects() subjects.Service
	Unread(ctx context.Context, username string) ([]reconcile.ChangeEvent, error)
	ReconcileAll(ctx context.Context) (service.ReconcileSummary, error)
}

type Handler struct {
	engine Engine
	tel    telemetry.API
	mux    *http.ServeMux
}

func NewHandler(engine Engine, tel telemetry.API) *Handler {
	assert.NotNil(engine, "engine")
	assert.NotNil(tel, "tel")

	h := &Handler{
		engine: engine,
		tel:    telemetry.NewScopedAPI("httpapi", tel),
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /attendance", h.attendance)
	h.mux.HandleFunc("GET /timetable", h.timetable)
	h.mux.HandleFunc("POST /alias", h.addAlias)
	h.mux.HandleFunc("GET /alias", h.getAlias)
	h.mux.HandleFunc("PUT /alias", h.updateAlias)
	h.mux.HandleFunc("DELETE /alias", h.deleteAlias)
	h.mux.HandleFunc("GET /subjects/{code}/name", h.subjectName)
	h.mux.HandleFunc("GET /notifications/unread", h.unread)
	h.mux.HandleFunc("POST /reconcile", h.reconcile)
	return h
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(recorder, r)
	h.tel.ReportDebug(report_handler_request, r.Method, r.URL.Path, recorder.status, time.Since(start).String())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		h.tel.ReportWarning(report_handler_encode, err)
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusOf(err)
	if status >= 500 {
		h.tel.ReportWarning(report_handler_error, r.Method, r.URL.Path, status, err)
	}
	h.writeJSON(w, status, errorResponse{Detail: detail})
}

type attendanceResponse struct {
	CourseWiseAttendance []srm.AttendanceRecord `json:"CourseWiseAttendance"`
	MonthlyAttendance    []srm.AbsenceRecord    `json:"MonthlyAttendance"`
}

func (h *Handler) attendance(w http.ResponseWriter, r *http.Request) {
	attendance, err := h.engine.FetchAttendance(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, attendanceResponse{
		CourseWiseAttendance: attendance.Courses,
		MonthlyAttendance:    attendance.Absences,
	})
}

func (h *Handler) timetable(w http.ResponseWriter, r *http.Request) {
	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		var err error
		refresh, err = strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: refresh must be true or false", errBadRequest))
			return
		}
	}

	tt, err := h.engine.FetchTimetable(r.Context(), refresh)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tt)
}

type aliasRequest struct {
	SubjectCode string `json:"subject_code"`
	Alias       string `json:"alias"`
}

func decodeAlias(r *http.Request) (aliasRequest, error) {
	var req aliasRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		return req, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if req.SubjectCode == "" || req.Alias == "" {
		return req, fmt.Errorf("%w: subject_code and alias are required", errBadRequest)
	}
	return req, nil
}

func subjectQuery(r *http.Request) subjects.Query {
	query := r.URL.Query()
	return subjects.Query{
		SubjectCode: query.Get("subject_code"),
		Alias:       query.Get("alias"),
		SubjectName: query.Get("subject_name"),
	}
}

func (h *Handler) addAlias(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAlias(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	subject, err := h.engine.Subjects().Add(r.Context(), req.SubjectCode, req.Alias)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, subject)
}

func (h *Handler) getAlias(w http.ResponseWriter, r *http.Request) {
	subject, err := h.engine.Subjects().Get(r.Context(), subjectQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, subject)
}

func (h *Handler) updateAlias(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAlias(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	subject, err := h.engine.Subjects().Update(r.Context(), req.SubjectCode, req.Alias)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, subject)
}

func (h *Handler) deleteAlias(w http.ResponseWriter, r *http.Request) {
	subject, err := h.engine.Subjects().Delete(r.Context(), subjectQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, subject)
}

type subjectNameResponse struct {
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
}

func (h *Handler) subjectName(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	name, err := h.engine.ResolveSubjectName(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, subjectNameResponse{SubjectCode: code, SubjectName: name})
}

func (h *Handler) unread(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		h.writeError(w, r, fmt.Errorf("%w: username is required", errBadRequest))
		return
	}
	events, err := h.engine.Unread(r.Context(), username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []reconcile.ChangeEvent{}
	}
	h.writeJSON(w, http.StatusOK, events)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.ReconcileAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}
