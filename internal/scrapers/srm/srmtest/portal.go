// Package srmtest runs an in-process imitation of the student portal.
package srmtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/mazen160/go-random"
)

const (
	sessionCookie = "JSESSIONID"

	pathLogin     = "/srmiststudentportal/students/loginManager/youLogin.jsp"
	pathCaptcha   = "/srmiststudentportal/captchas"
	pathAttend    = "/srmiststudentportal/students/report/studentAttendanceDetails.jsp"
	pathInner     = "/srmiststudentportal/students/report/studentAttendanceDetailsInner.jsp"
	pathTimetable = "/srmiststudentportal/students/report/studentTimeTableDetails.jsp"

	InvalidCredentialsPage = `<html><body><p class="error">Login Error : Invalid net id or password</p></body></html>`
	InvalidCaptchaPage     = `<html><body><p class="error">Invalid Captcha....</p></body></html>`
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// PeriodPage is the response to one month's absence detail request.
type PeriodPage struct {
	HTML  string
	Delay time.Duration
	// Status defaults to 200.
	Status int
}

type session struct {
	captcha       string
	authenticated bool
}

// Portal is a fake portal. Exported fields may be set before the first request.
type Portal struct {
	Server *httptest.Server

	Identifier string
	Secret     string
	// RejectCaptcha is the number of otherwise correct captcha submissions rejected
	// before one is accepted.
	RejectCaptcha int
	// LoginStatus is the status of an accepted login, defaults to 302.
	LoginStatus int

	AttendanceHTML string
	TimetableHTML  string

	mu             sync.Mutex
	sessions       map[string]*session
	periods        map[string]PeriodPage
	captchaFetches int
	loginPosts     int
	periodFetches  map[string]int
}

// NewPortal starts a fake portal that accepts identifier and secret.
func NewPortal(identifier, secret string) *Portal {
	p := &Portal{
		Identifier:    identifier,
		Secret:        secret,
		LoginStatus:   http.StatusFound,
		sessions:      map[string]*session{},
		periods:       map[string]PeriodPage{},
		periodFetches: map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, p.handleLogin)
	mux.HandleFunc(pathCaptcha, p.handleCaptcha)
	mux.HandleFunc(pathAttend, p.authenticated(func(w http.ResponseWriter, _ *http.Request) {
		p.mu.Lock()
		page := p.AttendanceHTML
		p.mu.Unlock()
		writeHTML(w, http.StatusOK, page)
	}))
	mux.HandleFunc(pathInner, p.authenticated(p.handlePeriod))
	mux.HandleFunc(pathTimetable, p.authenticated(func(w http.ResponseWriter, _ *http.Request) {
		p.mu.Lock()
		page := p.TimetableHTML
		p.mu.Unlock()
		writeHTML(w, http.StatusOK, page)
	}))
	p.Server = httptest.NewServer(mux)
	return p
}

func (p *Portal) URL() string {
	return p.Server.URL
}

func (p *Portal) Close() {
	p.Server.Close()
}

func periodKey(month, year int) string {
	return fmt.Sprintf("%d/%d", month, year)
}

// SetPeriod sets the response for the month (1-12) and year.
func (p *Portal) SetPeriod(month time.Month, year int, page PeriodPage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.periods[periodKey(int(month), year)] = page
}

// PeriodFetches returns how many times the month's details were requested.
func (p *Portal) PeriodFetches(month time.Month, year int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.periodFetches[periodKey(int(month), year)]
}

// TotalPeriodFetches returns the number of monthly detail requests of all months.
func (p *Portal) TotalPeriodFetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.periodFetches {
		total += n
	}
	return total
}

func (p *Portal) CaptchaFetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captchaFetches
}

func (p *Portal) LoginPosts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginPosts
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// session returns the caller's session, p.mu must be held.
func (p *Portal) session(r *http.Request) *session {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	return p.sessions[cookie.Value]
}

func (p *Portal) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, pathLogin, http.StatusFound)
}

func (p *Portal) authenticated(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.mu.Lock()
		sess := p.session(r)
		ok := sess != nil && sess.authenticated
		p.mu.Unlock()
		if !ok {
			p.redirectToLogin(w, r)
			return
		}
		handler(w, r)
	}
}

func (p *Portal) handleLogin(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		if p.session(r) == nil {
			id, err := random.String(32)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			p.sessions[id] = &session{}
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/"})
		}
		writeHTML(w, http.StatusOK, `<html><body><form method="post"></form></body></html>`)
	case http.MethodPost:
		p.loginPosts++
		sess := p.session(r)
		if sess == nil {
			writeHTML(w, http.StatusOK, InvalidCaptchaPage)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		captcha := sess.captcha
		// a captcha can be submitted once
		sess.captcha = ""

		if captcha == "" || r.PostForm.Get("hdnCaptcha") != captcha || p.RejectCaptcha > 0 {
			if p.RejectCaptcha > 0 {
				p.RejectCaptcha--
			}
			writeHTML(w, http.StatusOK, InvalidCaptchaPage)
			return
		}
		if r.PostForm.Get("txtAN") != p.Identifier || r.PostForm.Get("txtSK") != p.Secret {
			writeHTML(w, http.StatusOK, InvalidCredentialsPage)
			return
		}
		if r.PostForm.Get("txtPageAction") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if p.LoginStatus == http.StatusFound {
			sess.authenticated = true
			w.Header().Set("location", pathAttend)
		}
		writeHTML(w, p.LoginStatus, "")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (p *Portal) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.captchaFetches++
	sess := p.session(r)
	if sess == nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	sess.captcha = fmt.Sprintf("c%04d", p.captchaFetches)

	w.Header().Set("content-type", "image/png")
	_, _ = w.Write(CaptchaImage(sess.captcha))
}

func (p *Portal) handlePeriod(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	month, _ := strconv.Atoi(r.PostForm.Get("attendanceMonth"))
	year, _ := strconv.Atoi(r.PostForm.Get("attendanceYear"))
	key := periodKey(month, year)

	p.mu.Lock()
	p.periodFetches[key]++
	page, ok := p.periods[key]
	p.mu.Unlock()

	if r.PostForm.Get("ids") != "1" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !ok {
		page = PeriodPage{HTML: AbsencePage(nil)}
	}
	if page.Delay > 0 {
		select {
		case <-time.After(page.Delay):
		case <-r.Context().Done():
			return
		}
	}
	status := page.Status
	if status == 0 {
		status = http.StatusOK
	}
	writeHTML(w, status, page.HTML)
}

// CaptchaImage encodes text as a payload that sniffs as a PNG and that Engine reads back.
func CaptchaImage(text string) []byte {
	return append(append([]byte{}, pngSignature...), text...)
}

var ErrNotCaptcha = errors.New("not a fake captcha image")

// Engine reads the text of images made by CaptchaImage.
type Engine struct {
	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls int
}

func (e *Engine) Recognize(_ context.Context, image []byte) (string, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.Err != nil {
		return "", e.Err
	}
	if !bytes.HasPrefix(image, pngSignature) {
		return "", ErrNotCaptcha
	}
	return " " + string(image[len(pngSignature):]) + "\n", nil
}

func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
