package srm

import (
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/pkg/restydump"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"sync/atomic"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseUrl = "https://sp.srmist.edu.in"

	loginPath           = "/srmiststudentportal/students/loginManager/youLogin.jsp"
	captchaPath         = "/srmiststudentportal/captchas"
	attendancePath      = "/srmiststudentportal/students/report/studentAttendanceDetails.jsp"
	monthlyAbsencesPath = "/srmiststudentportal/students/report/studentAttendanceDetailsInner.jsp"
	timetablePath       = "/srmiststudentportal/students/report/studentTimeTableDetails.jsp"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0"
)

const (
	report_session_open    = "session.open"
	report_session_request = "session.request"
	report_session_close   = "session.close"
)

// SessionOptions configure the HTTP client behind a Session.
type SessionOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout bounds a single request, defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond throttles the session, 0 disables throttling.
	RequestsPerSecond float64
	// CloudflareBypass wraps the transport with browser-like TLS and headers.
	CloudflareBypass bool
	// Transport replaces the default transport.
	Transport http.RoundTripper
	// Dump receives every exchange of the session when set.
	Dump restydump.Output
}

// Session is one conversation with the portal: one HTTP client bound to one cookie jar.
// Requests may be issued concurrently, Close may be called any number of times.
type Session struct {
	http *resty.Client
	// base is the innermost transport, the one holding connections.
	base http.RoundTripper
	tel  telemetry.API

	mu    sync.Mutex
	state State

	closeOnce sync.Once
	closed    atomic.Bool
}

// Open creates a session with a browser header profile and a fresh cookie jar.
func Open(opts SessionOptions, tel telemetry.API) (*Session, error) {
	tel = telemetry.NewScopedAPI("srm_scraper", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		tel.ReportBroken(report_session_open, fmt.Errorf("cookie jar: %w", err))
		return nil, err
	}
	httpClient.SetCookieJar(jar)

	base := opts.Transport
	if base == nil {
		base = httpClient.GetClient().Transport
	}
	transport := base
	if opts.CloudflareBypass {
		transport = cloudflarebp.AddCloudFlareByPass(base)
	}
	httpClient.SetTransport(transport)

	httpClient.SetHeaders(map[string]string{
		"user-agent":      browserUserAgent,
		"accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"accept-language": "en-US,en;q=0.5",
	})
	httpClient.SetTimeout(opts.Timeout)
	// a successful login answers with a redirect and an expired session redirects
	// back to the login page, both have to be observed rather than followed
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	if opts.RequestsPerSecond > 0 {
		// max burst >= rps just means that no requests will be dropped
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(1, int(opts.RequestsPerSecond)))
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)
	if opts.Dump != nil {
		restydump.Instrument(httpClient, opts.Dump)
	}

	return &Session{
		http: httpClient,
		base: base,
		tel:  tel,
	}, nil
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) requireAuthenticated() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	state := s.State()
	if state != StateAuthenticated {
		return fmt.Errorf("%w: %s", ErrNotAuthenticated, state)
	}
	return nil
}

// Request issues one call reusing the session's cookies. A nil form sends no body.
// Transport failures are reported as ErrPortalUnavailable, non-2xx statuses are not
// errors at this level.
func (s *Session) Request(ctx context.Context, method, endpoint string, form map[string]string) (*resty.Response, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	req := s.http.R().SetContext(ctx)
	if form != nil {
		req.SetFormData(form)
	}
	res, err := req.Execute(method, endpoint)
	if err != nil {
		s.tel.ReportWarning(report_session_request, method, endpoint, err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrPortalUnavailable, method, endpoint, err)
	}
	return res, nil
}

// Close releases the session's idle connections. Only the first call does anything.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if closer, ok := s.base.(interface{ CloseIdleConnections() }); ok {
			closer.CloseIdleConnections()
		}
		s.tel.ReportDebug(report_session_close)
	})
	return nil
}
