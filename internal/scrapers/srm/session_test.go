package srm

import (
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/scrapers/srm/srmtest"
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingTransport struct {
	inner  *http.Transport
	closed atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return c.inner.RoundTrip(req)
}

func (c *countingTransport) CloseIdleConnections() {
	c.closed.Add(1)
	c.inner.CloseIdleConnections()
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	fake := newFakePortal(t)
	transport := &countingTransport{inner: &http.Transport{}}

	sess, err := Open(SessionOptions{BaseUrl: fake.URL(), Transport: transport}, telemetry.NewTestAPI(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, sess.Close())
		}()
	}
	wg.Wait()
	require.NoError(t, sess.Close())
	require.Equal(t, int32(1), transport.closed.Load())

	_, err = sess.Request(context.Background(), http.MethodGet, loginPath, nil)
	require.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSessionKeepsCookies(t *testing.T) {
	tel := telemetry.NewTestAPI(t)
	fake := newFakePortal(t)
	sess := openSession(t, fake, tel)

	_, err := sess.Request(context.Background(), http.MethodGet, loginPath, nil)
	require.NoError(t, err)

	// the fake portal refuses captchas to clients without a session cookie
	res, err := sess.Request(context.Background(), http.MethodGet, captchaPath, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())
}

func TestSessionDoesNotFollowRedirects(t *testing.T) {
	tel := telemetry.NewTestAPI(t)
	fake := newFakePortal(t)
	sess := openSession(t, fake, tel)

	res, err := sess.Request(context.Background(), http.MethodPost, attendancePath, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, res.StatusCode())
}

func TestPagesRequireAuthentication(t *testing.T) {
	tel := telemetry.NewTestAPI(t)
	fake := newFakePortal(t)
	sess := openSession(t, fake, tel)

	_, _, err := sess.AttendancePage(context.Background())
	require.True(t, errors.Is(err, ErrNotAuthenticated))

	sess.Close()
	_, err = sess.Timetable(context.Background())
	require.True(t, errors.Is(err, ErrSessionClosed))
}

func TestCredentialsRedactSecret(t *testing.T) {
	require.Equal(t, "ab1234:<redacted>", testCreds.String())
	require.Equal(t, "ab1234:<redacted>", testCreds.LogValue().String())
}

type memoryDump struct {
	mu        sync.Mutex
	exchanges []string
}

func (d *memoryDump) Write(contents string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exchanges = append(d.exchanges, contents)
}

func TestSessionDumpOmitsCredentials(t *testing.T) {
	tel := telemetry.NewTestAPI(t)
	fake := newFakePortal(t)
	dump := &memoryDump{}

	sess, err := Open(SessionOptions{BaseUrl: fake.URL(), Dump: dump}, tel)
	require.NoError(t, err)
	defer sess.Close()

	auth := newAuthenticator(&srmtest.Engine{}, 0, tel)
	require.NoError(t, auth.Login(context.Background(), sess, testCreds))

	require.NotEmpty(t, dump.exchanges)
	for _, exchange := range dump.exchanges {
		require.NotContains(t, exchange, testSecret)
	}
}
