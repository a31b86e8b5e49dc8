package restydump

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu        sync.Mutex
	exchanges []string
}

func (o *memoryOutput) Write(contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exchanges = append(o.exchanges, contents)
}

func newServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "s3cr3t-session"})
		if r.Method == http.MethodPost {
			w.Header().Set("location", "/home")
			w.WriteHeader(http.StatusFound)
			return
		}
		w.Write([]byte("<html>attendance</html>"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestInstrument(t *testing.T) {
	server := newServer(t)
	output := &memoryOutput{}

	client := resty.New().SetBaseURL(server.URL)
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	Instrument(client, output)

	_, err := client.R().SetHeader("cookie", "JSESSIONID=s3cr3t-session").Get("/report")
	require.NoError(t, err)
	_, err = client.R().SetFormData(map[string]string{"txtSK": "hunter2"}).Post("/login")
	require.NoError(t, err)

	require.Len(t, output.exchanges, 2)
	require.Contains(t, output.exchanges[0], "GET "+server.URL+"/report")
	require.Contains(t, output.exchanges[0], "<html>attendance</html>")
	require.Contains(t, output.exchanges[0], "Cookie: <redacted>")
	require.Contains(t, output.exchanges[0], "Set-Cookie: <redacted>")
	for _, exchange := range output.exchanges {
		require.NotContains(t, exchange, "s3cr3t-session")
		require.NotContains(t, exchange, "hunter2")
	}
	require.Contains(t, output.exchanges[1], "302 "+server.URL+"/home")
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	require.NoError(t, os.MkdirAll(dir, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0600))

	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	output.Write("first")
	output.Write("second")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	contents, err := os.ReadFile(filepath.Join(dir, "00002.txt"))
	require.NoError(t, err)
	require.Equal(t, "second", string(contents))
}
