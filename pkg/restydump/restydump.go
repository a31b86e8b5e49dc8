// Package restydump writes every HTTP exchange of a resty client out in full for
// debugging scrapers. Request bodies are never written and cookies are redacted, the
// exchanges of a logged in session would otherwise leak credentials.
package restydump

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Output receives one formatted exchange at a time, it may be called concurrently.
type Output interface {
	Write(contents string)
}

// FilesystemOutput writes each exchange to its own numbered file in a directory.
type FilesystemOutput struct {
	directory string
	counter   *atomic.Uint64
}

// NewFilesystemOutput empties (or creates) dir and writes exchanges into it.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir, counter: &atomic.Uint64{}}, nil
}

func (o FilesystemOutput) Write(contents string) {
	name := fmt.Sprintf("%05d.txt", o.counter.Add(1))
	err := os.WriteFile(filepath.Join(o.directory, name), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http exchange", "name", name, "err", err)
	}
}

var redactedHeaders = map[string]struct{}{
	"Cookie":        {},
	"Set-Cookie":    {},
	"Authorization": {},
}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		for _, v := range headers[k] {
			if _, redact := redactedHeaders[http.CanonicalHeaderKey(k)]; redact {
				v = "<redacted>"
			}
			out = append(out, fmt.Sprintf("%s: %s", k, v))
		}
	}
	return strings.Join(out, "\n")
}

// 1: request method
// 2: request url
// 3: request headers
// 4: response status
// 5: response url (the redirect target, if any)
// 6: response headers
// 7: response body
const exchangeTemplate = `---- REQUEST ----

%s %s

%s

---- RESPONSE ----

%s %s

%s

%s`

// Format renders res and the request that produced it.
func Format(res *resty.Response) string {
	var requestHeaders string
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
	}

	responseUrl := res.Request.URL
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			responseUrl = redirected.String()
		}
	}

	return fmt.Sprintf(
		exchangeTemplate,
		res.Request.Method, res.Request.URL,
		requestHeaders,
		strconv.Itoa(res.StatusCode()), responseUrl,
		formatHeaders(res.Header()),
		res.String(),
	)
}

// Instrument writes every response client receives to output.
func Instrument(client *resty.Client, output Output) {
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		output.Write(Format(res))
		return nil
	})
}
