package webdav

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testUser   = "alice"
	testSecret = "s3cret"
	davRoot    = "/remote.php/dav"
	keepBodyAt = 1 << 20
)

// call is one request seen by fakeRemote, with the path relative to the DAV root.
type call struct {
	Method string
	Path   string
	Header http.Header
	Size   int64
	Body   []byte
}

// fakeRemote records every request and answers with the status chosen by respond.
type fakeRemote struct {
	mu      sync.Mutex
	calls   []call
	respond func(c call) (int, string)
	srv     *httptest.Server
}

func newFakeRemote(t *testing.T, respond func(c call) (int, string)) *fakeRemote {
	t.Helper()
	if respond == nil {
		respond = func(call) (int, string) { return http.StatusCreated, "" }
	}
	f := &fakeRemote{respond: respond}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRemote) serve(w http.ResponseWriter, r *http.Request) {
	c := call{
		Method: r.Method,
		Path:   strings.TrimPrefix(r.URL.Path, davRoot),
		Header: r.Header.Clone(),
	}
	n, _ := io.Copy(io.Discard, io.TeeReader(r.Body, &limitedBuffer{buf: &c.Body, max: keepBodyAt}))
	c.Size = n

	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	status, body := f.respond(c)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeRemote) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeRemote) URL() string {
	return f.srv.URL
}

// config returns a client configuration pointing at the fake remote.
func (f *fakeRemote) config() WebDAVConfig {
	return WebDAVConfig{
		URL:        f.srv.URL,
		User:       testUser,
		Pass:       testSecret,
		HTTPClient: f.srv.Client(),
	}
}

// parts builds the shared pieces every component needs.
func (f *fakeRemote) parts(t *testing.T) (*requester, endpoints, *DirectoryCreator) {
	t.Helper()
	ep, err := resolveEndpoints(f.config())
	require.NoError(t, err)
	rq := &requester{hc: f.srv.Client(), auth: NewBasicAuth(testUser, testSecret)}
	return rq, ep, &DirectoryCreator{rq: rq, ep: ep}
}

type limitedBuffer struct {
	buf *[]byte
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if room := l.max - len(*l.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		*l.buf = append(*l.buf, p[:room]...)
	}
	return len(p), nil
}

// writeFile creates a local file with the given content.
func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0644))
	return p
}

// sparseFile creates a zero-filled local file of the given size without writing it.
func sparseFile(t *testing.T, name string, size int64) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return p
}

func methodsAndPaths(calls []call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method + " " + c.Path
	}
	return out
}
