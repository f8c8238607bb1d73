package disqus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	tokenPath = "/api/oauth/2.0/access_token/"
	apiPrefix = "/api/3.0/"
)

type cannedResponse struct {
	status int
	body   string
}

type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Body     string
	Header   http.Header
}

// fakeDisqus is an httptest server that records every request and answers
// with canned bodies per path.
type fakeDisqus struct {
	server *httptest.Server

	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]cannedResponse
	hooks     map[string]func(*http.Request)
}

func newFakeDisqus(t *testing.T) *fakeDisqus {
	t.Helper()
	f := &fakeDisqus{
		responses: make(map[string]cannedResponse),
		hooks:     make(map[string]func(*http.Request)),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeDisqus) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Body:     string(body),
		Header:   r.Header.Clone(),
	})
	resp, ok := f.responses[r.URL.Path]
	hook := f.hooks[r.URL.Path]
	f.mu.Unlock()

	if hook != nil {
		hook(r)
	}

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":1,"response":"Endpoint not found"}`)
		return
	}
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (f *fakeDisqus) respond(path, body string) {
	f.respondStatus(path, http.StatusOK, body)
}

func (f *fakeDisqus) respondStatus(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = cannedResponse{status: status, body: body}
}

func (f *fakeDisqus) onRequest(path string, hook func(*http.Request)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[path] = hook
}

func (f *fakeDisqus) requestsTo(path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeDisqus) options(extra ...Option) []Option {
	opts := []Option{
		WithCredentials("X", "Y", "app://cb"),
		WithAPIBaseURL(f.server.URL + apiPrefix),
		WithAuthBaseURL(f.server.URL + "/api/oauth/2.0"),
		WithHTTPClient(f.server.Client()),
	}
	return append(opts, extra...)
}

func (f *fakeDisqus) newClient(t *testing.T, extra ...Option) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), f.options(extra...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// pairs splits a raw key=value&... payload without unescaping anything.
func pairs(payload string) map[string]string {
	out := make(map[string]string)
	if payload == "" {
		return out
	}
	for _, part := range strings.Split(payload, "&") {
		k, v, _ := strings.Cut(part, "=")
		out[k] = v
	}
	return out
}

// storeWithIdentity returns a MemoryStore holding raw under IdentityKey.
func storeWithIdentity(t *testing.T, raw string) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), IdentityKey, []byte(raw)))
	return store
}
