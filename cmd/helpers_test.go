package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"disqusctl/internal/config"
	"disqusctl/internal/store"
	"disqusctl/pkg/disqus"
)

const (
	tokenPath = "/api/oauth/2.0/access_token/"
	apiPrefix = "/api/3.0/"
)

// lockedBuffer is a bytes.Buffer safe for concurrent writes and reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Body     string
}

// testEnv is a fake Disqus server plus a config file pointing at it and a
// file store in a temporary directory.
type testEnv struct {
	t          *testing.T
	server     *httptest.Server
	configPath string
	storeDir   string

	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range []string{config.EnvPublicKey, config.EnvSecretKey, config.EnvRedirectURI, config.EnvStore, config.EnvRedisURL} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	dir := t.TempDir()
	env := &testEnv{
		t:          t,
		configPath: filepath.Join(dir, "config.yaml"),
		storeDir:   filepath.Join(dir, "state"),
		responses:  make(map[string]string),
	}
	env.server = httptest.NewServer(http.HandlerFunc(env.handle))
	t.Cleanup(env.server.Close)

	env.writeConfig(func(c *config.Config) {})
	return env
}

func (e *testEnv) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	e.mu.Lock()
	e.requests = append(e.requests, recordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Body:     string(body),
	})
	resp, ok := e.responses[r.URL.Path]
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":1,"response":"Endpoint not found"}`)
		return
	}
	_, _ = io.WriteString(w, resp)
}

func (e *testEnv) respond(path, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[path] = body
}

func (e *testEnv) requestsTo(path string) []recordedRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []recordedRequest
	for _, r := range e.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// writeConfig saves a config pointing at the fake server, after modify.
func (e *testEnv) writeConfig(modify func(*config.Config)) {
	e.t.Helper()
	cfg := config.Config{
		Disqus: config.DisqusConfig{
			PublicKey:     "X",
			SecretKey:     "Y",
			RedirectURI:   "app://cb",
			APIBaseURL:    e.server.URL + apiPrefix,
			AuthBaseURL:   e.server.URL + "/api/oauth/2.0/",
			ParamEncoding: "raw",
		},
		Store: config.StoreConfig{Kind: "file", Path: e.storeDir},
		Log:   config.LogConfig{Level: "error", Format: "text"},
	}
	modify(&cfg)
	require.NoError(e.t, config.Save(e.configPath, cfg))
}

func (e *testEnv) fileStore() *store.FileStore {
	e.t.Helper()
	fs, err := store.NewFileStore(e.storeDir)
	require.NoError(e.t, err)
	return fs
}

func (e *testEnv) seedIdentity(raw string) {
	e.t.Helper()
	require.NoError(e.t, e.fileStore().Set(context.Background(), disqus.IdentityKey, []byte(raw)))
}

func (e *testEnv) storedIdentity() string {
	e.t.Helper()
	data, err := e.fileStore().Get(context.Background(), disqus.IdentityKey)
	if err != nil {
		return ""
	}
	return string(data)
}

// run executes the root command with args and returns what it printed.
func (e *testEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	out, errOut := &lockedBuffer{}, &lockedBuffer{}
	err := e.execute(context.Background(), out, errOut, args...)
	return out.String(), errOut.String(), err
}

// execute runs the root command. Only one execution may run at a time.
func (e *testEnv) execute(ctx context.Context, out, errOut io.Writer, args ...string) error {
	resetFlags(rootCmd)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	return rootCmd.ExecuteContext(ctx)
}

// resetFlags restores every flag in the command tree to its default so
// executions do not leak flag values into each other.
func resetFlags(c *cobra.Command) {
	for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// eventually polls cond until it holds or the timeout elapses.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting: %s", msg)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// pairs splits a raw key=value&... payload without unescaping anything.
func pairs(payload string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(payload, "&") {
		k, v, _ := strings.Cut(part, "=")
		out[k] = v
	}
	return out
}
