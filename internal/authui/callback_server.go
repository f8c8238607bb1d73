package authui

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"

	"disqusctl/pkg/logging"
)

// CallbackTimeout is how long LoopbackUI waits for the browser to come back.
const CallbackTimeout = 10 * time.Minute

const subsystem = "AuthUI"

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTemplate = template.Must(template.New("success").Funcs(sprig.FuncMap()).Parse(callbackSuccessHTML))
	errorTemplate   = template.Must(template.New("error").Funcs(sprig.FuncMap()).Parse(callbackErrorHTML))
)

// CallbackServer is a single-shot HTTP server bound to the host, port and
// path of a loopback redirect URI. It records the first request to that path
// and shuts itself down shortly after.
type CallbackServer struct {
	redirect *url.URL

	server   *http.Server
	listener net.Listener
	resultCh chan *url.URL
	errorCh  chan error
	once     sync.Once
	stopOnce sync.Once
}

// NewCallbackServer validates redirectURI and prepares a server for it.
// Only http redirects to 127.0.0.1, ::1 or localhost are accepted.
func NewCallbackServer(redirectURI string) (*CallbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if !IsLoopbackRedirect(u) {
		return nil, fmt.Errorf("redirect URI %q is not an http loopback address", redirectURI)
	}
	return &CallbackServer{
		redirect: u,
		resultCh: make(chan *url.URL, 1),
		errorCh:  make(chan error, 1),
	}, nil
}

// IsLoopbackRedirect reports whether u can be served by a CallbackServer.
func IsLoopbackRedirect(u *url.URL) bool {
	if u == nil || u.Scheme != "http" {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

func (s *CallbackServer) path() string {
	if s.redirect.Path == "" {
		return "/"
	}
	return s.redirect.Path
}

// Start listens on the redirect's address. The server stops when ctx is done.
func (s *CallbackServer) Start(ctx context.Context) error {
	port := s.redirect.Port()
	if port == "" {
		port = "80"
	}
	addr := net.JoinHostPort(s.redirect.Hostname(), port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc(s.path(), s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	logging.Debug(subsystem, "Callback server listening on %s%s", listener.Addr(), s.path())
	return nil
}

// URL returns the address the server actually listens on, including the
// callback path. It differs from the redirect URI only when the redirect
// asked for port 0.
func (s *CallbackServer) URL() string {
	if s.listener == nil {
		return s.redirect.String()
	}
	return "http://" + s.listener.Addr().String() + s.path()
}

// Wait returns the redirect the browser arrived with.
func (s *CallbackServer) Wait(ctx context.Context) (*url.URL, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errorCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	handled := false
	s.once.Do(func() {
		handled = true
		s.processCallback(w, r)
	})
	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

func (s *CallbackServer) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	result := *s.redirect
	result.RawQuery = r.URL.RawQuery
	result.Fragment = ""

	query := r.URL.Query()
	tmpl, data := successTemplate, map[string]string{}
	if e := query.Get("error"); e != "" || query.Get("code") == "" {
		tmpl = errorTemplate
		data = map[string]string{
			"Error":       e,
			"Description": query.Get("error_description"),
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}

	select {
	case s.resultCh <- &result:
	default:
	}

	go func() {
		time.Sleep(time.Second)
		s.Stop()
	}()
}

// Stop shuts the server down. It is safe to call more than once.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}
