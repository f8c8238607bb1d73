package authui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"disqusctl/pkg/disqus"
	"disqusctl/pkg/logging"
)

// ErrAlreadyResolved is returned when WaitForRedirect is called again after
// it has produced a redirect.
var ErrAlreadyResolved = errors.New("authorization redirect already received")

// ErrNotPresented is returned by WaitForRedirect before Present.
var ErrNotPresented = errors.New("authorization page was not presented")

// LoopbackUI receives the redirect on a local CallbackServer and opens the
// authorization page in the system browser.
type LoopbackUI struct {
	// RedirectURI must be an http loopback URI registered with Disqus.
	RedirectURI string

	// OpenBrowser opens the page. When nil, or when it fails, the URL is
	// printed to Out instead.
	OpenBrowser func(string) error

	Out io.Writer

	// Timeout bounds WaitForRedirect. Zero selects CallbackTimeout.
	Timeout time.Duration

	mu       sync.Mutex
	server   *CallbackServer
	resolved bool
}

func (u *LoopbackUI) Present(ctx context.Context, authURL string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.server != nil {
		u.server.Stop()
	}
	server, err := NewCallbackServer(u.RedirectURI)
	if err != nil {
		return err
	}
	if err := server.Start(ctx); err != nil {
		return err
	}
	u.server = server
	u.resolved = false

	if u.OpenBrowser != nil {
		err := u.OpenBrowser(authURL)
		if err == nil {
			fmt.Fprintln(u.out(), "Opened the Disqus authorization page in your browser.")
			return nil
		}
		logging.Debug(subsystem, "Failed to open browser: %v", err)
	}
	printAuthURL(u.out(), authURL)
	return nil
}

func (u *LoopbackUI) WaitForRedirect(ctx context.Context) (*url.URL, error) {
	u.mu.Lock()
	server, resolved := u.server, u.resolved
	u.mu.Unlock()

	if server == nil {
		return nil, ErrNotPresented
	}
	if resolved {
		return nil, ErrAlreadyResolved
	}

	timeout := u.Timeout
	if timeout <= 0 {
		timeout = CallbackTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	redirect, err := server.Wait(ctx)
	if err != nil {
		server.Stop()
		return nil, err
	}

	u.mu.Lock()
	u.resolved = true
	u.mu.Unlock()
	return redirect, nil
}

func (u *LoopbackUI) out() io.Writer {
	if u.Out == nil {
		return io.Discard
	}
	return u.Out
}

func printAuthURL(w io.Writer, authURL string) {
	fmt.Fprintln(w, "Open this URL in your browser to authorize disqusctl:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", text.FgCyan.Sprint(authURL))
	fmt.Fprintln(w)
}

var _ disqus.AuthorizationUI = (*LoopbackUI)(nil)
