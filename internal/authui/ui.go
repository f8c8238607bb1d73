package authui

import (
	"fmt"
	"io"
	"net/url"

	"disqusctl/pkg/disqus"
)

// Options tune the UI returned by ForRedirect.
type Options struct {
	// NoBrowser prints the authorization URL instead of opening a browser.
	NoBrowser bool

	Out io.Writer
}

// ForRedirect returns a LoopbackUI for http loopback redirect URIs and a
// PasteUI for everything else.
func ForRedirect(redirectURI string, opts Options) (disqus.AuthorizationUI, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}

	if IsLoopbackRedirect(u) {
		ui := &LoopbackUI{RedirectURI: redirectURI, Out: opts.Out}
		if !opts.NoBrowser {
			ui.OpenBrowser = OpenBrowser
		}
		return ui, nil
	}
	return &PasteUI{RedirectURI: redirectURI, Out: opts.Out}, nil
}
