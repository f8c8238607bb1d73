package authui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"disqusctl/pkg/disqus"
)

// Prompter reads one line of user input at a time.
type Prompter interface {
	Readline() (string, error)
	Close() error
}

// NewReadlinePrompter returns a readline prompter that keeps no history.
func NewReadlinePrompter(prompt string) (Prompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		HistoryLimit:    -1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	return rl, nil
}

// PasteUI prints the authorization URL and asks the user to paste the
// address the browser was redirected to.
type PasteUI struct {
	RedirectURI string
	Out         io.Writer

	// NewPrompter creates the input prompt. Nil selects NewReadlinePrompter.
	NewPrompter func(prompt string) (Prompter, error)

	mu        sync.Mutex
	presented bool
	resolved  bool
}

func (u *PasteUI) Present(_ context.Context, authURL string) error {
	u.mu.Lock()
	u.presented, u.resolved = true, false
	u.mu.Unlock()

	out := u.out()
	printAuthURL(out, authURL)
	fmt.Fprintf(out, "After approving, your browser is sent to %s?code=...\n", u.RedirectURI)
	fmt.Fprintln(out, "Copy that full address from the browser and paste it below.")
	return nil
}

func (u *PasteUI) WaitForRedirect(ctx context.Context) (*url.URL, error) {
	u.mu.Lock()
	presented, resolved := u.presented, u.resolved
	u.mu.Unlock()
	if !presented {
		return nil, ErrNotPresented
	}
	if resolved {
		return nil, ErrAlreadyResolved
	}

	expected, err := url.Parse(u.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}

	newPrompter := u.NewPrompter
	if newPrompter == nil {
		newPrompter = NewReadlinePrompter
	}
	prompter, err := newPrompter("Redirect URL> ")
	if err != nil {
		return nil, err
	}
	closePrompter := sync.OnceValue(prompter.Close)
	defer closePrompter()

	type result struct {
		redirect *url.URL
		err      error
	}
	done := make(chan result, 1)
	go func() {
		redirect, err := u.readRedirect(prompter, expected)
		done <- result{redirect, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		u.mu.Lock()
		u.resolved = true
		u.mu.Unlock()
		return r.redirect, nil
	case <-ctx.Done():
		// closing the prompter unblocks the pending Readline
		_ = closePrompter()
		return nil, ctx.Err()
	}
}

func (u *PasteUI) readRedirect(prompter Prompter, expected *url.URL) (*url.URL, error) {
	for {
		line, err := prompter.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return nil, context.Canceled
		}
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no redirect URL entered: %w", err)
		}
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		redirect, err := url.Parse(line)
		if err != nil || !sameTarget(redirect, expected) {
			fmt.Fprintf(u.out(), "That does not look like %s?code=..., try again.\n", u.RedirectURI)
			continue
		}
		return redirect, nil
	}
}

// sameTarget compares scheme, host and path, ignoring the query.
func sameTarget(got, want *url.URL) bool {
	return strings.EqualFold(got.Scheme, want.Scheme) &&
		strings.EqualFold(got.Host, want.Host) &&
		strings.TrimSuffix(got.Path, "/") == strings.TrimSuffix(want.Path, "/") &&
		got.Opaque == want.Opaque
}

func (u *PasteUI) out() io.Writer {
	if u.Out == nil {
		return io.Discard
	}
	return u.Out
}

var _ disqus.AuthorizationUI = (*PasteUI)(nil)
