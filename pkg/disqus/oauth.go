package disqus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"disqusctl/pkg/logging"
)

// AuthorizationUI presents the authorization page and reports where the
// browsing surface was finally redirected. Closing the surface is the UI's job.
type AuthorizationUI interface {
	// Present shows authURL to the user.
	Present(ctx context.Context, authURL string) error

	// WaitForRedirect blocks until the redirect arrives. It resolves once per
	// authorization attempt.
	WaitForRedirect(ctx context.Context) (*url.URL, error)
}

const (
	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

// AuthorizationURL returns the page the user must visit to grant access.
// The redirect URI is inserted verbatim, as Disqus expects.
func (c *Client) AuthorizationURL() (string, error) {
	creds := c.Credentials()
	if err := creds.Validate(); err != nil {
		return "", err
	}
	return c.Endpoint().AuthURL +
		"?client_id=" + creds.PublicKey +
		"&scope=read,write" +
		"&response_type=code" +
		"&redirect_uri=" + creds.RedirectURI, nil
}

// Authenticate runs the authorization-code flow through ui. It returns nil
// iff the code was exchanged and the new identity is held. An interrupted
// flow has no resumable state and must be restarted.
func (c *Client) Authenticate(ctx context.Context, ui AuthorizationUI) error {
	authURL, err := c.AuthorizationURL()
	if err != nil {
		return err
	}

	flowID := uuid.NewString()
	logger := logging.Logger(subsystem).With("flow_id", flowID)
	logger.Info("authorization flow started")

	if err := ui.Present(ctx, authURL); err != nil {
		logger.Warn("authorization page could not be presented", "error", err.Error())
		return fmt.Errorf("failed to present authorization page: %w", err)
	}

	redirect, err := ui.WaitForRedirect(ctx)
	if err != nil {
		logger.Warn("no authorization redirect received", "error", err.Error())
		return fmt.Errorf("failed to receive authorization redirect: %w", err)
	}

	code, err := CodeFromRedirect(redirect)
	if err != nil {
		logger.Warn("authorization redirect rejected", "error", err.Error())
		return err
	}

	if err := c.ExchangeCode(ctx, code); err != nil {
		logger.Warn("token exchange failed", "outcome", Outcome(err))
		return err
	}

	logger.Info("authorization flow completed", "user_id", c.UserID())
	return nil
}

// CodeFromRedirect extracts the authorization code from the redirect URL.
func CodeFromRedirect(redirect *url.URL) (string, error) {
	if redirect == nil {
		return "", ErrMissingCode
	}
	query := redirect.Query()
	if e := query.Get("error"); e != "" {
		if desc := query.Get("error_description"); desc != "" {
			return "", fmt.Errorf("%w: %s - %s", ErrAuthorizationDenied, e, desc)
		}
		return "", fmt.Errorf("%w: %s", ErrAuthorizationDenied, e)
	}
	code := query.Get("code")
	if code == "" {
		return "", ErrMissingCode
	}
	return code, nil
}

// ExchangeCode trades an authorization code for an identity. On success the
// identity replaces any previous one and is persisted.
func (c *Client) ExchangeCode(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return ErrMissingCode
	}
	creds := c.Credentials()
	if err := creds.Validate(); err != nil {
		return err
	}

	redirectURI := creds.RedirectURI
	if c.encoding == ParamEncodingRaw {
		redirectURI = escapeAlphanumeric(redirectURI)
	}

	identity, err := c.tokenRequest(ctx, creds, grantAuthorizationCode, Params{
		"grant_type":    grantAuthorizationCode,
		"client_id":     creds.PublicKey,
		"client_secret": creds.SecretKey,
		"redirect_uri":  redirectURI,
		"code":          code,
	})
	if err != nil {
		return err
	}

	c.setIdentity(ctx, identity)
	logging.Logger(subsystem).Info("SECURITY_AUDIT: identity stored",
		"event", "identity_stored",
		"user_id", identity.UserID,
		"has_refresh_token", identity.RefreshToken != "",
	)
	return nil
}

// Refresh exchanges the held refresh token for a new access token and
// persists the result. Concurrent calls share one request. If the identity
// changed while the request was in flight (logout or a new login), the
// result is discarded. A caller that joins a request started with
// credentials that have since been replaced gets a new request made with
// the current ones.
func (c *Client) Refresh(ctx context.Context) error {
	for {
		v, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
			used, err := c.refresh(ctx)
			return used, err
		})
		if used, ok := v.(Credentials); ok && used != c.Credentials() && ctx.Err() == nil {
			continue
		}
		return err
	}
}

// refresh returns the credentials it used along with the outcome.
func (c *Client) refresh(ctx context.Context) (Credentials, error) {
	creds, current := c.snapshot()
	if current == nil {
		return creds, ErrNotAuthenticated
	}
	if current.RefreshToken == "" {
		return creds, ErrNoRefreshToken
	}
	if err := creds.Validate(); err != nil {
		return creds, err
	}

	refreshed, err := c.tokenRequest(ctx, creds, grantRefreshToken, Params{
		"grant_type":    grantRefreshToken,
		"client_id":     creds.PublicKey,
		"client_secret": creds.SecretKey,
		"refresh_token": current.RefreshToken,
	})
	if err != nil {
		return creds, err
	}

	if !c.replaceIdentity(ctx, current, current.merge(refreshed)) {
		logging.Debug(subsystem, "Identity changed during refresh, discarding refreshed token")
	}
	return creds, nil
}

// tokenRequest posts to the token endpoint and decodes an identity.
// The API keys are attached like on every other call.
func (c *Client) tokenRequest(ctx context.Context, creds Credentials, grantType string, params Params) (*Identity, error) {
	body, err := c.dispatch(ctx, MethodPost, c.Endpoint().TokenURL, sign(creds, "", params))
	if err == nil {
		_, err = decodeResponse(body)
	}
	if err != nil {
		oauthExchangesCounter.WithLabelValues(grantType, Outcome(err)).Inc()
		return nil, err
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		parseErr := &ParseError{Body: body, Err: fmt.Errorf("invalid identity: %w", err)}
		oauthExchangesCounter.WithLabelValues(grantType, Outcome(parseErr)).Inc()
		return nil, parseErr
	}
	identity.stamp(time.Now())

	oauthExchangesCounter.WithLabelValues(grantType, Outcome(nil)).Inc()
	return &identity, nil
}

// escapeAlphanumeric percent-encodes the UTF-8 bytes of every rune that is
// not a Unicode letter, mark or number.
func escapeAlphanumeric(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r)) {
			b.WriteString(s[i : i+size])
		} else {
			for _, ch := range []byte(s[i : i+size]) {
				b.WriteByte('%')
				b.WriteByte(hex[ch>>4])
				b.WriteByte(hex[ch&0x0f])
			}
		}
		i += size
	}
	return b.String()
}
