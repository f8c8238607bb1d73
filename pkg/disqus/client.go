package disqus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"disqusctl/pkg/logging"
)

const (
	// DefaultAuthBaseURL is the Disqus OAuth 2.0 base URL.
	DefaultAuthBaseURL = "https://disqus.com/api/oauth/2.0/"

	// DefaultAPIBaseURL is the Disqus API 3.0 base URL.
	DefaultAPIBaseURL = "https://disqus.com/api/3.0/"

	subsystem = "DisqusClient"
)

// Credentials are the application's API keys and registered redirect URI.
type Credentials struct {
	PublicKey   string
	SecretKey   string
	RedirectURI string
}

// Validate reports ErrNotConfigured when any credential is empty.
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.PublicKey) == "" {
		missing = append(missing, "public key")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		missing = append(missing, "secret key")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		missing = append(missing, "redirect URI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// Client talks to the Disqus API and owns the current identity.
//
// A Client is safe for concurrent use. Overlapping authorization flows are
// last-write-wins: the most recent successful exchange replaces the identity.
type Client struct {
	mu       sync.RWMutex
	creds    Credentials
	identity *Identity

	store      Store
	httpClient *http.Client
	apiBase    string
	authBase   string
	encoding   ParamEncoding

	// persistMu orders identity changes with their store writes.
	persistMu sync.Mutex

	refreshGroup singleflight.Group
	background   sync.WaitGroup
	closed       bool
}

// Option configures a Client.
type Option func(*Client)

// WithCredentials sets the API credentials without triggering a refresh.
func WithCredentials(publicKey, secretKey, redirectURI string) Option {
	return func(c *Client) {
		c.creds = Credentials{PublicKey: publicKey, SecretKey: secretKey, RedirectURI: redirectURI}
	}
}

// WithStore sets the store the identity is persisted to.
func WithStore(store Store) Option {
	return func(c *Client) { c.store = store }
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithAPIBaseURL overrides DefaultAPIBaseURL.
func WithAPIBaseURL(base string) Option {
	return func(c *Client) { c.apiBase = withTrailingSlash(base) }
}

// WithAuthBaseURL overrides DefaultAuthBaseURL.
func WithAuthBaseURL(base string) Option {
	return func(c *Client) { c.authBase = withTrailingSlash(base) }
}

// WithParamEncoding selects how parameters are serialized.
func WithParamEncoding(encoding ParamEncoding) Option {
	return func(c *Client) { c.encoding = encoding }
}

func withTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// NewClient creates a client and restores any identity persisted in the store.
// A missing or undecodable stored identity leaves the client unauthenticated.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{
		apiBase:  DefaultAPIBaseURL,
		authBase: DefaultAuthBaseURL,
		encoding: ParamEncodingRaw,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.apiBase == "" || c.authBase == "" {
		return nil, fmt.Errorf("%w: base URLs must not be empty", ErrNotConfigured)
	}

	if err := c.restore(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) restore(ctx context.Context) error {
	data, err := c.store.Get(ctx, IdentityKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load stored identity: %w", err)
	}

	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil || identity.AccessToken == "" {
		logging.Warn(subsystem, "Stored identity could not be decoded, starting unauthenticated")
		return nil
	}

	c.identity = &identity
	logging.Debug(subsystem, "Restored identity for user %s", identity.UserID)
	return nil
}

// Configure replaces the credentials. When an identity is held, one
// background token refresh is started with the new credentials; its failure
// leaves the identity untouched and is not reported. Close waits for it.
// After Close the credentials are still replaced but no refresh is started.
func (c *Client) Configure(publicKey, secretKey, redirectURI string) {
	c.mu.Lock()
	c.creds = Credentials{PublicKey: publicKey, SecretKey: secretKey, RedirectURI: redirectURI}
	start := c.identity != nil && !c.closed
	if start {
		c.background.Add(1)
	}
	c.mu.Unlock()

	if !start {
		return
	}

	go func() {
		defer c.background.Done()
		if err := c.Refresh(context.Background()); err != nil {
			logging.Debug(subsystem, "Refresh after reconfiguration failed: %v", err)
		}
	}()
}

// Credentials returns the current credentials.
func (c *Client) Credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// IsAuthenticated reports whether an identity is held.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity != nil
}

// UserID returns the authenticated user's ID, or "" when unauthenticated.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return ""
	}
	return c.identity.UserID
}

// Username returns the authenticated user's username when the token
// endpoint provided one.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return ""
	}
	return c.identity.Username
}

// Endpoint returns the OAuth endpoints derived from the auth base URL.
func (c *Client) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   c.authBase + "authorize/",
		TokenURL:  c.authBase + "access_token/",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// TokenSource returns an oauth2.TokenSource over the held identity. It never
// refreshes; Token returns ErrNotAuthenticated after Logout.
func (c *Client) TokenSource() oauth2.TokenSource {
	return identityTokenSource{client: c}
}

type identityTokenSource struct {
	client *Client
}

func (s identityTokenSource) Token() (*oauth2.Token, error) {
	_, identity := s.client.snapshot()
	if identity == nil {
		return nil, ErrNotAuthenticated
	}
	return identity.Token(), nil
}

// Close waits for background refreshes started by Configure. Later calls to
// Configure no longer start one.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.background.Wait()
	return nil
}

// snapshot returns the credentials and the identity pointer under one read lock.
// The identity must be treated as immutable.
func (c *Client) snapshot() (Credentials, *Identity) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds, c.identity
}

// setIdentity installs identity and persists it. A persistence failure is
// logged; the identity stays valid for this process.
func (c *Client) setIdentity(ctx context.Context, identity *Identity) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()
	c.persist(ctx, identity)
}

// replaceIdentity installs next only if prev is still the held identity.
func (c *Client) replaceIdentity(ctx context.Context, prev, next *Identity) bool {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if c.identity != prev {
		c.mu.Unlock()
		return false
	}
	c.identity = next
	c.mu.Unlock()
	c.persist(ctx, next)
	return true
}

func (c *Client) persist(ctx context.Context, identity *Identity) {
	data, err := json.MarshalIndent(identity, "", "  ")
	if err == nil {
		err = c.store.Set(ctx, IdentityKey, data)
	}
	if err != nil {
		logging.Warn(subsystem, "Failed to persist identity for user %s: %v", identity.UserID, err)
	}
}

// Logout forgets the identity and removes it from the store. It is idempotent.
func (c *Client) Logout(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.identity = nil
	c.mu.Unlock()

	if err := c.store.Delete(ctx, IdentityKey); err != nil {
		return fmt.Errorf("failed to remove stored identity: %w", err)
	}
	return nil
}
