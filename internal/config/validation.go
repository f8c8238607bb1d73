package config

import (
	"fmt"
	"strings"

	"disqusctl/internal/store"
	"disqusctl/pkg/disqus"
	"disqusctl/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message})
}

func (ve ValidationErrors) orNil() error {
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// Validate checks the settings every command depends on. Credentials are
// checked separately by ValidateCredentials.
func (c Config) Validate() error {
	var errs ValidationErrors

	if _, err := disqus.ParseParamEncoding(c.Disqus.ParamEncoding); err != nil {
		errs.Add("disqus.paramEncoding", "must be raw or escaped")
	}

	kind, err := store.ParseKind(c.Store.Kind)
	if err != nil {
		errs.Add("store.kind", "must be one of file, pebble, redis, memory")
	} else if kind == store.KindRedis && c.Store.RedisURL == "" {
		errs.Add("store.redisURL", fmt.Sprintf("is required for the redis store (or set %s)", EnvRedisURL))
	}

	if c.Log.Level != "" {
		if _, err := logging.ParseLevel(c.Log.Level); err != nil {
			errs.Add("log.level", "must be one of debug, info, warn, error")
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs.Add("log.format", "must be text or json")
	}

	return errs.orNil()
}

// ValidateCredentials reports missing API credentials, naming the
// environment variable that can supply each one.
func (c Config) ValidateCredentials() error {
	var errs ValidationErrors
	if strings.TrimSpace(c.Disqus.PublicKey) == "" {
		errs.Add("disqus.publicKey", "is required (or set "+EnvPublicKey+")")
	}
	if strings.TrimSpace(c.Disqus.SecretKey) == "" {
		errs.Add("disqus.secretKey", "is required (or set "+EnvSecretKey+")")
	}
	if strings.TrimSpace(c.Disqus.RedirectURI) == "" {
		errs.Add("disqus.redirectURI", "is required (or set "+EnvRedirectURI+")")
	}
	return errs.orNil()
}

// StoreOptions converts the store section for store.Open.
func (c Config) StoreOptions() (store.Config, error) {
	kind, err := store.ParseKind(c.Store.Kind)
	if err != nil {
		return store.Config{}, err
	}
	return store.Config{Kind: kind, Path: c.Store.Path, RedisURL: c.Store.RedisURL}, nil
}

// ClientOptions converts the disqus section into client options.
func (c Config) ClientOptions() ([]disqus.Option, error) {
	encoding, err := disqus.ParseParamEncoding(c.Disqus.ParamEncoding)
	if err != nil {
		return nil, err
	}
	opts := []disqus.Option{
		disqus.WithCredentials(c.Disqus.PublicKey, c.Disqus.SecretKey, c.Disqus.RedirectURI),
		disqus.WithParamEncoding(encoding),
	}
	if c.Disqus.APIBaseURL != "" {
		opts = append(opts, disqus.WithAPIBaseURL(c.Disqus.APIBaseURL))
	}
	if c.Disqus.AuthBaseURL != "" {
		opts = append(opts, disqus.WithAuthBaseURL(c.Disqus.AuthBaseURL))
	}
	return opts, nil
}
