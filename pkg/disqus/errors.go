package disqus

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates the client has no (or incomplete) API credentials.
	ErrNotConfigured = errors.New("disqus: client not configured")

	// ErrNotAuthenticated indicates no identity is held.
	ErrNotAuthenticated = errors.New("disqus: not authenticated")

	// ErrNoRefreshToken indicates the held identity cannot be refreshed.
	ErrNoRefreshToken = errors.New("disqus: identity has no refresh token")

	// ErrMissingCode indicates the authorization redirect carried no code parameter.
	ErrMissingCode = errors.New("disqus: redirect has no authorization code")

	// ErrAuthorizationDenied indicates the authorization server redirected with an error.
	ErrAuthorizationDenied = errors.New("disqus: authorization denied")

	// ErrNotFound is returned by a Store when the key does not exist.
	ErrNotFound = errors.New("disqus: key not found")

	// ErrCallFailed matches every TransportError, ParseError and APIError.
	// errors.Is(err, ErrCallFailed) is the "success == false" of the wire protocol.
	ErrCallFailed = errors.New("disqus: call failed")
)

// TransportError wraps network, DNS and TLS failures, and request construction errors.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("disqus: transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrCallFailed }

// ParseError indicates a body that is not a JSON object carrying an integer code.
type ParseError struct {
	Body []byte
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("disqus: malformed response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrCallFailed }

// APIError is a well-formed response whose code is not 0.
type APIError struct {
	// Code is the API's own status code (never 0).
	Code int

	// Message is the "response" field when the API sent a string there.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("disqus: api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("disqus: api error %d", e.Code)
}

func (e *APIError) Is(target error) bool { return target == ErrCallFailed }

// Outcome classifies an error returned by Call into a short label.
// It returns "success" for nil.
func Outcome(err error) string {
	var (
		transportErr *TransportError
		parseErr     *ParseError
		apiErr       *APIError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.As(err, &apiErr):
		return "api_error"
	default:
		return "error"
	}
}
