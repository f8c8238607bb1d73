package disqus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Method is an HTTP method accepted by Call.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// ParseMethod converts a method name (any case) into a Method.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported method %q", s)
	}
}

// Params are request parameters. The keys api_key, api_secret and
// access_token are reserved and set by the client.
type Params map[string]string

const (
	paramAPIKey      = "api_key"
	paramAPISecret   = "api_secret"
	paramAccessToken = "access_token"
)

// Response is a decoded API response object.
type Response map[string]any

// ParamEncoding controls how Params are serialized into bodies and query strings.
type ParamEncoding int

const (
	// ParamEncodingRaw joins key=value pairs with & and inserts keys and
	// values verbatim. Values containing & or = corrupt the payload, and
	// callers must pre-escape anything unsafe. This is the wire behavior
	// Disqus clients have always had.
	ParamEncodingRaw ParamEncoding = iota

	// ParamEncodingEscaped percent-encodes keys and values (url.Values.Encode).
	ParamEncodingEscaped
)

func (e ParamEncoding) String() string {
	switch e {
	case ParamEncodingEscaped:
		return "escaped"
	default:
		return "raw"
	}
}

// ParseParamEncoding converts "raw" or "escaped" into a ParamEncoding.
// The empty string selects ParamEncodingRaw.
func ParseParamEncoding(s string) (ParamEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raw":
		return ParamEncodingRaw, nil
	case "escaped":
		return ParamEncodingEscaped, nil
	default:
		return ParamEncodingRaw, fmt.Errorf("unknown param encoding %q", s)
	}
}

// Encode serializes params. Keys are emitted in sorted order.
func (e ParamEncoding) Encode(params Params) string {
	if e == ParamEncodingEscaped {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		return values.Encode()
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// Get calls a read endpoint, e.g. Get(ctx, "threads/list", false, params).
func (c *Client) Get(ctx context.Context, endpoint string, authRequired bool, params Params) (Response, error) {
	return c.Call(ctx, MethodGet, endpoint, authRequired, params)
}

// Post calls a write endpoint, e.g. Post(ctx, "posts/create", true, params).
func (c *Client) Post(ctx context.Context, endpoint string, authRequired bool, params Params) (Response, error) {
	return c.Call(ctx, MethodPost, endpoint, authRequired, params)
}

// Call performs an API call and decodes the response.
//
// The error is nil iff the request completed and the response's code is 0.
// Otherwise it is a *TransportError, *ParseError or *APIError, all of which
// match ErrCallFailed. On *APIError the decoded response is returned too.
func (c *Client) Call(ctx context.Context, method Method, endpoint string, authRequired bool, params Params) (Response, error) {
	body, err := c.CallRaw(ctx, method, endpoint, authRequired, params)
	if err != nil {
		apiRequestsCounter.WithLabelValues(string(method), Outcome(err)).Inc()
		return nil, err
	}

	resp, err := decodeResponse(body)
	apiRequestsCounter.WithLabelValues(string(method), Outcome(err)).Inc()
	return resp, err
}

// CallRaw signs and sends an API call and returns the body untouched.
// Only transport failures are reported; the code field is not inspected.
func (c *Client) CallRaw(ctx context.Context, method Method, endpoint string, authRequired bool, params Params) ([]byte, error) {
	creds, identity := c.snapshot()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	var accessToken string
	if authRequired && identity != nil {
		accessToken = identity.AccessToken
	}

	target := c.apiBase + strings.TrimPrefix(endpoint, "/") + ".json"
	return c.dispatch(ctx, method, target, sign(creds, accessToken, params))
}

// sign returns a copy of params with the reserved keys set.
func sign(creds Credentials, accessToken string, params Params) Params {
	signed := make(Params, len(params)+3)
	for k, v := range params {
		signed[k] = v
	}
	signed[paramAPIKey] = creds.PublicKey
	signed[paramAPISecret] = creds.SecretKey
	if accessToken != "" {
		signed[paramAccessToken] = accessToken
	} else {
		delete(signed, paramAccessToken)
	}
	return signed
}

// dispatch is the only network primitive. POST carries params as a form
// body; every other method appends them as a query string. HTTP status is
// not inspected: the caller decides success from the body.
func (c *Client) dispatch(ctx context.Context, method Method, target string, params Params) ([]byte, error) {
	encoded := c.encoding.Encode(params)

	var body io.Reader
	if method == MethodPost {
		body = strings.NewReader(encoded)
	} else if encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, string(method), target, body)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	if method == MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: target, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return data, nil
}

// decodeResponse parses a response object and checks its code sentinel.
func decodeResponse(body []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Body: body, Err: err}
	}
	if resp == nil {
		return nil, &ParseError{Body: body, Err: errors.New("response is null")}
	}

	code, ok := resp["code"].(float64)
	if !ok || code != math.Trunc(code) {
		return resp, &ParseError{Body: body, Err: errors.New("response has no integer code field")}
	}
	if code != 0 {
		apiErr := &APIError{Code: int(code)}
		if msg, ok := resp["response"].(string); ok {
			apiErr.Message = msg
		}
		return resp, apiErr
	}
	return resp, nil
}
