package disqus

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamEncoding_Encode(t *testing.T) {
	params := Params{"thread": "123", "forum": "blog", "limit": "25"}

	assert.Equal(t, "forum=blog&limit=25&thread=123", ParamEncodingRaw.Encode(params))
	assert.Equal(t, "forum=blog&limit=25&thread=123", ParamEncodingEscaped.Encode(params))
	assert.Equal(t, "", ParamEncodingRaw.Encode(nil))
}

func TestParamEncoding_RawDoesNotEscape(t *testing.T) {
	// Raw values are inserted verbatim, so & and = inside a value split it
	// into extra pairs on the receiving side.
	params := Params{"message": "a&b=c"}

	raw := ParamEncodingRaw.Encode(params)
	assert.Equal(t, "message=a&b=c", raw)
	assert.Equal(t, map[string]string{"message": "a", "b": "c"}, pairs(raw))

	assert.Equal(t, "message=a%26b%3Dc", ParamEncodingEscaped.Encode(params))
}

func TestParseParamEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    ParamEncoding
		wantErr bool
	}{
		{in: "", want: ParamEncodingRaw},
		{in: "raw", want: ParamEncodingRaw},
		{in: "Escaped", want: ParamEncodingEscaped},
		{in: "base64", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseParamEncoding(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) ParamEncoding {
	t.Helper()
	e, err := ParseParamEncoding(s)
	require.NoError(t, err)
	return e
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("delete")
	require.NoError(t, err)
	assert.Equal(t, MethodDelete, m)

	_, err = ParseMethod("TRACE")
	assert.Error(t, err)
}

func TestGet_QueryString(t *testing.T) {
	fake := newFakeDisqus(t)
	fake.respond(apiPrefix+"threads/list.json", `{"code":0,"response":[{"id":"1"}]}`)
	client := fake.newClient(t)

	resp, err := client.Get(context.Background(), "threads/list", false, Params{"forum": "blog"})
	require.NoError(t, err)
	assert.Equal(t, float64(0), resp["code"])
	assert.Len(t, resp["response"], 1)

	reqs := fake.requestsTo(apiPrefix + "threads/list.json")
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Empty(t, reqs[0].Body)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
	assert.Equal(t, "api_key=X&api_secret=Y&forum=blog", reqs[0].RawQuery)
}

func TestPost_FormBody(t *testing.T) {
	fake := newFakeDisqus(t)
	fake.respond(apiPrefix+"posts/create.json", `{"code":0,"response":{"id":"99"}}`)
	client := fake.newClient(t, WithStore(storeWithIdentity(t, `{"user_id":"42","access_token":"tok"}`)))

	_, err := client.Post(context.Background(), "/posts/create", true, Params{"thread": "7", "message": "hello"})
	require.NoError(t, err)

	reqs := fake.requestsTo(apiPrefix + "posts/create.json")
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Empty(t, reqs[0].RawQuery)
	assert.Equal(t, "application/x-www-form-urlencoded", reqs[0].Header.Get("Content-Type"))
	assert.Equal(t, "access_token=tok&api_key=X&api_secret=Y&message=hello&thread=7", reqs[0].Body)
}

func TestCall_OtherMethodsUseQueryString(t *testing.T) {
	for _, method := range []Method{MethodPut, MethodPatch, MethodDelete} {
		t.Run(string(method), func(t *testing.T) {
			fake := newFakeDisqus(t)
			fake.respond(apiPrefix+"posts/remove.json", `{"code":0,"response":[]}`)
			client := fake.newClient(t)

			_, err := client.Call(context.Background(), method, "posts/remove", false, Params{"post": "1"})
			require.NoError(t, err)

			reqs := fake.requestsTo(apiPrefix + "posts/remove.json")
			require.Len(t, reqs, 1)
			assert.Equal(t, string(method), reqs[0].Method)
			assert.Empty(t, reqs[0].Body)
			assert.Equal(t, "1", pairs(reqs[0].RawQuery)["post"])
		})
	}
}

func TestCall_AccessTokenInjection(t *testing.T) {
	const identity = `{"user_id":"42","access_token":"tok"}`

	tests := []struct {
		name         string
		store        string
		authRequired bool
		params       Params
		wantToken    string
	}{
		{name: "auth required with identity", store: identity, authRequired: true, wantToken: "tok"},
		{name: "auth not required with identity", store: identity, authRequired: false},
		{name: "auth required without identity", authRequired: true},
		{name: "caller token is dropped", authRequired: false, params: Params{"access_token": "forged"}},
		{name: "caller token is overwritten", store: identity, authRequired: true, params: Params{"access_token": "forged"}, wantToken: "tok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeDisqus(t)
			fake.respond(apiPrefix+"users/details.json", `{"code":0,"response":{}}`)
			opts := []Option{}
			if tt.store != "" {
				opts = append(opts, WithStore(storeWithIdentity(t, tt.store)))
			}
			client := fake.newClient(t, opts...)

			_, err := client.Get(context.Background(), "users/details", tt.authRequired, tt.params)
			require.NoError(t, err)

			sent := pairs(fake.requestsTo(apiPrefix + "users/details.json")[0].RawQuery)
			token, present := sent["access_token"]
			if tt.wantToken == "" {
				assert.False(t, present, "access_token must not be sent")
				return
			}
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestCall_ReservedKeysOverwritten(t *testing.T) {
	fake := newFakeDisqus(t)
	fake.respond(apiPrefix+"forums/details.json", `{"code":0,"response":{}}`)
	client := fake.newClient(t)

	params := Params{"api_key": "other", "forum": "blog"}
	_, err := client.Get(context.Background(), "forums/details", false, params)
	require.NoError(t, err)

	sent := pairs(fake.requestsTo(apiPrefix + "forums/details.json")[0].RawQuery)
	assert.Equal(t, "X", sent["api_key"])
	assert.Equal(t, "other", params["api_key"], "caller params must not be modified")
}

func TestCall_SuccessIffCodeZero(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     bool
		wantOutcome string
		wantResp    bool
	}{
		{name: "code zero", body: `{"code":0,"response":"ok"}`, wantOutcome: "success", wantResp: true},
		{name: "code zero on http 500", status: http.StatusInternalServerError, body: `{"code":0,"response":"ok"}`, wantOutcome: "success", wantResp: true},
		{name: "api error on http 200", body: `{"code":11,"response":"Your API key is not valid"}`, wantErr: true, wantOutcome: "api_error", wantResp: true},
		{name: "code as string", body: `{"code":"0"}`, wantErr: true, wantOutcome: "parse_error", wantResp: true},
		{name: "no code", body: `{"response":"ok"}`, wantErr: true, wantOutcome: "parse_error", wantResp: true},
		{name: "fractional code", body: `{"code":0.5,"response":"ok"}`, wantErr: true, wantOutcome: "parse_error", wantResp: true},
		{name: "fractional non-zero code", body: `{"code":11.25,"response":"bad"}`, wantErr: true, wantOutcome: "parse_error", wantResp: true},
		{name: "array", body: `[1,2]`, wantErr: true, wantOutcome: "parse_error"},
		{name: "null", body: `null`, wantErr: true, wantOutcome: "parse_error"},
		{name: "empty", body: ``, wantErr: true, wantOutcome: "parse_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := tt.status
			if status == 0 {
				status = http.StatusOK
			}
			fake := newFakeDisqus(t)
			fake.respondStatus(apiPrefix+"threads/details.json", status, tt.body)
			client := fake.newClient(t)

			before := testutil.ToFloat64(apiRequestsCounter.WithLabelValues("GET", tt.wantOutcome))
			resp, err := client.Get(context.Background(), "threads/details", false, nil)
			after := testutil.ToFloat64(apiRequestsCounter.WithLabelValues("GET", tt.wantOutcome))

			assert.Equal(t, 1.0, after-before)
			assert.Equal(t, tt.wantOutcome, Outcome(err))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCallFailed)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantResp {
				assert.NotNil(t, resp)
			} else {
				assert.Nil(t, resp)
			}
		})
	}
}

func TestCall_TransportError(t *testing.T) {
	fake := newFakeDisqus(t)
	client := fake.newClient(t)
	fake.server.Close()

	resp, err := client.Get(context.Background(), "threads/list", false, nil)
	assert.Nil(t, resp)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, strings.HasSuffix(transportErr.URL, "threads/list.json?api_key=X&api_secret=Y"))
}

func TestCall_ContextCanceled(t *testing.T) {
	fake := newFakeDisqus(t)
	client := fake.newClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "threads/list", false, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrCallFailed)
}

func TestCall_NotConfigured(t *testing.T) {
	client, err := NewClient(context.Background())
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "threads/list", false, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NotErrorIs(t, err, ErrCallFailed)
}

func TestCallRaw_ReturnsBodyUntouched(t *testing.T) {
	fake := newFakeDisqus(t)
	fake.respond(apiPrefix+"threads/list.json", `{"code":2,"response":"Invalid argument"}`)
	client := fake.newClient(t)

	body, err := client.CallRaw(context.Background(), MethodGet, "threads/list", false, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":2,"response":"Invalid argument"}`, string(body))
}

func TestCall_ConcurrentWithLogout(t *testing.T) {
	fake := newFakeDisqus(t)
	fake.respond(apiPrefix+"users/details.json", `{"code":0,"response":{}}`)
	client := fake.newClient(t, WithStore(storeWithIdentity(t, `{"user_id":"42","access_token":"tok"}`)))

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := client.Get(context.Background(), "users/details", true, nil)
			errs <- err
		}()
	}
	require.NoError(t, client.Logout(context.Background()))
	for i := 0; i < 10; i++ {
		assert.NoError(t, <-errs)
	}
	assert.False(t, client.IsAuthenticated())
}
