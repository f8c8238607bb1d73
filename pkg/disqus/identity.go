package disqus

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"golang.org/x/oauth2"
)

// Identity is the authenticated Disqus user together with its tokens.
//
// It is decoded from the token endpoint response. Both the Disqus wire keys
// (user_id, access_token, ...) and their camelCase forms (userID,
// accessToken, ...) are accepted. Fields the client does not model are kept
// in Extra and written back when the identity is persisted.
type Identity struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
	Expiry       time.Time `json:"expiry"`

	Extra map[string]json.RawMessage `json:"extra,omitempty"`
}

// identityKeys maps every accepted JSON key to the field it fills.
var identityKeys = map[string]string{
	"user_id":       "user_id",
	"userID":        "user_id",
	"userId":        "user_id",
	"username":      "username",
	"access_token":  "access_token",
	"accessToken":   "access_token",
	"refresh_token": "refresh_token",
	"refreshToken":  "refresh_token",
	"token_type":    "token_type",
	"tokenType":     "token_type",
	"scope":         "scope",
	"expires_in":    "expires_in",
	"expiresIn":     "expires_in",
	"expiry":        "expiry",
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Identity
	for _, key := range decodeOrder(fields) {
		raw := fields[key]
		field, known := identityKeys[key]
		if !known {
			switch key {
			case "code":
				// response envelope, not part of the identity
			case "extra":
				var extra map[string]json.RawMessage
				if err := json.Unmarshal(raw, &extra); err != nil {
					return fmt.Errorf("extra: %w", err)
				}
				for k, v := range extra {
					out.setExtra(k, v)
				}
			default:
				out.setExtra(key, raw)
			}
			continue
		}

		var err error
		switch field {
		case "user_id":
			out.UserID, err = stringOrNumber(raw)
		case "username":
			out.Username, err = stringOrNumber(raw)
		case "access_token":
			out.AccessToken, err = stringOrNumber(raw)
		case "refresh_token":
			out.RefreshToken, err = stringOrNumber(raw)
		case "token_type":
			out.TokenType, err = stringOrNumber(raw)
		case "scope":
			out.Scope, err = stringOrNumber(raw)
		case "expires_in":
			err = json.Unmarshal(raw, &out.ExpiresIn)
		case "expiry":
			err = json.Unmarshal(raw, &out.Expiry)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	*i = out
	return nil
}

// decodeOrder sorts the keys so that camelCase aliases are applied before
// the snake_case wire keys, which therefore win when both are present.
func decodeOrder(fields map[string]json.RawMessage) []string {
	rank := func(key string) int {
		if field, ok := identityKeys[key]; ok && field == key {
			return 1
		}
		return 0
	}
	keys := slices.Sorted(maps.Keys(fields))
	slices.SortStableFunc(keys, func(a, b string) int { return rank(a) - rank(b) })
	return keys
}

func (i *Identity) setExtra(key string, raw json.RawMessage) {
	if i.Extra == nil {
		i.Extra = make(map[string]json.RawMessage)
	}
	i.Extra[key] = raw
}

// stringOrNumber decodes a JSON string, number or null into a string.
func stringOrNumber(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", string(raw))
	}
	return n.String(), nil
}

// stamp derives Expiry from ExpiresIn when the response only carried the latter.
func (i *Identity) stamp(now time.Time) {
	if i.Expiry.IsZero() && i.ExpiresIn > 0 {
		i.Expiry = now.Add(time.Duration(i.ExpiresIn) * time.Second)
	}
}

// merge returns a copy of i updated with the token fields of a refresh response.
// User fields absent from the refresh response are kept.
func (i *Identity) merge(refreshed *Identity) *Identity {
	out := i.clone()
	if refreshed.UserID != "" {
		out.UserID = refreshed.UserID
	}
	if refreshed.Username != "" {
		out.Username = refreshed.Username
	}
	if refreshed.AccessToken != "" {
		out.AccessToken = refreshed.AccessToken
	}
	if refreshed.RefreshToken != "" {
		out.RefreshToken = refreshed.RefreshToken
	}
	if refreshed.TokenType != "" {
		out.TokenType = refreshed.TokenType
	}
	if refreshed.Scope != "" {
		out.Scope = refreshed.Scope
	}
	out.ExpiresIn = refreshed.ExpiresIn
	out.Expiry = refreshed.Expiry
	for k, v := range refreshed.Extra {
		out.setExtra(k, v)
	}
	return out
}

func (i *Identity) clone() *Identity {
	out := *i
	if i.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(i.Extra))
		for k, v := range i.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

// Token returns the identity as an oauth2.Token. The user ID and username
// are available through Token.Extra.
func (i *Identity) Token() *oauth2.Token {
	tokenType := i.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	token := &oauth2.Token{
		AccessToken:  i.AccessToken,
		TokenType:    tokenType,
		RefreshToken: i.RefreshToken,
		Expiry:       i.Expiry,
	}
	return token.WithExtra(map[string]interface{}{
		"user_id":  i.UserID,
		"username": i.Username,
	})
}
