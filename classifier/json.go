package classifier

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/energia-client/sessions"
	"github.com/jrsteele09/energia-client/users"
)

// ParseJSON maps a decoded JSON body. The identity may sit at the top level,
// under "user", under "data" or under "data.user". Tokens may sit under
// "tokens" or "data.tokens", or at the top level.
func ParseJSON(body map[string]any) (*users.User, *sessions.Bundle, bool) {
	if success, ok := body["success"].(bool); ok && !success {
		return nil, nil, false
	}

	data, _ := body["data"].(map[string]any)
	tokens := findTokens(body, data)

	for _, candidate := range []map[string]any{
		body,
		asObject(body["user"]),
		data,
		asObject(data["user"]),
	} {
		if u := identity(candidate); u != nil {
			return u, tokens, true
		}
	}

	if tokens != nil {
		if u := identityFromJWT(tokens.AccessToken); u != nil {
			return u, tokens, true
		}
	}
	return nil, tokens, false
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func identity(obj map[string]any) *users.User {
	email := stringField(obj, "email")
	if email == "" || !strings.Contains(email, "@") {
		return nil
	}
	u := &users.User{
		ID:    stringField(obj, "id", "_id", "userId"),
		Name:  stringField(obj, "name", "nome", "username"),
		Email: email,
		Group: users.GroupWatts,
	}
	if g, ok := users.ParseGroup(stringField(obj, "group", "grupo")); ok {
		u.Group = g
	}
	if u.ID == "" {
		u.ID = users.DefaultUserID
	}
	if u.Name == "" {
		u.Name = users.DefaultName
	}
	return u
}

func stringField(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// intField reads the first integral number under keys. Bodies decoded by
// this package carry json.Number; caller supplied maps may carry float64.
func intField(obj map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n
			}
			if f, err := v.Float64(); err == nil {
				return int64(f)
			}
		case float64:
			return int64(v)
		}
	}
	return 0
}

func findTokens(body, data map[string]any) *sessions.Bundle {
	for _, candidate := range []map[string]any{
		asObject(body["tokens"]),
		asObject(data["tokens"]),
		body,
	} {
		access := stringField(candidate, "accessToken", "access_token", "token")
		if access == "" {
			continue
		}
		b := &sessions.Bundle{
			AccessToken:  access,
			RefreshToken: stringField(candidate, "refreshToken", "refresh_token"),
			TokenType:    stringField(candidate, "tokenType", "token_type"),
		}
		b.ExpiresIn = intField(candidate, "expiresIn", "expires_in")
		return b
	}
	return nil
}

// identityFromJWT reads the viewer from unverified bearer claims. Used only
// when the JSON body itself carries no identity.
func identityFromJWT(token string) *users.User {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil
	}
	u := &users.User{ID: users.DefaultUserID, Name: users.DefaultName, Email: email, Group: users.GroupWatts}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		u.ID = sub
	}
	if name, ok := claims["name"].(string); ok && name != "" {
		u.Name = name
	}
	if g, ok := claims["group"].(string); ok {
		if group, ok := users.ParseGroup(g); ok {
			u.Group = group
		}
	}
	return u
}

// decodeObject keeps numbers as json.Number so large numeric ids survive.
func decodeObject(body []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return obj, obj != nil
}
