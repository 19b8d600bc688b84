// Package classifier decides from a raw HTTP response whether the viewer is
// authenticated, who they are, and which session credential to keep. The
// backend may answer with JSON or with server rendered HTML, so every
// function here is a best-effort heuristic. Nothing in this package performs
// I/O or keeps state.
package classifier

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/jrsteele09/energia-client/sessions"
	"github.com/jrsteele09/energia-client/transport"
	"github.com/jrsteele09/energia-client/users"
)

// DefaultSessionCookie is the cookie name set by the legacy backend.
const DefaultSessionCookie = "connect.sid"

type Source string

const (
	SourceStatus Source = "status"
	SourceJSON   Source = "json"
	SourceHTML   Source = "html"
)

type Result struct {
	Authenticated bool
	User          *users.User
	// SessionCredential is the session cookie segment, or the raw
	// Set-Cookie header when the marker was not found.
	SessionCredential string
	// Tokens holds bearer tokens found in a JSON body.
	Tokens *sessions.Bundle
	Source Source
}

// Bundle combines the cookie and any bearer tokens, nil when neither exists.
func (r Result) Bundle() *sessions.Bundle {
	var b sessions.Bundle
	if r.Tokens != nil {
		b = *r.Tokens
	}
	b.Cookie = r.SessionCredential
	if !b.Valid() {
		return nil
	}
	return &b
}

type Classifier struct {
	cookieName string
}

func New(cookieName string) Classifier {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return Classifier{cookieName: cookieName}
}

// Classify inspects a response. Redirects to a login page and 401/403 are
// unauthenticated; other redirects carry no verdict and are unauthenticated
// until a probe says otherwise.
func (c Classifier) Classify(resp *transport.Response) Result {
	if resp == nil {
		return Result{Source: SourceStatus}
	}
	cred := ExtractSessionCookie(resp.SetCookies(), c.cookieName)

	switch {
	case resp.IsRedirect(),
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode >= http.StatusInternalServerError:
		return Result{SessionCredential: cred, Source: SourceStatus}
	}

	r := ClassifyBody(resp.Body, resp.ContentType())
	r.SessionCredential = cred
	return r
}

// ClassifyBody inspects a body without headers or status. JSON is detected
// from the content type or from the first non-space byte.
func ClassifyBody(body []byte, contentType string) Result {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Result{Source: SourceStatus}
	}
	if strings.Contains(contentType, "json") || trimmed[0] == '{' {
		if obj, ok := decodeObject(trimmed); ok {
			return ClassifyObject(obj)
		}
	}
	parsed := ParseHTML(body)
	return Result{Authenticated: parsed.Authenticated, User: parsed.User, Source: SourceHTML}
}

// ClassifyObject inspects an already decoded JSON body.
func ClassifyObject(obj map[string]any) Result {
	u, tokens, ok := ParseJSON(obj)
	return Result{Authenticated: ok, User: u, Tokens: tokens, Source: SourceJSON}
}

// LoginRedirect reports whether a redirect points at the login page.
func LoginRedirect(resp *transport.Response) bool {
	return resp != nil && resp.IsRedirect() && strings.Contains(strings.ToLower(resp.Location), "login")
}
