package sandbox_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/energia-client/classifier"
	"github.com/jrsteele09/energia-client/internal/config"
	"github.com/jrsteele09/energia-client/sandbox"
	"github.com/jrsteele09/energia-client/sandbox/sandboxtest"
	"github.com/jrsteele09/energia-client/users"
)

type testFixture struct {
	backend *sandboxtest.Backend
	client  *http.Client
}

func setupTestFixture(t *testing.T, opts ...sandbox.Option) *testFixture {
	backend := sandboxtest.Start(t, opts...)
	return &testFixture{
		backend: backend,
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
	}
}

func (f *testFixture) do(t *testing.T, method, path, contentType, body string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.backend.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, vs := range header {
		req.Header[k] = vs
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func (f *testFixture) formLogin(t *testing.T, password string) *http.Response {
	form := url.Values{"email": {sandboxtest.Email}, "password": {password}}
	resp, _ := f.do(t, http.MethodPost, sandbox.RouteLogin, "application/x-www-form-urlencoded", form.Encode(), nil)
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == sandbox.SessionCookieName {
			return c
		}
	}
	return nil
}

func cookieHeader(c *http.Cookie) string {
	return c.Name + "=" + c.Value
}

func TestLogin_Form(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("success redirects with cookie", func(t *testing.T) {
		resp := f.formLogin(t, sandboxtest.Password)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, sandbox.RouteDashboard, resp.Header.Get("Location"))
		require.NotNil(t, sessionCookie(resp))
	})

	t.Run("wrong password re-renders the form", func(t *testing.T) {
		resp, body := f.do(t, http.MethodPost, sandbox.RouteLogin, "application/x-www-form-urlencoded",
			url.Values{"email": {sandboxtest.Email}, "password": {"errada"}}.Encode(), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Nil(t, sessionCookie(resp))
		parsed := classifier.ParseHTML([]byte(body))
		require.True(t, parsed.LoginForm)
		require.False(t, parsed.Authenticated)
	})
}

func TestLogin_AcceptedEncodings(t *testing.T) {
	f := setupTestFixture(t, sandbox.WithAcceptedEncodings(config.EncodingJSON))

	resp := f.formLogin(t, sandboxtest.Password)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, sessionCookie(resp))

	body := `{"email":"` + sandboxtest.Email + `","password":"` + sandboxtest.Password + `"}`
	resp, payload := f.do(t, http.MethodPost, sandbox.RouteLogin, "application/json", body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, sessionCookie(resp))

	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &obj))
	result := classifier.ClassifyObject(obj)
	require.True(t, result.Authenticated)
	require.Equal(t, sandboxtest.Email, result.User.Email)
	require.NotNil(t, result.Tokens)
	require.NotEmpty(t, result.Tokens.RefreshToken)
}

func TestDashboard(t *testing.T) {
	t.Run("redirects without a session", func(t *testing.T) {
		f := setupTestFixture(t)
		resp, _ := f.do(t, http.MethodGet, sandbox.RouteDashboard, "", "", nil)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, sandbox.RouteLogin, resp.Header.Get("Location"))
	})

	t.Run("standard template carries metadata", func(t *testing.T) {
		f := setupTestFixture(t)
		cookie := sessionCookie(f.formLogin(t, sandboxtest.Password))
		resp, body := f.do(t, http.MethodGet, sandbox.RouteDashboard, "", "", http.Header{"Cookie": {cookieHeader(cookie)}})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		parsed := classifier.ParseHTML([]byte(body))
		require.True(t, parsed.Authenticated)
		require.Equal(t, f.backend.User.ID, parsed.User.ID)
		require.Equal(t, users.GroupWatts, parsed.User.Group)
		require.Equal(t, sandboxtest.Name, parsed.User.Name)
		require.Equal(t, sandboxtest.Email, parsed.User.Email)
	})

	t.Run("generic template falls back to volts", func(t *testing.T) {
		f := setupTestFixture(t, sandbox.WithDashboardTemplate(sandbox.DashboardGeneric))
		cookie := sessionCookie(f.formLogin(t, sandboxtest.Password))
		_, body := f.do(t, http.MethodGet, sandbox.RouteDashboard, "", "", http.Header{"Cookie": {cookieHeader(cookie)}})

		parsed := classifier.ParseHTML([]byte(body))
		require.True(t, parsed.Authenticated)
		require.Equal(t, users.DefaultUserID, parsed.User.ID)
		require.Equal(t, users.GroupVolts, parsed.User.Group)
		require.Equal(t, sandboxtest.Name, parsed.User.Name)
	})

	t.Run("json when asked", func(t *testing.T) {
		f := setupTestFixture(t)
		cookie := sessionCookie(f.formLogin(t, sandboxtest.Password))
		resp, body := f.do(t, http.MethodGet, sandbox.RouteDashboard, "", "", http.Header{
			"Cookie": {cookieHeader(cookie)},
			"Accept": {"application/json"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := classifier.ClassifyBody([]byte(body), resp.Header.Get("Content-Type"))
		require.True(t, result.Authenticated)
		require.Equal(t, f.backend.User.ID, result.User.ID)
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	cookie := sessionCookie(f.formLogin(t, sandboxtest.Password))
	require.Equal(t, 1, f.backend.Sessions.Len())

	resp, _ := f.do(t, http.MethodGet, sandbox.RouteLogout, "", "", http.Header{"Cookie": {cookieHeader(cookie)}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, 0, f.backend.Sessions.Len())
}

type sessionEnvelope struct {
	Data struct {
		Tokens struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"tokens"`
	} `json:"data"`
}

func TestRefresh(t *testing.T) {
	f := setupTestFixture(t)
	body := `{"email":"` + sandboxtest.Email + `","password":"` + sandboxtest.Password + `"}`
	_, payload := f.do(t, http.MethodPost, sandbox.RouteLogin, "application/json", body, nil)
	var login sessionEnvelope
	require.NoError(t, json.Unmarshal([]byte(payload), &login))
	refreshBody := `{"refreshToken":"` + login.Data.Tokens.RefreshToken + `"}`

	resp, payload := f.do(t, http.MethodPost, sandbox.RouteAuthRefresh, "application/json", refreshBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refreshed sessionEnvelope
	require.NoError(t, json.Unmarshal([]byte(payload), &refreshed))
	require.NotEmpty(t, refreshed.Data.Tokens.AccessToken)
	require.NotEqual(t, login.Data.Tokens.RefreshToken, refreshed.Data.Tokens.RefreshToken)

	t.Run("refresh tokens are single use", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPost, sandbox.RouteAuthRefresh, "application/json", refreshBody, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("revoked access tokens are rejected", func(t *testing.T) {
		bearer := http.Header{"Authorization": {"Bearer " + refreshed.Data.Tokens.AccessToken}, "Accept": {"application/json"}}
		resp, _ := f.do(t, http.MethodGet, sandbox.RouteDashboard, "", "", bearer)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		require.NoError(t, f.backend.Sandbox.RevokeUser(f.backend.User.ID))
		resp, _ = f.do(t, http.MethodGet, sandbox.RouteDashboard, "", "", bearer)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestChatMessage(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		f := setupTestFixture(t)
		resp, _ := f.do(t, http.MethodPost, sandbox.RouteChatMessage, "application/json", `{"message":"oi"}`, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("sse mode", func(t *testing.T) {
		f := setupTestFixture(t, sandbox.WithChatMode(sandbox.ChatModeSSE), sandbox.WithChatReply(func(*users.User, string) string {
			return "Hello World"
		}))
		cookie := sessionCookie(f.formLogin(t, sandboxtest.Password))
		resp, body := f.do(t, http.MethodPost, sandbox.RouteChatMessage, "application/json", `{"message":"oi"}`,
			http.Header{"Cookie": {cookieHeader(cookie)}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
		require.Contains(t, body, `data: {"chunk":"Hello "}`)
		require.Contains(t, body, `data: {"chunk":"World"}`)
	})
}

func TestRoutes(t *testing.T) {
	f := setupTestFixture(t)
	require.Contains(t, f.backend.Sandbox.Routes(), "POST "+sandbox.RouteLogin)

	resp, _ := f.do(t, http.MethodGet, "/", "", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/missing", "", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, 1, f.backend.Count(http.MethodGet, "/"))
}
