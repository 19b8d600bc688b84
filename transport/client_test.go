package transport_test

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/transport"
)

type testConfig struct {
	baseURL string
	timeout time.Duration
}

func (c testConfig) GetBaseURL() string { return c.baseURL }
func (c testConfig) GetHTTPTimeout() time.Duration { return c.timeout }
func (testConfig) GetUserAgent() string { return "EnergIA-Mobile-App/test" }
func (testConfig) GetAcceptLanguage() string { return "pt-BR,pt;q=0.9,en;q=0.8" }

func setupTestFixture(t *testing.T, handler http.HandlerFunc, opts ...transport.Option) *transport.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := transport.New(testConfig{baseURL: srv.URL + "/", timeout: 2 * time.Second}, opts...)
	require.NoError(t, err)
	return c
}

func TestClient_Headers(t *testing.T) {
	var got *http.Request
	var body string
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusNoContent)
	}, transport.WithCredentialSource(func(context.Context) (transport.Credentials, error) {
		return transport.Credentials{Token: &oauth2.Token{AccessToken: "tok", TokenType: "Bearer"}, Cookie: "connect.sid=stored"}, nil
	}))

	resp, err := c.Do(context.Background(), transport.Request{
		Method:      http.MethodPost,
		Path:        "/login?x=1",
		Body:        []byte("email=a%40b.c"),
		ContentType: "application/x-www-form-urlencoded",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Equal(t, "/login", got.URL.Path)
	require.Equal(t, "1", got.URL.Query().Get("x"))
	require.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	require.Equal(t, "connect.sid=stored", got.Header.Get("Cookie"))
	require.Equal(t, "EnergIA-Mobile-App/test", got.Header.Get("User-Agent"))
	require.Equal(t, "pt-BR,pt;q=0.9,en;q=0.8", got.Header.Get("Accept-Language"))
	require.Equal(t, "application/x-www-form-urlencoded", got.Header.Get("Content-Type"))
	require.Equal(t, "email=a%40b.c", body)

	t.Run("request cookie overrides stored", func(t *testing.T) {
		_, err := c.Do(context.Background(), transport.Request{Path: "/dashboard", Cookie: "connect.sid=fresh"})
		require.NoError(t, err)
		require.Equal(t, "connect.sid=fresh", got.Header.Get("Cookie"))
	})

	t.Run("skip auth", func(t *testing.T) {
		_, err := c.Do(context.Background(), transport.Request{Path: "/", SkipAuth: true})
		require.NoError(t, err)
		require.Empty(t, got.Header.Get("Authorization"))
		require.Empty(t, got.Header.Get("Cookie"))
	})
}

func TestClient_DoesNotFollowRedirects(t *testing.T) {
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "connect.sid", Value: "s%3Aabc", Path: "/", HttpOnly: true})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	resp, err := c.Do(context.Background(), transport.Request{Method: http.MethodPost, Path: "/login"})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.True(t, resp.IsRedirect())
	require.Equal(t, "/dashboard", resp.Location)
	require.Len(t, resp.SetCookies(), 1)
	require.Contains(t, resp.SetCookies()[0], "connect.sid=s%3Aabc")
}

func TestClient_Unauthorized(t *testing.T) {
	t.Run("replayed once with fresh credentials", func(t *testing.T) {
		var hits atomic.Int32
		c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		},
			transport.WithCredentialSource(func(context.Context) (transport.Credentials, error) {
				return transport.Credentials{Token: &oauth2.Token{AccessToken: "stale"}}, nil
			}),
			transport.WithUnauthorizedHandler(func(context.Context) (transport.Credentials, error) {
				return transport.Credentials{Token: &oauth2.Token{AccessToken: "fresh"}}, nil
			}),
		)

		resp, err := c.Do(context.Background(), transport.Request{Path: "/chat"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, int32(2), hits.Load())
	})

	t.Run("handler failure is session expired", func(t *testing.T) {
		c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, transport.WithUnauthorizedHandler(func(context.Context) (transport.Credentials, error) {
			return transport.Credentials{}, stderrors.New("refresh rejected")
		}))

		_, err := c.Do(context.Background(), transport.Request{Path: "/chat"})
		require.ErrorIs(t, err, errors.ErrSessionExpired)
	})

	t.Run("no replay without handler", func(t *testing.T) {
		c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		resp, err := c.Do(context.Background(), transport.Request{Path: "/chat"})
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := transport.New(testConfig{baseURL: url, timeout: time.Second})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), transport.Request{Path: "/"})
	require.ErrorIs(t, err, errors.ErrNetwork)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := transport.New(testConfig{baseURL: srv.URL, timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), transport.Request{Path: "/dashboard"})
	require.ErrorIs(t, err, errors.ErrNetwork)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := transport.New(testConfig{baseURL: "::nope", timeout: time.Second})
	require.Error(t, err)
	_, err = transport.New(nil)
	require.Error(t, err)
}
