package classifier_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/energia-client/classifier"
	"github.com/jrsteele09/energia-client/transport"
	"github.com/jrsteele09/energia-client/users"
)

func TestParseHTML_LoginFormIsUnauthenticated(t *testing.T) {
	for name, page := range map[string]string{
		"login page":            loginPage,
		"login page with error": loginPageWithError,
		"form and logout only":  loginFormWithLogoutOnly,
	} {
		t.Run(name, func(t *testing.T) {
			parsed := classifier.ParseHTML([]byte(page))
			require.False(t, parsed.Authenticated)
			require.Nil(t, parsed.User)
			require.True(t, parsed.LoginForm)
		})
	}
}

func TestParseHTML_Metadata(t *testing.T) {
	t.Run("with greeting", func(t *testing.T) {
		parsed := classifier.ParseHTML([]byte(metadataDashboard))
		require.True(t, parsed.Authenticated)
		require.Equal(t, "64f1c2a9e", parsed.User.ID)
		require.Equal(t, users.GroupVolts, parsed.User.Group)
		require.Equal(t, "Maria Silva", parsed.User.Name)
		require.Equal(t, "structural", parsed.NamePattern)
		require.Equal(t, "maria@example.com", parsed.User.Email)
	})

	t.Run("without greeting", func(t *testing.T) {
		parsed := classifier.ParseHTML([]byte(metadataWithoutGreeting))
		require.True(t, parsed.Authenticated)
		require.Equal(t, "u-123", parsed.User.ID)
		require.Equal(t, users.GroupWatts, parsed.User.Group)
		require.Equal(t, users.DefaultName, parsed.User.Name)
	})

	t.Run("outranks login form", func(t *testing.T) {
		parsed := classifier.ParseHTML([]byte(transitionalPage))
		require.True(t, parsed.Authenticated)
		require.Equal(t, "abc", parsed.User.ID)
	})
}

func TestParseHTML_Names(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		want    string
		pattern string
	}{
		{"hello with logout", helloDashboard, "Jane Doe", "greeting"},
		{"hello without markers", helloNoMarkers, "Jane Doe", "greeting"},
		{"heading", headingDashboard, "Carlos Souza", "heading"},
		{"script variable", scriptDashboard, "Ana Lima", "script-name"},
		{"bare greeting", bareGreetingDashboard, "Pedro Alves", "bare"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := classifier.ParseHTML([]byte(tt.page))
			require.True(t, parsed.Authenticated)
			require.Equal(t, tt.want, parsed.User.Name)
			require.Equal(t, tt.pattern, parsed.NamePattern)
			require.Equal(t, users.DefaultUserID, parsed.User.ID)
		})
	}
}

func TestParseHTML_Group(t *testing.T) {
	parsed := classifier.ParseHTML([]byte(genericDashboard))
	require.True(t, parsed.Authenticated)
	require.Equal(t, users.GroupVolts, parsed.User.Group)
	require.Equal(t, "Bruno", parsed.User.Name)

	parsed = classifier.ParseHTML([]byte(helloDashboard))
	require.Equal(t, users.GroupWatts, parsed.User.Group)
}

func TestParseHTML_LogoutOnly(t *testing.T) {
	parsed := classifier.ParseHTML([]byte(logoutOnlyDashboard))
	require.True(t, parsed.Authenticated)
	require.Equal(t, users.DefaultName, parsed.User.Name)
	require.Empty(t, parsed.NamePattern)
}

func TestParseHTML_NeverPanics(t *testing.T) {
	for _, page := range []string{"", "<", malformedHTML, "\x00\xff\xfe", "<html><body></body></html>"} {
		require.NotPanics(t, func() {
			parsed := classifier.ParseHTML([]byte(page))
			if page != malformedHTML {
				require.False(t, parsed.Authenticated)
				require.Nil(t, parsed.User)
			}
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := classifier.New("")
	resp := &transport.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Set-Cookie": {"connect.sid=s%3Axyz; Path=/; HttpOnly"}},
		Body:       []byte(metadataDashboard),
	}
	first := c.Classify(resp)
	second := c.Classify(resp)
	require.Equal(t, first, second)
	require.Equal(t, "connect.sid=s%3Axyz", first.SessionCredential)
	require.Equal(t, classifier.SourceHTML, first.Source)
}

func TestClassify_Status(t *testing.T) {
	c := classifier.New("connect.sid")

	t.Run("redirect to login", func(t *testing.T) {
		resp := &transport.Response{StatusCode: http.StatusFound, Location: "/login", Header: http.Header{}}
		r := c.Classify(resp)
		require.False(t, r.Authenticated)
		require.True(t, classifier.LoginRedirect(resp))
	})

	t.Run("redirect to dashboard keeps cookie", func(t *testing.T) {
		resp := &transport.Response{
			StatusCode: http.StatusFound,
			Location:   "/dashboard",
			Header:     http.Header{"Set-Cookie": {"connect.sid=s%3Aabc.sig; Path=/; HttpOnly"}},
		}
		r := c.Classify(resp)
		require.False(t, r.Authenticated)
		require.False(t, classifier.LoginRedirect(resp))
		require.Equal(t, "connect.sid=s%3Aabc.sig", r.SessionCredential)
		require.Equal(t, "connect.sid=s%3Aabc.sig", r.Bundle().Cookie)
	})

	t.Run("401 with dashboard body", func(t *testing.T) {
		r := c.Classify(&transport.Response{StatusCode: http.StatusUnauthorized, Header: http.Header{}, Body: []byte(helloDashboard)})
		require.False(t, r.Authenticated)
	})
}

func TestClassify_JSON(t *testing.T) {
	c := classifier.New("connect.sid")

	t.Run("dashboard json", func(t *testing.T) {
		r := c.Classify(&transport.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       []byte(`{"id":7,"name":"Jane Doe","email":"jane@example.com","group":"volts"}`),
		})
		require.True(t, r.Authenticated)
		require.Equal(t, classifier.SourceJSON, r.Source)
		require.Equal(t, &users.User{ID: "7", Name: "Jane Doe", Email: "jane@example.com", Group: users.GroupVolts}, r.User)
	})

	t.Run("wrapped login response", func(t *testing.T) {
		r := classifier.ClassifyBody([]byte(`{"success":true,"data":{"user":{"id":"u1","email":"a@b.co"},"tokens":{"accessToken":"at","refreshToken":"rt","expiresIn":900}}}`), "")
		require.True(t, r.Authenticated)
		require.Equal(t, "u1", r.User.ID)
		require.Equal(t, users.DefaultName, r.User.Name)
		require.Equal(t, users.GroupWatts, r.User.Group)
		require.Equal(t, "at", r.Tokens.AccessToken)
		require.Equal(t, "rt", r.Tokens.RefreshToken)
		require.Equal(t, int64(900), r.Tokens.ExpiresIn)
	})

	t.Run("large numeric id keeps every digit", func(t *testing.T) {
		r := classifier.ClassifyBody([]byte(`{"id":9007199254740993,"email":"big@example.com","tokens":{"accessToken":"at","expires_in":3600}}`), "application/json")
		require.True(t, r.Authenticated)
		require.Equal(t, "9007199254740993", r.User.ID)
		require.Equal(t, int64(3600), r.Tokens.ExpiresIn)
	})

	t.Run("caller decoded map", func(t *testing.T) {
		r := classifier.ClassifyObject(map[string]any{"id": float64(42), "email": "n@example.com"})
		require.True(t, r.Authenticated)
		require.Equal(t, "42", r.User.ID)
	})

	t.Run("trailing data is not an object", func(t *testing.T) {
		r := classifier.ClassifyBody([]byte(`{"id":"u1","email":"a@b.co"} {"id":"u2"}`), "application/json")
		require.NotEqual(t, classifier.SourceJSON, r.Source)
	})

	t.Run("success false", func(t *testing.T) {
		r := classifier.ClassifyBody([]byte(`{"success":false,"message":"Credenciais inválidas","user":{"email":"a@b.co"}}`), "application/json")
		require.False(t, r.Authenticated)
		require.Nil(t, r.User)
	})

	t.Run("no identity", func(t *testing.T) {
		r := classifier.ClassifyObject(map[string]any{"status": "ok"})
		require.False(t, r.Authenticated)
		require.Nil(t, r.Bundle())
	})

	t.Run("malformed json falls back to html", func(t *testing.T) {
		r := classifier.ClassifyBody([]byte(`{not json <a href="/logout">Sair</a>`), "")
		require.Equal(t, classifier.SourceHTML, r.Source)
		require.True(t, r.Authenticated)
	})
}
