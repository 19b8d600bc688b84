package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/energia-client/auth"
	"github.com/jrsteele09/energia-client/internal/config"
	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/sandbox"
	"github.com/jrsteele09/energia-client/sandbox/sandboxtest"
	"github.com/jrsteele09/energia-client/sessions"
	"github.com/jrsteele09/energia-client/users"
)

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("no stored session", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.orchestrator.Restore(ctx)
		require.True(t, errors.Is(err, errors.ErrNotAuthenticated))
		require.Zero(t, f.backend.Count(http.MethodGet, sandbox.RouteDashboard))
	})

	t.Run("restores a persisted session", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.orchestrator.Login(ctx, validCredentials())
		require.NoError(t, err)

		restarted := newFixture(t, f.backend.URL, f.store)
		u, err := restarted.orchestrator.Restore(ctx)
		require.NoError(t, err)
		require.Equal(t, f.backend.User.ID, u.ID)
		require.Equal(t, sandboxtest.Email, u.Email)
	})

	t.Run("rejected session is cleared", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.orchestrator.Login(ctx, validCredentials())
		require.NoError(t, err)
		require.NoError(t, f.backend.Sandbox.RevokeUser(f.backend.User.ID))

		_, err = f.orchestrator.Restore(ctx)
		require.True(t, errors.Is(err, errors.ErrNotAuthenticated))
		require.Empty(t, f.store.Keys())
	})

	t.Run("network failure keeps the session", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.orchestrator.Login(ctx, validCredentials())
		require.NoError(t, err)
		f.backend.Close()

		_, err = f.orchestrator.Restore(ctx)
		require.True(t, errors.Is(err, errors.ErrNetwork))
		require.NotEmpty(t, f.store.Keys())
	})

	t.Run("generic dashboard keeps the stored id", func(t *testing.T) {
		f := setupTestFixture(t, sandbox.WithDashboardTemplate(sandbox.DashboardGeneric))
		loggedIn, err := f.orchestrator.Login(ctx, validCredentials())
		require.NoError(t, err)
		require.Equal(t, users.DefaultUserID, loggedIn.ID)
		require.Equal(t, sandboxtest.Email, loggedIn.Email)

		stored := *loggedIn
		stored.ID = f.backend.User.ID
		require.NoError(t, f.sessions.SetUser(ctx, &stored))

		u, err := f.orchestrator.Restore(ctx)
		require.NoError(t, err)
		require.Equal(t, f.backend.User.ID, u.ID)
		require.Equal(t, users.GroupVolts, u.Group)
		require.Equal(t, sandboxtest.Name, u.Name)
		require.Equal(t, sandboxtest.Email, u.Email)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears local and remote session", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.orchestrator.Login(ctx, validCredentials())
		require.NoError(t, err)
		require.Equal(t, 1, f.backend.Sessions.Len())

		require.NoError(t, f.orchestrator.Logout(ctx))
		require.Empty(t, f.store.Keys())
		require.Zero(t, f.backend.Sessions.Len())
	})

	t.Run("remote failure still clears every key", func(t *testing.T) {
		f := setupTestFixture(t, sandbox.WithAcceptedEncodings(config.EncodingJSON))
		_, err := f.orchestrator.Login(ctx, validCredentials())
		require.NoError(t, err)
		require.Len(t, f.store.Keys(), len(sessions.AllKeys()))
		f.backend.Close()

		require.NoError(t, f.orchestrator.Logout(ctx))
		require.Empty(t, f.store.Keys())
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates tokens and keeps the cookie", func(t *testing.T) {
		f := setupTestFixture(t, sandbox.WithAcceptedEncodings(config.EncodingJSON))
		_, err := f.orchestrator.Login(ctx, validCredentials())
		require.NoError(t, err)
		before, err := f.sessions.Tokens(ctx)
		require.NoError(t, err)

		after, err := f.orchestrator.Refresh(ctx)
		require.NoError(t, err)
		require.NotEqual(t, before.AccessToken, after.AccessToken)
		require.NotEqual(t, before.RefreshToken, after.RefreshToken)
		require.Equal(t, before.Cookie, after.Cookie)
		require.Equal(t, 1, f.backend.Count(http.MethodPost, sandbox.RouteAuthRefresh))
	})

	t.Run("401 refreshes once and replays", func(t *testing.T) {
		f := setupTestFixture(t, sandbox.WithAcceptedEncodings(config.EncodingJSON))
		_, err := f.orchestrator.Login(ctx, validCredentials())
		require.NoError(t, err)
		require.NoError(t, f.backend.Sandbox.RevokeUser(f.backend.User.ID))

		var out map[string]any
		require.NoError(t, f.client.GetJSON(ctx, sandbox.RouteDashboard, &out))
		require.Equal(t, true, out["success"])
		require.Equal(t, 1, f.backend.Count(http.MethodPost, sandbox.RouteAuthRefresh))
	})

	t.Run("canceled caller keeps the session", func(t *testing.T) {
		f := setupTestFixture(t, sandbox.WithAcceptedEncodings(config.EncodingJSON))
		_, err := f.orchestrator.Login(ctx, validCredentials())
		require.NoError(t, err)
		expired := 0
		f.orchestrator.OnSessionExpired(func() { expired++ })

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = f.orchestrator.Refresh(canceled)
		require.ErrorIs(t, err, context.Canceled)
		require.False(t, errors.Is(err, errors.ErrSessionExpired))

		// joins or follows the detached refresh
		_, err = f.orchestrator.Refresh(ctx)
		require.NoError(t, err)
		require.Zero(t, expired)
		require.True(t, f.sessions.IsAuthenticated(ctx))
	})

	t.Run("failure clears the session and notifies", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.sessions.SetTokens(ctx, &sessions.Bundle{AccessToken: "stale", RefreshToken: "bogus", ExpiresIn: 3600}))
		expired := 0
		f.orchestrator.OnSessionExpired(func() { expired++ })

		var out map[string]any
		err := f.client.GetJSON(ctx, sandbox.RouteDashboard, &out)
		require.True(t, errors.Is(err, errors.ErrSessionExpired))
		require.Equal(t, 1, expired)
		require.Empty(t, f.store.Keys())

		_, err = f.orchestrator.Refresh(ctx)
		require.True(t, errors.Is(err, errors.ErrSessionExpired))
		require.Equal(t, 2, expired)
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	data := auth.RegisterData{Name: "Ana Souza", Email: "ana@energia.com.br", Password: "senha123", ConfirmPassword: "senha123"}

	t.Run("session in the response", func(t *testing.T) {
		f := setupTestFixture(t)
		u, err := f.orchestrator.Register(ctx, data)
		require.NoError(t, err)
		require.Equal(t, "Ana Souza", u.Name)
		require.Equal(t, data.Email, u.Email)
		require.Zero(t, f.backend.Count(http.MethodPost, sandbox.RouteLogin))
		require.True(t, f.sessions.IsAuthenticated(ctx))
	})

	t.Run("redirect falls back to login", func(t *testing.T) {
		f := setupTestFixture(t, sandbox.WithRegisterRedirect())
		u, err := f.orchestrator.Register(ctx, data)
		require.NoError(t, err)
		require.Equal(t, "Ana Souza", u.Name)
		require.Equal(t, 1, f.backend.Count(http.MethodPost, sandbox.RouteLogin))
	})

	t.Run("existing email", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.orchestrator.Register(ctx, auth.RegisterData{
			Name: "Outra", Email: sandboxtest.Email, Password: "senha123", ConfirmPassword: "senha123",
		})
		require.True(t, errors.Is(err, errors.ErrValidation))
		require.Equal(t, "E-mail já cadastrado", errors.UserMessage(err))
	})

	t.Run("local validation", func(t *testing.T) {
		f := setupTestFixture(t)
		bad := data
		bad.ConfirmPassword = "outra123"
		_, err := f.orchestrator.Register(ctx, bad)
		require.True(t, errors.Is(err, errors.ErrValidation))
		require.Zero(t, f.backend.Count(http.MethodPost, sandbox.RouteRegister))
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	_, err := f.orchestrator.Login(ctx, validCredentials())
	require.NoError(t, err)

	t.Run("local validation", func(t *testing.T) {
		err := f.orchestrator.ChangePassword(ctx, "", "abc")
		require.True(t, errors.Is(err, errors.ErrValidation))
		require.Zero(t, f.backend.Count(http.MethodPost, sandbox.RouteChangePassword))
	})

	t.Run("wrong current password", func(t *testing.T) {
		err := f.orchestrator.ChangePassword(ctx, "errada1", "novaSenha1")
		require.True(t, errors.Is(err, errors.ErrValidation))
		require.Equal(t, "Senha atual incorreta", errors.UserMessage(err))
	})

	t.Run("changed password logs in", func(t *testing.T) {
		require.NoError(t, f.orchestrator.ChangePassword(ctx, sandboxtest.Password, "novaSenha1"))
		require.NoError(t, f.orchestrator.Logout(ctx))

		_, err := f.orchestrator.Login(ctx, auth.Credentials{Email: sandboxtest.Email, Password: "novaSenha1"})
		require.NoError(t, err)
	})
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	require.NoError(t, f.orchestrator.ForgotPassword(ctx, sandboxtest.Email))
	require.NoError(t, f.orchestrator.ForgotPassword(ctx, "ninguem@energia.com.br"))
	require.Equal(t, []string{sandboxtest.Email}, f.backend.Sandbox.PasswordResetRequests())

	err := f.orchestrator.ForgotPassword(ctx, "sem-arroba")
	require.True(t, errors.Is(err, errors.ErrValidation))
}

func TestCheckConnection(t *testing.T) {
	f := setupTestFixture(t)
	report := f.orchestrator.CheckConnection(context.Background())

	require.True(t, report.Reachable)
	require.Equal(t, f.backend.URL, report.BaseURL)
	require.Len(t, report.Endpoints, 3)
	require.Equal(t, http.StatusOK, report.Endpoints[0].StatusCode)
	require.Equal(t, http.StatusOK, report.Endpoints[1].StatusCode)
	require.Equal(t, http.StatusFound, report.Endpoints[2].StatusCode)
	require.Equal(t, sandbox.RouteLogin, report.Endpoints[2].Location)

	offline := newFixture(t, closedServerURL(t), f.store)
	report = offline.orchestrator.CheckConnection(context.Background())
	require.False(t, report.Reachable)
	require.Error(t, report.Endpoints[0].Err)
}
