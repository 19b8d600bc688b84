package auth

import (
	"context"
	"net/http"

	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/sessions"
	"github.com/jrsteele09/energia-client/transport"
	"github.com/jrsteele09/energia-client/users"
)

type refreshResponse struct {
	Success *bool            `json:"success"`
	Tokens  *sessions.Bundle `json:"tokens"`
	Data    struct {
		Tokens *sessions.Bundle `json:"tokens"`
		User   *users.User      `json:"user"`
	} `json:"data"`
}

// Refresh exchanges the stored refresh token for a new bundle. Concurrent
// callers share one request. On failure the session is cleared, the
// session-expired hook fires and ErrSessionExpired is returned. A canceled
// caller gets its context error and the hook does not fire.
func (o *Orchestrator) Refresh(ctx context.Context) (*sessions.Bundle, error) {
	b, err := o.sessions.Refresh(ctx, o.requestRefresh)
	if err != nil {
		if errors.Is(err, errors.ErrSessionExpired) {
			o.sessionExpired()
		}
		return nil, err
	}
	return b, nil
}

func (o *Orchestrator) requestRefresh(ctx context.Context, refreshToken string) (*sessions.Bundle, error) {
	body, err := jsonBody(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		Path:        refreshPath,
		Body:        body,
		ContentType: "application/json",
		Accept:      "application/json",
		SkipAuth:    true,
	})
	if err != nil {
		return nil, err
	}

	var payload refreshResponse
	if err := transport.DecodeJSON("[Orchestrator.requestRefresh]", resp, &payload); err != nil {
		return nil, err
	}
	if payload.Success != nil && !*payload.Success {
		return nil, errors.New(errors.ErrSessionExpired, "[Orchestrator.requestRefresh]", transport.ServerMessage(resp.Body))
	}

	tokens := payload.Data.Tokens
	if tokens == nil {
		tokens = payload.Tokens
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, errors.New(errors.ErrServer, "[Orchestrator.requestRefresh]", "refresh response carried no tokens")
	}
	return tokens, nil
}
