package auth

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/transport"
	"github.com/jrsteele09/energia-client/users"
)

// Register creates an account. When the backend answers with a usable
// session the user is logged in directly; a redirect or a rendered page is
// followed by a regular Login with the same credentials.
func (o *Orchestrator) Register(ctx context.Context, data RegisterData) (*users.User, error) {
	if err := o.validator.ValidateRegistration(data); err != nil {
		return nil, err
	}
	data.Email = data.credentials().Email

	body, err := jsonBody(data)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		Path:        registerPath,
		Body:        body,
		ContentType: "application/json",
		Accept:      probeAccept,
		SkipAuth:    true,
	})
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, transport.CheckStatus("[Orchestrator.Register]", resp)
	case resp.StatusCode >= http.StatusBadRequest:
		msg := transport.ServerMessage(resp.Body)
		if msg == "" {
			msg = "Registration was rejected"
		}
		return nil, errors.New(errors.ErrValidation, "[Orchestrator.Register]", msg)
	}

	result := o.classifier.Classify(resp)
	if result.Authenticated {
		if b := result.Bundle(); b != nil {
			u := result.User
			if u.Name == users.DefaultName {
				u.Name = data.Name
			}
			if err := o.sessions.Save(ctx, b, u); err != nil {
				return nil, err
			}
			return u, nil
		}
	}

	log.Debug().Int("status", resp.StatusCode).Msg("[Orchestrator.Register] no session in response, logging in")
	return o.Login(ctx, data.credentials())
}

// Logout asks the backend to end the session and then clears local state.
// The remote call is best-effort: its failure is logged and the local clear
// always runs.
func (o *Orchestrator) Logout(ctx context.Context) error {
	resp, err := o.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: logoutPath})
	switch {
	case err != nil:
		logRemote("[Orchestrator.Logout]", err)
	case resp.StatusCode >= http.StatusBadRequest:
		logRemote("[Orchestrator.Logout]", pkgerrors.Errorf("status %d", resp.StatusCode))
	}
	return o.sessions.Clear(ctx)
}

func (o *Orchestrator) ChangePassword(ctx context.Context, current, next string) error {
	if err := o.validator.ValidatePasswordChange(current, next); err != nil {
		return err
	}
	payload := map[string]string{"currentPassword": current, "newPassword": next}
	return o.client.PostJSON(ctx, changePasswordPath, payload, nil)
}

// ForgotPassword asks the backend to mail a reset link. It does not need a
// session.
func (o *Orchestrator) ForgotPassword(ctx context.Context, email string) error {
	if problems := o.validator.ValidateEmail(email); len(problems) > 0 {
		return validationError("[Orchestrator.ForgotPassword]", problems)
	}
	body, err := jsonBody(map[string]string{"email": email})
	if err != nil {
		return err
	}
	resp, err := o.client.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		Path:        forgotPasswordPath,
		Body:        body,
		ContentType: "application/json",
		Accept:      "application/json",
		SkipAuth:    true,
	})
	if err != nil {
		return err
	}
	return transport.CheckStatus("[Orchestrator.ForgotPassword]", resp)
}

func jsonBody(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "marshal request")
	}
	return body, nil
}
