package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/transport"
	"github.com/jrsteele09/energia-client/users"
)

// Restore re-authenticates silently on process start by fetching the
// dashboard with whatever credential is persisted. It is bounded by the
// transport timeout. A definitive rejection clears the stored session; a
// network failure keeps it for the next start.
func (o *Orchestrator) Restore(ctx context.Context) (*users.User, error) {
	stored, err := o.sessions.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.New(errors.ErrNotAuthenticated, "[Orchestrator.Restore]", "")
	}

	resp, err := o.client.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   dashboardPath,
		Accept: probeAccept,
	})
	if err != nil {
		log.Warn().Err(err).Msg("[Orchestrator.Restore] dashboard request failed")
		return nil, err
	}

	result := o.classifier.Classify(resp)
	if !result.Authenticated {
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, transport.CheckStatus("[Orchestrator.Restore]", resp)
		}
		if err := o.sessions.Clear(ctx); err != nil {
			log.Err(err).Msg("[Orchestrator.Restore] clearing rejected session")
		}
		return nil, errors.New(errors.ErrNotAuthenticated, "[Orchestrator.Restore]", "")
	}

	u := o.mergeUser(ctx, result.User)
	if err := o.sessions.SetUser(ctx, u); err != nil {
		return nil, err
	}
	if rotated := o.pickCookie(result.SessionCredential, stored.Cookie); rotated != stored.Cookie {
		stored.Cookie = rotated
		if err := o.sessions.SetTokens(ctx, stored); err != nil {
			log.Err(err).Msg("[Orchestrator.Restore] storing rotated cookie")
		}
	}
	return u, nil
}

// mergeUser fills gaps in a freshly classified user from the stored record.
// The dashboard may hide the email or the real id in some templates.
func (o *Orchestrator) mergeUser(ctx context.Context, fresh *users.User) *users.User {
	previous, err := o.sessions.User(ctx)
	if err != nil || previous == nil {
		return fresh
	}
	merged := *fresh
	if merged.Email == "" {
		merged.Email = previous.Email
	}
	if !merged.HasRealID() && previous.HasRealID() {
		merged.ID = previous.ID
	}
	if merged.Name == users.DefaultName && previous.Name != "" {
		merged.Name = previous.Name
	}
	return &merged
}
