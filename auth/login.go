package auth

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/classifier"
	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/sessions"
	"github.com/jrsteele09/energia-client/transport"
	"github.com/jrsteele09/energia-client/users"
)

// errRejected marks an attempt the backend answered without authenticating.
var errRejected = stderrors.New("not authenticated")

type confirmedLogin struct {
	user   *users.User
	bundle *sessions.Bundle
}

// probeCredentials are sent with the confirmation probe. They come only from
// the login response, never from storage, so a failed attempt cannot be
// confirmed by an older session. Empty credentials probe anonymously.
type probeCredentials struct {
	cookie string
	tokens *sessions.Bundle
}

// Login validates c locally, then tries each strategy in order until a
// confirmation probe of the dashboard classifies as authenticated. The
// session is persisted before returning.
func (o *Orchestrator) Login(ctx context.Context, c Credentials) (*users.User, error) {
	c = c.normalized()
	if err := o.validator.ValidateCredentials(c); err != nil {
		return nil, err
	}

	confirmed, errs, ok := FirstSuccess(ctx, o.strategies, func(ctx context.Context, s Strategy) (*confirmedLogin, error) {
		return o.attempt(ctx, c, s)
	})
	if !ok {
		return nil, exhaustedError(errs)
	}

	if confirmed.user.Email == "" {
		confirmed.user.Email = c.Email
	}
	if err := o.sessions.Save(ctx, confirmed.bundle, confirmed.user); err != nil {
		return nil, err
	}
	log.Info().Str("user_id", confirmed.user.ID).Str("group", string(confirmed.user.Group)).Msg("[Orchestrator.Login] authenticated")
	return confirmed.user, nil
}

func (o *Orchestrator) attempt(ctx context.Context, c Credentials, s Strategy) (*confirmedLogin, error) {
	body, contentType, err := s.Encode(c)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "[Orchestrator.attempt] encode %s", s.Name)
	}

	resp, err := o.client.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		Path:        loginPath,
		Body:        body,
		ContentType: contentType,
		Accept:      probeAccept,
		SkipAuth:    true,
	})
	if err != nil {
		log.Debug().Err(err).Str("strategy", s.Name).Msg("[Orchestrator.attempt] login request failed")
		return nil, err
	}

	logEvent := log.Debug().Str("strategy", s.Name).Int("status", resp.StatusCode)
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		logEvent.Msg("[Orchestrator.attempt] server error")
		return nil, errors.E(errors.ErrServer, "[Orchestrator.attempt]", pkgerrors.Errorf("login status %d", resp.StatusCode))
	case resp.StatusCode >= http.StatusBadRequest, classifier.LoginRedirect(resp):
		logEvent.Msg("[Orchestrator.attempt] rejected")
		return nil, errRejected
	}

	result := o.classifier.Classify(resp)
	creds := probeCredentials{cookie: result.SessionCredential, tokens: result.Tokens}

	logEvent.Bool("cookie", creds.cookie != "").Bool("tokens", creds.tokens != nil).Msg("[Orchestrator.attempt] candidate success, probing")

	probe, err := o.probe(ctx, creds)
	if err != nil {
		return nil, err
	}

	// Probe tokens win over login tokens; a rotated cookie wins over the
	// one set by the login response.
	bundle := &sessions.Bundle{}
	if creds.tokens != nil {
		*bundle = *creds.tokens
	}
	if probe.Tokens != nil {
		*bundle = *probe.Tokens
	}
	bundle.Cookie = o.pickCookie(probe.SessionCredential, creds.cookie)
	if !bundle.Valid() {
		return nil, errors.E(errors.ErrServer, "[Orchestrator.attempt]", pkgerrors.New("authenticated without a session credential"))
	}
	return &confirmedLogin{user: probe.User, bundle: bundle}, nil
}

// pickCookie prefers a rotated session cookie from the probe. A probe
// header without the session marker never replaces a marked cookie.
func (o *Orchestrator) pickCookie(fromProbe, fromLogin string) string {
	switch {
	case fromProbe != "" && strings.HasPrefix(fromProbe, o.cookieName+"="):
		return fromProbe
	case fromLogin != "":
		return fromLogin
	}
	return fromProbe
}

// probe fetches the dashboard with the given credentials under the
// confirmation policy and returns the first authenticated classification.
func (o *Orchestrator) probe(ctx context.Context, creds probeCredentials) (classifier.Result, error) {
	if err := o.sleep(ctx, o.confirm.Delay); err != nil {
		return classifier.Result{}, err
	}

	req := transport.Request{
		Method:   http.MethodGet,
		Path:     dashboardPath,
		Accept:   probeAccept,
		Cookie:   creds.cookie,
		SkipAuth: true,
	}
	if tok := creds.tokens.OAuth2Token(); tok != nil {
		req.Header = http.Header{"Authorization": {tok.Type() + " " + tok.AccessToken}}
	}

	var lastErr error = errRejected
	for i := 0; i < o.confirm.Attempts; i++ {
		if i > 0 {
			if err := o.sleep(ctx, o.confirm.Backoff*time.Duration(i)); err != nil {
				return classifier.Result{}, err
			}
		}

		resp, err := o.client.Do(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		result := o.classifier.Classify(resp)
		log.Debug().Int("attempt", i+1).Int("status", resp.StatusCode).Bool("authenticated", result.Authenticated).Msg("[Orchestrator.probe]")
		if result.Authenticated {
			return result, nil
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = errors.E(errors.ErrServer, "[Orchestrator.probe]", pkgerrors.Errorf("dashboard status %d", resp.StatusCode))
		} else {
			lastErr = errRejected
		}
	}
	return classifier.Result{}, lastErr
}

// exhaustedError reports a failed cascade. Connectivity failures on every
// attempt mean the network is down and 5xx on every attempt mean the server
// is; anything else is taken as a credential rejection.
func exhaustedError(errs []error) error {
	if len(errs) == 0 {
		return errors.New(errors.ErrInvalidCredentials, "[Orchestrator.Login]", "")
	}
	for _, err := range errs {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			if !errors.Is(err, errors.ErrNetwork) {
				return err
			}
		}
	}
	if all(errs, errors.ErrNetwork) {
		return errors.E(errors.ErrNetwork, "[Orchestrator.Login]", errs[len(errs)-1])
	}
	if all(errs, errors.ErrServer) {
		return errors.E(errors.ErrServer, "[Orchestrator.Login]", errs[len(errs)-1])
	}
	return errors.E(errors.ErrInvalidCredentials, "[Orchestrator.Login]", stderrors.Join(errs...))
}

func all(errs []error, kind error) bool {
	for _, err := range errs {
		if !errors.Is(err, kind) {
			return false
		}
	}
	return true
}
