// Package auth drives authentication against the EnergIA backend: the login
// encoding cascade with its confirmation probe, silent restore, token
// refresh, registration, logout and the password flows.
package auth

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/classifier"
	"github.com/jrsteele09/energia-client/internal/config"
	"github.com/jrsteele09/energia-client/sessions"
	"github.com/jrsteele09/energia-client/transport"
	"github.com/jrsteele09/energia-client/users"
)

const (
	loginPath          = "/login"
	dashboardPath      = "/dashboard"
	logoutPath         = "/logout"
	registerPath       = "/register"
	refreshPath        = "/auth/refresh"
	changePasswordPath = "/change-password"
	forgotPasswordPath = "/forgot-password"

	probeAccept = "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8"
)

// ConfirmationPolicy bounds the dashboard probe that follows every candidate
// login success. The delay covers backends that write the session late.
type ConfirmationPolicy struct {
	Delay    time.Duration
	Attempts int
	Backoff  time.Duration
}

type Orchestrator struct {
	client     *transport.Client
	sessions   *sessions.Manager
	classifier classifier.Classifier
	cookieName string
	validator  *Validator
	strategies []Strategy
	confirm    ConfirmationPolicy
	sleep      func(ctx context.Context, d time.Duration) error

	expiredLock      sync.RWMutex
	onSessionExpired func()
}

type Option func(*Orchestrator)

// WithStrategies overrides the configured cascade.
func WithStrategies(strategies ...Strategy) Option {
	return func(o *Orchestrator) {
		o.strategies = strategies
	}
}

func WithConfirmationPolicy(p ConfirmationPolicy) Option {
	return func(o *Orchestrator) {
		o.confirm = p
	}
}

// WithSleep replaces the wait used between probes, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// NewOrchestrator builds the orchestrator and installs its credential and
// 401 hooks on client.
func NewOrchestrator(client *transport.Client, mgr *sessions.Manager, cfg config.AuthConfig, opts ...Option) (*Orchestrator, error) {
	if client == nil {
		return nil, pkgerrors.New("[NewOrchestrator] transport client is required")
	}
	if mgr == nil {
		return nil, pkgerrors.New("[NewOrchestrator] session manager is required")
	}
	if cfg == nil {
		return nil, pkgerrors.New("[NewOrchestrator] config is required")
	}

	strategies, err := StrategiesFor(cfg.GetLoginEncodings())
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		client:     client,
		sessions:   mgr,
		classifier: classifier.New(cfg.GetSessionCookieName()),
		cookieName: cfg.GetSessionCookieName(),
		validator:  NewValidator(),
		strategies: strategies,
		confirm: ConfirmationPolicy{
			Delay:    cfg.GetConfirmationDelay(),
			Attempts: cfg.GetConfirmationAttempts(),
			Backoff:  cfg.GetConfirmationBackoff(),
		},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.strategies) == 0 {
		return nil, pkgerrors.New("[NewOrchestrator] at least one login strategy is required")
	}
	if o.cookieName == "" {
		o.cookieName = classifier.DefaultSessionCookie
	}
	if o.confirm.Attempts < 1 {
		o.confirm.Attempts = 1
	}

	client.SetCredentialSource(o.credentials)
	client.SetUnauthorizedHandler(o.handleUnauthorized)
	return o, nil
}

// OnSessionExpired registers fn to run whenever a refresh fails and the
// local session has been cleared.
func (o *Orchestrator) OnSessionExpired(fn func()) {
	o.expiredLock.Lock()
	defer o.expiredLock.Unlock()
	o.onSessionExpired = fn
}

func (o *Orchestrator) sessionExpired() {
	o.expiredLock.RLock()
	fn := o.onSessionExpired
	o.expiredLock.RUnlock()
	if fn != nil {
		fn()
	}
}

// Sessions exposes the session manager backing the orchestrator.
func (o *Orchestrator) Sessions() *sessions.Manager {
	return o.sessions
}

// CurrentUser returns the persisted user record, nil when logged out.
func (o *Orchestrator) CurrentUser(ctx context.Context) (*users.User, error) {
	return o.sessions.User(ctx)
}

// credentials is the transport's outbound hook. An expired bearer token is
// refreshed first when a refresh token is available.
func (o *Orchestrator) credentials(ctx context.Context) (transport.Credentials, error) {
	b, err := o.sessions.Tokens(ctx)
	if err != nil || b == nil {
		return transport.Credentials{}, err
	}
	if b.AccessToken != "" && b.RefreshToken != "" && o.sessions.IsTokenExpired(ctx) {
		if fresh, err := o.Refresh(ctx); err == nil {
			b = fresh
		}
	}
	return transport.Credentials{Token: b.OAuth2Token(), Cookie: b.Cookie}, nil
}

// handleUnauthorized is the transport's 401 hook.
func (o *Orchestrator) handleUnauthorized(ctx context.Context) (transport.Credentials, error) {
	b, err := o.Refresh(ctx)
	if err != nil {
		return transport.Credentials{}, err
	}
	return transport.Credentials{Token: b.OAuth2Token(), Cookie: b.Cookie}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func logRemote(op string, err error) {
	log.Warn().Err(err).Msg(op + " remote call failed")
}
