package sessions

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/energia-client/credstore"
	"github.com/jrsteele09/energia-client/internal/config"
	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/users"
)

// RefreshFunc exchanges a refresh token for a new bundle.
type RefreshFunc func(ctx context.Context, refreshToken string) (*Bundle, error)

// Manager persists the token bundle and user record and guards refreshes so
// that concurrent callers share a single network call.
type Manager struct {
	store         credstore.Store
	buffer        time.Duration
	defaultExpiry time.Duration
	nowTime       func() time.Time

	writeLock sync.Mutex
	refreshes singleflight.Group
}

type Option func(*Manager)

func WithNowTime(nowTime func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowTime
	}
}

func NewManager(store credstore.Store, cfg config.AuthConfig, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, pkgerrors.New("[NewManager] credential store is required")
	}
	if cfg == nil {
		return nil, pkgerrors.New("[NewManager] config is required")
	}
	m := &Manager{
		store:         store,
		buffer:        cfg.GetTokenExpiryBuffer(),
		defaultExpiry: cfg.GetDefaultTokenExpiry(),
		nowTime:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Save replaces the whole session: bundle and user record.
func (m *Manager) Save(ctx context.Context, b *Bundle, u *users.User) error {
	if err := m.SetTokens(ctx, b); err != nil {
		return err
	}
	return m.SetUser(ctx, u)
}

// SetTokens replaces the stored bundle. Fields that are empty in b are
// deleted so no stale value from a previous session survives.
func (m *Manager) SetTokens(ctx context.Context, b *Bundle) error {
	if !b.Valid() {
		return errors.New(errors.ErrValidation, "[Manager.SetTokens]", "bundle has neither cookie nor access token")
	}

	expiresAt := m.expiryFor(b)

	m.writeLock.Lock()
	defer m.writeLock.Unlock()

	writes := []struct {
		key   string
		value string
	}{
		{KeyAccessToken, b.AccessToken},
		{KeyRefreshToken, b.RefreshToken},
		{KeyCookie, b.Cookie},
		{KeyTokenExpiresAt, formatExpiry(expiresAt)},
	}
	for _, w := range writes {
		if err := m.put(ctx, w.key, w.value); err != nil {
			return errors.E(errors.ErrStorage, "[Manager.SetTokens]", err)
		}
	}
	b.ExpiresAt = expiresAt
	return nil
}

func (m *Manager) put(ctx context.Context, key, value string) error {
	if value == "" {
		return m.store.Delete(ctx, key)
	}
	return m.store.Set(ctx, key, value)
}

// expiryFor picks expiresIn, then the JWT exp claim, then the default
// lifetime for bearer tokens. Cookie-only sessions have no expiry.
func (m *Manager) expiryFor(b *Bundle) time.Time {
	if b.ExpiresIn > 0 {
		return m.nowTime().Add(time.Duration(b.ExpiresIn) * time.Second)
	}
	if !b.ExpiresAt.IsZero() {
		return b.ExpiresAt
	}
	if exp, ok := JWTExpiry(b.AccessToken); ok {
		return exp
	}
	if b.AccessToken != "" && m.defaultExpiry > 0 {
		return m.nowTime().Add(m.defaultExpiry)
	}
	return time.Time{}
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Tokens returns the stored bundle, or nil when neither an access token nor
// a cookie is stored.
func (m *Manager) Tokens(ctx context.Context) (*Bundle, error) {
	var b Bundle
	var err error
	if b.AccessToken, err = credstore.GetOptional(ctx, m.store, KeyAccessToken); err != nil {
		return nil, errors.E(errors.ErrStorage, "[Manager.Tokens]", err)
	}
	if b.Cookie, err = credstore.GetOptional(ctx, m.store, KeyCookie); err != nil {
		return nil, errors.E(errors.ErrStorage, "[Manager.Tokens]", err)
	}
	if !b.Valid() {
		return nil, nil
	}
	if b.RefreshToken, err = credstore.GetOptional(ctx, m.store, KeyRefreshToken); err != nil {
		return nil, errors.E(errors.ErrStorage, "[Manager.Tokens]", err)
	}
	if b.ExpiresAt, err = m.expiresAt(ctx); err != nil {
		return nil, errors.E(errors.ErrStorage, "[Manager.Tokens]", err)
	}
	if !b.ExpiresAt.IsZero() {
		if remaining := b.ExpiresAt.Sub(m.nowTime()); remaining > 0 {
			b.ExpiresIn = int64(remaining / time.Second)
		}
	}
	if b.AccessToken != "" {
		b.TokenType = "Bearer"
	}
	return &b, nil
}

func (m *Manager) expiresAt(ctx context.Context) (time.Time, error) {
	raw, err := credstore.GetOptional(ctx, m.store, KeyTokenExpiresAt)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(err, "parse expiry")
	}
	return time.UnixMilli(ms), nil
}

func (m *Manager) SetUser(ctx context.Context, u *users.User) error {
	if u == nil {
		return errors.New(errors.ErrValidation, "[Manager.SetUser]", "user is required")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return pkgerrors.Wrap(err, "[Manager.SetUser] marshal user")
	}

	m.writeLock.Lock()
	defer m.writeLock.Unlock()
	if err := m.store.Set(ctx, KeyUserData, string(data)); err != nil {
		return errors.E(errors.ErrStorage, "[Manager.SetUser]", err)
	}
	return nil
}

// User returns the stored user record, nil when none is stored.
func (m *Manager) User(ctx context.Context) (*users.User, error) {
	raw, err := credstore.GetOptional(ctx, m.store, KeyUserData)
	if err != nil {
		return nil, errors.E(errors.ErrStorage, "[Manager.User]", err)
	}
	if raw == "" {
		return nil, nil
	}
	var u users.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		log.Warn().Err(err).Msg("[Manager.User] stored user record is unreadable")
		return nil, nil
	}
	return &u, nil
}

// IsTokenExpired reports whether the stored expiry is within the buffer.
// With no expiry recorded the session is treated as live; a storage error
// counts as expired.
func (m *Manager) IsTokenExpired(ctx context.Context) bool {
	expiresAt, err := m.expiresAt(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("[Manager.IsTokenExpired] could not read expiry")
		return true
	}
	if expiresAt.IsZero() {
		return false
	}
	return !m.nowTime().Before(expiresAt.Add(-m.buffer))
}

// IsAuthenticated reports whether a credential is stored that is either
// still valid or can be refreshed.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	b, err := m.Tokens(ctx)
	if err != nil || !b.Valid() {
		return false
	}
	if !m.IsTokenExpired(ctx) {
		return true
	}
	return b.RefreshToken != ""
}

// Clear deletes every session key. It keeps going when a delete fails and
// returns all failures joined.
func (m *Manager) Clear(ctx context.Context) error {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()

	var errs []error
	for _, key := range allKeys {
		if err := m.store.Delete(ctx, key); err != nil {
			log.Err(err).Str("key", key).Msg("[Manager.Clear] failed to delete key")
			errs = append(errs, pkgerrors.Wrapf(err, "delete %s", key))
		}
	}
	if len(errs) > 0 {
		return errors.E(errors.ErrStorage, "[Manager.Clear]", stderrors.Join(errs...))
	}
	return nil
}

// Refresh runs fn at most once at a time. Callers arriving while a refresh
// is in flight wait for it and receive the same bundle or error. Any failure
// clears the session and is reported as ErrSessionExpired.
func (m *Manager) Refresh(ctx context.Context, fn RefreshFunc) (*Bundle, error) {
	ch := m.refreshes.DoChan("refresh", func() (interface{}, error) {
		// Detached so one caller giving up does not fail the others.
		return m.refresh(context.WithoutCancel(ctx), fn)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Bundle), nil
	}
}

func (m *Manager) refresh(ctx context.Context, fn RefreshFunc) (*Bundle, error) {
	refreshToken, err := credstore.GetOptional(ctx, m.store, KeyRefreshToken)
	if err != nil {
		m.clearAfterFailure(ctx)
		return nil, errors.E(errors.ErrSessionExpired, "[Manager.Refresh]", err)
	}
	if refreshToken == "" {
		m.clearAfterFailure(ctx)
		return nil, errors.New(errors.ErrSessionExpired, "[Manager.Refresh]", "")
	}

	b, err := fn(ctx, refreshToken)
	if err == nil && !b.Valid() {
		err = pkgerrors.New("refresh returned no credentials")
	}
	if err != nil {
		m.clearAfterFailure(ctx)
		return nil, errors.E(errors.ErrSessionExpired, "[Manager.Refresh]", err)
	}

	if b.RefreshToken == "" {
		b.RefreshToken = refreshToken
	}
	if b.Cookie == "" {
		if b.Cookie, err = credstore.GetOptional(ctx, m.store, KeyCookie); err != nil {
			log.Warn().Err(err).Msg("[Manager.Refresh] could not carry cookie over")
		}
	}
	if err := m.SetTokens(ctx, b); err != nil {
		m.clearAfterFailure(ctx)
		return nil, errors.E(errors.ErrSessionExpired, "[Manager.Refresh]", err)
	}
	return b, nil
}

func (m *Manager) clearAfterFailure(ctx context.Context) {
	if err := m.Clear(ctx); err != nil {
		log.Err(err).Msg("[Manager.Refresh] clearing session after failed refresh")
	}
}

// ValidAccessToken returns the stored access token, refreshing first when it
// is expired.
func (m *Manager) ValidAccessToken(ctx context.Context, fn RefreshFunc) (string, error) {
	b, err := m.Tokens(ctx)
	if err != nil {
		return "", err
	}
	if b == nil || b.AccessToken == "" {
		return "", errors.New(errors.ErrNotAuthenticated, "[Manager.ValidAccessToken]", "")
	}
	if !m.IsTokenExpired(ctx) {
		return b.AccessToken, nil
	}
	refreshed, err := m.Refresh(ctx, fn)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}
