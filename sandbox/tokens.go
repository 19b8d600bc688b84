package sandbox

import (
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/energia-client/sessions"
	"github.com/jrsteele09/energia-client/users"
)

const refreshTokenTTL = 7 * 24 * time.Hour

var (
	errInvalidToken        = errors.New("invalid token")
	errInvalidRefreshToken = errors.New("invalid refresh token")
)

type storedRefreshToken struct {
	UserID string
	Iat    time.Time
}

// tokenIssuer signs HS256 access tokens and keeps opaque refresh tokens.
// Revoking a user bumps their generation, which invalidates every access
// token issued before.
type tokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
	nowTime   func() time.Time

	mu          sync.Mutex
	refresh     map[string]storedRefreshToken
	generations map[string]int
}

func newTokenIssuer(secret []byte, accessTTL time.Duration, nowTime func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		secret:      secret,
		accessTTL:   accessTTL,
		nowTime:     nowTime,
		refresh:     make(map[string]storedRefreshToken),
		generations: make(map[string]int),
	}
}

// Issue creates an access token and a fresh refresh token for u.
func (t *tokenIssuer) Issue(u *users.User) (*sessions.Bundle, error) {
	access, err := t.createAccessToken(u)
	if err != nil {
		return nil, err
	}

	refreshToken := uuid.NewString()
	t.mu.Lock()
	t.refresh[refreshToken] = storedRefreshToken{UserID: u.ID, Iat: t.nowTime()}
	t.mu.Unlock()

	return &sessions.Bundle{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(t.accessTTL / time.Second),
	}, nil
}

func (t *tokenIssuer) createAccessToken(u *users.User) (string, error) {
	now := t.nowTime()
	t.mu.Lock()
	generation := t.generations[u.ID]
	t.mu.Unlock()

	claims := jwtlib.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"name":  u.Name,
		"group": string(u.GroupOrDefault()),
		"iat":   now.Unix(),
		"exp":   now.Add(t.accessTTL).Unix(),
		"jti":   uuid.NewString(),
		"gen":   generation,
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "[tokenIssuer.createAccessToken] sign")
	}
	return signed, nil
}

// Verify checks signature, expiry and generation and returns the subject.
func (t *tokenIssuer) Verify(raw string) (string, error) {
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(tok *jwtlib.Token) (any, error) {
		return t.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(t.nowTime))
	if err != nil {
		return "", errors.Wrap(errInvalidToken, err.Error())
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errInvalidToken
	}
	gen, _ := claims["gen"].(float64)

	t.mu.Lock()
	defer t.mu.Unlock()
	if int(gen) != t.generations[sub] {
		return "", errors.Wrap(errInvalidToken, "revoked")
	}
	return sub, nil
}

// Rotate consumes a refresh token and returns the user it belonged to.
// A refresh token can be used once.
func (t *tokenIssuer) Rotate(refreshToken string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stored, ok := t.refresh[refreshToken]
	if !ok {
		return "", errInvalidRefreshToken
	}
	delete(t.refresh, refreshToken)
	if t.nowTime().Sub(stored.Iat) > refreshTokenTTL {
		return "", errors.Wrap(errInvalidRefreshToken, "expired")
	}
	return stored.UserID, nil
}

// RevokeAccess invalidates the user's outstanding access tokens and keeps
// their refresh tokens.
func (t *tokenIssuer) RevokeAccess(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generations[userID]++
}

// RevokeAll also drops the user's refresh tokens.
func (t *tokenIssuer) RevokeAll(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generations[userID]++
	for token, stored := range t.refresh {
		if stored.UserID == userID {
			delete(t.refresh, token)
		}
	}
}
