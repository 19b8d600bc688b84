package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Bundle is the session credential set. Cookie is authoritative for the
// legacy backend; the bearer fields model a token backend. A bundle is only
// replaced as a whole.
type Bundle struct {
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	TokenType    string    `json:"tokenType,omitempty"`
	ExpiresIn    int64     `json:"expiresIn,omitempty"` // seconds
	ExpiresAt    time.Time `json:"-"`
	Cookie       string    `json:"-"`
}

// Valid reports whether the bundle carries a cookie or an access token.
func (b *Bundle) Valid() bool {
	return b != nil && (b.Cookie != "" || b.AccessToken != "")
}

// OAuth2Token returns the bearer part as an oauth2 token, nil when there is
// no access token.
func (b *Bundle) OAuth2Token() *oauth2.Token {
	if b == nil || b.AccessToken == "" {
		return nil
	}
	tokenType := b.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  b.AccessToken,
		TokenType:    tokenType,
		RefreshToken: b.RefreshToken,
		Expiry:       b.ExpiresAt,
	}
}

// JWTExpiry reads the exp claim without verifying the signature. The client
// never holds the signing key; the claim is only used to schedule refreshes.
func JWTExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
