package config

import (
	"strings"
	"time"
)

// Login body encodings, tried in configured order.
const (
	EncodingForm      = "form"
	EncodingMultipart = "multipart"
	EncodingJSON      = "json"
)

type AuthConfig interface {
	GetLoginEncodings() []string
	GetSessionCookieName() string
	GetConfirmationDelay() time.Duration
	GetConfirmationAttempts() int
	GetConfirmationBackoff() time.Duration
	GetTokenExpiryBuffer() time.Duration
	GetDefaultTokenExpiry() time.Duration
}

var _ AuthConfig = mainConfig{}

func (c mainConfig) GetLoginEncodings() []string {
	out := make([]string, 0, len(c.LoginEncodings))
	for _, enc := range c.LoginEncodings {
		out = append(out, strings.ToLower(strings.TrimSpace(enc)))
	}
	return out
}

func (c mainConfig) GetSessionCookieName() string {
	return c.SessionCookie
}

func (c mainConfig) GetConfirmationDelay() time.Duration {
	return c.ConfirmDelay
}

func (c mainConfig) GetConfirmationAttempts() int {
	return c.ConfirmAttempts
}

func (c mainConfig) GetConfirmationBackoff() time.Duration {
	return c.ConfirmBackoff
}

func (c mainConfig) GetTokenExpiryBuffer() time.Duration {
	return c.ExpiryBuffer
}

func (c mainConfig) GetDefaultTokenExpiry() time.Duration {
	return c.DefaultTokenExpiry
}
