package config

import "time"

type TransportConfig interface {
	GetBaseURL() string
	GetHTTPTimeout() time.Duration
	GetUserAgent() string
	GetAcceptLanguage() string
}

var _ TransportConfig = mainConfig{}

func (c mainConfig) GetBaseURL() string {
	return c.BaseURL
}

func (c mainConfig) GetHTTPTimeout() time.Duration {
	return c.Timeout
}

func (c mainConfig) GetUserAgent() string {
	return c.UserAgent
}

func (mainConfig) GetAcceptLanguage() string {
	return "pt-BR,pt;q=0.9,en;q=0.8"
}
