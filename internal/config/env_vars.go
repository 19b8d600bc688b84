package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar         = "APP_NAME"
	envVar             = "ENV"
	logLevelVar        = "ENERGIA_LOG_LEVEL"
	dataDirVar         = "ENERGIA_DATA_DIR"
	baseURLVar         = "ENERGIA_BASE_URL"
	timeoutVar         = "ENERGIA_TIMEOUT"
	userAgentVar       = "ENERGIA_USER_AGENT"
	loginEncodingsVar  = "ENERGIA_LOGIN_ENCODINGS"
	sessionCookieVar   = "ENERGIA_SESSION_COOKIE"
	confirmDelayVar    = "ENERGIA_CONFIRM_DELAY"
	confirmAttemptsVar = "ENERGIA_CONFIRM_ATTEMPTS"
	confirmBackoffVar  = "ENERGIA_CONFIRM_BACKOFF"
	passphraseVar      = "ENERGIA_STORE_PASSPHRASE"
	sandboxPortVar     = "SANDBOX_PORT"
)

func defaults() settings {
	dataFolder := "./data"
	if home, err := os.UserHomeDir(); err == nil {
		dataFolder = filepath.Join(home, ".config", "energia")
	}
	return settings{
		AppName:            "EnergIA",
		Env:                "DEV",
		LogLevel:           "info",
		DataFolder:         dataFolder,
		BaseURL:            "https://chatenergia.com.br",
		Timeout:            30 * time.Second,
		UserAgent:          "EnergIA-Mobile-App/1.0",
		LoginEncodings:     []string{EncodingForm, EncodingMultipart, EncodingJSON},
		SessionCookie:      "connect.sid",
		ConfirmDelay:       0,
		ConfirmAttempts:    1,
		ConfirmBackoff:     500 * time.Millisecond,
		ExpiryBuffer:       5 * time.Minute,
		DefaultTokenExpiry: time.Hour,
		SandboxPort:        "8080",
	}
}

func (s *settings) applyEnv() {
	s.AppName = GetEnv(appNameVar, s.AppName)
	s.Env = GetEnv(envVar, s.Env)
	s.LogLevel = GetEnv(logLevelVar, s.LogLevel)
	s.DataFolder = GetEnv(dataDirVar, s.DataFolder)
	s.BaseURL = strings.TrimSuffix(GetEnv(baseURLVar, s.BaseURL), "/")
	s.Timeout = getEnvDuration(timeoutVar, s.Timeout)
	s.UserAgent = GetEnv(userAgentVar, s.UserAgent)
	s.LoginEncodings = getEnvCSV(loginEncodingsVar, s.LoginEncodings)
	s.SessionCookie = GetEnv(sessionCookieVar, s.SessionCookie)
	s.ConfirmDelay = getEnvDuration(confirmDelayVar, s.ConfirmDelay)
	s.ConfirmAttempts = getEnvInt(confirmAttemptsVar, s.ConfirmAttempts)
	s.ConfirmBackoff = getEnvDuration(confirmBackoffVar, s.ConfirmBackoff)
	s.StorePassphrase = GetEnv(passphraseVar, s.StorePassphrase)
	s.SandboxPort = GetEnv(sandboxPortVar, s.SandboxPort)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(envVar string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDuration accepts Go durations ("1500ms") and bare milliseconds ("1500").
func getEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvCSV(envVar string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
