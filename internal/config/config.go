package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up under the user's home directory when no
// explicit path is given.
const DefaultConfigFile = ".config/energia/config.yaml"

type Config interface {
	EnvConfig
	TransportConfig
	AuthConfig
	StorageConfig
	SandboxConfig
	Validate() error
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
}

// settings is the file representation. Zero values fall back to defaults.
type settings struct {
	AppName            string        `yaml:"app_name"`
	Env                string        `yaml:"env"`
	LogLevel           string        `yaml:"log_level"`
	DataFolder         string        `yaml:"data_folder"`
	BaseURL            string        `yaml:"base_url"`
	Timeout            time.Duration `yaml:"timeout"`
	UserAgent          string        `yaml:"user_agent"`
	LoginEncodings     []string      `yaml:"login_encodings"`
	SessionCookie      string        `yaml:"session_cookie"`
	ConfirmDelay       time.Duration `yaml:"confirm_delay"`
	ConfirmAttempts    int           `yaml:"confirm_attempts"`
	ConfirmBackoff     time.Duration `yaml:"confirm_backoff"`
	ExpiryBuffer       time.Duration `yaml:"expiry_buffer"`
	DefaultTokenExpiry time.Duration `yaml:"default_token_expiry"`
	StorePassphrase    string        `yaml:"store_passphrase"`
	SandboxPort        string        `yaml:"sandbox_port"`
}

type mainConfig struct {
	settings
}

var _ Config = mainConfig{}

// New returns the configuration built from defaults, an optional .env file
// and the process environment.
func New() Config {
	_ = godotenv.Load(".env")
	s := defaults()
	s.applyEnv()
	return mainConfig{settings: s}
}

// Load is New with a YAML file layered between the defaults and the
// environment. An empty path means DefaultConfigFile, which may be absent.
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")
	s := defaults()

	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, DefaultConfigFile)
		}
	}
	if path != "" {
		if err := s.readFile(path); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("[config.Load] %s: %w", path, err)
			}
		}
	}

	s.applyEnv()
	c := mainConfig{settings: s}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *settings) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file settings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}
	s.merge(file)
	return nil
}

// merge copies every non-zero field of o into s.
func (s *settings) merge(o settings) {
	mergeString(&s.AppName, o.AppName)
	mergeString(&s.Env, o.Env)
	mergeString(&s.LogLevel, o.LogLevel)
	mergeString(&s.DataFolder, o.DataFolder)
	mergeString(&s.BaseURL, o.BaseURL)
	mergeString(&s.UserAgent, o.UserAgent)
	mergeString(&s.SessionCookie, o.SessionCookie)
	mergeString(&s.StorePassphrase, o.StorePassphrase)
	mergeString(&s.SandboxPort, o.SandboxPort)
	if o.Timeout > 0 {
		s.Timeout = o.Timeout
	}
	if len(o.LoginEncodings) > 0 {
		s.LoginEncodings = o.LoginEncodings
	}
	if o.ConfirmDelay > 0 {
		s.ConfirmDelay = o.ConfirmDelay
	}
	if o.ConfirmAttempts > 0 {
		s.ConfirmAttempts = o.ConfirmAttempts
	}
	if o.ConfirmBackoff > 0 {
		s.ConfirmBackoff = o.ConfirmBackoff
	}
	if o.ExpiryBuffer > 0 {
		s.ExpiryBuffer = o.ExpiryBuffer
	}
	if o.DefaultTokenExpiry > 0 {
		s.DefaultTokenExpiry = o.DefaultTokenExpiry
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate rejects settings the client cannot run with.
func (c mainConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("[config.Validate] invalid base url %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("[config.Validate] timeout must be positive")
	}
	if c.ConfirmAttempts < 1 {
		return fmt.Errorf("[config.Validate] confirm attempts must be at least 1")
	}
	if len(c.LoginEncodings) == 0 {
		return fmt.Errorf("[config.Validate] at least one login encoding is required")
	}
	for _, enc := range c.LoginEncodings {
		if !isKnownEncoding(enc) {
			return fmt.Errorf("[config.Validate] unknown login encoding %q", enc)
		}
	}
	return nil
}

func isKnownEncoding(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case EncodingForm, EncodingMultipart, EncodingJSON:
		return true
	}
	return false
}

func (c mainConfig) GetAppName() string {
	return c.AppName
}

func (c mainConfig) GetEnv() string {
	return c.Env
}

func (c mainConfig) GetLogLevel() string {
	return c.LogLevel
}

func (c mainConfig) GetDataFolder() string {
	return c.DataFolder
}
