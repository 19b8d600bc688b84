// Package sandbox simulates the legacy EnergIA backend: a server rendered
// login form, cookie sessions, an HTML dashboard, bearer tokens for the JSON
// login path and the chat endpoints. It exists for local development and for
// exercising the client end to end.
package sandbox

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/internal/config"
	"github.com/jrsteele09/energia-client/sandbox/loginsession"
	"github.com/jrsteele09/energia-client/users"
)

// SessionCookieName is the cookie the backend issues on login.
const SessionCookieName = "connect.sid"

type ChatMode string

const (
	ChatModeJSON ChatMode = "json"
	ChatModeSSE  ChatMode = "sse"
)

type DashboardTemplate string

const (
	// DashboardStandard greets the user and embeds the hidden metadata div.
	DashboardStandard DashboardTemplate = "standard"
	// DashboardGeneric is the Volts template without metadata.
	DashboardGeneric DashboardTemplate = "generic"
)

type Server struct {
	env           string
	mux           *http.ServeMux
	routes        []string
	accounts      users.AccountRepo
	loginSessions loginsession.Repo
	tokens        *tokenIssuer

	encodings        map[string]bool
	chatMode         ChatMode
	dashboard        DashboardTemplate
	registerRedirect bool
	sessionTTL       time.Duration
	accessTTL        time.Duration
	jwtSecret        []byte
	observer         func(*http.Request)
	chatReply        func(u *users.User, message string) string
	nowTime          func() time.Time

	loginTmpl     *template.Template
	dashboardTmpl *template.Template
	genericTmpl   *template.Template
	indexTmpl     *template.Template

	stateLock     sync.Mutex
	history       map[string][]chatEntry
	resetRequests []string
}

type Option func(*Server)

// WithAcceptedEncodings restricts which POST /login body encodings are
// understood. Any other encoding re-renders the login page.
func WithAcceptedEncodings(encodings ...string) Option {
	return func(s *Server) {
		s.encodings = make(map[string]bool, len(encodings))
		for _, e := range encodings {
			s.encodings[strings.ToLower(e)] = true
		}
	}
}

func WithChatMode(mode ChatMode) Option {
	return func(s *Server) {
		s.chatMode = mode
	}
}

func WithDashboardTemplate(t DashboardTemplate) Option {
	return func(s *Server) {
		s.dashboard = t
	}
}

// WithRegisterRedirect makes POST /register answer with a redirect to the
// login page instead of a JSON session.
func WithRegisterRedirect() Option {
	return func(s *Server) {
		s.registerRedirect = true
	}
}

// WithObserver is called for every request before it is handled.
func WithObserver(observer func(*http.Request)) Option {
	return func(s *Server) {
		s.observer = observer
	}
}

func WithChatReply(reply func(u *users.User, message string) string) Option {
	return func(s *Server) {
		s.chatReply = reply
	}
}

func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.sessionTTL = ttl
	}
}

func WithJWTSecret(secret []byte) Option {
	return func(s *Server) {
		s.jwtSecret = secret
	}
}

func WithNowTime(nowTime func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowTime
	}
}

func New(cfg config.EnvConfig, accounts users.AccountRepo, loginSessions loginsession.Repo, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[sandbox.New] config is required")
	}
	if accounts == nil {
		return nil, errors.New("[sandbox.New] account repo is required")
	}
	if loginSessions == nil {
		return nil, errors.New("[sandbox.New] login session repo is required")
	}

	s := &Server{
		env:           cfg.GetEnv(),
		mux:           http.NewServeMux(),
		accounts:      accounts,
		loginSessions: loginSessions,
		chatMode:      ChatModeJSON,
		dashboard:     DashboardStandard,
		sessionTTL:    24 * time.Hour,
		accessTTL:     15 * time.Minute,
		jwtSecret:     []byte("energia-sandbox-secret"),
		chatReply:     defaultChatReply,
		nowTime:       time.Now,
		history:       make(map[string][]chatEntry),
	}
	WithAcceptedEncodings(config.EncodingForm, config.EncodingMultipart, config.EncodingJSON)(s)
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = newTokenIssuer(s.jwtSecret, s.accessTTL, s.nowTime)

	if err := s.parseTemplates(); err != nil {
		return nil, errors.Wrap(err, "[sandbox.New] parse templates")
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, ChainMiddleware(handler, s.middleware()...))
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		logRoute(method, path)
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
