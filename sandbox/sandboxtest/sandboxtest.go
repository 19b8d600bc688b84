// Package sandboxtest starts a sandbox backend for tests of the client
// packages.
package sandboxtest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/energia-client/sandbox"
	"github.com/jrsteele09/energia-client/sandbox/loginsession"
	"github.com/jrsteele09/energia-client/users"
	"github.com/jrsteele09/energia-client/users/repofake"
)

const (
	Name     = "Maria Silva"
	Email    = "maria@energia.com.br"
	Password = "segredo123"
)

type envConfig struct{}

func (envConfig) GetAppName() string    { return "EnergIA" }
func (envConfig) GetEnv() string        { return "TEST" }
func (envConfig) GetLogLevel() string   { return "info" }
func (envConfig) GetDataFolder() string { return "" }

// Backend is a running sandbox with one seeded account.
type Backend struct {
	*httptest.Server
	Sandbox  *sandbox.Server
	Sessions *loginsession.InMemoryRepo
	User     *users.User

	mu       sync.Mutex
	requests map[string]int
}

// Start runs a sandbox until the test ends.
func Start(t testing.TB, opts ...sandbox.Option) *Backend {
	t.Helper()
	b := &Backend{
		Sessions: loginsession.NewInMemoryRepo(),
		requests: make(map[string]int),
	}
	opts = append([]sandbox.Option{sandbox.WithObserver(b.observe)}, opts...)

	srv, err := sandbox.New(envConfig{}, repofake.NewFakeAccountRepo(), b.Sessions, opts...)
	require.NoError(t, err)
	b.Sandbox = srv

	b.User, err = srv.AddAccount(Name, Email, Password, users.GroupWatts)
	require.NoError(t, err)

	b.Server = httptest.NewServer(srv)
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) observe(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests[r.Method+" "+r.URL.Path]++
}

// Count reports how many requests hit method and path.
func (b *Backend) Count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[method+" "+path]
}

// Reset forgets the request counts.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = make(map[string]int)
}
