// Package state owns the process-wide session state. Every change goes
// through a named transition and is published to subscribers.
package state

import (
	"context"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/auth"
	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/users"
)

// State is a snapshot of the session. Subscribers receive copies.
type State struct {
	IsAuthenticated bool
	User            *users.User
	IsLoading       bool
	Error           error
}

// Authenticator is the subset of auth.Orchestrator the controller drives.
type Authenticator interface {
	Login(ctx context.Context, c auth.Credentials) (*users.User, error)
	Register(ctx context.Context, data auth.RegisterData) (*users.User, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (*users.User, error)
	OnSessionExpired(fn func())
}

type Listener func(State)

type Controller struct {
	auth Authenticator

	mu        sync.RWMutex
	state     State
	inFlight  bool
	nextID    int
	listeners map[int]Listener
}

// New returns a controller in the loading state. Call Init to resolve it.
func New(a Authenticator) (*Controller, error) {
	if a == nil {
		return nil, pkgerrors.New("[state.New] authenticator is required")
	}
	c := &Controller{
		auth:      a,
		state:     State{IsLoading: true},
		listeners: make(map[int]Listener),
	}
	a.OnSessionExpired(c.sessionExpired)
	return c, nil
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.copy()
}

// Subscribe registers fn for every future transition. The returned func
// removes it.
func (c *Controller) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Init runs the silent restore. Any failure, including a network failure,
// ends in the unauthenticated state; the error is recorded but not returned.
func (c *Controller) Init(ctx context.Context) State {
	u, err := c.auth.Restore(ctx)
	if err != nil {
		if !errors.Is(err, errors.ErrNotAuthenticated) {
			log.Warn().Err(err).Msg("[Controller.Init] restore failed")
		} else {
			err = nil
		}
		return c.publish(State{Error: err})
	}
	return c.publish(State{IsAuthenticated: true, User: u})
}

// Login authenticates with the cascade. A second login while one is running
// fails with ErrLoginInProgress without touching the state.
func (c *Controller) Login(ctx context.Context, creds auth.Credentials) (*users.User, error) {
	return c.authenticate("[Controller.Login]", func() (*users.User, error) {
		return c.auth.Login(ctx, creds)
	})
}

// Register creates an account and logs in. Shares the in-flight guard with
// Login.
func (c *Controller) Register(ctx context.Context, data auth.RegisterData) (*users.User, error) {
	return c.authenticate("[Controller.Register]", func() (*users.User, error) {
		return c.auth.Register(ctx, data)
	})
}

func (c *Controller) authenticate(op string, run func() (*users.User, error)) (*users.User, error) {
	if !c.begin() {
		return nil, errors.New(errors.ErrLoginInProgress, op, "")
	}

	u, err := run()
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()

	if err != nil {
		c.publish(State{Error: err})
		return nil, err
	}
	c.publish(State{IsAuthenticated: true, User: u})
	return u, nil
}

func (c *Controller) begin() bool {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return false
	}
	c.inFlight = true
	next := c.state.copy()
	next.IsLoading = true
	next.Error = nil
	c.state = next
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	notify(listeners, next)
	return true
}

// Logout clears the local session and publishes the unauthenticated state
// whatever the remote call returned. The authenticator logs remote failures
// itself and returns only the local clear error, which is logged here.
func (c *Controller) Logout(ctx context.Context) State {
	if err := c.auth.Logout(ctx); err != nil {
		log.Err(err).Msg("[Controller.Logout] clearing local session failed")
	}
	return c.publish(State{})
}

func (c *Controller) sessionExpired() {
	c.publish(State{Error: errors.New(errors.ErrSessionExpired, "[Controller.sessionExpired]", "")})
}

func (c *Controller) publish(next State) State {
	c.mu.Lock()
	c.state = next
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	notify(listeners, next)
	return next.copy()
}

func (c *Controller) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.listeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(listeners []Listener, s State) {
	for _, fn := range listeners {
		fn(s.copy())
	}
}

func (s State) copy() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
