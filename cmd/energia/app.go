package main

import (
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/auth"
	"github.com/jrsteele09/energia-client/chat"
	"github.com/jrsteele09/energia-client/credstore"
	"github.com/jrsteele09/energia-client/credstore/encryptedfile"
	"github.com/jrsteele09/energia-client/internal/config"
	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/internal/logging"
	"github.com/jrsteele09/energia-client/sessions"
	"github.com/jrsteele09/energia-client/state"
	"github.com/jrsteele09/energia-client/transport"
)

// app holds the wired client for one command invocation.
type app struct {
	cfg          config.Config
	orchestrator *auth.Orchestrator
	state        *state.Controller
	chat         *chat.Service
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.GetLogLevel(), cfg.GetEnv())

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	client, err := transport.New(cfg)
	if err != nil {
		return nil, err
	}
	mgr, err := sessions.NewManager(store, cfg)
	if err != nil {
		return nil, err
	}
	o, err := auth.NewOrchestrator(client, mgr, cfg)
	if err != nil {
		return nil, err
	}
	controller, err := state.New(o)
	if err != nil {
		return nil, err
	}
	controller.Subscribe(func(s state.State) {
		log.Debug().Bool("authenticated", s.IsAuthenticated).Bool("loading", s.IsLoading).Msg("session state changed")
	})
	chatService, err := chat.NewService(client)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, orchestrator: o, state: controller, chat: chatService}, nil
}

// openStore opens the encrypted store in the data folder. Without a
// configured passphrase a host bound one is used.
func openStore(cfg config.Config) (credstore.Store, error) {
	passphrase := cfg.GetStoragePassphrase()
	if passphrase == "" {
		host, _ := os.Hostname()
		passphrase = cfg.GetAppName() + "@" + host
		log.Debug().Msg("no store passphrase configured, using host bound default")
	}
	store, err := encryptedfile.New(filepath.Join(cfg.GetDataFolder(), "credentials"), passphrase)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[openStore]")
	}
	return store, nil
}

// requireAuth fails with ErrNotAuthenticated when nobody is logged in.
func (a *app) requireAuth(op string) error {
	if !a.state.State().IsAuthenticated {
		return errors.New(errors.ErrNotAuthenticated, op, "")
	}
	return nil
}
