package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/energia-client/internal/config"
	"github.com/jrsteele09/energia-client/internal/logging"
	"github.com/jrsteele09/energia-client/sandbox"
	"github.com/jrsteele09/energia-client/sandbox/loginsession"
	"github.com/jrsteele09/energia-client/users"
	"github.com/jrsteele09/energia-client/users/repofake"
)

type flags struct {
	port         string
	encodings    string
	chatMode     string
	template     string
	redirect     bool
	demoName     string
	demoEmail    string
	demoPassword string
	demoGroup    string
}

func main() {
	var f flags
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run a local simulator of the EnergIA web backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			for {
				err := run(f)
				if err == nil {
					return nil
				}
				log.Err(err).Msg("Error running sandbox, restarting")
				time.Sleep(1 * time.Second)
			}
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&f.port, "port", "p", "", "listen port (default SANDBOX_PORT or 8080)")
	cmd.Flags().StringVar(&f.encodings, "encodings", "form,multipart,json", "accepted POST /login encodings")
	cmd.Flags().StringVar(&f.chatMode, "chat-mode", string(sandbox.ChatModeJSON), "chat reply format: json or sse")
	cmd.Flags().StringVar(&f.template, "dashboard", string(sandbox.DashboardStandard), "dashboard template: standard or generic")
	cmd.Flags().BoolVar(&f.redirect, "register-redirect", false, "answer POST /register with a redirect to /login")
	cmd.Flags().StringVar(&f.demoName, "demo-name", "Maria Silva", "name of the seeded account")
	cmd.Flags().StringVar(&f.demoEmail, "demo-email", "demo@energia.com.br", "email of the seeded account")
	cmd.Flags().StringVar(&f.demoPassword, "demo-password", "energia123", "password of the seeded account")
	cmd.Flags().StringVar(&f.demoGroup, "demo-group", string(users.GroupWatts), "group of the seeded account: Watts or Volts")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
	log.Info().Msg("Sandbox stopped")
}

func run(f flags) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName() + " sandbox")

	handler, err := newSandbox(c, f)
	if err != nil {
		return err
	}

	port := f.port
	if port == "" {
		port = c.GetSandboxPort()
	}
	server := &http.Server{Addr: net.JoinHostPort("", port), Handler: handler}
	go listenAndServe(server)
	waitForStopSignal()
	return shutdown(server)
}

func newSandbox(c config.EnvConfig, f flags) (*sandbox.Server, error) {
	var encodings []string
	for _, enc := range strings.Split(f.encodings, ",") {
		if enc = strings.TrimSpace(enc); enc != "" {
			encodings = append(encodings, enc)
		}
	}
	group, ok := users.ParseGroup(f.demoGroup)
	if !ok {
		return nil, fmt.Errorf("unknown group %q", f.demoGroup)
	}

	opts := []sandbox.Option{
		sandbox.WithAcceptedEncodings(encodings...),
		sandbox.WithChatMode(sandbox.ChatMode(f.chatMode)),
		sandbox.WithDashboardTemplate(sandbox.DashboardTemplate(f.template)),
	}
	if f.redirect {
		opts = append(opts, sandbox.WithRegisterRedirect())
	}

	s, err := sandbox.New(c, repofake.NewFakeAccountRepo(), loginsession.NewInMemoryRepo(), opts...)
	if err != nil {
		return nil, err
	}
	if _, err := s.AddAccount(f.demoName, f.demoEmail, f.demoPassword, group); err != nil {
		return nil, fmt.Errorf("seed demo account: %w", err)
	}
	log.Info().Str("email", f.demoEmail).Str("group", string(group)).Msg("Demo account ready")
	return s, nil
}

func listenAndServe(server *http.Server) {
	log.Info().Msgf("Sandbox listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
