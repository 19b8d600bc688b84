package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/energia-client/internal/config"
	"github.com/jrsteele09/energia-client/internal/errors"
)

const (
	exitOK = iota
	exitError
	exitAuthRequired
	exitAuthFailed
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, text.FgRed.Sprint(errors.UserMessage(err)))
	}
	return exitCode(err)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errors.ErrNotAuthenticated), errors.Is(err, errors.ErrSessionExpired):
		return exitAuthRequired
	case errors.Is(err, errors.ErrInvalidCredentials):
		return exitAuthFailed
	}
	return exitError
}

func newRootCommand() *cobra.Command {
	var configPath string
	var a *app

	root := &cobra.Command{
		Use:           "energia",
		Short:         "Terminal client for the EnergIA energy assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if a, err = newApp(configPath); err != nil {
				return err
			}
			a.state.Init(cmd.Context())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $HOME/"+config.DefaultConfigFile+")")

	get := func() *app { return a }
	root.AddCommand(
		newLoginCommand(get),
		newLogoutCommand(get),
		newStatusCommand(get),
		newRegisterCommand(get),
		newChatCommand(get),
		newIcebreakersCommand(get),
		newPasswordCommand(get),
		newCheckCommand(get),
	)
	return root
}
