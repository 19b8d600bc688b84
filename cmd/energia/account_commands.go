package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/energia-client/auth"
	"github.com/jrsteele09/energia-client/internal/errors"
)

func newPasswordCommand(get appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change or recover the account password",
	}
	cmd.AddCommand(newPasswordChangeCommand(get), newPasswordForgotCommand(get))
	return cmd
}

func newPasswordChangeCommand(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "change",
		Short: "Change the password of the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.requireAuth("[password change]"); err != nil {
				return err
			}
			current, err := askPassword("Senha atual: ")
			if err != nil {
				return err
			}
			next, err := askPassword("Nova senha: ")
			if err != nil {
				return err
			}
			confirm, err := askPassword("Confirme a nova senha: ")
			if err != nil {
				return err
			}
			if next != confirm {
				return errors.New(errors.ErrValidation, "[password change]", "Passwords do not match")
			}
			if err := a.orchestrator.ChangePassword(cmd.Context(), current, next); err != nil {
				return err
			}
			success("Senha alterada.")
			return nil
		},
	}
}

func newPasswordForgotCommand(get appFunc) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot",
		Short: "Request a password reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			var err error
			if email == "" {
				if email, err = ask("E-mail: ", ""); err != nil {
					return err
				}
			}
			if err := a.orchestrator.ForgotPassword(cmd.Context(), email); err != nil {
				return err
			}
			success("Se o e-mail estiver cadastrado, você receberá um link para redefinir a senha.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newCheckCommand(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the backend endpoints answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := get().orchestrator.CheckConnection(cmd.Context())
			printReport(report)
			if !report.Reachable {
				return errors.New(errors.ErrNetwork, "[check]", "")
			}
			return nil
		},
	}
}

func printReport(report auth.ConnectionReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(report.BaseURL)
	t.AppendHeader(table.Row{"Rota", "Status", "Destino"})
	for _, ep := range report.Endpoints {
		status := text.FgGreen.Sprint(ep.StatusCode)
		switch {
		case ep.Err != nil:
			status = text.FgRed.Sprint(errors.UserMessage(ep.Err))
		case ep.StatusCode >= 400:
			status = text.FgYellow.Sprint(ep.StatusCode)
		}
		t.AppendRow(table.Row{ep.Path, status, ep.Location})
	}
	t.Render()
	if !report.Reachable {
		fmt.Println(text.FgRed.Sprint("Servidor inacessível."))
	}
}
