package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/energia-client/auth"
	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/users"
)

type appFunc func() *app

func newLoginCommand(get appFunc) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			var err error
			if email == "" {
				if email, err = ask("E-mail: ", ""); err != nil {
					return err
				}
			}
			password, err := askPassword("Senha: ")
			if err != nil {
				return err
			}

			var u *users.User
			err = withSpinner("Entrando...", func() error {
				u, err = a.state.Login(cmd.Context(), auth.Credentials{Email: email, Password: password})
				return err
			})
			if err != nil {
				return err
			}
			success("%s", u.Greeting())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newLogoutCommand(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			get().state.Logout(cmd.Context())
			success("Sessão encerrada.")
			return nil
		},
	}
}

func newStatusCommand(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			s := a.state.State()

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleRounded)
			t.AppendRow(table.Row{"Servidor", a.cfg.GetBaseURL()})

			if !s.IsAuthenticated {
				t.AppendRow(table.Row{"Status", text.FgYellow.Sprint("Não autenticado")})
				if s.Error != nil {
					t.AppendRow(table.Row{"Último erro", errors.UserMessage(s.Error)})
				}
				t.Render()
				return errors.New(errors.ErrNotAuthenticated, "[status]", "")
			}

			t.AppendRow(table.Row{"Status", text.FgGreen.Sprint("Autenticado")})
			t.AppendRow(table.Row{"Nome", s.User.Name})
			t.AppendRow(table.Row{"E-mail", s.User.Email})
			t.AppendRow(table.Row{"Grupo", s.User.GroupOrDefault()})
			if s.User.HasRealID() {
				t.AppendRow(table.Row{"ID", s.User.ID})
			}
			if b, err := a.orchestrator.Sessions().Tokens(cmd.Context()); err == nil && b != nil {
				t.AppendRow(table.Row{"Token expira", expiryText(b.ExpiresAt)})
				t.AppendRow(table.Row{"Cookie de sessão", presence(b.Cookie != "")})
				t.AppendRow(table.Row{"Refresh token", presence(b.RefreshToken != "")})
			}
			t.Render()
			return nil
		},
	}
}

func expiryText(at time.Time) string {
	if at.IsZero() {
		return text.FgHiBlack.Sprint("sem expiração")
	}
	left := time.Until(at).Round(time.Second)
	if left <= 0 {
		return text.FgYellow.Sprintf("expirou há %s", -left)
	}
	return fmt.Sprintf("%s (em %s)", at.Local().Format(time.DateTime), left)
}

func presence(ok bool) string {
	if ok {
		return text.FgGreen.Sprint("sim")
	}
	return text.FgHiBlack.Sprint("não")
}

func newRegisterCommand(get appFunc) *cobra.Command {
	var data auth.RegisterData
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			var err error
			if data.Name == "" {
				if data.Name, err = ask("Nome: ", ""); err != nil {
					return err
				}
			}
			if data.Email == "" {
				if data.Email, err = ask("E-mail: ", ""); err != nil {
					return err
				}
			}
			if data.Password, err = askPassword("Senha: "); err != nil {
				return err
			}
			if data.ConfirmPassword, err = askPassword("Confirme a senha: "); err != nil {
				return err
			}

			var u *users.User
			err = withSpinner("Criando conta...", func() error {
				u, err = a.state.Register(cmd.Context(), data)
				return err
			})
			if err != nil {
				return err
			}
			success("Conta criada. %s", u.Greeting())
			return nil
		},
	}
	cmd.Flags().StringVarP(&data.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&data.Email, "email", "e", "", "account email")
	return cmd
}
