package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/energia-client/chat"
	"github.com/jrsteele09/energia-client/internal/errors"
)

func newChatCommand(get appFunc) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant; opens a session when no message is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.requireAuth("[chat]"); err != nil {
				return err
			}
			if message != "" {
				return sendAndPrint(cmd.Context(), a.chat, message)
			}
			return chatREPL(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "send one message and exit")
	return cmd
}

func sendAndPrint(ctx context.Context, svc *chat.Service, message string) error {
	var reply *chat.Message
	err := withSpinner("Pensando...", func() error {
		var err error
		reply, err = svc.Send(ctx, message)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", text.FgCyan.Sprint(reply.AssistantType+":"), reply.Content)
	return nil
}

// chatREPL reads messages until EOF or /sair. Failed sends are reported and
// the session goes on, except when the login is gone.
func chatREPL(ctx context.Context, a *app) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          text.FgGreen.Sprint("você> "),
		HistoryFile:     filepath.Join(a.cfg.GetDataFolder(), "chat_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "/sair",
	})
	if err != nil {
		return pkgerrors.Wrap(err, "[chatREPL] readline")
	}
	defer rl.Close()

	if !a.chat.Health(ctx) {
		fmt.Println(text.FgYellow.Sprint("O assistente parece indisponível no momento."))
	}
	printIcebreakers(a.chat.Icebreakers(ctx))
	fmt.Println(text.FgHiBlack.Sprint("Digite /dicas para sugestões ou /sair para encerrar."))

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return pkgerrors.Wrap(err, "[chatREPL] read")
		}

		switch input := strings.TrimSpace(line); input {
		case "":
			continue
		case "/sair", "/exit":
			return nil
		case "/dicas":
			printIcebreakers(a.chat.Icebreakers(ctx))
		default:
			err := sendAndPrint(ctx, a.chat, input)
			if errors.Is(err, errors.ErrSessionExpired) || errors.Is(err, errors.ErrNotAuthenticated) {
				return err
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, text.FgRed.Sprint(errors.UserMessage(err)))
			}
		}
	}
}

func newIcebreakersCommand(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "icebreakers",
		Short: "Show today's conversation starters and tip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printIcebreakers(get().chat.Icebreakers(cmd.Context()))
			return nil
		},
	}
}

func printIcebreakers(ib chat.Icebreakers) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	title := "Sugestões"
	if ib.Fallback {
		title += " (offline)"
	}
	t.SetTitle(title)
	for i, item := range ib.Items {
		t.AppendRow(table.Row{i + 1, item.Text})
	}
	if ib.DailyTip != "" {
		t.AppendFooter(table.Row{"Dica", ib.DailyTip})
	}
	t.Render()
}
