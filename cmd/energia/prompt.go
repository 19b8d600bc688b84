package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"
	pkgerrors "github.com/pkg/errors"
)

// ask reads one line, returning def when the answer is empty.
func ask(prompt, def string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{Prompt: prompt, InterruptPrompt: "^C"})
	if err != nil {
		return "", pkgerrors.Wrap(err, "[ask] readline")
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		return "", promptError(err)
	}
	if line = strings.TrimSpace(line); line != "" {
		return line, nil
	}
	return def, nil
}

// askPassword reads a line without echo.
func askPassword(prompt string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{InterruptPrompt: "^C"})
	if err != nil {
		return "", pkgerrors.Wrap(err, "[askPassword] readline")
	}
	defer rl.Close()

	pw, err := rl.ReadPassword(prompt)
	if err != nil {
		return "", promptError(err)
	}
	return string(pw), nil
}

func promptError(err error) error {
	if err == readline.ErrInterrupt || err == io.EOF {
		return pkgerrors.New("input cancelled")
	}
	return pkgerrors.Wrap(err, "read input")
}

// withSpinner runs fn behind a spinner with suffix as its label.
func withSpinner(suffix string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	s.Start()
	err := fn()
	if err != nil {
		s.FinalMSG = text.FgRed.Sprint("✗ "+suffix) + "\n"
	}
	s.Stop()
	return err
}

func success(format string, args ...any) {
	fmt.Printf("%s %s\n", text.FgGreen.Sprint("✓"), fmt.Sprintf(format, args...))
}
