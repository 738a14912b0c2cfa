package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/spf13/cobra"
)

func newReplCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Compile and run queries interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd, a)
		},
	}
}

func runRepl(cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()
	sess := NewSession(cmd.Context(), a, out)
	defer func() { _ = sess.Close() }()

	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:          prompt(a),
		HistoryFile:     historyPath(),
		HistoryLimit:    500,
		AutoComplete:    &replCompleter{sess: sess},
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          out,
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer func() { _ = rl.Close() }()

	if a.cfg.DSN != "" {
		if err := sess.cmdConnect(a.cfg.DSN); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  Warning: connect failed: %v\n", err)
		}
	}

	_, _ = fmt.Fprintln(out, "cmpql REPL: type 'help' for commands, 'exit' to quit")
	for {
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if lower := strings.ToLower(line); lower == "exit" || lower == "quit" {
			break
		}
		if err := sess.Execute(line); err != nil {
			printError(cmd.ErrOrStderr(), err)
		}
		rl.SetPrompt(prompt(a))
	}
	return nil
}

func prompt(a *app) string {
	return "cmpql(" + a.project.dialect.Name() + ")> "
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cmpql_history")
}
