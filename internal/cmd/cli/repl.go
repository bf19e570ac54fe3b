package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const (
	replPrompt  = "dice> "
	historyFile = ".dicetray_history"
)

// prompter reads REPL lines.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// linerPrompter keeps line history in the user's home directory.
type linerPrompter struct {
	*liner.State
	historyPath string
}

func newLinerPrompter() prompter {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	p := &linerPrompter{State: state}
	if home, err := os.UserHomeDir(); err == nil {
		p.historyPath = filepath.Join(home, historyFile)
		if f, err := os.Open(p.historyPath); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}
	return p
}

func (p *linerPrompter) Close() error {
	if p.historyPath != "" {
		if f, err := os.Create(p.historyPath); err == nil {
			_, _ = p.WriteHistory(f)
			_ = f.Close()
		}
	}
	return p.State.Close()
}

func (a *app) replCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Roll notation interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(client diceservice.Client) error {
				p := a.newPrompter()
				defer p.Close()
				return a.repl(cmd, client, p)
			})
		},
	}
}

// repl rolls each line until :quit, end of input or the context ends. A
// failed roll prints its error and keeps the session going.
func (a *app) repl(cmd *cobra.Command, client diceservice.Client, p prompter) error {
	ctx := cmd.Context()
	printer := a.printer()
	pal := newPalette(a.cfg.NoColor)
	fmt.Fprintln(a.out, printer.Sprintf("cli.repl.banner"))

	for ctx.Err() == nil {
		line, err := p.Prompt(replPrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			break
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == ":quit" || line == ":q":
			fmt.Fprintln(a.out, printer.Sprintf("cli.repl.bye"))
			return nil
		case strings.HasPrefix(line, ":"):
			fmt.Fprintln(a.errOut, printer.Sprintf("cli.repl.unknown"))
			continue
		}

		p.AppendHistory(line)
		record, err := client.Roll(ctx, diceservice.RollRequest{Notation: line})
		if err != nil {
			fmt.Fprintln(a.errOut, pal.err.Sprint(userMessage(err, a.cfg.Locale)))
			continue
		}
		writeRoll(a.out, printer, pal, record, false)
	}
	fmt.Fprintln(a.out, printer.Sprintf("cli.repl.bye"))
	return nil
}
