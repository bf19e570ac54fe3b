// Package cli implements the dicetray command-line tool: rolling and parsing
// notation, browsing history, running Lua roll scripts, an interactive REPL
// and an embedded server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	entrypoint "github.com/louisbranch/dicetray/internal/platform/cmd"
	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	platformgrpc "github.com/louisbranch/dicetray/internal/platform/grpc"
	"github.com/louisbranch/dicetray/internal/platform/i18n/catalog"
	"github.com/louisbranch/dicetray/internal/platform/timeouts"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	dicegrpc "github.com/louisbranch/dicetray/internal/services/dice/api/grpc/dice"
	"github.com/louisbranch/dicetray/internal/storage/sqlite"
	"github.com/spf13/cobra"
	"golang.org/x/text/message"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds CLI configuration shared by every sub-command.
type Config struct {
	// RemoteAddr sends rolls to a dice server instead of rolling locally.
	RemoteAddr string `env:"DICETRAY_REMOTE_ADDR"`
	// ServeAddr is the listen address of the serve sub-command.
	ServeAddr string `env:"DICETRAY_GRPC_ADDR" envDefault:"localhost:8090"`
	FeedAddr  string `env:"DICETRAY_FEED_ADDR"`
	DBPath    string `env:"DICETRAY_DB_PATH"   envDefault:"data/dicetray.db"`
	D100Mode  int    `env:"DICETRAY_D100_MODE" envDefault:"1"`
	Locale    string `env:"DICETRAY_LOCALE"    envDefault:"en-US"`
	Format    string `env:"DICETRAY_FORMAT"    envDefault:"text"`
	NoColor   bool   `env:"DICETRAY_NO_COLOR"`
	Verbose   bool   `env:"DICETRAY_VERBOSE"`
}

// LoadConfig reads the environment defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the command line in args.
func Run(ctx context.Context, cfg Config, args []string, out, errOut io.Writer) error {
	a := newApp(&cfg, out, errOut)
	root := a.rootCommand()
	root.SetArgs(args)
	return entrypoint.Run(ctx, entrypoint.ServiceCLI, func(ctx context.Context) error {
		if err := root.ExecuteContext(ctx); err != nil {
			return a.userError(err)
		}
		return nil
	})
}

// app carries the state shared by sub-commands.
type app struct {
	cfg    *Config
	out    io.Writer
	errOut io.Writer

	openClient  func(ctx context.Context) (diceservice.Client, func() error, error)
	newPrompter func() prompter
}

func newApp(cfg *Config, out, errOut io.Writer) *app {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	a := &app{cfg: cfg, out: out, errOut: errOut, newPrompter: newLinerPrompter}
	a.openClient = a.dialOrOpen
	return a
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dicetray",
		Short:         "Roll dice notation such as 3d6+2 or 4d6k3",
		Long:          "dicetray parses dice notation, rolls it locally or against a dicetray server, and keeps a history of every roll.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch a.cfg.Format {
			case FormatText, FormatJSON, FormatYAML:
			default:
				return fmt.Errorf("unknown output format %q", a.cfg.Format)
			}
			return nil
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.RemoteAddr, "remote", a.cfg.RemoteAddr, "dice server address (empty rolls locally)")
	flags.StringVar(&a.cfg.DBPath, "db", a.cfg.DBPath, "roll history database path")
	flags.IntVar(&a.cfg.D100Mode, "d100-mode", a.cfg.D100Mode, "d100 mode: 0 reads 00 as 0, 1 reads 00 as 100")
	flags.StringVar(&a.cfg.Locale, "locale", a.cfg.Locale, "locale for messages")
	flags.StringVarP(&a.cfg.Format, "output", "o", a.cfg.Format, "output format: text, json or yaml")
	flags.BoolVar(&a.cfg.NoColor, "no-color", a.cfg.NoColor, "disable colored output")
	flags.BoolVarP(&a.cfg.Verbose, "verbose", "v", a.cfg.Verbose, "log every roll to stderr")

	root.AddCommand(
		a.rollCommand(),
		a.parseCommand(),
		a.historyCommand(),
		a.scriptCommand(),
		a.replCommand(),
		a.serveCommand(),
	)
	return root
}

// dialOrOpen returns a remote client when RemoteAddr is set, otherwise a
// local service over the history database.
func (a *app) dialOrOpen(ctx context.Context) (diceservice.Client, func() error, error) {
	if addr := strings.TrimSpace(a.cfg.RemoteAddr); addr != "" {
		conn, err := platformgrpc.Dial(ctx, addr, platformgrpc.DialOptions{
			Timeout: timeouts.GRPCDial,
			Service: dicegrpc.ServiceName,
		})
		if err != nil {
			return nil, nil, err
		}
		return dicegrpc.NewClient(conn, a.cfg.Locale), conn.Close, nil
	}

	store, err := sqlite.Open(a.cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open roll history: %w", err)
	}
	svc := diceservice.NewService(
		diceservice.WithStore(store),
		diceservice.WithD100Mode(notation.D100Mode(a.cfg.D100Mode)),
		diceservice.WithLogger(a.logger()),
	)
	return diceservice.Local(svc), store.Close, nil
}

// withClient opens a client for the duration of fn.
func (a *app) withClient(ctx context.Context, fn func(diceservice.Client) error) (err error) {
	client, closeFn, err := a.openClient(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(client)
}

func (a *app) logger() *log.Logger {
	if a.cfg.Verbose {
		return log.New(a.errOut, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func (a *app) printer() *message.Printer {
	return catalog.Default().Printer(a.cfg.Locale)
}

// userError replaces err's text with its localized message while keeping
// the chain for errors.Is.
func (a *app) userError(err error) error {
	return &cliError{msg: userMessage(err, a.cfg.Locale), err: err}
}

type cliError struct {
	msg string
	err error
}

func (e *cliError) Error() string { return e.msg }
func (e *cliError) Unwrap() error { return e.err }

func userMessage(err error, locale string) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return apperrors.Localize(err, locale)
	}
	if st, ok := status.FromError(err); ok {
		for _, detail := range st.Details() {
			if msg, ok := detail.(*errdetails.LocalizedMessage); ok && msg.GetMessage() != "" {
				return msg.GetMessage()
			}
		}
		return st.Message()
	}
	return err.Error()
}
