package cli

import (
	"fmt"
	"strings"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	dicesrv "github.com/louisbranch/dicetray/internal/services/dice/app"
	"github.com/louisbranch/dicetray/internal/storage"
	"github.com/louisbranch/dicetray/internal/tools/script"
	"github.com/spf13/cobra"
)

func (a *app) rollCommand() *cobra.Command {
	var (
		seed   int64
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:     "roll <notation>...",
		Short:   "Roll dice notation",
		Example: "  dicetray roll 3d6+2\n  dicetray roll 4d6k3 4d6k3 --seed 42",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := diceservice.RollRequest{Notation: strings.Join(args, " "), DryRun: dryRun}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			if cmd.Flags().Changed("d100-mode") {
				mode := notation.D100Mode(a.cfg.D100Mode)
				req.D100Mode = &mode
			}
			return a.withClient(cmd.Context(), func(client diceservice.Client) error {
				record, err := client.Roll(cmd.Context(), req)
				if err != nil {
					return err
				}
				if a.cfg.Format != FormatText {
					return encode(a.out, a.cfg.Format, newRollView(record))
				}
				writeRoll(a.out, a.printer(), newPalette(a.cfg.NoColor), record, dryRun)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "replay a roll with this seed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "roll without recording history")
	return cmd
}

func (a *app) parseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <notation>...",
		Short: "Parse dice notation without rolling",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return diceservice.ErrEmptyNotation
			}
			groups, err := notation.ParseGroups(text)
			if err != nil {
				return err
			}
			view := parseView{Canonical: notation.FormatGroups(groups), Groups: make([]string, 0, len(groups))}
			for _, g := range groups {
				view.Groups = append(view.Groups, notation.Format(g))
			}
			if a.cfg.Format != FormatText {
				return encode(a.out, a.cfg.Format, view)
			}
			p := a.printer()
			for i, g := range view.Groups {
				fmt.Fprintln(a.out, p.Sprintf("cli.roll.group", i+1, g))
			}
			fmt.Fprintln(a.out, p.Sprintf("cli.parse.canonical", view.Canonical))
			return nil
		},
	}
}

func (a *app) historyCommand() *cobra.Command {
	var query storage.ListQuery
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "List recorded rolls",
		Example: "  dicetray history --filter 'total >= 15' --desc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(client diceservice.Client) error {
				page, err := client.ListRolls(cmd.Context(), query)
				if err != nil {
					return err
				}
				if a.cfg.Format != FormatText {
					view := historyView{Rolls: make([]rollView, 0, len(page.Records)), NextPageToken: page.NextPageToken}
					for _, record := range page.Records {
						view.Rolls = append(view.Rolls, newRollView(record))
					}
					return encode(a.out, a.cfg.Format, view)
				}

				p := a.printer()
				if len(page.Records) == 0 {
					fmt.Fprintln(a.out, p.Sprintf("cli.history.empty"))
					return nil
				}
				fmt.Fprintln(a.out, historyTable(p, page.Records))
				if page.NextPageToken != "" {
					fmt.Fprintln(a.out, newPalette(a.cfg.NoColor).seed.Sprint(p.Sprintf("cli.history.next", page.NextPageToken)))
				}
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&query.PageSize, "page-size", storage.DefaultPageSize, "rolls per page")
	flags.StringVar(&query.PageToken, "page-token", "", "token from a previous page")
	flags.StringVar(&query.Filter, "filter", "", "filter expression, e.g. total > 15")
	flags.BoolVar(&query.Descending, "desc", false, "list the newest rolls first")
	return cmd
}

func (a *app) scriptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "script <file.lua>",
		Short: "Run a Lua roll script",
		Long:  "Runs a Lua script with a global dice table offering roll, parse and format.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(client diceservice.Client) error {
				runner := script.NewRunner(client, a.out, a.cfg.Locale)
				report, err := runner.RunFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a.cfg.Format != FormatText {
					rolls := make([]rollView, 0, len(report.Rolls))
					for _, record := range report.Rolls {
						rolls = append(rolls, newRollView(record))
					}
					return encode(a.out, a.cfg.Format, historyView{Rolls: rolls})
				}
				fmt.Fprintln(a.errOut, a.printer().Sprintf("cli.script.rolls", len(report.Rolls)))
				return nil
			})
		},
	}
}

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a dice server over the local history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := notation.D100Mode(a.cfg.D100Mode)
			if !mode.Valid() {
				return diceservice.ErrInvalidD100Mode
			}
			return dicesrv.Run(cmd.Context(), dicesrv.Config{
				Addr:     a.cfg.ServeAddr,
				DBPath:   a.cfg.DBPath,
				D100Mode: mode,
				FeedAddr: a.cfg.FeedAddr,
				Logger:   a.logger(),
			})
		},
	}
	cmd.Flags().StringVar(&a.cfg.ServeAddr, "addr", a.cfg.ServeAddr, "gRPC listen address")
	cmd.Flags().StringVar(&a.cfg.FeedAddr, "feed-addr", a.cfg.FeedAddr, "websocket feed address (empty disables it)")
	return cmd
}
