package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	"github.com/louisbranch/dicetray/internal/storage"
)

// breakdownSeparator joins group breakdowns in a roll's output.
const breakdownSeparator = "; "

// MaxRolls bounds the dice.roll calls a single script may make.
const MaxRolls = 1000

const diceTableName = "dice"

// Roller is the roll surface exposed to scripts.
type Roller interface {
	Roll(ctx context.Context, req diceservice.RollRequest) (storage.RollRecord, error)
}

// Report lists the rolls a script made, in call order.
type Report struct {
	Rolls []storage.RollRecord
}

// Runner executes Lua roll scripts.
type Runner struct {
	roller Roller
	out    io.Writer
	locale string
}

// NewRunner creates a runner. Script print output goes to out.
func NewRunner(roller Roller, out io.Writer, locale string) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{roller: roller, out: out, locale: locale}
}

// RunFile executes the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) (Report, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read script: %w", err)
	}
	return r.Run(ctx, filepath.Base(path), string(source))
}

// Run executes source under name. A Lua error, including one raised by a
// failed roll, aborts the script and is reported as SCRIPT_FAILED with the
// rolls made so far.
func (r *Runner) Run(ctx context.Context, name, source string) (Report, error) {
	if r == nil || r.roller == nil {
		return Report{}, fmt.Errorf("script runner is not configured")
	}
	run := &scriptRun{runner: r, ctx: ctx}

	state := lua.NewState()
	lua.OpenLibraries(state)
	run.register(state)

	if err := lua.LoadBuffer(state, source, name, "t"); err != nil {
		return Report{}, scriptFailed(name, err)
	}
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		return run.report, scriptFailed(name, err)
	}
	return run.report, nil
}

func scriptFailed(name string, cause error) error {
	reason := strings.TrimSpace(cause.Error())
	return apperrors.WrapWithMetadata(
		apperrors.CodeScriptFailed,
		fmt.Sprintf("script %s failed", name),
		map[string]string{"Script": name, "Reason": reason},
		cause,
	)
}

// scriptRun holds the state of one script execution.
type scriptRun struct {
	runner *Runner
	ctx    context.Context
	report Report
}

func (s *scriptRun) register(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{
		{Name: "roll", Function: s.roll},
		{Name: "parse", Function: s.parse},
		{Name: "format", Function: s.format},
	}, 0)
	state.SetGlobal(diceTableName)

	state.PushGoFunction(s.print)
	state.SetGlobal("print")
}

// roll implements dice.roll(notation [, opts]). opts may set seed,
// d100_mode and dry_run.
func (s *scriptRun) roll(state *lua.State) int {
	text := lua.CheckString(state, 1)
	req := diceservice.RollRequest{Notation: text}
	if state.TypeOf(2) == lua.TypeTable {
		if seed, ok := intField(state, 2, "seed"); ok {
			v := int64(seed)
			req.Seed = &v
		}
		if mode, ok := intField(state, 2, "d100_mode"); ok {
			m := notation.D100Mode(mode)
			req.D100Mode = &m
		}
		state.Field(2, "dry_run")
		req.DryRun = state.ToBoolean(-1)
		state.Pop(1)
	}

	if err := s.ctx.Err(); err != nil {
		lua.Errorf(state, "%s", err.Error())
		return 0
	}
	if len(s.report.Rolls) >= MaxRolls {
		lua.Errorf(state, "script exceeded %d rolls", MaxRolls)
		return 0
	}

	record, err := s.runner.roller.Roll(s.ctx, req)
	if err != nil {
		lua.Errorf(state, "%s", apperrors.Localize(err, s.runner.locale))
		return 0
	}
	s.report.Rolls = append(s.report.Rolls, record)
	pushRecord(state, record)
	return 1
}

// parse implements dice.parse(notation) and returns the canonical notation
// of every group.
func (s *scriptRun) parse(state *lua.State) int {
	text := lua.CheckString(state, 1)
	groups, err := notation.ParseGroups(text)
	if err != nil {
		lua.Errorf(state, "%s", apperrors.Localize(err, s.runner.locale))
		return 0
	}
	state.NewTable()
	for i, g := range groups {
		state.PushString(notation.Format(g))
		state.RawSetInt(-2, i+1)
	}
	return 1
}

// format implements dice.format(roll) and renders the group breakdowns of
// a roll returned by dice.roll.
func (s *scriptRun) format(state *lua.State) int {
	lua.CheckType(state, 1, lua.TypeTable)
	state.Field(1, "groups")
	if state.TypeOf(-1) != lua.TypeTable {
		lua.ArgumentError(state, 1, "roll expected")
		return 0
	}
	var lines []string
	n := lua.LengthEx(state, -1)
	for i := 1; i <= n; i++ {
		state.RawGetInt(-1, i)
		state.Field(-1, "breakdown")
		if line, ok := state.ToString(-1); ok {
			lines = append(lines, line)
		}
		state.Pop(2)
	}
	state.Pop(1)
	state.PushString(strings.Join(lines, breakdownSeparator))
	return 1
}

// print writes its arguments to the runner output separated by tabs.
func (s *scriptRun) print(state *lua.State) int {
	top := state.Top()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		text, _ := lua.ToStringMeta(state, i)
		state.Pop(1)
		parts = append(parts, text)
	}
	fmt.Fprintln(s.runner.out, strings.Join(parts, "\t"))
	return 0
}

func intField(state *lua.State, index int, key string) (int, bool) {
	state.Field(index, key)
	defer state.Pop(1)
	if state.TypeOf(-1) != lua.TypeNumber {
		return 0, false
	}
	return state.ToInteger(-1)
}

func pushRecord(state *lua.State, record storage.RollRecord) {
	state.NewTable()
	state.PushString(record.ID)
	state.SetField(-2, "id")
	state.PushString(record.Notation)
	state.SetField(-2, "notation")
	state.PushInteger(record.Total)
	state.SetField(-2, "total")
	state.PushInteger(int(record.Seed))
	state.SetField(-2, "seed")
	state.PushString(record.SeedSource)
	state.SetField(-2, "seed_source")
	state.PushInteger(record.D100Mode)
	state.SetField(-2, "d100_mode")
	breakdowns := make([]string, len(record.Groups))
	for i, g := range record.Groups {
		breakdowns[i] = g.Breakdown
	}
	state.PushString(strings.Join(breakdowns, breakdownSeparator))
	state.SetField(-2, "output")

	state.NewTable()
	for i, g := range record.Groups {
		state.NewTable()
		state.PushString(g.Notation)
		state.SetField(-2, "notation")
		state.PushInteger(g.Total)
		state.SetField(-2, "total")
		state.PushString(g.Breakdown)
		state.SetField(-2, "breakdown")
		state.RawSetInt(-2, i+1)
	}
	state.SetField(-2, "groups")
}
