package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	"github.com/louisbranch/dicetray/internal/platform/timeouts"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	"github.com/louisbranch/dicetray/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RollNotationInput represents the MCP tool input for rolling notation.
type RollNotationInput struct {
	Notation string `json:"notation" jsonschema:"dice notation, e.g. 3d6+2 or 4d6k3 2d20kh1"`
	Seed     *int64 `json:"seed,omitempty" jsonschema:"optional seed to replay a previous roll"`
	D100Mode *int   `json:"d100_mode,omitempty" jsonschema:"optional d100 mode: 0 reads 00 as 0, 1 reads 00 as 100"`
	DryRun   bool   `json:"dry_run,omitempty" jsonschema:"roll without recording history"`
}

// GroupResult is one independent expression of a roll.
type GroupResult struct {
	Notation  string `json:"notation" jsonschema:"canonical notation of the group"`
	Total     int    `json:"total" jsonschema:"group total"`
	Breakdown string `json:"breakdown" jsonschema:"every term with its rolls, e.g. 3d6[2,5,6] + 2 = 15"`
}

// RollNotationResult represents the MCP tool output for a roll.
type RollNotationResult struct {
	ID         string        `json:"id" jsonschema:"roll id"`
	Notation   string        `json:"notation" jsonschema:"canonical notation"`
	Total      int           `json:"total" jsonschema:"sum of the group totals"`
	Groups     []GroupResult `json:"groups" jsonschema:"per-group results"`
	Seed       int64         `json:"seed" jsonschema:"seed used, pass it back to replay"`
	SeedSource string        `json:"seed_source" jsonschema:"seed source (CLIENT or SERVER)"`
	D100Mode   int           `json:"d100_mode" jsonschema:"d100 mode applied"`
	RolledAt   string        `json:"rolled_at" jsonschema:"RFC 3339 timestamp of the roll"`
}

// ParseNotationInput represents the MCP tool input for parsing notation.
type ParseNotationInput struct {
	Notation string `json:"notation" jsonschema:"dice notation to parse"`
}

// ParsedTerm is one parsed segment.
type ParsedTerm struct {
	Kind     string `json:"kind" jsonschema:"die, literal or operator"`
	Notation string `json:"notation" jsonschema:"canonical notation of the term"`
	Amount   int    `json:"amount,omitempty" jsonschema:"number of dice"`
	Faces    int    `json:"faces,omitempty" jsonschema:"faces per die"`
	Modifier string `json:"modifier,omitempty" jsonschema:"modifier code (k, p, mi, ma, rr, ro, ra, e)"`
	Selector string `json:"selector,omitempty" jsonschema:"selector (=, <, >, h, l)"`
	Value    int    `json:"value,omitempty" jsonschema:"modifier value or literal value"`
}

// ParsedGroup is one parsed expression.
type ParsedGroup struct {
	Notation string       `json:"notation" jsonschema:"canonical notation of the group"`
	Terms    []ParsedTerm `json:"terms" jsonschema:"terms in order"`
}

// ParseNotationResult represents the MCP tool output for parsing notation.
type ParseNotationResult struct {
	Canonical string        `json:"canonical" jsonschema:"canonical notation of the whole input"`
	Groups    []ParsedGroup `json:"groups" jsonschema:"independent expressions"`
}

// ListRollsInput represents the MCP tool input for reading roll history.
type ListRollsInput struct {
	PageSize   int    `json:"page_size,omitempty" jsonschema:"rolls per page (default 20, max 100)"`
	PageToken  string `json:"page_token,omitempty" jsonschema:"token from a previous page"`
	Filter     string `json:"filter,omitempty" jsonschema:"AIP-160 filter, e.g. total > 15"`
	Descending bool   `json:"descending,omitempty" jsonschema:"list the newest rolls first"`
}

// ListRollsResult represents the MCP tool output for roll history.
type ListRollsResult struct {
	Rolls         []RollNotationResult `json:"rolls" jsonschema:"rolls on this page"`
	NextPageToken string               `json:"next_page_token,omitempty" jsonschema:"token for the next page"`
}

// RollNotationTool defines the MCP tool schema for rolling notation.
func RollNotationTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll_notation",
		Description: "Rolls dice notation and returns the total with a per-term breakdown",
	}
}

// ParseNotationTool defines the MCP tool schema for parsing notation.
func ParseNotationTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "parse_notation",
		Description: "Parses dice notation without rolling and returns its canonical form",
	}
}

// ListRollsTool defines the MCP tool schema for roll history.
func ListRollsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_rolls",
		Description: "Lists recorded rolls, oldest first unless descending is set",
	}
}

// RollNotationHandler executes a roll through backend.
func RollNotationHandler(backend Backend, locale string) mcp.ToolHandlerFor[RollNotationInput, RollNotationResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollNotationInput) (*mcp.CallToolResult, RollNotationResult, error) {
		req := diceservice.RollRequest{
			Notation: input.Notation,
			Seed:     input.Seed,
			DryRun:   input.DryRun,
		}
		if input.D100Mode != nil {
			mode := notation.D100Mode(*input.D100Mode)
			req.D100Mode = &mode
		}

		callCtx, cancel := context.WithTimeout(ctx, timeouts.ToolCall)
		defer cancel()

		record, err := backend.Roll(callCtx, req)
		if err != nil {
			return nil, RollNotationResult{}, fmt.Errorf("roll failed: %s", userMessage(err, locale))
		}
		return nil, rollResultFromRecord(record), nil
	}
}

// ParseNotationHandler parses notation locally; no backend is involved.
func ParseNotationHandler(locale string) mcp.ToolHandlerFor[ParseNotationInput, ParseNotationResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ParseNotationInput) (*mcp.CallToolResult, ParseNotationResult, error) {
		text := strings.TrimSpace(input.Notation)
		if text == "" {
			return nil, ParseNotationResult{}, fmt.Errorf("parse failed: %s", userMessage(diceservice.ErrEmptyNotation, locale))
		}
		groups, err := notation.ParseGroups(text)
		if err != nil {
			return nil, ParseNotationResult{}, fmt.Errorf("parse failed: %s", userMessage(err, locale))
		}

		result := ParseNotationResult{
			Canonical: notation.FormatGroups(groups),
			Groups:    make([]ParsedGroup, 0, len(groups)),
		}
		for _, segs := range groups {
			group := ParsedGroup{
				Notation: notation.Format(segs),
				Terms:    make([]ParsedTerm, 0, len(segs)),
			}
			for _, seg := range segs {
				group.Terms = append(group.Terms, parsedTerm(seg))
			}
			result.Groups = append(result.Groups, group)
		}
		return nil, result, nil
	}
}

// ListRollsHandler reads a page of roll history through backend.
func ListRollsHandler(backend Backend, locale string) mcp.ToolHandlerFor[ListRollsInput, ListRollsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListRollsInput) (*mcp.CallToolResult, ListRollsResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeouts.ToolCall)
		defer cancel()

		page, err := backend.ListRolls(callCtx, storage.ListQuery{
			PageSize:   input.PageSize,
			PageToken:  input.PageToken,
			Filter:     input.Filter,
			Descending: input.Descending,
		})
		if err != nil {
			return nil, ListRollsResult{}, fmt.Errorf("list rolls failed: %s", userMessage(err, locale))
		}

		result := ListRollsResult{
			Rolls:         make([]RollNotationResult, 0, len(page.Records)),
			NextPageToken: page.NextPageToken,
		}
		for _, record := range page.Records {
			result.Rolls = append(result.Rolls, rollResultFromRecord(record))
		}
		return nil, result, nil
	}
}

func rollResultFromRecord(record storage.RollRecord) RollNotationResult {
	result := RollNotationResult{
		ID:         record.ID,
		Notation:   record.Notation,
		Total:      record.Total,
		Groups:     make([]GroupResult, 0, len(record.Groups)),
		Seed:       record.Seed,
		SeedSource: record.SeedSource,
		D100Mode:   record.D100Mode,
	}
	if !record.RolledAt.IsZero() {
		result.RolledAt = record.RolledAt.UTC().Format(time.RFC3339Nano)
	}
	for _, g := range record.Groups {
		result.Groups = append(result.Groups, GroupResult{
			Notation:  g.Notation,
			Total:     g.Total,
			Breakdown: g.Breakdown,
		})
	}
	return result
}

func parsedTerm(seg notation.Segment) ParsedTerm {
	term := ParsedTerm{Notation: seg.Notation()}
	switch s := seg.(type) {
	case *notation.Die:
		term.Kind = "die"
		term.Amount = s.Amount
		term.Faces = s.Type.Faces()
		term.Modifier = s.Modifier.String()
		if s.Modifier != notation.ModNone {
			term.Selector = s.EffectiveSelector().String()
		}
		term.Value = s.Value
	case notation.Literal:
		term.Kind = "literal"
		term.Value = s.Value
	case notation.Operator:
		term.Kind = "operator"
	}
	return term
}
