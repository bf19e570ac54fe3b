package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/alexeyco/simpletable"
	"github.com/fatih/color"
	"github.com/louisbranch/dicetray/internal/storage"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// palette colors text output.
type palette struct {
	total  *color.Color
	seed   *color.Color
	header *color.Color
	err    *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		total:  color.New(color.FgGreen, color.Bold),
		seed:   color.New(color.Faint),
		header: color.New(color.Bold),
		err:    color.New(color.FgRed),
	}
	if noColor {
		for _, c := range []*color.Color{p.total, p.seed, p.header, p.err} {
			c.DisableColor()
		}
	}
	return p
}

type groupView struct {
	Notation  string `json:"notation" yaml:"notation"`
	Total     int    `json:"total" yaml:"total"`
	Breakdown string `json:"breakdown" yaml:"breakdown"`
}

type rollView struct {
	ID         string      `json:"id" yaml:"id"`
	Notation   string      `json:"notation" yaml:"notation"`
	Total      int         `json:"total" yaml:"total"`
	Groups     []groupView `json:"groups" yaml:"groups"`
	Seed       int64       `json:"seed" yaml:"seed"`
	SeedSource string      `json:"seed_source" yaml:"seed_source"`
	D100Mode   int         `json:"d100_mode" yaml:"d100_mode"`
	RolledAt   string      `json:"rolled_at,omitempty" yaml:"rolled_at,omitempty"`
}

type parseView struct {
	Canonical string   `json:"canonical" yaml:"canonical"`
	Groups    []string `json:"groups" yaml:"groups"`
}

type historyView struct {
	Rolls         []rollView `json:"rolls" yaml:"rolls"`
	NextPageToken string     `json:"next_page_token,omitempty" yaml:"next_page_token,omitempty"`
}

func newRollView(record storage.RollRecord) rollView {
	view := rollView{
		ID:         record.ID,
		Notation:   record.Notation,
		Total:      record.Total,
		Groups:     make([]groupView, 0, len(record.Groups)),
		Seed:       record.Seed,
		SeedSource: record.SeedSource,
		D100Mode:   record.D100Mode,
	}
	if !record.RolledAt.IsZero() {
		view.RolledAt = record.RolledAt.UTC().Format(time.RFC3339)
	}
	for _, g := range record.Groups {
		view.Groups = append(view.Groups, groupView{Notation: g.Notation, Total: g.Total, Breakdown: g.Breakdown})
	}
	return view
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeRoll prints a roll as text: one line per group, then the total and
// the seed needed to replay it.
func writeRoll(w io.Writer, p *message.Printer, pal palette, record storage.RollRecord, dryRun bool) {
	for i, g := range record.Groups {
		fmt.Fprintln(w, p.Sprintf("cli.roll.group", i+1, g.Breakdown))
	}
	fmt.Fprintln(w, pal.total.Sprint(p.Sprintf("cli.roll.total", strconv.Itoa(record.Total))))
	fmt.Fprintln(w, pal.seed.Sprint(p.Sprintf("cli.roll.seed", record.Seed, record.SeedSource)))
	if dryRun {
		fmt.Fprintln(w, pal.seed.Sprint(p.Sprintf("cli.roll.dry_run")))
	}
}

// historyTable renders a page of rolls as a table.
func historyTable(p *message.Printer, records []storage.RollRecord) string {
	table := simpletable.New()
	table.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignLeft, Text: p.Sprintf("cli.table.id")},
			{Align: simpletable.AlignLeft, Text: p.Sprintf("cli.table.notation")},
			{Align: simpletable.AlignRight, Text: p.Sprintf("cli.table.total")},
			{Align: simpletable.AlignRight, Text: p.Sprintf("cli.table.seed")},
			{Align: simpletable.AlignLeft, Text: p.Sprintf("cli.table.rolled_at")},
		},
	}
	for _, record := range records {
		rolledAt := ""
		if !record.RolledAt.IsZero() {
			rolledAt = record.RolledAt.Local().Format(time.DateTime)
		}
		table.Body.Cells = append(table.Body.Cells, []*simpletable.Cell{
			{Text: record.ID},
			{Text: record.Notation},
			{Align: simpletable.AlignRight, Text: strconv.Itoa(record.Total)},
			{Align: simpletable.AlignRight, Text: strconv.FormatInt(record.Seed, 10)},
			{Text: rolledAt},
		})
	}
	table.SetStyle(simpletable.StyleCompactLite)
	return table.String()
}
