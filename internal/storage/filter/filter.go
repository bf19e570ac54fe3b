// Package filter translates AIP-160 filter expressions over roll history
// into SQL WHERE fragments.
//
// Supported fields are notation, total, seed_source, d100_mode,
// group_count and rolled_at. Fields compare against literals with =, !=, <,
// <=, > and >=, combine with AND and OR, and negate with NOT. rolled_at
// compares against timestamp("RFC 3339").
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// SQLCondition is a WHERE fragment with positional parameters.
type SQLCondition struct {
	Clause string
	Params []any
}

// column maps a filter field to its rolls column.
type column struct {
	name string
	typ  *expr.Type
}

var columns = map[string]column{
	"notation":    {name: "notation", typ: filtering.TypeString},
	"total":       {name: "total", typ: filtering.TypeInt},
	"seed_source": {name: "seed_source", typ: filtering.TypeString},
	"d100_mode":   {name: "d100_mode", typ: filtering.TypeInt},
	"group_count": {name: "group_count", typ: filtering.TypeInt},
	"rolled_at":   {name: "rolled_at", typ: filtering.TypeTimestamp},
}

var comparisons = map[string]bool{"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

// RollDeclarations declares the roll fields for the AIP type checker.
func RollDeclarations() (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for field, col := range columns {
		opts = append(opts, filtering.DeclareIdent(field, col.typ))
	}
	return filtering.NewDeclarations(opts...)
}

// ParseRollFilter returns the SQL condition for text. Blank text yields an
// empty condition. Errors carry the HISTORY_FILTER_INVALID code.
func ParseRollFilter(text string) (SQLCondition, error) {
	if strings.TrimSpace(text) == "" {
		return SQLCondition{}, nil
	}
	decls, err := RollDeclarations()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("declare roll fields: %w", err)
	}
	parsed, err := filtering.ParseFilterString(text, decls)
	if err != nil {
		return SQLCondition{}, invalid(text, err)
	}

	var b builder
	if err := b.expr(parsed.CheckedExpr.GetExpr()); err != nil {
		return SQLCondition{}, invalid(text, err)
	}
	return SQLCondition{Clause: b.sql.String(), Params: b.params}, nil
}

func invalid(text string, cause error) error {
	return apperrors.WrapWithMetadata(
		apperrors.CodeHistoryFilterInvalid,
		fmt.Sprintf("invalid filter %q: %v", text, cause),
		map[string]string{"Filter": text, "Reason": cause.Error()},
		cause,
	)
}

// builder writes SQL for a checked expression tree.
type builder struct {
	sql    strings.Builder
	params []any
}

func (b *builder) expr(e *expr.Expr) error {
	call := e.GetCallExpr()
	if call == nil {
		return fmt.Errorf("expected a comparison, got %T", e.GetExprKind())
	}
	switch fn := call.GetFunction(); {
	case fn == "AND" || fn == "OR":
		return b.junction(fn, call.GetArgs())
	case fn == "NOT":
		if len(call.GetArgs()) != 1 {
			return errors.New("NOT takes one operand")
		}
		b.sql.WriteString("(NOT ")
		if err := b.expr(call.GetArgs()[0]); err != nil {
			return err
		}
		b.sql.WriteString(")")
		return nil
	case comparisons[fn]:
		return b.comparison(fn, call.GetArgs())
	default:
		return fmt.Errorf("unsupported function %s", fn)
	}
}

func (b *builder) junction(op string, args []*expr.Expr) error {
	if len(args) != 2 {
		return fmt.Errorf("%s takes two operands", op)
	}
	b.sql.WriteString("(")
	if err := b.expr(args[0]); err != nil {
		return err
	}
	b.sql.WriteString(" " + op + " ")
	if err := b.expr(args[1]); err != nil {
		return err
	}
	b.sql.WriteString(")")
	return nil
}

func (b *builder) comparison(op string, args []*expr.Expr) error {
	if len(args) != 2 {
		return fmt.Errorf("%s takes two operands", op)
	}
	ident := args[0].GetIdentExpr()
	if ident == nil {
		return errors.New("the left side of a comparison must be a field")
	}
	col, ok := columns[ident.GetName()]
	if !ok {
		return fmt.Errorf("unknown field %s", ident.GetName())
	}
	value, err := literal(args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(&b.sql, "%s %s ?", col.name, op)
	b.params = append(b.params, value)
	return nil
}

// literal returns the SQL parameter for a constant or timestamp() call.
// Timestamps become the unix milliseconds stored in rolled_at.
func literal(e *expr.Expr) (any, error) {
	if c := e.GetConstExpr(); c != nil {
		switch v := c.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			return v.StringValue, nil
		case *expr.Constant_Int64Value:
			return v.Int64Value, nil
		default:
			return nil, fmt.Errorf("unsupported literal %T", v)
		}
	}
	call := e.GetCallExpr()
	if call == nil || call.GetFunction() != "timestamp" || len(call.GetArgs()) != 1 {
		return nil, errors.New("the right side of a comparison must be a literal")
	}
	text := call.GetArgs()[0].GetConstExpr().GetStringValue()
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q", text)
	}
	return t.UTC().UnixMilli(), nil
}
