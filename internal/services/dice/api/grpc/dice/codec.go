package dice

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	"github.com/louisbranch/dicetray/internal/random"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	"github.com/louisbranch/dicetray/internal/storage"
	"google.golang.org/protobuf/types/known/structpb"
)

// fieldError reports a request field with the wrong shape.
type fieldError struct {
	field  string
	reason string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("field %s %s", e.field, e.reason)
}

func decodeRollRequest(in *structpb.Struct) (diceservice.RollRequest, error) {
	fields := in.GetFields()
	var req diceservice.RollRequest
	var err error
	if req.Notation, err = stringField(fields, "notation"); err != nil {
		return req, err
	}
	if v, ok, err := integerField(fields, "seed"); err != nil {
		return req, err
	} else if ok {
		if v < 0 || v > float64(random.MaxSeed) {
			return req, random.ErrSeedOutOfRange
		}
		seed := int64(v)
		req.Seed = &seed
	}
	if v, ok, err := integerField(fields, "d100_mode"); err != nil {
		return req, err
	} else if ok {
		mode := notation.D100Mode(v)
		req.D100Mode = &mode
	}
	if req.DryRun, err = boolField(fields, "dry_run"); err != nil {
		return req, err
	}
	if req.Hints, err = decodeHints(fields["hints"]); err != nil {
		return req, err
	}
	return req, nil
}

func encodeRollRequest(req diceservice.RollRequest) (*structpb.Struct, error) {
	m := map[string]any{"notation": req.Notation}
	if req.Seed != nil {
		m["seed"] = *req.Seed
	}
	if req.D100Mode != nil {
		m["d100_mode"] = int(*req.D100Mode)
	}
	if req.DryRun {
		m["dry_run"] = true
	}
	if len(req.Hints) > 0 {
		hints := make(map[string]any, len(req.Hints))
		for index, hint := range req.Hints {
			hints[strconv.Itoa(index)] = map[string]any{"color": hint.Color, "scale": hint.Scale}
		}
		m["hints"] = hints
	}
	return structpb.NewStruct(m)
}

func decodeHints(v *structpb.Value) (map[int]notation.Hint, error) {
	if v == nil {
		return nil, nil
	}
	s := v.GetStructValue()
	if s == nil {
		return nil, &fieldError{field: "hints", reason: "must be an object"}
	}
	hints := make(map[int]notation.Hint, len(s.GetFields()))
	for key, raw := range s.GetFields() {
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 {
			return nil, &fieldError{field: "hints", reason: fmt.Sprintf("key %q is not a segment index", key)}
		}
		hintFields := raw.GetStructValue().GetFields()
		color, err := stringField(hintFields, "color")
		if err != nil {
			return nil, err
		}
		scale, _, err := numberField(hintFields, "scale")
		if err != nil {
			return nil, err
		}
		hints[index] = notation.Hint{Color: color, Scale: scale}
	}
	return hints, nil
}

func decodeListQuery(in *structpb.Struct) (storage.ListQuery, error) {
	fields := in.GetFields()
	var q storage.ListQuery
	var err error
	if v, ok, err := integerField(fields, "page_size"); err != nil {
		return q, err
	} else if ok {
		q.PageSize = int(v)
	}
	if q.PageToken, err = stringField(fields, "page_token"); err != nil {
		return q, err
	}
	if q.Filter, err = stringField(fields, "filter"); err != nil {
		return q, err
	}
	if q.Descending, err = boolField(fields, "descending"); err != nil {
		return q, err
	}
	return q, nil
}

func encodeListQuery(q storage.ListQuery) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"page_size":  q.PageSize,
		"page_token": q.PageToken,
		"filter":     q.Filter,
		"descending": q.Descending,
	})
}

func recordToMap(r storage.RollRecord) map[string]any {
	groups := make([]any, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = map[string]any{
			"notation":  g.Notation,
			"total":     g.Total,
			"breakdown": g.Breakdown,
		}
	}
	m := map[string]any{
		"id":          r.ID,
		"seq":         r.Seq,
		"notation":    r.Notation,
		"seed":        r.Seed,
		"seed_source": r.SeedSource,
		"d100_mode":   r.D100Mode,
		"total":       r.Total,
		"groups":      groups,
	}
	if !r.RolledAt.IsZero() {
		m["rolled_at"] = r.RolledAt.UTC().Format(time.RFC3339Nano)
	}
	return m
}

func encodeRecord(r storage.RollRecord) (*structpb.Struct, error) {
	return structpb.NewStruct(recordToMap(r))
}

func encodePage(page storage.RollPage) (*structpb.Struct, error) {
	rolls := make([]any, len(page.Records))
	for i, r := range page.Records {
		rolls[i] = recordToMap(r)
	}
	return structpb.NewStruct(map[string]any{
		"rolls":           rolls,
		"next_page_token": page.NextPageToken,
	})
}

func decodeRecord(s *structpb.Struct) (storage.RollRecord, error) {
	fields := s.GetFields()
	var r storage.RollRecord
	var err error
	if r.ID, err = stringField(fields, "id"); err != nil {
		return r, err
	}
	if r.Notation, err = stringField(fields, "notation"); err != nil {
		return r, err
	}
	if r.SeedSource, err = stringField(fields, "seed_source"); err != nil {
		return r, err
	}
	seq, _, err := integerField(fields, "seq")
	if err != nil {
		return r, err
	}
	r.Seq = uint64(seq)
	seed, _, err := integerField(fields, "seed")
	if err != nil {
		return r, err
	}
	r.Seed = int64(seed)
	mode, _, err := integerField(fields, "d100_mode")
	if err != nil {
		return r, err
	}
	r.D100Mode = int(mode)
	total, _, err := integerField(fields, "total")
	if err != nil {
		return r, err
	}
	r.Total = int(total)

	rolledAt, err := stringField(fields, "rolled_at")
	if err != nil {
		return r, err
	}
	if rolledAt != "" {
		if r.RolledAt, err = time.Parse(time.RFC3339Nano, rolledAt); err != nil {
			return r, &fieldError{field: "rolled_at", reason: err.Error()}
		}
	}

	for _, v := range fields["groups"].GetListValue().GetValues() {
		gf := v.GetStructValue().GetFields()
		var g storage.GroupRecord
		if g.Notation, err = stringField(gf, "notation"); err != nil {
			return r, err
		}
		if g.Breakdown, err = stringField(gf, "breakdown"); err != nil {
			return r, err
		}
		gt, _, err := integerField(gf, "total")
		if err != nil {
			return r, err
		}
		g.Total = int(gt)
		r.Groups = append(r.Groups, g)
	}
	return r, nil
}

func decodePage(s *structpb.Struct) (storage.RollPage, error) {
	fields := s.GetFields()
	var page storage.RollPage
	var err error
	if page.NextPageToken, err = stringField(fields, "next_page_token"); err != nil {
		return page, err
	}
	for _, v := range fields["rolls"].GetListValue().GetValues() {
		record, err := decodeRecord(v.GetStructValue())
		if err != nil {
			return page, err
		}
		page.Records = append(page.Records, record)
	}
	return page, nil
}

func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", &fieldError{field: name, reason: "must be a string"}
	}
	return s.StringValue, nil
}

func boolField(fields map[string]*structpb.Value, name string) (bool, error) {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return false, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, &fieldError{field: name, reason: "must be a boolean"}
	}
	return b.BoolValue, nil
}

func numberField(fields map[string]*structpb.Value, name string) (float64, bool, error) {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return 0, false, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false, &fieldError{field: name, reason: "must be a number"}
	}
	return n.NumberValue, true, nil
}

func integerField(fields map[string]*structpb.Value, name string) (float64, bool, error) {
	v, ok, err := numberField(fields, name)
	if err != nil || !ok {
		return 0, ok, err
	}
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, false, &fieldError{field: name, reason: "must be an integer"}
	}
	return v, true, nil
}

func isNull(v *structpb.Value) bool {
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return v == nil || null
}
