package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrInvalidPageToken indicates an unusable page token.
	ErrInvalidPageToken = apperrors.New(apperrors.CodeHistoryPageTokenInvalid, "invalid page token")
)

const (
	// DefaultPageSize is used when a query does not set one.
	DefaultPageSize = 20
	// MaxPageSize bounds a single page.
	MaxPageSize = 100
)

// GroupRecord is the stored outcome of one independent expression.
type GroupRecord struct {
	Notation  string
	Total     int
	Breakdown string
}

// RollRecord is one stored roll request.
type RollRecord struct {
	ID string
	// Seq is assigned by the store on insert.
	Seq        uint64
	Notation   string
	Seed       int64
	SeedSource string
	D100Mode   int
	// Total is the sum of the group totals.
	Total    int
	Groups   []GroupRecord
	RolledAt time.Time
}

// ListQuery selects a page of roll history.
type ListQuery struct {
	PageSize  int
	PageToken string
	// Filter is an AIP-160 expression over notation, total, seed_source,
	// d100_mode, group_count and rolled_at.
	Filter string
	// Descending lists the newest rolls first.
	Descending bool
}

// RollPage is one page of roll history.
type RollPage struct {
	Records       []RollRecord
	NextPageToken string
}

// RollStore persists roll history.
type RollStore interface {
	// PutRoll stores a new record and returns it with Seq assigned.
	PutRoll(ctx context.Context, record RollRecord) (RollRecord, error)
	GetRoll(ctx context.Context, id string) (RollRecord, error)
	ListRolls(ctx context.Context, query ListQuery) (RollPage, error)
}
