package dice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	"github.com/louisbranch/dicetray/internal/core/dice/roller"
	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	"github.com/louisbranch/dicetray/internal/platform/id"
	"github.com/louisbranch/dicetray/internal/platform/otel"
	"github.com/louisbranch/dicetray/internal/random"
	"github.com/louisbranch/dicetray/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrEmptyNotation reports a roll request without notation.
	ErrEmptyNotation = apperrors.New(apperrors.CodeNotationEmpty, "notation is required")
	// ErrInvalidD100Mode reports an unknown d100 mode.
	ErrInvalidD100Mode = apperrors.New(apperrors.CodeNotationD100ModeRange, "invalid d100 mode")
	// ErrHistoryDisabled reports a history call on a service without a store.
	ErrHistoryDisabled = errors.New("roll history is not configured")
)

// Publisher receives every stored roll.
type Publisher interface {
	Publish(record storage.RollRecord)
}

// RollerFactory builds the roller for one request seed.
type RollerFactory func(seed int64) notation.Roller

// RollRequest describes one roll.
type RollRequest struct {
	Notation string
	// Seed replays a previous roll when set.
	Seed *int64
	// D100Mode overrides the service default when set.
	D100Mode *notation.D100Mode
	// Hints are keyed by segment index within each group.
	Hints map[int]notation.Hint
	// DryRun skips history and publishing.
	DryRun bool
}

// RollResponse is the outcome of a roll.
type RollResponse struct {
	Record  storage.RollRecord
	Results []notation.Result
}

// Service rolls dice and keeps their history.
type Service struct {
	store      storage.RollStore
	publishers []Publisher
	newRoller  RollerFactory
	seedFunc   func() (int64, error)
	idFunc     func() (string, error)
	clock      func() time.Time
	d100Mode   notation.D100Mode
	logger     *log.Logger
	tracer     trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithStore enables roll history.
func WithStore(store storage.RollStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithPublisher adds a subscriber notified after each stored roll.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publishers = append(s.publishers, p)
		}
	}
}

// WithRollerFactory replaces the seeded roller.
func WithRollerFactory(f RollerFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.newRoller = f
		}
	}
}

// WithSeedFunc replaces the seed generator.
func WithSeedFunc(f func() (int64, error)) Option {
	return func(s *Service) {
		if f != nil {
			s.seedFunc = f
		}
	}
}

// WithIDFunc replaces the roll id generator.
func WithIDFunc(f func() (string, error)) Option {
	return func(s *Service) {
		if f != nil {
			s.idFunc = f
		}
	}
}

// WithClock replaces the roll timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithD100Mode sets the default d100 mode.
func WithD100Mode(mode notation.D100Mode) Option {
	return func(s *Service) {
		s.d100Mode = mode
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService builds a Service. Without WithStore rolls are not persisted.
func NewService(opts ...Option) *Service {
	s := &Service{
		newRoller: func(seed int64) notation.Roller { return roller.NewSeeded(seed) },
		seedFunc:  random.NewSeed,
		idFunc:    id.NewID,
		clock:     time.Now,
		d100Mode:  notation.D100Hundred,
		logger:    log.Default(),
		tracer:    otel.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// D100Mode returns the default d100 mode.
func (s *Service) D100Mode() notation.D100Mode {
	return s.d100Mode
}

// Roll resolves req and records it in history.
func (s *Service) Roll(ctx context.Context, req RollRequest) (RollResponse, error) {
	ctx, span := s.tracer.Start(ctx, "dice.Roll")
	defer span.End()

	resp, err := s.roll(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.GetCode(err)))
		return RollResponse{}, err
	}
	span.SetAttributes(
		attribute.String("dice.roll_id", resp.Record.ID),
		attribute.String("dice.notation", resp.Record.Notation),
		attribute.Int("dice.total", resp.Record.Total),
		attribute.Int("dice.groups", len(resp.Results)),
	)
	return resp, nil
}

func (s *Service) roll(ctx context.Context, req RollRequest) (RollResponse, error) {
	input := strings.TrimSpace(req.Notation)
	if input == "" {
		return RollResponse{}, ErrEmptyNotation
	}
	mode := s.d100Mode
	if req.D100Mode != nil {
		mode = *req.D100Mode
	}
	if !mode.Valid() {
		return RollResponse{}, apperrors.WithMetadata(
			apperrors.CodeNotationD100ModeRange,
			fmt.Sprintf("d100 mode %d is invalid", mode),
			map[string]string{"Mode": fmt.Sprint(int(mode))},
		)
	}

	seed, source, err := random.ResolveSeed(req.Seed, s.seedFunc)
	if err != nil {
		return RollResponse{}, err
	}

	engine := notation.NewEngine(s.newRoller(seed))
	results, err := engine.ParseAndRoll(ctx, input, notation.Options{D100Mode: mode, Hints: req.Hints})
	if err != nil {
		return RollResponse{}, err
	}

	rollID, err := s.idFunc()
	if err != nil {
		return RollResponse{}, fmt.Errorf("generate roll id: %w", err)
	}
	record := storage.RollRecord{
		ID:         rollID,
		Notation:   canonicalNotation(results),
		Seed:       seed,
		SeedSource: string(source),
		D100Mode:   int(mode),
		Groups:     make([]storage.GroupRecord, 0, len(results)),
		RolledAt:   s.clock().UTC(),
	}
	for _, result := range results {
		record.Total += result.Total
		record.Groups = append(record.Groups, storage.GroupRecord{
			Notation:  result.Notation(),
			Total:     result.Total,
			Breakdown: result.Breakdown(),
		})
	}

	if req.DryRun || s.store == nil {
		return RollResponse{Record: record, Results: results}, nil
	}
	stored, err := s.store.PutRoll(ctx, record)
	if err != nil {
		return RollResponse{}, fmt.Errorf("store roll: %w", err)
	}
	for _, p := range s.publishers {
		p.Publish(stored)
	}
	s.logger.Printf("roll %s %q = %d (seed %d %s)", stored.ID, stored.Notation, stored.Total, stored.Seed, stored.SeedSource)
	return RollResponse{Record: stored, Results: results}, nil
}

// Parse compiles notation into its canonical groups without rolling.
func (s *Service) Parse(input string) ([][]notation.Segment, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyNotation
	}
	return notation.ParseGroups(input)
}

// GetRoll loads one stored roll.
func (s *Service) GetRoll(ctx context.Context, rollID string) (storage.RollRecord, error) {
	if s.store == nil {
		return storage.RollRecord{}, ErrHistoryDisabled
	}
	ctx, span := s.tracer.Start(ctx, "dice.GetRoll", trace.WithAttributes(attribute.String("dice.roll_id", rollID)))
	defer span.End()
	return s.store.GetRoll(ctx, rollID)
}

// ListRolls returns one page of roll history.
func (s *Service) ListRolls(ctx context.Context, query storage.ListQuery) (storage.RollPage, error) {
	if s.store == nil {
		return storage.RollPage{}, ErrHistoryDisabled
	}
	ctx, span := s.tracer.Start(ctx, "dice.ListRolls", trace.WithAttributes(
		attribute.Int("dice.page_size", query.PageSize),
		attribute.String("dice.filter", query.Filter),
	))
	defer span.End()

	page, err := s.store.ListRolls(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.GetCode(err)))
	}
	return page, err
}

func canonicalNotation(results []notation.Result) string {
	parts := make([]string, len(results))
	for i, result := range results {
		parts[i] = result.Notation()
	}
	return strings.Join(parts, " ")
}
