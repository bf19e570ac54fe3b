package dice

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	grpcmeta "github.com/louisbranch/dicetray/internal/services/dice/api/grpc/metadata"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DiceService implements DiceServiceServer on top of the dice application
// service.
type DiceService struct {
	svc *diceservice.Service
}

// NewDiceService creates a gRPC handler for svc.
func NewDiceService(svc *diceservice.Service) *DiceService {
	return &DiceService{svc: svc}
}

// Roll resolves notation and returns the stored roll.
func (s *DiceService) Roll(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "roll request is required")
	}
	if s.svc == nil {
		return nil, status.Error(codes.Internal, "dice service is not configured")
	}
	req, err := decodeRollRequest(in)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	resp, err := s.svc.Roll(ctx, req)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	out, err := encodeRecord(resp.Record)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode roll: %v", err)
	}
	return out, nil
}

// GetRoll returns one stored roll.
func (s *DiceService) GetRoll(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "get roll request is required")
	}
	if s.svc == nil {
		return nil, status.Error(codes.Internal, "dice service is not configured")
	}
	rollID, err := stringField(in.GetFields(), "id")
	if err != nil {
		return nil, handleError(ctx, err)
	}
	rollID = strings.TrimSpace(rollID)
	if rollID == "" {
		return nil, status.Error(codes.InvalidArgument, "roll id is required")
	}
	record, err := s.svc.GetRoll(ctx, rollID)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	out, err := encodeRecord(record)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode roll: %v", err)
	}
	return out, nil
}

// ListRolls returns a page of roll history.
func (s *DiceService) ListRolls(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "list rolls request is required")
	}
	if s.svc == nil {
		return nil, status.Error(codes.Internal, "dice service is not configured")
	}
	query, err := decodeListQuery(in)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	page, err := s.svc.ListRolls(ctx, query)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	out, err := encodePage(page)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode roll page: %v", err)
	}
	return out, nil
}

// handleError converts service errors to gRPC status in the caller's locale.
func handleError(ctx context.Context, err error) error {
	var fe *fieldError
	switch {
	case errors.As(err, &fe):
		return status.Error(codes.InvalidArgument, fe.Error())
	case errors.Is(err, diceservice.ErrHistoryDisabled):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return apperrors.HandleError(err, grpcmeta.FromContext(ctx).Locale)
}

var _ DiceServiceServer = (*DiceService)(nil)
