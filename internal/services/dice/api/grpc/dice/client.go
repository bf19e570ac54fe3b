package dice

import (
	"context"
	"fmt"

	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	grpcmeta "github.com/louisbranch/dicetray/internal/services/dice/api/grpc/metadata"
	"github.com/louisbranch/dicetray/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ diceservice.Client = (*Client)(nil)

// Client calls a remote dice service.
type Client struct {
	conn   grpc.ClientConnInterface
	locale string
}

// NewClient creates a client over conn. Error messages are localized for
// locale when it is set.
func NewClient(conn grpc.ClientConnInterface, locale string) *Client {
	return &Client{conn: conn, locale: locale}
}

// Roll rolls notation remotely and returns the stored record.
func (c *Client) Roll(ctx context.Context, req diceservice.RollRequest) (storage.RollRecord, error) {
	in, err := encodeRollRequest(req)
	if err != nil {
		return storage.RollRecord{}, fmt.Errorf("encode roll request: %w", err)
	}
	out, err := c.invoke(ctx, rollMethod, in)
	if err != nil {
		return storage.RollRecord{}, err
	}
	return decodeRecord(out)
}

// GetRoll loads a stored roll.
func (c *Client) GetRoll(ctx context.Context, rollID string) (storage.RollRecord, error) {
	in, err := structpb.NewStruct(map[string]any{"id": rollID})
	if err != nil {
		return storage.RollRecord{}, fmt.Errorf("encode get roll request: %w", err)
	}
	out, err := c.invoke(ctx, getRollMethod, in)
	if err != nil {
		return storage.RollRecord{}, err
	}
	return decodeRecord(out)
}

// ListRolls loads a page of roll history.
func (c *Client) ListRolls(ctx context.Context, query storage.ListQuery) (storage.RollPage, error) {
	in, err := encodeListQuery(query)
	if err != nil {
		return storage.RollPage{}, fmt.Errorf("encode list request: %w", err)
	}
	out, err := c.invoke(ctx, listRollsMethod, in)
	if err != nil {
		return storage.RollPage{}, err
	}
	return decodePage(out)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	if c == nil || c.conn == nil {
		return nil, fmt.Errorf("dice client is not configured")
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(grpcmeta.OutgoingLocale(ctx, c.locale), method, in, out); err != nil {
		return nil, apperrors.FromStatus(err)
	}
	return out, nil
}
