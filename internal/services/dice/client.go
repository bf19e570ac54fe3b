package dice

import (
	"context"

	"github.com/louisbranch/dicetray/internal/storage"
)

// Client is the roll surface shared by the in-process service and remote
// clients.
type Client interface {
	Roll(ctx context.Context, req RollRequest) (storage.RollRecord, error)
	GetRoll(ctx context.Context, rollID string) (storage.RollRecord, error)
	ListRolls(ctx context.Context, query storage.ListQuery) (storage.RollPage, error)
}

// Local serves Client calls from svc.
func Local(svc *Service) Client {
	return localClient{svc: svc}
}

type localClient struct {
	svc *Service
}

func (c localClient) Roll(ctx context.Context, req RollRequest) (storage.RollRecord, error) {
	resp, err := c.svc.Roll(ctx, req)
	if err != nil {
		return storage.RollRecord{}, err
	}
	return resp.Record, nil
}

func (c localClient) GetRoll(ctx context.Context, rollID string) (storage.RollRecord, error) {
	return c.svc.GetRoll(ctx, rollID)
}

func (c localClient) ListRolls(ctx context.Context, query storage.ListQuery) (storage.RollPage, error) {
	return c.svc.ListRolls(ctx, query)
}
