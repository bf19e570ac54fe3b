package domain

import (
	"context"

	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	"github.com/louisbranch/dicetray/internal/storage"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

// Backend rolls dice and reads roll history for the tool handlers.
type Backend interface {
	Roll(ctx context.Context, req diceservice.RollRequest) (storage.RollRecord, error)
	ListRolls(ctx context.Context, query storage.ListQuery) (storage.RollPage, error)
}

// userMessage renders err for a tool caller. Remote errors carry their
// localized message as a status detail; local ones are localized here.
func userMessage(err error, locale string) string {
	if st, ok := status.FromError(err); ok {
		for _, detail := range st.Details() {
			if msg, ok := detail.(*errdetails.LocalizedMessage); ok && msg.GetMessage() != "" {
				return msg.GetMessage()
			}
		}
		return st.Message()
	}
	return apperrors.Localize(err, locale)
}
