package dice

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	grpcmeta "github.com/louisbranch/dicetray/internal/services/dice/api/grpc/metadata"
	"github.com/louisbranch/dicetray/internal/storage"
	"github.com/louisbranch/dicetray/internal/storage/sqlite"
	"github.com/louisbranch/dicetray/internal/testkit/dicefake"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func startDiceServer(t *testing.T, opts ...diceservice.Option) *grpc.ClientConn {
	t.Helper()
	return startDiceServerWithLog(t, io.Discard, opts...)
}

func startDiceServerWithLog(t *testing.T, accessLog io.Writer, opts ...diceservice.Option) *grpc.ClientConn {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "dicetray.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	base := []diceservice.Option{
		diceservice.WithStore(store),
		diceservice.WithLogger(log.New(io.Discard, "", 0)),
	}
	svc := diceservice.NewService(append(base, opts...)...)

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(grpcmeta.UnaryServerInterceptor(
		grpcmeta.WithAccessLog(log.New(accessLog, "", 0)),
	)))
	RegisterDiceServiceServer(server, NewDiceService(svc))
	go func() {
		_ = server.Serve(listener)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
		_ = store.Close()
	})
	return conn
}

func TestRollRoundTrip(t *testing.T) {
	conn := startDiceServer(t, diceservice.WithRollerFactory(func(int64) notation.Roller { return dicefake.Constant(4) }))
	client := NewClient(conn, "")
	seed := int64(77)

	record, err := client.Roll(context.Background(), diceservice.RollRequest{Notation: "2d6+1 1d8", Seed: &seed})
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if record.ID == "" || record.Seq != 1 {
		t.Fatalf("unexpected identity: %+v", record)
	}
	if record.Notation != "2d6+1 1d8" || record.Total != 13 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Seed != 77 || record.SeedSource != "CLIENT" {
		t.Fatalf("unexpected seed: %d %s", record.Seed, record.SeedSource)
	}
	if len(record.Groups) != 2 || record.Groups[0].Breakdown != "2d6[4,4] + 1 = 9" {
		t.Fatalf("unexpected groups: %+v", record.Groups)
	}
	if record.RolledAt.IsZero() {
		t.Fatal("expected rolled_at")
	}

	got, err := client.GetRoll(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetRoll: %v", err)
	}
	if got.ID != record.ID || got.Total != record.Total || !got.RolledAt.Equal(record.RolledAt) {
		t.Fatalf("GetRoll = %+v, want %+v", got, record)
	}
}

func TestRollForwardsHints(t *testing.T) {
	roller := dicefake.NewScripted(map[int][]int{0: {6}})
	conn := startDiceServer(t, diceservice.WithRollerFactory(func(int64) notation.Roller { return roller }))
	client := NewClient(conn, "")

	_, err := client.Roll(context.Background(), diceservice.RollRequest{
		Notation: "1d6",
		Hints:    map[int]notation.Hint{0: {Color: "red", Scale: 1.5}},
	})
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	calls := roller.Calls()
	if len(calls) != 1 || calls[0].Hint.Color != "red" || calls[0].Hint.Scale != 1.5 {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestListRollsPages(t *testing.T) {
	conn := startDiceServer(t)
	client := NewClient(conn, "")
	for _, n := range []string{"1d4", "1d6", "1d8"} {
		if _, err := client.Roll(context.Background(), diceservice.RollRequest{Notation: n}); err != nil {
			t.Fatalf("Roll %s: %v", n, err)
		}
	}

	page, err := client.ListRolls(context.Background(), storage.ListQuery{PageSize: 2})
	if err != nil {
		t.Fatalf("ListRolls: %v", err)
	}
	if len(page.Records) != 2 || page.Records[0].Notation != "1d4" || page.NextPageToken == "" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	page, err = client.ListRolls(context.Background(), storage.ListQuery{PageSize: 2, PageToken: page.NextPageToken})
	if err != nil {
		t.Fatalf("ListRolls: %v", err)
	}
	if len(page.Records) != 1 || page.Records[0].Notation != "1d8" || page.NextPageToken != "" {
		t.Fatalf("unexpected last page: %+v", page)
	}
}

func TestRollErrorDetails(t *testing.T) {
	conn := startDiceServer(t)
	client := NewClient(conn, "pt-BR")

	_, err := client.Roll(context.Background(), diceservice.RollRequest{Notation: "3d7"})
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	var info *errdetails.ErrorInfo
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			localized = d
		}
	}
	if info == nil || info.GetReason() != "NOTATION_MALFORMED" {
		t.Fatalf("unexpected error info: %+v", info)
	}
	if localized == nil || localized.GetLocale() != "pt-BR" || !strings.Contains(localized.GetMessage(), "3d7") {
		t.Fatalf("unexpected localized message: %+v", localized)
	}
	if !apperrors.IsCode(err, apperrors.CodeNotationMalformed) {
		t.Fatalf("expected client error to carry the notation code, got %v", err)
	}
}

func TestGetRollNotFound(t *testing.T) {
	conn := startDiceServer(t)
	_, err := NewClient(conn, "").GetRoll(context.Background(), "missing")
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	conn := startDiceServer(t)
	tests := []struct {
		name   string
		method string
		fields map[string]any
		code   codes.Code
	}{
		{name: "notation type", method: rollMethod, fields: map[string]any{"notation": 3}, code: codes.InvalidArgument},
		{name: "fractional seed", method: rollMethod, fields: map[string]any{"notation": "1d6", "seed": 1.5}, code: codes.InvalidArgument},
		{name: "negative seed", method: rollMethod, fields: map[string]any{"notation": "1d6", "seed": -1}, code: codes.InvalidArgument},
		{name: "empty notation", method: rollMethod, fields: map[string]any{}, code: codes.InvalidArgument},
		{name: "bad hints", method: rollMethod, fields: map[string]any{"notation": "1d6", "hints": map[string]any{"x": map[string]any{}}}, code: codes.InvalidArgument},
		{name: "missing id", method: getRollMethod, fields: map[string]any{}, code: codes.InvalidArgument},
		{name: "bad filter", method: listRollsMethod, fields: map[string]any{"filter": "nope = 1"}, code: codes.InvalidArgument},
		{name: "bad token", method: listRollsMethod, fields: map[string]any{"page_token": "zzz"}, code: codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := structpb.NewStruct(tt.fields)
			if err != nil {
				t.Fatalf("new struct: %v", err)
			}
			err = conn.Invoke(context.Background(), tt.method, in, new(structpb.Struct))
			if status.Code(err) != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestHistoryDisabled(t *testing.T) {
	svc := diceservice.NewService(diceservice.WithLogger(log.New(io.Discard, "", 0)))
	_, err := NewDiceService(svc).ListRolls(context.Background(), &structpb.Struct{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestCallsCarryRequestIDs(t *testing.T) {
	var accessLog bytes.Buffer
	conn := startDiceServerWithLog(t, &accessLog)

	in, err := structpb.NewStruct(map[string]any{"notation": "1d6"})
	if err != nil {
		t.Fatalf("new struct: %v", err)
	}
	ctx := metadata.AppendToOutgoingContext(context.Background(), grpcmeta.RequestIDHeader, "req-42")
	var header metadata.MD
	if err := conn.Invoke(ctx, rollMethod, in, new(structpb.Struct), grpc.Header(&header)); err != nil {
		t.Fatalf("roll: %v", err)
	}
	if got := grpcmeta.Header(header, grpcmeta.RequestIDHeader); got != "req-42" {
		t.Fatalf("echoed request id = %q", got)
	}

	header = nil
	if err := conn.Invoke(context.Background(), rollMethod, in, new(structpb.Struct), grpc.Header(&header)); err != nil {
		t.Fatalf("roll: %v", err)
	}
	if got := grpcmeta.Header(header, grpcmeta.RequestIDHeader); got == "" || got == "req-42" {
		t.Fatalf("expected a generated request id, got %q", got)
	}

	logged := accessLog.String()
	if !strings.Contains(logged, "rpc "+rollMethod+" id=req-42 locale=en-US code=OK") {
		t.Fatalf("access log = %q", logged)
	}
}
