package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	sentinel := New(CodeNotationMalformed, "malformed")
	err := fmt.Errorf("parse: %w", WithMetadata(CodeNotationMalformed, "bad die", map[string]string{"Position": "3"}))
	if !errors.Is(err, sentinel) {
		t.Fatal("expected errors.Is to match by code")
	}
	if errors.Is(err, New(CodeRollSourceFailure, "other")) {
		t.Fatal("expected different code to not match")
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeRollSourceFailure, "roll failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if GetCode(err) != CodeRollSourceFailure {
		t.Fatalf("code = %s", GetCode(err))
	}
	if GetCode(cause) != CodeUnknown {
		t.Fatal("expected unknown code for plain errors")
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeNotationMalformed, codes.InvalidArgument},
		{CodeHistoryFilterInvalid, codes.InvalidArgument},
		{CodeRollSourceFailure, codes.Unavailable},
		{CodeNotFound, codes.NotFound},
		{CodeSegmentUnresolvable, codes.Internal},
		{CodeUnknown, codes.Internal},
	}
	for _, tt := range tests {
		if got := tt.code.GRPCCode(); got != tt.want {
			t.Fatalf("%s.GRPCCode() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestHandleErrorAttachesDetails(t *testing.T) {
	err := WithMetadata(CodeNotFound, "roll missing", map[string]string{"ID": "r1"})
	grpcErr := HandleError(err, "pt-BR")
	st, ok := status.FromError(grpcErr)
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.NotFound {
		t.Fatalf("code = %v", st.Code())
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
	if info == nil || info.Reason != string(CodeNotFound) || info.Domain != Domain {
		t.Fatalf("unexpected error info: %v", info)
	}
	if localized == nil || localized.Locale != "pt-BR" || localized.Message != "A rolagem r1 não foi encontrada" {
		t.Fatalf("unexpected localized message: %v", localized)
	}
}

func TestHandleErrorPassesThroughStatusAndHidesUnknown(t *testing.T) {
	if HandleError(nil, "") != nil {
		t.Fatal("expected nil")
	}
	passthrough := status.Error(codes.Canceled, "canceled")
	if got := HandleError(passthrough, ""); status.Code(got) != codes.Canceled {
		t.Fatalf("code = %v", status.Code(got))
	}
	if got := HandleError(errors.New("secret"), ""); status.Code(got) != codes.Internal {
		t.Fatalf("code = %v", status.Code(got))
	}
}

func TestLocalize(t *testing.T) {
	err := WithMetadata(CodeNotationMalformed, "bad", map[string]string{
		"Notation": "3d7",
		"Position": "2",
		"Reason":   "unsupported die faces",
	})
	got := Localize(err, "")
	want := "Dice notation 3d7 is malformed at position 2: unsupported die faces"
	if got != want {
		t.Fatalf("Localize = %q, want %q", got, want)
	}
	if Localize(errors.New("plain"), "") != "plain" {
		t.Fatal("expected plain error text")
	}
}

func TestWithCopiesMetadata(t *testing.T) {
	base := WithMetadata(CodeNotFound, "roll missing", map[string]string{"ID": "r1"})
	derived := base.With("ID", "r2")
	if base.Metadata["ID"] != "r1" || derived.Metadata["ID"] != "r2" {
		t.Fatalf("expected independent metadata, got %v and %v", base.Metadata, derived.Metadata)
	}
	if got := New(CodeNotationEmpty, "empty").With("Notation", ""); got.Metadata == nil {
		t.Fatal("expected metadata map")
	}
}

func TestMalformedNotationCarriesFieldViolation(t *testing.T) {
	err := WithMetadata(CodeNotationMalformed, "bad", map[string]string{
		"Notation": "2x",
		"Position": "1",
		"Reason":   "unexpected character",
	})
	st, _ := status.FromError(HandleError(err, "en-US"))
	var violation *errdetails.BadRequest_FieldViolation
	for _, detail := range st.Details() {
		if br, ok := detail.(*errdetails.BadRequest); ok && len(br.GetFieldViolations()) == 1 {
			violation = br.GetFieldViolations()[0]
		}
	}
	if violation == nil || violation.GetField() != "notation" {
		t.Fatalf("expected notation violation, got %v", st.Details())
	}
	if violation.GetDescription() != "Dice notation 2x is malformed at position 1: unexpected character" {
		t.Fatalf("unexpected description %q", violation.GetDescription())
	}
}

func TestFromStatusRecoversCode(t *testing.T) {
	sent := HandleError(WithMetadata(CodeSeedOutOfRange, "seed", map[string]string{"Seed": "-1"}), "pt-BR")
	err := FromStatus(sent)
	if !IsCode(err, CodeSeedOutOfRange) || GetMetadata(err)["Seed"] != "-1" {
		t.Fatalf("expected recovered code and metadata, got %v", err)
	}
	if !errors.Is(err, New(CodeSeedOutOfRange, "")) {
		t.Fatal("expected sentinel match")
	}
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected status to remain reachable, got %v", status.Code(err))
	}

	plain := status.Error(codes.Unavailable, "down")
	if got := FromStatus(plain); got != plain {
		t.Fatalf("expected status without info unchanged, got %v", got)
	}
	if FromStatus(nil) != nil {
		t.Fatal("expected nil")
	}
	other := errors.New("local")
	if got := FromStatus(other); got != other {
		t.Fatalf("expected non-status error unchanged, got %v", got)
	}
}

func TestEveryCodeHasMessages(t *testing.T) {
	all := []Code{
		CodeNotationMalformed,
		CodeSegmentUnresolvable,
		CodeRollSourceFailure,
		CodeNotationEmpty,
		CodeNotationD100ModeRange,
		CodeDiceMissing,
		CodeDiceInvalidSpec,
		CodeSeedOutOfRange,
		CodeNotFound,
		CodeHistoryFilterInvalid,
		CodeHistoryPageTokenInvalid,
		CodeHistoryPageSizeInvalid,
		CodeScriptFailed,
	}
	for _, locale := range []string{"en-US", "pt-BR"} {
		for _, code := range all {
			if got := Localize(New(code, ""), locale); got == string(code) {
				t.Fatalf("%s has no %s message", code, locale)
			}
		}
	}
}
