// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Notation errors
	CodeNotationMalformed     Code = "NOTATION_MALFORMED"
	CodeSegmentUnresolvable   Code = "SEGMENT_UNRESOLVABLE"
	CodeRollSourceFailure     Code = "ROLL_SOURCE_FAILURE"
	CodeNotationEmpty         Code = "NOTATION_EMPTY"
	CodeNotationD100ModeRange Code = "NOTATION_D100_MODE_INVALID"

	// Dice/mechanics errors
	CodeDiceMissing     Code = "DICE_MISSING"
	CodeDiceInvalidSpec Code = "DICE_INVALID_SPEC"

	// Random/seed errors
	CodeSeedOutOfRange Code = "SEED_OUT_OF_RANGE"

	// History errors
	CodeNotFound                Code = "NOT_FOUND"
	CodeHistoryFilterInvalid    Code = "HISTORY_FILTER_INVALID"
	CodeHistoryPageTokenInvalid Code = "HISTORY_PAGE_TOKEN_INVALID"
	CodeHistoryPageSizeInvalid  Code = "HISTORY_PAGE_SIZE_INVALID"

	// Script errors
	CodeScriptFailed Code = "SCRIPT_FAILED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeNotationMalformed,
		CodeNotationEmpty,
		CodeNotationD100ModeRange,
		CodeDiceMissing,
		CodeDiceInvalidSpec,
		CodeSeedOutOfRange,
		CodeHistoryFilterInvalid,
		CodeHistoryPageTokenInvalid,
		CodeHistoryPageSizeInvalid,
		CodeScriptFailed:
		return codes.InvalidArgument

	// Unavailable - the roll source could not produce values
	case CodeRollSourceFailure:
		return codes.Unavailable

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
