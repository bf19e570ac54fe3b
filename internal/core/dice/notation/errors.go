package notation

import (
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
)

var (
	// ErrMalformedNotation matches any parse failure.
	ErrMalformedNotation = apperrors.New(apperrors.CodeNotationMalformed, "malformed dice notation")
	// ErrUnresolvableSegment matches a segment the pipeline cannot advance.
	ErrUnresolvableSegment = apperrors.New(apperrors.CodeSegmentUnresolvable, "segment cannot be resolved")
	// ErrRollSourceFailure matches a roller failure.
	ErrRollSourceFailure = apperrors.New(apperrors.CodeRollSourceFailure, "roll source failed")
)

func malformed(input string, pos int, reason string) error {
	return apperrors.WithMetadata(
		apperrors.CodeNotationMalformed,
		fmt.Sprintf("malformed notation %q at %d: %s", input, pos, reason),
		map[string]string{
			"Notation": input,
			"Position": strconv.Itoa(pos),
			"Reason":   reason,
		},
	)
}

func unresolvable(reason string) error {
	return apperrors.WithMetadata(
		apperrors.CodeSegmentUnresolvable,
		"unresolvable segment: "+reason,
		map[string]string{"Reason": reason},
	)
}

func rollFailure(req Request, cause error) error {
	return apperrors.WrapWithMetadata(
		apperrors.CodeRollSourceFailure,
		fmt.Sprintf("roll %d%s at segment %d: %v", req.Amount, req.Die, req.Index, cause),
		map[string]string{
			"Index": strconv.Itoa(req.Index),
			"Die":   req.Die.String(),
		},
		cause,
	)
}

// ErrorPosition returns the byte offset of a malformed notation error.
func ErrorPosition(err error) (int, bool) {
	if !apperrors.IsCode(err, apperrors.CodeNotationMalformed) {
		return 0, false
	}
	pos, convErr := strconv.Atoi(apperrors.GetMetadata(err)["Position"])
	if convErr != nil {
		return 0, false
	}
	return pos, true
}
