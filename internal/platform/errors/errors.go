// Package errors defines dicetray's coded errors. A code selects the gRPC
// status and the localized message template; metadata fills the template.
package errors

import "maps"

// Domain is the ErrorInfo domain of dicetray errors.
const Domain = "github.com/louisbranch/dicetray"

// Error is a coded dicetray failure.
type Error struct {
	Code Code
	// Message is the untranslated text used in logs.
	Message string
	// Metadata fills the localized message template.
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so package-level sentinels
// work with errors.Is regardless of metadata.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With returns a copy of e with key set in its metadata.
func (e *Error) With(key, value string) *Error {
	out := *e
	out.Metadata = maps.Clone(e.Metadata)
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	out.Metadata[key] = value
	return &out
}

// New creates an error without metadata.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata creates an error whose localized message is rendered from
// metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates an error caused by cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WrapWithMetadata creates an error with metadata caused by cause.
func WrapWithMetadata(code Code, message string, metadata map[string]string, cause error) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata, Cause: cause}
}
