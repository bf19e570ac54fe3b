// Package metadata carries per-call context across the dice gRPC boundary:
// a correlation ID and the caller's resolved locale.
package metadata

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/dicetray/internal/platform/i18n/catalog"
	"github.com/louisbranch/dicetray/internal/platform/id"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	// RequestIDHeader correlates a call across client and server logs.
	RequestIDHeader = "x-dicetray-request-id"
	// LocaleHeader carries the caller's preferred languages.
	LocaleHeader = "accept-language"
)

// Call describes the current inbound call.
type Call struct {
	RequestID string
	Locale    string
}

type callKey struct{}

// NewContext returns ctx carrying call.
func NewContext(ctx context.Context, call Call) context.Context {
	return context.WithValue(ctx, callKey{}, call)
}

// FromContext returns the call stored in ctx. Locale defaults to the
// catalog base locale.
func FromContext(ctx context.Context) Call {
	call, _ := ctx.Value(callKey{}).(Call)
	if call.Locale == "" {
		call.Locale = catalog.BaseLocale
	}
	return call
}

// OutgoingLocale attaches a locale preference to an outgoing call.
func OutgoingLocale(ctx context.Context, locale string) context.Context {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, LocaleHeader, locale)
}

// Header returns the first value of key that is printable ASCII. Values
// with control or non-ASCII bytes are skipped.
func Header(md metadata.MD, key string) string {
	for _, value := range md.Get(key) {
		if printable(value) {
			return value
		}
	}
	return ""
}

func printable(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// InterceptorOption configures UnaryServerInterceptor.
type InterceptorOption func(*interceptor)

type interceptor struct {
	newID  func() (string, error)
	logger *log.Logger
	now    func() time.Time
}

// WithIDGenerator replaces the request ID generator.
func WithIDGenerator(fn func() (string, error)) InterceptorOption {
	return func(i *interceptor) { i.newID = fn }
}

// WithAccessLog logs one line per call.
func WithAccessLog(logger *log.Logger) InterceptorOption {
	return func(i *interceptor) { i.logger = logger }
}

// UnaryServerInterceptor stores a Call in every unary request context and
// echoes the request ID in the response headers. Callers may supply their
// own request ID; one is generated otherwise.
func UnaryServerInterceptor(opts ...InterceptorOption) grpc.UnaryServerInterceptor {
	in := &interceptor{newID: id.NewID, now: time.Now}
	for _, opt := range opts {
		opt(in)
	}
	return in.intercept
}

func (in *interceptor) intercept(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	call, err := in.inbound(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "request id: %v", err)
	}
	if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, call.RequestID)); err != nil {
		return nil, status.Errorf(codes.Internal, "set response header: %v", err)
	}

	start := in.now()
	resp, err := handler(NewContext(ctx, call), req)
	if in.logger != nil {
		in.logger.Printf("rpc %s id=%s locale=%s code=%s in %s",
			info.FullMethod, call.RequestID, call.Locale, status.Code(err), in.now().Sub(start).Round(time.Microsecond))
	}
	return resp, err
}

func (in *interceptor) inbound(ctx context.Context) (Call, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	call := Call{
		RequestID: Header(md, RequestIDHeader),
		Locale:    catalog.Default().ResolveLocale(Header(md, LocaleHeader)),
	}
	if call.RequestID == "" {
		generated, err := in.newID()
		if err != nil {
			return Call{}, err
		}
		call.RequestID = generated
	}
	return call, nil
}
