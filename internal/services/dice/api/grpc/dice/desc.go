package dice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "dicetray.v1.DiceService"

const (
	rollMethod      = "/" + ServiceName + "/Roll"
	getRollMethod   = "/" + ServiceName + "/GetRoll"
	listRollsMethod = "/" + ServiceName + "/ListRolls"
)

// DiceServiceServer is the server API for the dice service.
type DiceServiceServer interface {
	Roll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRoll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRolls(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterDiceServiceServer registers srv with s.
func RegisterDiceServiceServer(s grpc.ServiceRegistrar, srv DiceServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Roll", Handler: unaryHandler(rollMethod, DiceServiceServer.Roll)},
		{MethodName: "GetRoll", Handler: unaryHandler(getRollMethod, DiceServiceServer.GetRoll)},
		{MethodName: "ListRolls", Handler: unaryHandler(listRollsMethod, DiceServiceServer.ListRolls)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dicetray/v1/dice.proto",
}

type unaryMethod func(DiceServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, method unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(DiceServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return method(srv.(DiceServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
