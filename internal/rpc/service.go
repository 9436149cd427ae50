package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName matches the fully-qualified name a .proto file would declare
// for this service, kept stable so client and server agree on it without a
// shared generated package.
const serviceName = "flowstate.reassigner.v1.SchedulerSink"

// SchedulerSinkServer is the server-side contract the hand-written
// ServiceDesc below dispatches to.
type SchedulerSinkServer interface {
	SetInitialState(ctx context.Context, req *SetInitialStateRequest) (*SetInitialStateResponse, error)
}

// ServiceDesc is the grpc.ServiceDesc a protoc-gen-go-grpc plugin would
// normally emit. It's written by hand here since the donor stack's
// google.golang.org/grpc dependency ships no generated code in this pack.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SchedulerSinkServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SetInitialState",
			Handler:    setInitialStateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/rpc/scheduler_sink",
}

func setInitialStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SetInitialStateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulerSinkServer).SetInitialState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/SetInitialState",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SchedulerSinkServer).SetInitialState(ctx, req.(*SetInitialStateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterSchedulerSinkServer registers srv on s the way generated code's
// RegisterXxxServer helper would.
func RegisterSchedulerSinkServer(s *grpc.Server, srv SchedulerSinkServer) {
	s.RegisterService(&ServiceDesc, srv)
}
