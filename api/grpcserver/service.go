package grpcserver

import (
	"context"

	"sequencer/domain/message"

	"google.golang.org/grpc"
)

const (
	ServiceName  = "sequencer.Gateway"
	submitMethod = "/" + ServiceName + "/Submit"
	awaitMethod  = "/" + ServiceName + "/Await"
	methodSubmit = "Submit"
	methodAwait  = "Await"
)

// AwaitRequest asks for the response committed at Sequence.
type AwaitRequest struct {
	Sequence uint64 `json:"sequence"`
}

// GatewayServer is the server side of sequencer.Gateway.
type GatewayServer interface {
	Submit(context.Context, *message.Request) (*message.Response, error)
	Await(context.Context, *AwaitRequest) (*message.Response, error)
}

func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&gatewayServiceDesc, srv)
}

var gatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodSubmit, Handler: submitHandler},
		{MethodName: methodAwait, Handler: awaitHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServer).Submit(ctx, req.(*message.Request))
	}
	return interceptor(ctx, in, info, handler)
}

func awaitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AwaitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServer).Await(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: awaitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServer).Await(ctx, req.(*AwaitRequest))
	}
	return interceptor(ctx, in, info, handler)
}
