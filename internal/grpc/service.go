package grpc

import (
	"context"

	d "github.com/fjod/go_pos/domain"
	"google.golang.org/grpc"
)

const (
	ServiceName      = "pos.display.v1.Display"
	watchFullMethod  = "/" + ServiceName + "/Watch"
	actFullMethod    = "/" + ServiceName + "/Act"
	serviceProtoFile = "pos/display/v1/display.proto"
)

type WatchRequest struct {
	RegisterID string `json:"register_id"`
}

type ActResult struct {
	Session *d.CheckoutSession `json:"session"`
}

// DisplayServer is the register side of the customer display connection.
type DisplayServer interface {
	// Watch streams the current snapshot followed by every snapshot and payment event.
	Watch(*WatchRequest, WatchServer) error
	// Act applies a customer action and returns the resulting snapshot.
	Act(context.Context, *d.CustomerAction) (*ActResult, error)
}

type WatchServer interface {
	Send(*d.ChannelMessage) error
	grpc.ServerStream
}

type watchServer struct {
	grpc.ServerStream
}

func (s *watchServer) Send(m *d.ChannelMessage) error {
	return s.ServerStream.SendMsg(m)
}

func RegisterDisplayServer(s grpc.ServiceRegistrar, srv DisplayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DisplayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Act", Handler: actHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: serviceProtoFile,
}

func actHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(d.CustomerAction)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DisplayServer).Act(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: actFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DisplayServer).Act(ctx, req.(*d.CustomerAction))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DisplayServer).Watch(in, &watchServer{stream})
}
