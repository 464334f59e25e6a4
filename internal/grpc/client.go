package grpc

import (
	"context"

	d "github.com/fjod/go_pos/domain"
	"google.golang.org/grpc"
)

// DisplayClient is used by the customer display process.
type DisplayClient struct {
	cc grpc.ClientConnInterface
}

func NewDisplayClient(cc grpc.ClientConnInterface) *DisplayClient {
	return &DisplayClient{cc: cc}
}

type WatchClient interface {
	Recv() (*d.ChannelMessage, error)
	grpc.ClientStream
}

type watchClient struct {
	grpc.ClientStream
}

func (c *watchClient) Recv() (*d.ChannelMessage, error) {
	m := new(d.ChannelMessage)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *DisplayClient) Watch(ctx context.Context, req *WatchRequest, opts ...grpc.CallOption) (WatchClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], watchFullMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &watchClient{stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *DisplayClient) Act(ctx context.Context, action *d.CustomerAction, opts ...grpc.CallOption) (*ActResult, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	out := new(ActResult)
	if err := c.cc.Invoke(ctx, actFullMethod, action, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Stream forwards watched messages into a channel until the stream ends or ctx is done.
// The error channel receives the terminal error (io.EOF on a clean close) and is then closed.
func Stream(ctx context.Context, w WatchClient) (<-chan d.ChannelMessage, <-chan error) {
	out := make(chan d.ChannelMessage, 64)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for {
			msg, err := w.Recv()
			if err != nil {
				errc <- err
				return
			}
			select {
			case out <- *msg:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}
