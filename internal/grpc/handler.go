package grpc

import (
	"context"
	"errors"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/channel"
	"github.com/fjod/go_pos/internal/checkout"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// Checkout is the part of the state machine the display may reach.
type Checkout interface {
	RegisterID() string
	Session() d.CheckoutSession
	HandleCustomerAction(ctx context.Context, action d.CustomerAction) error
}

type DisplayServiceServer struct {
	checkout Checkout
	bus      channel.Bus
	log      *zap.Logger
}

func NewDisplayServiceServer(c Checkout, bus channel.Bus, log *zap.Logger) *DisplayServiceServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &DisplayServiceServer{checkout: c, bus: bus, log: log}
}

// NewServer builds a gRPC server exposing the display service, health and reflection.
func NewServer(srv DisplayServer) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	RegisterDisplayServer(s, srv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(s)
	return s, hs
}

func (s *DisplayServiceServer) Watch(req *WatchRequest, stream WatchServer) error {
	if req.RegisterID != "" && req.RegisterID != s.checkout.RegisterID() {
		return status.Errorf(codes.NotFound, "register %q is not served here", req.RegisterID)
	}
	ctx := stream.Context()

	// subscribe before reading the snapshot so nothing between the two is lost
	msgs, err := s.bus.Subscribe(ctx)
	if err != nil {
		return status.Errorf(codes.Unavailable, "failed to subscribe: %v", err)
	}

	current := s.checkout.Session()
	if err := stream.Send(&d.ChannelMessage{
		Kind:       d.MessageSnapshot,
		RegisterID: s.checkout.RegisterID(),
		Session:    &current,
		SentAt:     current.UpdatedAt,
	}); err != nil {
		return err
	}

	s.log.Info("display connected", zap.String("register_id", s.checkout.RegisterID()))
	defer s.log.Info("display disconnected", zap.String("register_id", s.checkout.RegisterID()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return status.Error(codes.Unavailable, "display channel closed")
			}
			if err := stream.Send(&msg); err != nil {
				return err
			}
		}
	}
}

func (s *DisplayServiceServer) Act(ctx context.Context, action *d.CustomerAction) (*ActResult, error) {
	if action.Type == "" {
		return nil, status.Error(codes.InvalidArgument, "action type is required")
	}
	if err := s.checkout.HandleCustomerAction(ctx, *action); err != nil {
		s.log.Info("customer action rejected", zap.String("action", string(action.Type)), zap.Error(err))
		return nil, toStatus(err)
	}
	current := s.checkout.Session()
	return &ActResult{Session: &current}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, checkout.ErrPaymentDeclined):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, checkout.ErrTransient):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, checkout.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, checkout.ErrIllegalTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, checkout.ErrRequestInFlight), errors.Is(err, checkout.ErrSessionChanged):
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Errorf(codes.Internal, "customer action failed: %v", err)
	}
}
