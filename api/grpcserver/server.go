package grpcserver

import (
	"context"
	"errors"
	"net"
	"time"

	"sequencer/domain/message"
	exitwal "sequencer/infra/wal/exit"
	"sequencer/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// Submitter is what the gRPC layer needs from the gateway service.
type Submitter interface {
	Submit(ctx context.Context, req message.Request) (message.Response, error)
	Await(ctx context.Context, seq uint64) (message.Response, error)
}

// Server adapts a Submitter to sequencer.Gateway. A positive timeout
// bounds how long a call waits for its response.
type Server struct {
	gw      Submitter
	timeout time.Duration
}

func NewServer(gw Submitter, timeout time.Duration) *Server {
	return &Server{gw: gw, timeout: timeout}
}

func (s *Server) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// -------------------- Commands --------------------

func (s *Server) Submit(ctx context.Context, req *message.Request) (*message.Response, error) {
	if req == nil || req.Type == message.Unparseable {
		return nil, status.Error(codes.InvalidArgument, "request type is required")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	resp, err := s.gw.Submit(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}

// -------------------- Queries --------------------

func (s *Server) Await(ctx context.Context, req *AwaitRequest) (*message.Response, error) {
	if req == nil || req.Sequence == 0 {
		return nil, status.Error(codes.InvalidArgument, "sequence is required")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	resp, err := s.gw.Await(ctx, req.Sequence)
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, exitwal.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// -------------------- Listener --------------------

// NewGRPCServer builds a grpc.Server with the gateway, health checks and
// request logging registered.
func NewGRPCServer(srv GatewayServer, log logger.Interface) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 5 * time.Minute,
			Time:              20 * time.Second,
			Timeout:           10 * time.Second,
		}),
		grpc.ChainUnaryInterceptor(logUnary(log)),
	)
	RegisterGatewayServer(s, srv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return s, hs
}

// Serve runs s on lis until ctx is done, then drains in-flight calls.
func Serve(ctx context.Context, s *grpc.Server, hs *health.Server, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(lis) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		hs.Shutdown()
		s.GracefulStop()
		<-errCh
		return nil
	}
}

func logUnary(log logger.Interface) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []logger.Field{
			logger.NewField("method", info.FullMethod),
			logger.NewField("took", time.Since(start).String()),
			logger.NewField("code", status.Code(err).String()),
		}
		if r, ok := resp.(*message.Response); ok && r != nil {
			fields = append(fields,
				logger.NewField("sequence", r.Sequence),
				logger.NewField("result", r.Error.String()),
			)
		}
		if err != nil && status.Code(err) == codes.Internal {
			log.Error(err, fields...)
		} else {
			log.Debug("grpc call", fields...)
		}
		return resp, err
	}
}
