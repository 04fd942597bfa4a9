// Package grpcx serves and calls the procedures of a callable.Registry over
// gRPC. There is no generated stub: every procedure is a unary method of
// ServiceName taking and returning a google.protobuf.Struct.
package grpcx

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/dmitrijs2005/pocketbank/internal/callable"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "pocketbank.callable.Callable"

// FullMethod is the gRPC method path of a procedure.
func FullMethod(procedure string) string {
	return "/" + ServiceName + "/" + procedure
}

// callableServer is the handler type of the service descriptor. Any value
// satisfies it.
type callableServer interface{}

type Server struct {
	address  string
	registry *callable.Registry
	verify   callable.TokenVerifier
	limiter  *rate.Limiter
	logger   logging.Logger
}

// NewServer serves reg on address. A nil limiter disables rate limiting.
func NewServer(address string, reg *callable.Registry, verify callable.TokenVerifier, limiter *rate.Limiter, l logging.Logger) *Server {
	if l == nil {
		l = logging.Nop()
	}
	return &Server{
		address:  address,
		registry: reg,
		verify:   verify,
		limiter:  limiter,
		logger:   l.With("module", "grpc_server"),
	}
}

// ServiceDesc describes one method per registered procedure.
func (s *Server) ServiceDesc() *grpc.ServiceDesc {
	names := s.registry.Names()
	methods := make([]grpc.MethodDesc, 0, len(names))
	for _, name := range names {
		methods = append(methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    s.methodHandler(name),
		})
	}
	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*callableServer)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "pocketbank/callable.proto",
	}
}

func (s *Server) methodHandler(name string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := func(ctx context.Context, req any) (any, error) {
			return s.invoke(ctx, name, req.(*structpb.Struct))
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
		return interceptor(ctx, in, info, call)
	}
}

func (s *Server) invoke(ctx context.Context, name string, in *structpb.Struct) (*structpb.Struct, error) {
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	env := s.registry.Call(ctx, name, data)
	out, err := structpb.NewStruct(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out, nil
}

// NewGRPCServer builds a grpc.Server with the callable service and its
// interceptors registered.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{s.loggingInterceptor}
	if s.limiter != nil {
		interceptors = append(interceptors, rateLimitInterceptor(s.limiter))
	}
	interceptors = append(interceptors, s.accessTokenInterceptor)

	opts = append(opts, grpc.ChainUnaryInterceptor(interceptors...))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(s.ServiceDesc(), struct{}{})
	return srv
}

func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewGRPCServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address, "procedures", len(s.registry.Names()))

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
