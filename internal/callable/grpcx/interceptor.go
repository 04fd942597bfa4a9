package grpcx

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/callable"
	"github.com/dmitrijs2005/pocketbank/internal/common"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func procedureOf(fullMethod string) string {
	return strings.TrimPrefix(fullMethod, "/"+ServiceName+"/")
}

func (s *Server) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}

	ctx, err := s.registry.Authorize(ctx, procedureOf(info.FullMethod), accessToken, s.verify)
	switch {
	case err == nil:
		return handler(ctx, req)
	case errors.Is(err, callable.ErrUnknownProcedure):
		return nil, status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, common.ErrTokenExpired):
		return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	case len(accessToken) == 0:
		return nil, status.Error(codes.Unauthenticated, "missing token")
	default:
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}
}

func rateLimitInterceptor(l *rate.Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !l.Allow() {
			return nil, status.Error(codes.ResourceExhausted, callable.ErrRateLimited.Error())
		}
		return handler(ctx, req)
	}
}

func (s *Server) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "call", "method", info.FullMethod, "duration", time.Since(start), "code", status.Code(err).String())
	return resp, err
}
