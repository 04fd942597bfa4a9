package grpcx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/pocketbank/internal/callable"
	"github.com/dmitrijs2005/pocketbank/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a callable.Transport over one gRPC connection.
type Client struct {
	conn *grpc.ClientConn
}

var _ callable.Transport = (*Client)(nil)

// Dial connects to endpoint without TLS unless opts say otherwise.
func Dial(endpoint string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating grpc client: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) Call(ctx context.Context, procedure string, data any, token string) (callable.Envelope, error) {
	in, err := toStruct(data)
	if err != nil {
		return nil, err
	}
	if token != "" {
		ctx = withAccessToken(ctx, token)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(procedure), in, out); err != nil {
		return nil, mapError(procedure, err)
	}
	return callable.Envelope(out.AsMap()), nil
}

func toStruct(data any) (*structpb.Struct, error) {
	fields := map[string]any{}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, fmt.Errorf("request is not an object: %w", err)
		}
	}
	return structpb.NewStruct(fields)
}

func mapError(procedure string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		if st.Message() == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return common.ErrUnauthenticated
	case codes.ResourceExhausted:
		return callable.ErrRateLimited
	case codes.Unimplemented:
		return fmt.Errorf("%w: %s", callable.ErrUnknownProcedure, procedure)
	}
	return fmt.Errorf("grpc call %s: %w", procedure, err)
}
