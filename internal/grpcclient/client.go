// Package grpcclient talks to a text recognition service over gRPC
package grpcclient

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/trace"
)

// Client calls a unary recognition method that takes the encoded image as a
// google.protobuf.BytesValue and answers with a google.protobuf.StringValue.
// Image format and language travel as metadata.
type Client struct {
	conn   *grpc.ClientConn
	method string
	health healthpb.HealthClient
}

// New creates a client for method on addr. Extra options are appended after
// the defaults.
func New(addr, method string, opts ...grpc.DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                DefaultKeepaliveTime,
			Timeout:             DefaultKeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(trace.UnaryClientInterceptor()),
		grpc.WithChainStreamInterceptor(trace.StreamClientInterceptor()),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorCodeConfigInvalid, "dial %s", addr)
	}
	return &Client{conn: conn, method: method, health: healthpb.NewHealthClient(conn)}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// ExtractText performs OCR on an image
func (c *Client) ExtractText(ctx context.Context, imageData []byte, format, language string) (string, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, FormatKey, format, LanguageKey, language)
	resp := &wrapperspb.StringValue{}
	if err := c.conn.Invoke(ctx, c.method, wrapperspb.Bytes(imageData), resp); err != nil {
		return "", apperrors.FromGRPCError(err)
	}
	return resp.GetValue(), nil
}

// Health checks the server reports SERVING.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return apperrors.FromGRPCError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return apperrors.Newf(apperrors.ErrorCodeUnavailable, "recognition service %s", resp.GetStatus())
	}
	return nil
}
