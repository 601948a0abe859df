package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the trade service on behalf of a token holder.
type Client struct {
	cc *grpc.ClientConn
}

// NewClient dials target. Without options it uses insecure credentials.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error { return c.cc.Close() }

func (c *Client) ClaimTrade(ctx context.Context, token, code string) (*structpb.Struct, error) {
	return c.call(ctx, "ClaimTrade", token, code)
}

func (c *Client) InspectTrade(ctx context.Context, token, code string) (*structpb.Struct, error) {
	return c.call(ctx, "InspectTrade", token, code)
}

func (c *Client) call(ctx context.Context, name, token, code string) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"code": code})
	if err != nil {
		return nil, err
	}
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+name, in, out); err != nil {
		return nil, err
	}
	return out, nil
}
