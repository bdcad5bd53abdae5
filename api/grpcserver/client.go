package grpcserver

import (
	"context"

	"sequencer/domain/message"

	"google.golang.org/grpc"
)

// Client calls sequencer.Gateway over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) Submit(ctx context.Context, req message.Request, opts ...grpc.CallOption) (message.Response, error) {
	var resp message.Response
	err := c.conn.Invoke(ctx, submitMethod, &req, &resp, c.callOptions(opts)...)
	return resp, err
}

// Await fetches the response for a request submitted earlier, waiting
// for it if it is not committed yet.
func (c *Client) Await(ctx context.Context, seq uint64, opts ...grpc.CallOption) (message.Response, error) {
	var resp message.Response
	err := c.conn.Invoke(ctx, awaitMethod, &AwaitRequest{Sequence: seq}, &resp, c.callOptions(opts)...)
	return resp, err
}

func (c *Client) callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
