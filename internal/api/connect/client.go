package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the remote service.
type Client struct {
	status    *connect.Client[emptypb.Empty, structpb.Struct]
	sel       *connect.Client[structpb.Struct, structpb.Struct]
	lifecycle *connect.Client[structpb.Struct, structpb.Struct]
	play      *connect.Client[emptypb.Empty, structpb.Struct]
	pause     *connect.Client[emptypb.Empty, structpb.Struct]
	subscribe *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewClient creates a client for the service at baseURL. A non-empty token
// is sent with every call.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append(opts, connect.WithInterceptors(tokenInterceptor{token: token}))
	return &Client{
		status:    connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+RemoteServiceStatusProcedure, opts...),
		sel:       connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+RemoteServiceSelectProcedure, opts...),
		lifecycle: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+RemoteServiceLifecycleProcedure, opts...),
		play:      connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+RemoteServicePlayProcedure, opts...),
		pause:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+RemoteServicePauseProcedure, opts...),
		subscribe: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+RemoteServiceSubscribeProcedure, opts...),
	}
}

// Status returns the screen status.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	return unaryEmpty(ctx, c.status)
}

// Select plays the playlist item at index.
func (c *Client) Select(ctx context.Context, index int) (map[string]any, error) {
	return unaryStruct(ctx, c.sel, map[string]any{"index": index})
}

// Lifecycle sends a lifecycle event.
func (c *Client) Lifecycle(ctx context.Context, event string) (map[string]any, error) {
	return unaryStruct(ctx, c.lifecycle, map[string]any{"event": event})
}

// Play resumes playback.
func (c *Client) Play(ctx context.Context) (map[string]any, error) {
	return unaryEmpty(ctx, c.play)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) (map[string]any, error) {
	return unaryEmpty(ctx, c.pause)
}

// Subscribe calls fn for every message of the notification stream until the
// stream ends, fn returns false or ctx is done.
func (c *Client) Subscribe(ctx context.Context, fn func(map[string]any) bool) error {
	stream, err := c.subscribe.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		if !fn(stream.Msg().AsMap()) {
			return nil
		}
	}
	return stream.Err()
}

func unaryEmpty(ctx context.Context, client *connect.Client[emptypb.Empty, structpb.Struct]) (map[string]any, error) {
	res, err := client.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return res.Msg.AsMap(), nil
}

func unaryStruct(ctx context.Context, client *connect.Client[structpb.Struct, structpb.Struct], in map[string]any) (map[string]any, error) {
	msg, err := structpb.NewStruct(in)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	res, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return res.Msg.AsMap(), nil
}
