package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// jsonCodecName mirrors pkg/llmclient's JSON-over-gRPC transport: the
// managed runtime's control plane is a thin, evolving JSON envelope, not a
// versioned proto schema, so a custom codec marshals/unmarshals plain JSON
// rather than generated message types.
const jsonCodecName = "deployjson"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

type launchResponse struct {
	LaunchResult
}

type statusResponse struct {
	Status string `json:"status"`
}

// GRPCRuntimeClient implements RuntimeClient by calling the managed
// runtime's Launch/Status RPCs over gRPC, grounded on pkg/llmclient.GRPCInvoker's
// dial/insecure-transport/timeout pattern.
type GRPCRuntimeClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// NewGRPCRuntimeClient dials addr and returns a ready-to-use RuntimeClient.
func NewGRPCRuntimeClient(addr string, timeout time.Duration, insecureTransport bool) (*GRPCRuntimeClient, error) {
	var opts []grpc.DialOption
	if insecureTransport {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("deploy: dial %s: %w", addr, err)
	}
	return &GRPCRuntimeClient{conn: conn, timeout: timeout}, nil
}

// Launch calls the runtime's Launch RPC and returns its result.
func (c *GRPCRuntimeClient) Launch(ctx context.Context, recipe BuildRecipe) (*LaunchResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var resp launchResponse
	err := c.conn.Invoke(ctx, "/buildengine.deploy.v1.Runtime/Launch", recipe, &resp,
		grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, fmt.Errorf("deploy: launch %s: %w", recipe.AgentID, err)
	}
	return &resp.LaunchResult, nil
}

// Status calls the runtime's Status RPC for runtimeID.
func (c *GRPCRuntimeClient) Status(ctx context.Context, runtimeID string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := struct {
		RuntimeID string `json:"runtime_id"`
	}{RuntimeID: runtimeID}
	var resp statusResponse
	err := c.conn.Invoke(ctx, "/buildengine.deploy.v1.Runtime/Status", req, &resp,
		grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return "", fmt.Errorf("deploy: status %s: %w", runtimeID, err)
	}
	return resp.Status, nil
}

// Close releases the underlying gRPC connection.
func (c *GRPCRuntimeClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCRuntimeClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
