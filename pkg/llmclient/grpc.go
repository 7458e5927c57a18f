package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// jsonCodecName is the gRPC content-subtype this client negotiates, backed
// by a codec that marshals requests/responses as plain JSON rather than a
// protoc-compiled message type — the LLM service's wire messages are a thin,
// evolving JSON envelope, not a versioned proto schema.
const jsonCodecName = "invokejson"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
func (jsonCodec) Name() string { return jsonCodecName }

// invokeRequest/invokeResponse are the wire shapes for the single Invoke RPC.
type invokeRequest struct {
	PromptTemplateName string            `json:"prompt_template_name"`
	Context            string            `json:"context"`
	State              map[string]string `json:"state"`
}

type invokeResponse struct {
	InvokeResult
}

// GRPCInvoker implements Invoker by calling the external LLM service's
// single Invoke RPC over gRPC (the service runs as a sidecar or on
// localhost; upgrade to TLS credentials is a config-time swap, not a code
// change, if it is ever reached across a network boundary).
type GRPCInvoker struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// NewGRPCInvoker dials addr and returns a ready-to-use Invoker.
func NewGRPCInvoker(addr string, timeout time.Duration, insecureTransport bool) (*GRPCInvoker, error) {
	var opts []grpc.DialOption
	if insecureTransport {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("llmclient: dial %s: %w", addr, err)
	}
	return &GRPCInvoker{conn: conn, timeout: timeout}, nil
}

// Invoke calls the LLM service's Invoke RPC and returns its result.
func (c *GRPCInvoker) Invoke(ctx context.Context, promptTemplateName, context_ string, state map[string]string) (*InvokeResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &invokeRequest{PromptTemplateName: promptTemplateName, Context: context_, State: state}
	var resp invokeResponse

	err := c.conn.Invoke(ctx, "/buildengine.llm.v1.Invoker/Invoke", req, &resp,
		grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, fmt.Errorf("llmclient: invoke %s: %w", promptTemplateName, err)
	}
	return &resp.InvokeResult, nil
}

// Close releases the underlying gRPC connection.
func (c *GRPCInvoker) Close() error {
	return c.conn.Close()
}
