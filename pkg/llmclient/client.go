// Package llmclient wraps the external LLM service as the opaque function
// the Workflow Engine and Stage Executor consume: given a prompt template
// name, an assembled context string, and a small state map, it returns text
// plus token counts plus any tool-call side effects the LLM requested
// against the project directory. The model itself is out of scope — this
// package only speaks the wire contract.
package llmclient

import "context"

// ToolCall is one LLM-requested side effect against the project directory
// (e.g. a file write performed by the remote tool-execution sandbox).
type ToolCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// InvokeResult is the opaque invoke() response named in §2's L1 row.
type InvokeResult struct {
	Text         string     `json:"text"`
	InputTokens  int64      `json:"input_tokens"`
	OutputTokens int64      `json:"output_tokens"`
	ToolCalls    []ToolCall `json:"tool_calls"`
	ModelID      string     `json:"model_id"`
}

// Invoker is the LLM invoker leaf component's consumer-facing interface.
type Invoker interface {
	Invoke(ctx context.Context, promptTemplateName string, context string, state map[string]string) (*InvokeResult, error)
	Close() error
}
