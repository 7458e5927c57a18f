// Package deploy implements the Deployment Service: after a successful
// build it extracts agent metadata from the stage JSON documents, writes a
// minimal build recipe, pushes it to a managed runtime,
// and records the outcome on the project's Agent row. It is grounded on
// original_source/api/v2/services/agent_deployment_service.py's
// deploy_to_agentcore, with the runtime itself modeled as an interface
// (RuntimeClient) following pkg/llmclient's gRPC-client-behind-an-interface
// pattern. It writes no project artifact files of its own: the only file it
// stages is the build recipe, which is removed again after the push.
package deploy

import "context"

// BuildRecipe is the minimal package the managed runtime needs to launch an
// agent: its entrypoint script, declared dependencies, and a handful of
// free-form config values (execution role, auto-create flags, etc.) that
// vary by target runtime.
type BuildRecipe struct {
	AgentID      string            `json:"agent_id"`
	AgentName    string            `json:"agent_name"`
	Region       string            `json:"region"`
	Entrypoint   string            `json:"entrypoint"`
	Requirements []string          `json:"requirements"`
	Config       map[string]string `json:"config,omitempty"`
}

// LaunchResult is what a successful push to the managed runtime returns.
type LaunchResult struct {
	RuntimeID  string `json:"runtime_id"`
	Endpoint   string `json:"endpoint,omitempty"`
	RevisionID string `json:"revision_id,omitempty"`
}

// RuntimeClient is the managed-runtime leaf component's consumer-facing
// interface: configure + launch an agent package, and read back its status.
// A gRPC-backed implementation and an in-memory fake both satisfy it.
type RuntimeClient interface {
	Launch(ctx context.Context, recipe BuildRecipe) (*LaunchResult, error)
	Status(ctx context.Context, runtimeID string) (string, error)
	Close() error
}
