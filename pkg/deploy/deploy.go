package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nexusforge/buildengine/pkg/domain"
)

// agentStore is the narrow store surface the Deployment Service needs.
type agentStore interface {
	UpsertAgent(ctx context.Context, a *domain.Agent) error
	GetAgentBySourceProject(ctx context.Context, projectID string) (*domain.Agent, error)
}

// Options configures one Service.
type Options struct {
	// DryRun short-circuits everything after build-recipe materialization:
	// the runtime is never reached, the Agent record lands offline with
	// DeploymentError set to DryRunStatus.
	DryRun bool

	// DefaultRegion is used when the project's metadata carries none.
	DefaultRegion string

	// BuildRoot is the local working-copy root build recipes are staged
	// under before push and removed from after (dryRunStatus not excepted).
	BuildRoot string
}

// DryRunStatus is the DeploymentError value recorded on a dry-run deploy, so
// callers can tell a dry run apart from a genuine offline failure.
const DryRunStatus = "dry_run"

// Service implements the Deployment Service: materialize the build recipe,
// push it to the managed runtime, and record the outcome on the project's
// Agent row. Grounded on
// original_source/api/v2/services/agent_deployment_service.py's
// deploy_to_agentcore — same sequence (extract metadata, resolve region,
// dry-run short-circuit, launch, record, cleanup), reduced to this
// implementation's in-memory stage documents instead of on-disk JSON files.
type Service struct {
	store   agentStore
	runtime RuntimeClient
	opts    Options
}

// New returns a Service wired to its collaborators.
func New(store agentStore, runtime RuntimeClient, opts Options) *Service {
	if opts.DefaultRegion == "" {
		opts.DefaultRegion = "us-east-1"
	}
	if opts.BuildRoot == "" {
		opts.BuildRoot = "projects"
	}
	return &Service{store: store, runtime: runtime, opts: opts}
}

// Deploy materializes wc's build recipe and pushes it to the managed
// runtime, upserting the resulting Agent record. On any failure the Agent
// record (if one could be identified) is rolled back to
// offline/deployment-failed with the captured error; the error is also
// returned to the caller so a deploy_agent Task can be marked failed.
func (s *Service) Deploy(ctx context.Context, wc *domain.WorkflowContext, region string) (*domain.Agent, error) {
	log := slog.With("project_id", wc.ProjectID)

	meta, err := extractArtifactMetadata(wc)
	if err != nil {
		return nil, fmt.Errorf("deploy: extract artifacts: %w", err)
	}
	if region == "" {
		region = s.opts.DefaultRegion
	}

	agentID := buildAgentID(wc.ProjectID, meta.AgentName)
	recipe := BuildRecipe{
		AgentID:      agentID,
		AgentName:    meta.AgentName,
		Region:       region,
		Entrypoint:   meta.Entrypoint,
		Requirements: meta.Dependencies,
	}

	recipePath, err := s.writeBuildRecipe(wc.ProjectID, recipe)
	if err != nil {
		failed := &domain.Agent{
			ID:               agentID,
			SourceProject:    wc.ProjectID,
			Name:             meta.AgentName,
			Capabilities:     domain.JSONStrings(meta.Tags),
			DeploymentStatus: domain.AgentDeploymentStatusFailed,
			DeploymentError:  err.Error(),
		}
		if upsertErr := s.store.UpsertAgent(ctx, failed); upsertErr != nil {
			return nil, fmt.Errorf("deploy: write build recipe failed (%v) and record rollback failed: %w", err, upsertErr)
		}
		return nil, fmt.Errorf("deploy: write build recipe: %w", err)
	}
	defer s.cleanupBuildRecipe(recipePath)

	if s.opts.DryRun {
		log.Info("dry-run deploy, skipping runtime push", "agent_id", agentID)
		agent := &domain.Agent{
			ID:               agentID,
			SourceProject:    wc.ProjectID,
			Name:             meta.AgentName,
			Capabilities:     domain.JSONStrings(meta.Tags),
			DeploymentStatus: domain.AgentDeploymentStatusOffline,
			DeploymentError:  DryRunStatus,
		}
		if err := s.store.UpsertAgent(ctx, agent); err != nil {
			return nil, fmt.Errorf("deploy: record dry-run agent: %w", err)
		}
		return agent, nil
	}

	result, err := s.runtime.Launch(ctx, recipe)
	if err != nil {
		log.Warn("launch failed, rolling agent record back to offline", "agent_id", agentID, "error", err)
		failed := &domain.Agent{
			ID:               agentID,
			SourceProject:    wc.ProjectID,
			Name:             meta.AgentName,
			Capabilities:     domain.JSONStrings(meta.Tags),
			DeploymentStatus: domain.AgentDeploymentStatusFailed,
			DeploymentError:  err.Error(),
		}
		if upsertErr := s.store.UpsertAgent(ctx, failed); upsertErr != nil {
			return nil, fmt.Errorf("deploy: launch failed (%v) and record rollback failed: %w", err, upsertErr)
		}
		return nil, fmt.Errorf("deploy: launch %s: %w", agentID, err)
	}

	agent := &domain.Agent{
		ID:            agentID,
		SourceProject: wc.ProjectID,
		Name:          meta.AgentName,
		RuntimeHandle: domain.NewJSON(domain.RuntimeHandle{
			RuntimeID:  result.RuntimeID,
			Endpoint:   result.Endpoint,
			RevisionID: result.RevisionID,
		}),
		Capabilities:     domain.JSONStrings(meta.Tags),
		DeploymentStatus: domain.AgentDeploymentStatusRunning,
	}
	if err := s.store.UpsertAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("deploy: record deployed agent: %w", err)
	}
	log.Info("deploy completed", "agent_id", agentID, "runtime_id", result.RuntimeID)
	return agent, nil
}

// writeBuildRecipe stages recipe as a JSON file under the project's local
// working copy, mirroring the original's on-disk project_config.json
// staging step before a real push.
func (s *Service) writeBuildRecipe(projectID string, recipe BuildRecipe) (string, error) {
	dir := filepath.Join(s.opts.BuildRoot, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("deploy: ensure build dir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(recipe, "", "  ")
	if err != nil {
		return "", fmt.Errorf("deploy: marshal build recipe: %w", err)
	}
	path := filepath.Join(dir, "build_recipe.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("deploy: write %s: %w", path, err)
	}
	return path, nil
}

// cleanupBuildRecipe removes the staged build recipe file, mirroring the
// original's _cleanup_temp_artifacts_from_root — the file only ever exists
// to hand to the runtime client, never as persistent state.
func (s *Service) cleanupBuildRecipe(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("deploy: cleanup build recipe failed", "path", path, "error", err)
	}
}
