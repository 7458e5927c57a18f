package deploy

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/nexusforge/buildengine/pkg/domain"
)

// artifactMetadata is what the Deployment Service extracts from a
// completed build's structured stage documents, mirroring the original
// implementation's _ArtifactMetadata dataclass (agent_name, description,
// category, supported_models, tags, dependencies).
type artifactMetadata struct {
	AgentName       string
	Description     string
	Category        string
	SupportedModels []string
	Tags            []string
	Dependencies    []string
	Entrypoint      string
}

// promptEngineerDoc is the JSON shape the prompt_engineer stage's canonical
// document carries (system_prompt omitted — not needed for deployment).
type promptEngineerDoc struct {
	AgentName       string   `json:"agent_name"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	SupportedModels []string `json:"supported_models"`
	Tags            []string `json:"tags"`
}

// toolsDeveloperDoc is the JSON shape the tools_developer stage's canonical
// document carries.
type toolsDeveloperDoc struct {
	Tools []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"tools"`
	Dependencies []string `json:"dependencies"`
}

// agentCodeDeveloperDoc is the JSON shape the agent_code_developer stage's
// canonical document carries.
type agentCodeDeveloperDoc struct {
	Entrypoint   string   `json:"entrypoint"`
	Dependencies []string `json:"dependencies"`
}

// extractArtifactMetadata assembles artifactMetadata from whichever of the
// three structured stage documents completed, following the original's
// per-file extraction but reading from persisted StageOutputs instead of
// re-parsing files off disk — the stage documents already are the
// materialized artifacts in this implementation.
func extractArtifactMetadata(wc *domain.WorkflowContext) (artifactMetadata, error) {
	var meta artifactMetadata

	if out, ok := completedDocument(wc, "prompt_engineer"); ok {
		var doc promptEngineerDoc
		if err := json.Unmarshal([]byte(out), &doc); err != nil {
			return meta, fmt.Errorf("deploy: parse prompt_engineer document: %w", err)
		}
		meta.AgentName = doc.AgentName
		meta.Description = doc.Description
		meta.Category = doc.Category
		meta.SupportedModels = doc.SupportedModels
		meta.Tags = doc.Tags
	}

	if out, ok := completedDocument(wc, "tools_developer"); ok {
		var doc toolsDeveloperDoc
		if err := json.Unmarshal([]byte(out), &doc); err != nil {
			return meta, fmt.Errorf("deploy: parse tools_developer document: %w", err)
		}
		meta.Dependencies = append(meta.Dependencies, doc.Dependencies...)
		for _, tool := range doc.Tools {
			meta.Tags = appendUnique(meta.Tags, tool.Name)
		}
	}

	if out, ok := completedDocument(wc, "agent_code_developer"); ok {
		var doc agentCodeDeveloperDoc
		if err := json.Unmarshal([]byte(out), &doc); err != nil {
			return meta, fmt.Errorf("deploy: parse agent_code_developer document: %w", err)
		}
		meta.Entrypoint = doc.Entrypoint
		meta.Dependencies = append(meta.Dependencies, doc.Dependencies...)
	}

	if meta.AgentName == "" {
		meta.AgentName = wc.ProjectName
	}
	if meta.Entrypoint == "" {
		meta.Entrypoint = "agent.py"
	}

	return meta, nil
}

// completedDocument returns a completed stage's canonical document content,
// falling back to its raw output if no separately-extracted document was
// recorded.
func completedDocument(wc *domain.WorkflowContext, stageName string) (string, bool) {
	out, ok := wc.StageOutputs[stageName]
	if !ok || out.Status != domain.StageStatusCompleted {
		return "", false
	}
	if out.DocumentContent != "" {
		return out.DocumentContent, true
	}
	if out.Content != "" {
		return out.Content, true
	}
	return "", false
}

func appendUnique(s []string, v string) []string {
	if v == "" {
		return s
	}
	for _, existing := range s {
		if existing == v {
			return s
		}
	}
	return append(s, v)
}

// buildAgentID derives a stable agent_id from the project, grounded on the
// original's _build_agent_id hashing the project id with the agent name so
// re-deploys of the same project address the same Agent record.
func buildAgentID(projectID, agentName string) string {
	sum := sha1.Sum([]byte(projectID + "/" + agentName))
	return "agent-" + hex.EncodeToString(sum[:8])
}
