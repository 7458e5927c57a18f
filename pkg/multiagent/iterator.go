package multiagent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nexusforge/buildengine/pkg/domain"
)

// IterativeStages names the four structurally per-subagent stages. A
// multi-agent project fans these out over its discovered subagents; every
// other stage always runs once regardless of agent count.
var IterativeStages = map[string]bool{
	"agent_design":         true,
	"tools_developer":      true,
	"prompt_engineer":      true,
	"agent_code_developer": true,
}

// singleAgentExecutor is the narrow surface the Iterator needs from the
// Stage Executor: one invocation against an already-built context string.
// It always returns a non-nil StageOutput, even on failure (status=failed,
// error_message set) — the returned error is the same failure wrapped.
type singleAgentExecutor interface {
	ExecuteSingleAgent(ctx context.Context, workflowType domain.WorkflowType, stageName, projectID, projectName, contextStr string, state map[string]string) (*domain.StageOutput, error)
}

// Iterator fans an iterative stage out over a multi-agent architecture's
// subagents and merges their outputs into one StageOutput.
type Iterator struct {
	Executor singleAgentExecutor
}

// New returns an Iterator backed by exec.
func New(exec singleAgentExecutor) *Iterator {
	return &Iterator{Executor: exec}
}

// TopologicalOrder orders subs by their Dependencies, ties broken by
// declaration order. A dependency cycle is broken by appending the
// remaining unprocessed agents in declaration order rather than failing.
func TopologicalOrder(subs []Subagent) []Subagent {
	processed := make(map[string]bool, len(subs))
	ordered := make([]Subagent, 0, len(subs))

	for len(ordered) < len(subs) {
		progressed := false
		for _, s := range subs {
			if processed[s.Name] {
				continue
			}
			ready := true
			for _, dep := range s.Dependencies {
				if !processed[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, s)
				processed[s.Name] = true
				progressed = true
			}
		}
		if !progressed {
			for _, s := range subs {
				if !processed[s.Name] {
					ordered = append(ordered, s)
					processed[s.Name] = true
				}
			}
			break
		}
	}
	return ordered
}

// FormatAgentContext prefixes baseContext with a "current processing agent"
// block plus a short summary of the architecture's other subagents, so the
// LLM invocation for one subagent stays aware of its siblings.
func FormatAgentContext(agent Subagent, arch *Architecture, baseContext string) string {
	var b strings.Builder
	b.WriteString("\n## Current Processing Agent\n\n")
	fmt.Fprintf(&b, "- **Agent Name**: %s\n", agent.Name)
	fmt.Fprintf(&b, "- **Agent Type**: %s\n", agent.Type)
	fmt.Fprintf(&b, "- **Description**: %s\n", agent.Description)
	fmt.Fprintf(&b, "- **Orchestration Pattern**: %s\n", agent.OrchestrationPattern)
	if len(agent.Dependencies) > 0 {
		fmt.Fprintf(&b, "- **Dependencies**: %s\n", strings.Join(agent.Dependencies, ", "))
	}
	if len(agent.Tools) > 0 {
		fmt.Fprintf(&b, "- **Tools**: %s\n", strings.Join(agent.Tools, ", "))
	}

	if arch != nil && len(arch.Subagents) > 1 {
		var others []Subagent
		for _, a := range arch.Subagents {
			if a.Name != agent.Name {
				others = append(others, a)
			}
		}
		if len(others) > 0 {
			b.WriteString("\n## Other Agents\n")
			for _, o := range others {
				desc := o.Description
				if len(desc) > 100 {
					desc = desc[:100]
				}
				fmt.Fprintf(&b, "- **%s** (%s): %s\n", o.Name, o.Type, desc)
			}
		}
	}

	return baseContext + "\n" + b.String()
}

// ExecuteIterativeStage fans stageName out over arch's subagents, running
// each subagent's single-agent invocation in topological order — a
// subagent never starts before every agent it declares as a Dependency has
// finished — and merges the results into one StageOutput.
func (it *Iterator) ExecuteIterativeStage(ctx context.Context, workflowType domain.WorkflowType, stageName, projectID, projectName, baseContext string, arch *Architecture) *domain.StageOutput {
	ordered := TopologicalOrder(arch.Subagents)
	total := len(ordered)

	collected := make([]*domain.StageOutput, total)
	for i, agent := range ordered {
		agentContext := FormatAgentContext(agent, arch, baseContext)
		state := map[string]string{
			"current_agent":  agent.Name,
			"agent_type":     agent.Type,
			"is_multi_agent": "true",
			"total_agents":   strconv.Itoa(total),
		}
		out, _ := it.Executor.ExecuteSingleAgent(ctx, workflowType, stageName, projectID, projectName, agentContext, state)
		collected[i] = out
	}

	return mergeOutputs(stageName, ordered, collected)
}

// mergeOutputs concatenates per-subagent content under "## <agent name>"
// headers, sums metrics, unions generated files, and marks the merged
// status failed iff any subagent failed.
func mergeOutputs(stageName string, agents []Subagent, outputs []*domain.StageOutput) *domain.StageOutput {
	var parts []string
	var metrics domain.Metrics
	var generatedFiles []domain.GeneratedFile
	var errMessages []string
	status := domain.StageStatusCompleted

	for i, out := range outputs {
		name := agents[i].Name
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", name, out.Content))
		metrics.Add(out.Metrics)
		generatedFiles = append(generatedFiles, out.GeneratedFiles...)
		if out.Status == domain.StageStatusFailed {
			status = domain.StageStatusFailed
			if out.ErrorMessage != "" {
				errMessages = append(errMessages, out.ErrorMessage)
			}
		}
	}

	return &domain.StageOutput{
		StageName:      stageName,
		Status:         status,
		Content:        strings.Join(parts, "\n\n---\n\n"),
		Metrics:        metrics,
		GeneratedFiles: generatedFiles,
		ErrorMessage:   strings.Join(errMessages, "; "),
	}
}
