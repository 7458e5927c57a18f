package multiagent

import "testing"

func TestDiscoverArchitecture_JSONBlock(t *testing.T) {
	content := "Design notes\n```json\n" + `{
		"agents": [
			{"name": "planner", "type": "main", "description": "plans work", "dependencies": []},
			{"name": "coder", "type": "worker", "description": "writes code", "dependencies": ["planner"]}
		],
		"orchestration_pattern": "agent_as_tool",
		"main_agent": "planner"
	}` + "\n```\n"

	arch, ok := DiscoverArchitecture(content)
	if !ok {
		t.Fatalf("expected architecture to be discovered")
	}
	if len(arch.Subagents) != 2 {
		t.Fatalf("expected 2 subagents, got %d", len(arch.Subagents))
	}
	if arch.MainAgent != "planner" {
		t.Fatalf("expected main agent planner, got %q", arch.MainAgent)
	}
	if !arch.Subagents[0].IsMain {
		t.Fatalf("expected planner marked main")
	}
}

func TestDiscoverArchitecture_JSONBlock_SingleAgentReturnsFalse(t *testing.T) {
	content := "```json\n{\"agents\": [{\"name\": \"solo\"}]}\n```"
	_, ok := DiscoverArchitecture(content)
	if ok {
		t.Fatalf("expected single-agent architecture to report false")
	}
}

func TestDiscoverArchitecture_TeacherDialect_SubAgentType(t *testing.T) {
	content := "```json\n" + `{"agents": [
		{"name": "planner", "sub_agent_type": "main"},
		{"name": "coder", "sub_agent_type": "worker"}
	]}` + "\n```"

	arch, ok := DiscoverArchitecture(content)
	if !ok {
		t.Fatalf("expected architecture to be discovered")
	}
	if arch.Subagents[1].Type != "worker" {
		t.Fatalf("expected coder type worker, got %q", arch.Subagents[1].Type)
	}
}

func TestDiscoverArchitecture_MarkdownHeadings(t *testing.T) {
	content := `## System Overview
A two-agent system.

## Agent: planner
Plans the overall approach and breaks work into tasks.

## Agent: coder
Writes the implementation based on the plan.
`
	arch, ok := DiscoverArchitecture(content)
	if !ok {
		t.Fatalf("expected architecture to be discovered from markdown headings")
	}
	if len(arch.Subagents) != 2 {
		t.Fatalf("expected 2 subagents, got %d", len(arch.Subagents))
	}
	if arch.Subagents[0].Name != "planner" || arch.Subagents[1].Name != "coder" {
		t.Fatalf("unexpected subagent names: %+v", arch.Subagents)
	}
}

func TestDiscoverArchitecture_MarkdownBulletList(t *testing.T) {
	content := "Agents:\n- **planner**: plans the work\n- **coder**: writes the code\n"
	arch, ok := DiscoverArchitecture(content)
	if !ok {
		t.Fatalf("expected architecture to be discovered from bullet list")
	}
	if len(arch.Subagents) != 2 {
		t.Fatalf("expected 2 subagents, got %d", len(arch.Subagents))
	}
}

func TestDiscoverArchitecture_MarkdownTable(t *testing.T) {
	content := "| Name | Type | Description |\n| --- | --- | --- |\n| planner | main | plans work |\n| coder | worker | writes code |\n"
	arch, ok := DiscoverArchitecture(content)
	if !ok {
		t.Fatalf("expected architecture to be discovered from table rows")
	}
	if len(arch.Subagents) != 2 {
		t.Fatalf("expected 2 subagents, got %d", len(arch.Subagents))
	}
	if arch.Subagents[0].Type != "main" {
		t.Fatalf("expected planner type main, got %q", arch.Subagents[0].Type)
	}
}

func TestDiscoverArchitecture_SwarmPatternDetected(t *testing.T) {
	content := "Using a swarm pattern.\n- **a**: one\n- **b**: two\n"
	arch, ok := DiscoverArchitecture(content)
	if !ok {
		t.Fatalf("expected architecture discovery")
	}
	if arch.OrchestrationPattern != "swarm" {
		t.Fatalf("expected swarm pattern, got %q", arch.OrchestrationPattern)
	}
}

func TestDiscoverArchitecture_SingleAgentPlainTextReturnsFalse(t *testing.T) {
	_, ok := DiscoverArchitecture("This is a single-agent architecture description with no agent list.")
	if ok {
		t.Fatalf("expected no architecture to be discovered")
	}
}
