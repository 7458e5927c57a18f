// Package multiagent discovers a project's multi-agent architecture from a
// completed system_architecture stage output and fans the four structurally
// per-subagent stages (agent_design, tools_developer, prompt_engineer,
// agent_code_developer) out over the discovered subagents, grounded on
// original_source/nexus_utils/workflow/multi_agent.py's MultiAgentIterator.
package multiagent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Subagent is one discovered component of a multi-agent architecture.
type Subagent struct {
	Name                 string
	Type                 string
	Description          string
	OrchestrationPattern string
	Dependencies         []string
	Tools                []string
	IsMain               bool
}

// Architecture is the parsed shape of a multi-agent system_architecture
// stage output.
type Architecture struct {
	Subagents            []Subagent
	OrchestrationPattern string // agent_as_tool (default), swarm, or graph
	MainAgent            string
}

// DiscoverArchitecture parses a completed system_architecture stage's raw
// output, trying the JSON dialect first and falling back to markdown
// patterns, stopping at the first that yields more than one agent. Returns
// (nil, false) when the project is single-agent.
func DiscoverArchitecture(content string) (*Architecture, bool) {
	if arch, ok := parseJSONArchitecture(content); ok {
		return arch, true
	}
	if arch, ok := parseMarkdownArchitecture(content); ok {
		return arch, true
	}
	return nil, false
}

// rawAgent accepts both the system-architecture JSON dialect ({name, type,
// description, orchestration_pattern, dependencies, tools}) and a
// StageAgentConfig-shaped dialect ({name, sub_agent_type, ...}) — the two
// only disagree on the type field's key.
type rawAgent struct {
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	SubAgentType         string   `json:"sub_agent_type"`
	Description          string   `json:"description"`
	OrchestrationPattern string   `json:"orchestration_pattern"`
	Dependencies         []string `json:"dependencies"`
	Tools                []string `json:"tools"`
}

type rawArchitecture struct {
	Agents               []rawAgent `json:"agents"`
	OrchestrationPattern string     `json:"orchestration_pattern"`
	MainAgent            string     `json:"main_agent"`
}

var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")

func parseJSONArchitecture(content string) (*Architecture, bool) {
	m := jsonFenceRe.FindStringSubmatch(content)
	if m == nil {
		return nil, false
	}

	var raw rawArchitecture
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &raw); err != nil {
		return nil, false
	}
	if len(raw.Agents) <= 1 {
		return nil, false
	}

	subs := make([]Subagent, len(raw.Agents))
	for i, a := range raw.Agents {
		typ := a.Type
		if typ == "" {
			typ = a.SubAgentType
		}
		if typ == "" {
			typ = "main"
		}
		pattern := a.OrchestrationPattern
		if pattern == "" {
			pattern = "agent_as_tool"
		}
		subs[i] = Subagent{
			Name:                 a.Name,
			Type:                 typ,
			Description:          a.Description,
			OrchestrationPattern: pattern,
			Dependencies:         a.Dependencies,
			Tools:                a.Tools,
		}
	}

	mainAgent := raw.MainAgent
	if mainAgent == "" {
		mainAgent = subs[0].Name
	}
	markMainAgent(subs, mainAgent)

	orchPattern := raw.OrchestrationPattern
	if orchPattern == "" {
		orchPattern = "agent_as_tool"
	}

	return &Architecture{Subagents: subs, OrchestrationPattern: orchPattern, MainAgent: mainAgent}, true
}

var (
	agentHeadingRe = regexp.MustCompile(`(?m)^##\s*Agent[:\s]+([a-zA-Z0-9_]+)\s*$`)
	anyHeadingRe   = regexp.MustCompile(`(?m)^##`)
	bulletRe       = regexp.MustCompile(`(?m)^-\s*\*\*([a-zA-Z0-9_]+)\*\*[:\s]*(.*)$`)
	tableRowRe     = regexp.MustCompile(`(?m)^\|\s*([a-zA-Z0-9_]+)\s*\|\s*(\w+)\s*\|\s*(.*?)\s*\|`)
)

const descriptionPreviewLen = 200

func parseMarkdownArchitecture(content string) (*Architecture, bool) {
	subs := parseHeadingSections(content)
	if len(subs) <= 1 {
		subs = parseBulletList(content)
	}
	if len(subs) <= 1 {
		subs = parseTableRows(content)
	}
	if len(subs) <= 1 {
		return nil, false
	}

	orchPattern := "agent_as_tool"
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "swarm"):
		orchPattern = "swarm"
	case strings.Contains(lower, "graph"):
		orchPattern = "graph"
	}

	mainAgent := ""
	for i := range subs {
		if subs[i].Type == "main" || strings.Contains(strings.ToLower(subs[i].Name), "main") {
			mainAgent = subs[i].Name
			break
		}
	}
	if mainAgent == "" {
		mainAgent = subs[0].Name
	}
	markMainAgent(subs, mainAgent)

	return &Architecture{Subagents: subs, OrchestrationPattern: orchPattern, MainAgent: mainAgent}, true
}

// parseHeadingSections matches `## Agent: <name>` headings, taking
// everything up to the next `##` heading (of any kind) as the description.
func parseHeadingSections(content string) []Subagent {
	matches := agentHeadingRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	var subs []Subagent
	for _, m := range matches {
		name := content[m[2]:m[3]]
		bodyStart := m[1]
		bodyEnd := len(content)
		if loc := anyHeadingRe.FindStringIndex(content[bodyStart:]); loc != nil {
			bodyEnd = bodyStart + loc[0]
		}
		desc := strings.TrimSpace(content[bodyStart:bodyEnd])
		if len(desc) > descriptionPreviewLen {
			desc = desc[:descriptionPreviewLen]
		}
		subs = append(subs, Subagent{Name: strings.TrimSpace(name), Description: desc})
	}
	return subs
}

// parseBulletList matches `- **<name>**: <description>` bullet lines.
func parseBulletList(content string) []Subagent {
	matches := bulletRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	subs := make([]Subagent, 0, len(matches))
	for _, m := range matches {
		desc := strings.TrimSpace(m[2])
		if len(desc) > descriptionPreviewLen {
			desc = desc[:descriptionPreviewLen]
		}
		subs = append(subs, Subagent{Name: strings.TrimSpace(m[1]), Description: desc})
	}
	return subs
}

// parseTableRows matches `| name | type | description |` markdown table
// rows, skipping the header row and the `---` separator row.
func parseTableRows(content string) []Subagent {
	matches := tableRowRe.FindAllStringSubmatch(content, -1)
	var subs []Subagent
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		switch strings.ToLower(name) {
		case "name", "agent", "---":
			continue
		}
		desc := strings.TrimSpace(m[3])
		if len(desc) > descriptionPreviewLen {
			desc = desc[:descriptionPreviewLen]
		}
		subs = append(subs, Subagent{
			Name:        name,
			Type:        strings.ToLower(strings.TrimSpace(m[2])),
			Description: desc,
		})
	}
	return subs
}

func markMainAgent(subs []Subagent, mainName string) {
	for i := range subs {
		if subs[i].Name == mainName {
			subs[i].IsMain = true
			subs[i].Type = "main"
		}
	}
}
