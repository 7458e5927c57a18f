package config

// BuiltinConfig groups the configuration shipped with the binary, merged
// under user-supplied YAML at load time.
type BuiltinConfig struct {
	StageCatalog         map[string]WorkflowCatalogConfig
	DefaultWorkflowType  string
	DefaultMaxIterations int
	DefaultMaxRetryCount int
}

// GetBuiltinConfig returns the built-in stage catalog for all three
// workflow types, usable out of the box when no user stage catalog is
// supplied. agent_build's nine-stage chain is the reference pipeline
// (architecture -> per-component design -> code generation ->
// deployment); agent_update and tool_build are lighter variants of the
// same shape.
func GetBuiltinConfig() *BuiltinConfig {
	return &BuiltinConfig{
		StageCatalog: map[string]WorkflowCatalogConfig{
			"agent_build": {
				Description: "Full agent build: requirements through deployment",
				Stages: []StageConfig{
					stage("requirements_analysis", "Requirements Analysis", "requirements_analysis.tmpl", false, "analyst"),
					stage("system_architecture", "System Architecture", "system_architecture.tmpl", false, "architect"),
					stage("agent_design", "Agent Design", "agent_design.tmpl", true, "agent_designer"),
					stage("tools_developer", "Tools Development", "tools_developer.tmpl", true, "tools_developer"),
					stage("prompt_engineer", "Prompt Engineering", "prompt_engineer.tmpl", true, "prompt_engineer"),
					stage("agent_code_developer", "Agent Code Development", "agent_code_developer.tmpl", true, "code_developer"),
					stage("integration_testing", "Integration Testing", "integration_testing.tmpl", false, "tester"),
					stage("review", "Review", "review.tmpl", false, "reviewer"),
					stage("deployment", "Deployment", "deployment.tmpl", false, "deployer"),
				},
			},
			"agent_update": {
				Description: "Targeted update to an existing agent's design and code",
				Stages: []StageConfig{
					stage("requirements_analysis", "Requirements Analysis", "requirements_analysis.tmpl", false, "analyst"),
					stage("system_architecture", "System Architecture", "system_architecture.tmpl", false, "architect"),
					stage("agent_design", "Agent Design", "agent_design.tmpl", true, "agent_designer"),
					stage("agent_code_developer", "Agent Code Development", "agent_code_developer.tmpl", true, "code_developer"),
					stage("review", "Review", "review.tmpl", false, "reviewer"),
					stage("deployment", "Deployment", "deployment.tmpl", false, "deployer"),
				},
			},
			"tool_build": {
				Description: "Standalone tool build: design, implement, review, deploy",
				Stages: []StageConfig{
					stage("requirements_analysis", "Requirements Analysis", "requirements_analysis.tmpl", false, "analyst"),
					stage("tool_design", "Tool Design", "tool_design.tmpl", false, "tool_designer"),
					stage("tool_code_developer", "Tool Code Development", "tool_code_developer.tmpl", false, "code_developer"),
					stage("review", "Review", "review.tmpl", false, "reviewer"),
					stage("deployment", "Deployment", "deployment.tmpl", false, "deployer"),
				},
			},
		},
		DefaultWorkflowType:  "agent_build",
		DefaultMaxIterations: 10,
		DefaultMaxRetryCount: 3,
	}
}

func stage(name, displayName, promptTemplate string, iterative bool, agentName string) StageConfig {
	return StageConfig{
		Name:           name,
		DisplayName:    displayName,
		PromptTemplate: promptTemplate,
		Iterative:      iterative,
		Agents:         []StageAgentConfig{{Name: agentName}},
		SuccessPolicy:  SuccessPolicyAny,
	}
}
