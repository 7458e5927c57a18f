package executor

import (
	"encoding/json"
	"regexp"
	"strings"
)

// DocumentExtractor derives a stage's canonical document from its raw LLM
// output text, returning (content, format).
type DocumentExtractor func(output string) (content, format string)

// documentExtractors is keyed by canonical stage name. A stage absent from
// this map falls back to extractWholeOutput.
var documentExtractors = map[string]DocumentExtractor{
	"requirements_analysis": extractRawText,
	"agent_design":          extractRawText,
	"system_architecture":   extractFirstJSONBlock,

	// These three stages produce the structured artifacts the Deployment
	// Service materializes into a build recipe (pkg/deploy): per-agent JSON
	// documents (agent_code_developer, prompt_engineer, tools_developer)
	// read back for artifact extraction.
	"agent_code_developer": extractFirstJSONBlock,
	"prompt_engineer":      extractFirstJSONBlock,
	"tools_developer":      extractFirstJSONBlock,
}

func extractDocument(stageName, output string) (string, string) {
	if fn, ok := documentExtractors[stageName]; ok {
		return fn(output)
	}
	return extractWholeOutput(output)
}

func extractRawText(output string) (string, string) {
	return output, "markdown"
}

func extractWholeOutput(output string) (string, string) {
	return output, "markdown"
}

var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// extractFirstJSONBlock pulls the first ```json fenced block out of output.
// A missing fence, an empty fence, or content that doesn't parse as JSON all
// fall back to treating the whole output as markdown.
func extractFirstJSONBlock(output string) (string, string) {
	m := jsonFenceRe.FindStringSubmatch(output)
	if m == nil {
		return output, "markdown"
	}
	content := strings.TrimSpace(m[1])
	if content == "" || !json.Valid([]byte(content)) {
		return output, "markdown"
	}
	return content, "json"
}
