// Package workflowctx assembles the per-stage prompt context string and
// persists/reloads the Workflow Context aggregate, grounded on the
// teacher's context.ContextFormatter/BuildStageContext pattern
// (pkg/agent/context/formatter.go, stage_context.go) generalized from
// timeline events to completed stage outputs.
package workflowctx

import (
	"fmt"
	"strings"

	"github.com/nexusforge/buildengine/pkg/domain"
)

// DefaultTokenBudget is the default total context budget (§4.4).
const DefaultTokenBudget = 100_000

// CharsPerToken is the approximation used to convert the token budget into
// a character budget for string-length accounting.
const CharsPerToken = 4

// LocalDocs names the fixed per-project local documents consulted by
// context assembly, in the order they're appended (§4.8 supplement).
var LocalDocs = []string{"requirements.md", "architecture.md"}

// Assembler builds the context string handed to the LLM invoker for one
// stage, following §4.4's template and budget-splitting rules exactly.
type Assembler struct {
	TokenBudget int
}

// NewAssembler returns an Assembler using DefaultTokenBudget.
func NewAssembler() *Assembler {
	return &Assembler{TokenBudget: DefaultTokenBudget}
}

func (a *Assembler) charBudget() int {
	budget := a.TokenBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	return budget * CharsPerToken
}

// BuildContext assembles the context string for stageName, including only
// prerequisites of stageName that completed, splitting remaining budget
// equally among included prerequisites (summarizing any over its share),
// then equally among local documents, with a final hard safety truncation.
func (a *Assembler) BuildContext(wc *domain.WorkflowContext, stageName string, localDocs map[string]string) (string, error) {
	prereqs, err := wc.PrerequisitesOf(stageName)
	if err != nil {
		return "", err
	}

	var header strings.Builder
	if wc.Rules != "" {
		header.WriteString(wc.Rules)
		header.WriteString("\n")
	}
	if wc.ProjectName != "" {
		header.WriteString(fmt.Sprintf("Project name: %q. Keep all generated artifacts consistent with this name.\n", wc.ProjectName))
	}
	if wc.Intent != nil && wc.Intent.Detected {
		header.WriteString(formatIntent(wc.Intent))
		header.WriteString("\n")
	}
	header.WriteString(wc.Requirement)
	header.WriteString("\n")

	budget := a.charBudget() - header.Len()
	if budget < 0 {
		budget = 0
	}

	var included []string
	for _, name := range prereqs {
		out, ok := wc.StageOutputs[name]
		if !ok || out.Status != domain.StageStatusCompleted {
			continue
		}
		included = append(included, name)
	}

	var docNames []string
	for _, name := range LocalDocs {
		if content, ok := localDocs[name]; ok && content != "" {
			docNames = append(docNames, name)
		}
	}

	var sb strings.Builder
	sb.WriteString(header.String())

	var stages strings.Builder
	if len(included) > 0 {
		perStage := budget / len(included)

		for _, name := range included {
			out := wc.StageOutputs[name]
			content := out.Content
			if len(content) > perStage {
				content = summarize(content, perStage)
			}
			stages.WriteString("===\n")
			stages.WriteString(fmt.Sprintf("%s Agent: %s\n", displayAgentName(name), content))
		}
	}
	sb.WriteString(stages.String())

	if len(docNames) > 0 {
		docBudget := budget - stages.Len()
		if docBudget < 0 {
			docBudget = 0
		}
		perDoc := docBudget / len(docNames)

		sb.WriteString("## Local Documents\n")
		for _, name := range docNames {
			content := localDocs[name]
			if len(content) > perDoc {
				content = summarize(content, perDoc)
			}
			sb.WriteString(fmt.Sprintf("### %s\n%s\n", name, content))
		}
	}

	result := sb.String()
	max := a.charBudget()
	if len(result) > max {
		result = result[:max]
	}
	return result, nil
}

func displayAgentName(stageName string) string {
	words := strings.Split(strings.ReplaceAll(stageName, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatIntent(intent *domain.IntentRecognitionResult) string {
	return fmt.Sprintf("Intent analysis: category=%s confidence=%.2f notes=%s",
		intent.Category, intent.Confidence, intent.Notes)
}
