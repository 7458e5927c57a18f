// Package executor runs a single stage's single-agent path: resolve the
// prompt template, assemble or accept an input context, invoke the LLM,
// scan the project directory for generated files, and extract the stage's
// canonical document. N-agent fan-out within one stage is reduced to the
// single call each agent makes; the fan-out itself belongs to
// pkg/multiagent, which calls ExecuteSingleAgent once per discovered
// subagent.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/nexusforge/buildengine/pkg/blob"
	"github.com/nexusforge/buildengine/pkg/config"
	"github.com/nexusforge/buildengine/pkg/domain"
	"github.com/nexusforge/buildengine/pkg/llmclient"
	"github.com/nexusforge/buildengine/pkg/workflowctx"
)

// fileScanner is the narrow surface Executor needs to discover files the
// LLM's tool calls wrote to the project directory during a stage run.
// *blob.SyncManager satisfies this directly.
type fileScanner interface {
	ScanProjectFiles(projectID string) ([]blob.FileMetadata, error)
}

// Executor runs the Stage Executor's single-agent path.
type Executor struct {
	Invoker   llmclient.Invoker
	Catalog   *config.StageCatalogRegistry
	Assembler *workflowctx.Assembler
	Scanner   fileScanner
}

// New returns an Executor wired to its collaborators. scanner may be nil,
// in which case generated files are never reported.
func New(invoker llmclient.Invoker, catalog *config.StageCatalogRegistry, assembler *workflowctx.Assembler, scanner fileScanner) *Executor {
	return &Executor{Invoker: invoker, Catalog: catalog, Assembler: assembler, Scanner: scanner}
}

// Request describes one non-iterative stage run.
type Request struct {
	WorkflowType domain.WorkflowType
	ProjectID    string
	ProjectName  string
	StageName    string

	// InputOverride bypasses context assembly when non-empty.
	InputOverride string
	// LocalDocs is only consulted when InputOverride is empty.
	LocalDocs map[string]string
	// State carries extra LLM state merged under project_id/project_name.
	State map[string]string
}

// ExecuteStage resolves req.StageName's prompt template, builds or accepts
// the input context, invokes the LLM, scans generated files, and extracts
// the stage's document. Unknown stage is a non-recoverable error.
func (e *Executor) ExecuteStage(ctx context.Context, wc *domain.WorkflowContext, req Request) (*domain.StageOutput, error) {
	stageCfg, err := e.Catalog.GetStage(string(req.WorkflowType), req.StageName)
	if err != nil {
		return nil, fmt.Errorf("executor: resolve stage %q: %w", req.StageName, err)
	}

	contextStr := req.InputOverride
	if contextStr == "" {
		contextStr, err = e.Assembler.BuildContext(wc, stageCfg.Name, req.LocalDocs)
		if err != nil {
			return nil, fmt.Errorf("executor: assemble context for %q: %w", stageCfg.Name, err)
		}
	}

	return e.invokeAndBuild(ctx, stageCfg, req.ProjectID, req.ProjectName, contextStr, req.State)
}

// ExecuteSingleAgent runs the single-agent path against an already-built
// context string. This is the Multi-Agent Iterator's per-subagent entry
// point: it augments the base context itself and calls straight through.
func (e *Executor) ExecuteSingleAgent(ctx context.Context, workflowType domain.WorkflowType, stageName, projectID, projectName, contextStr string, state map[string]string) (*domain.StageOutput, error) {
	stageCfg, err := e.Catalog.GetStage(string(workflowType), stageName)
	if err != nil {
		err = fmt.Errorf("executor: resolve stage %q: %w", stageName, err)
		return &domain.StageOutput{
			StageName:    stageName,
			Status:       domain.StageStatusFailed,
			ErrorMessage: err.Error(),
		}, err
	}
	return e.invokeAndBuild(ctx, stageCfg, projectID, projectName, contextStr, state)
}

func (e *Executor) invokeAndBuild(ctx context.Context, stageCfg *config.StageConfig, projectID, projectName, contextStr string, state map[string]string) (*domain.StageOutput, error) {
	augmented := make(map[string]string, len(state)+2)
	for k, v := range state {
		augmented[k] = v
	}
	augmented["project_id"] = projectID
	augmented["project_name"] = projectName

	start := time.Now()
	result, invokeErr := e.Invoker.Invoke(ctx, stageCfg.PromptTemplate, contextStr, augmented)
	elapsed := time.Since(start).Seconds()
	if invokeErr != nil {
		failed := &domain.StageOutput{
			StageName:    stageCfg.Name,
			Status:       domain.StageStatusFailed,
			Metrics:      domain.Metrics{WallTimeSecs: elapsed},
			ErrorMessage: invokeErr.Error(),
		}
		return failed, domain.NewStageExecutionError(stageCfg.Name, invokeErr)
	}

	metrics := domain.Metrics{
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		WallTimeSecs: elapsed,
		ToolCalls:    int64(len(result.ToolCalls)),
		ModelID:      result.ModelID,
	}

	generatedFiles := e.scanGeneratedFiles(projectID)
	docContent, docFormat := extractDocument(stageCfg.Name, result.Text)

	return &domain.StageOutput{
		StageName:       stageCfg.Name,
		Status:          domain.StageStatusCompleted,
		Content:         result.Text,
		Metrics:         metrics,
		GeneratedFiles:  generatedFiles,
		DocumentContent: docContent,
		DocumentFormat:  docFormat,
	}, nil
}

// scanGeneratedFiles is best-effort: a scan failure never fails the stage,
// it just reports no generated files (the LLM's text output still stands).
func (e *Executor) scanGeneratedFiles(projectID string) []domain.GeneratedFile {
	if e.Scanner == nil {
		return nil
	}
	files, err := e.Scanner.ScanProjectFiles(projectID)
	if err != nil || len(files) == 0 {
		return nil
	}
	generated := make([]domain.GeneratedFile, len(files))
	for i, f := range files {
		generated[i] = domain.GeneratedFile{
			Path:         f.Path,
			Size:         f.Size,
			Checksum:     f.Checksum,
			LastModified: f.LastModified,
		}
	}
	return generated
}
