package domain

// WorkflowType selects which stage catalog a Project runs.
type WorkflowType string

const (
	WorkflowTypeAgentBuild  WorkflowType = "agent_build"
	WorkflowTypeAgentUpdate WorkflowType = "agent_update"
	WorkflowTypeToolBuild   WorkflowType = "tool_build"
)

// IsValid reports whether the workflow type is one of the known values.
func (t WorkflowType) IsValid() bool {
	switch t {
	case WorkflowTypeAgentBuild, WorkflowTypeAgentUpdate, WorkflowTypeToolBuild:
		return true
	default:
		return false
	}
}

// ProjectStatus is the execution state of a Project.
type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "pending"
	ProjectStatusQueued    ProjectStatus = "queued"
	ProjectStatusBuilding  ProjectStatus = "building"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusFailed    ProjectStatus = "failed"
	ProjectStatusPaused    ProjectStatus = "paused"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// IsTerminal reports whether the status only permits tags/error_info mutation.
func (s ProjectStatus) IsTerminal() bool {
	switch s {
	case ProjectStatusCompleted, ProjectStatusFailed, ProjectStatusCancelled:
		return true
	default:
		return false
	}
}

// ControlStatus is the user-requested execution intent, independent of
// ProjectStatus and writer-exclusive to the control path.
type ControlStatus string

const (
	ControlStatusRunning   ControlStatus = "running"
	ControlStatusPaused    ControlStatus = "paused"
	ControlStatusStopped   ControlStatus = "stopped"
	ControlStatusCancelled ControlStatus = "cancelled"
)

// StageStatus is the execution state of a single Stage.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// TaskType names the kind of work a Task's payload describes.
type TaskType string

const (
	TaskTypeBuildAgent  TaskType = "build_agent"
	TaskTypeUpdateAgent TaskType = "update_agent"
	TaskTypeBuildTool   TaskType = "build_tool"
	TaskTypeDeployAgent TaskType = "deploy_agent"
)

// TaskStatus is the lifecycle state of a queued Task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the task status is final.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskAction tells the Workflow Engine how to enter a Task's project.
type TaskAction string

const (
	TaskActionExecute TaskAction = "execute"
	TaskActionResume  TaskAction = "resume"
	TaskActionRestart TaskAction = "restart"
)

// AgentDeploymentStatus is the last-known status of a deployed artifact.
type AgentDeploymentStatus string

const (
	AgentDeploymentStatusOffline AgentDeploymentStatus = "offline"
	AgentDeploymentStatusRunning AgentDeploymentStatus = "running"
	AgentDeploymentStatusFailed  AgentDeploymentStatus = "failed"
)

// FinalStatus is the terminal outcome reported by the Workflow Engine from a
// single public entry point invocation. It is the Result-like control value
// named in the design notes — no exceptions cross this boundary.
type FinalStatus string

const (
	FinalStatusCompleted FinalStatus = "completed"
	FinalStatusFailed    FinalStatus = "failed"
	FinalStatusPaused    FinalStatus = "paused"
	FinalStatusStopped   FinalStatus = "stopped"
)
