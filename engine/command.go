package engine

// CompleteTaskCmd provides data for the completion of a task.
type CompleteTaskCmd struct {
	// Task ID.
	Id int32 `json:"-"`

	// Result data, appended to the related activity instance.
	Result map[string]any `json:"result,omitempty"`
	// Variables to merge into the process instance variables.
	Variables map[string]any `json:"variables,omitempty"`
	// ID of the worker that completed the task.
	WorkerId string `json:"workerId" validate:"required"`
}

// CreateProcessInstanceCmd provides data for the creation of a process instance.
type CreateProcessInstanceCmd struct {
	// Definition ID of a deployed process.
	DefinitionId string `json:"definitionId" validate:"required"`
	// Version of a deployed process. If empty, the latest deployed version is used.
	Version string `json:"version,omitempty"`

	// Optional key, used to correlate the process instance with a business entity.
	BusinessKey string `json:"businessKey,omitempty"`
	// Starting variables, visible to condition expressions.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100"`
	// ID of the worker that created the process instance.
	WorkerId string `json:"workerId" validate:"required"`
}

// DeleteProcessInstanceCmd is a command for deleting an ended process instance.
type DeleteProcessInstanceCmd struct {
	// Process instance ID.
	Id int32 `json:"-"`
}

// DeployProcessCmd provides data for the deployment of a process definition.
type DeployProcessCmd struct {
	// ID of the process definition within the model.
	DefinitionId string `json:"definitionId" validate:"required"`
	// Process model as JSON.
	Model string `json:"model" validate:"required"`
	// Any process version.
	Version string `json:"version" validate:"required"`
	// ID of the worker that deployed the process.
	WorkerId string `json:"workerId" validate:"required"`
}

// ExecuteProcessCmd specifies which process instance is executed.
type ExecuteProcessCmd struct {
	// Process instance ID.
	ProcessInstanceId int32 `json:"-"`
}

// GetExecutionTraceCmd is used to get the audit snapshot of a process instance.
type GetExecutionTraceCmd struct {
	// Process instance ID.
	ProcessInstanceId int32 `json:"-"`
}

// GetProcessModelCmd is a command for fetching the JSON model of a deployed process.
type GetProcessModelCmd struct {
	// Process ID.
	ProcessId int32 `json:"-"`
}

// GetProcessVariablesCmd is used to get the variables of a specific process instance.
type GetProcessVariablesCmd struct {
	// Process instance ID.
	ProcessInstanceId int32 `json:"-"`

	// Names of process variables to get.
	// If empty, all variables are included.
	Names []string `json:"-"`
}

// LockTasksCmd specifies which due tasks are locked by a worker.
type LockTasksCmd struct {
	// Task condition.
	Id int32 `json:"id,omitempty"`

	// Process instance condition.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"`

	// Assignee condition.
	Assignee string `json:"assignee,omitempty"`
	// Candidate group condition.
	CandidateGroup string `json:"candidateGroup,omitempty"`
	// Node condition.
	NodeId string `json:"nodeId,omitempty"`

	// Maximum number of tasks to lock.
	Limit int `json:"limit,omitempty" validate:"gte=1,lte=1000"`
	// ID of the worker that locks the tasks.
	WorkerId string `json:"workerId" validate:"required"`
}

// ResumeProcessInstanceCmd is a command for resuming a suspended process instance.
type ResumeProcessInstanceCmd struct {
	// Process instance ID.
	Id int32 `json:"-"`

	// ID of the worker that resumed the process instance.
	WorkerId string `json:"workerId" validate:"required"`
}

// SetProcessEnabledCmd enables or disables a deployed process.
type SetProcessEnabledCmd struct {
	// Process ID.
	ProcessId int32 `json:"-"`

	// Determines if instances of the process can be created.
	Enabled bool `json:"enabled"`
	// ID of the worker that changed the process.
	WorkerId string `json:"workerId" validate:"required"`
}

// SetProcessVariablesCmd provides variables to merge into a process instance.
type SetProcessVariablesCmd struct {
	// Process instance ID.
	ProcessInstanceId int32 `json:"-"`

	// Variables to shallow-merge into the variable bag.
	Variables map[string]any `json:"variables" validate:"required,max=100"`
	// ID of the worker that set the variables.
	WorkerId string `json:"workerId" validate:"required"`
}

// SuspendProcessInstanceCmd is a command for suspending a running process instance.
type SuspendProcessInstanceCmd struct {
	// Process instance ID.
	Id int32 `json:"-"`

	// ID of the worker that suspended the process instance.
	WorkerId string `json:"workerId" validate:"required"`
}

// TerminateProcessInstanceCmd is a command for terminating a non-ended process instance.
type TerminateProcessInstanceCmd struct {
	// Process instance ID.
	Id int32 `json:"-"`

	// Optional reason, recorded in the event log and on skipped activities.
	Reason string `json:"reason,omitempty"`
	// ID of the worker that terminated the process instance.
	WorkerId string `json:"workerId" validate:"required"`
}

// UnlockTasksCmd specifies which locked tasks are unlocked.
type UnlockTasksCmd struct {
	// Process instance condition.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"`

	// ID of the worker that currently holds the locks.
	WorkerId string `json:"workerId" validate:"required"`
}
