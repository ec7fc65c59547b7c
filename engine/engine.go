package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultEngineId = "default-engine" // Default ID of an engine, used when no specific ID is provided via [Options].
)

// An Engine creates, executes and manages process instances, based on a
// declarative process graph. It moves tokens through the graph, creates work
// items at task nodes, branches and joins at gateway nodes and evaluates
// edge conditions against the process instance variables.
type Engine interface {
	// CompleteTask completes a created or locked task, merges the task result
	// into the process instance variables and continues the execution of the
	// parked token.
	CompleteTask(context.Context, CompleteTaskCmd) (Task, error)

	// CreateProcessInstance creates and starts an instance of a deployed and
	// enabled process in a specific version.
	CreateProcessInstance(context.Context, CreateProcessInstanceCmd) (ProcessInstance, error)

	// CreateQuery creates a query with default options.
	CreateQuery() Query

	// DeleteProcessInstance deletes an ended process instance.
	//
	// The deletion fails with an error of type [ErrorConflict] when the
	// process instance is still running. Child instances are deleted first.
	DeleteProcessInstance(context.Context, DeleteProcessInstanceCmd) error

	// DeployProcess deploys a process definition, using a process model that
	// is provided as JSON.
	//
	// If a process with the same definition ID and version exists, the model
	// is compared. When the model equals, the existing process is returned.
	// When the model differs, an error of type [ErrorConflict] is returned.
	DeployProcess(context.Context, DeployProcessCmd) (Process, error)

	// ExecuteProcess runs one execution wave over the active tokens of a
	// process instance. When no active token remains, the process instance
	// is completed.
	//
	// Waves are normally triggered by task completions or the engine's
	// process executor. Calls for the same process instance must be
	// serialized by the caller.
	ExecuteProcess(context.Context, ExecuteProcessCmd) error

	// GetExecutionTrace assembles events, activities and tokens of a process
	// instance into one audit snapshot.
	GetExecutionTrace(context.Context, GetExecutionTraceCmd) (ExecutionTrace, error)

	// GetProcessModel gets the JSON model of a deployed process.
	GetProcessModel(context.Context, GetProcessModelCmd) (string, error)

	// GetProcessVariables gets the variables of a process instance.
	GetProcessVariables(context.Context, GetProcessVariablesCmd) (map[string]any, error)

	// GetStats aggregates process instance counts per state and the mean
	// duration of completed process instances.
	GetStats(context.Context) (Stats, error)

	// LockTasks locks due tasks, which match the specified conditions, for
	// an external task worker.
	LockTasks(context.Context, LockTasksCmd) ([]Task, error)

	// ResumeProcessInstance resumes a suspended process instance and its
	// suspended tasks.
	ResumeProcessInstance(context.Context, ResumeProcessInstanceCmd) error

	// SetProcessEnabled enables or disables a deployed process. Instances of
	// a disabled process cannot be created.
	SetProcessEnabled(context.Context, SetProcessEnabledCmd) error

	// SetProcessVariables shallow-merges variables into the variable bag of
	// an active process instance.
	SetProcessVariables(context.Context, SetProcessVariablesCmd) error

	// SuspendProcessInstance suspends a running process instance and its
	// created tasks.
	SuspendProcessInstance(context.Context, SuspendProcessInstanceCmd) error

	// TerminateProcessInstance terminates a non-ended process instance,
	// cascades the termination to all of its tokens and cancels its tasks.
	TerminateProcessInstance(context.Context, TerminateProcessInstanceCmd) error

	// UnlockTasks unlocks locked, but uncompleted, tasks that are currently
	// locked by a specific worker.
	UnlockTasks(context.Context, UnlockTasksCmd) (int, error)

	// Shutdown shuts the engine down.
	Shutdown()
}

// A Query allows to query entities, using query options.
type Query interface {
	QueryActivities(context.Context, ActivityCriteria) ([]ActivityInstance, error)
	QueryEvents(context.Context, EventCriteria) ([]ProcessEvent, error)
	QueryProcesses(context.Context, ProcessCriteria) ([]Process, error)
	QueryProcessInstances(context.Context, ProcessInstanceCriteria) ([]ProcessInstance, error)
	QueryTasks(context.Context, TaskCriteria) ([]Task, error)
	QueryTokens(context.Context, TokenCriteria) ([]Token, error)

	// SetOptions sets options that are used when performing a query.
	SetOptions(QueryOptions)
}

// Options are common configuration options that are shared between engine implementations.
type Options struct {
	DefaultQueryLimit       int           // Default limit for queries, executed without an explicit limit.
	EngineId                string        // ID of the engine.
	EventBus                *EventBus     // Bus, the engine publishes its events on - optional.
	ProcessExecutorEnabled  bool          // Enables or disables the engine's process executor.
	ProcessExecutorInterval time.Duration // Interval between re-driving running process instances.
	ProcessExecutorLimit    int           // Maximum number of running process instances to re-drive at once.

	OnExecutionFailure func(ProcessInstance, error) // Called when the process executor failed to execute an instance.
}

func (o Options) Validate() error {
	if strings.TrimSpace(o.EngineId) == "" {
		return errors.New("engine ID must not be empty or blank")
	}
	if o.ProcessExecutorInterval.Milliseconds() < 1000 {
		return errors.New("process executor interval must be greater than or equal to 1000 ms")
	}
	if o.ProcessExecutorLimit < 1 {
		return errors.New("process executor limit must be greater than or equal to 1")
	}
	if o.ProcessExecutorLimit > 1000 {
		return errors.New("process executor limit must be less than or equal to 1000")
	}

	return nil
}

// QueryOptions are used to limit or offset query results.
// The zero value does not affect a query.
type QueryOptions struct {
	// Limit specifies the maximum number of results to return.
	// If Limit <= 0, the engine's DefaultQueryLimit is applied.
	Limit int
	// Offset specifies the number of results to skip, before returning any result.
	// If Offset <= 0, no results are skipped.
	Offset int
}

type Error struct {
	Type   ErrorType
	Title  string
	Detail string
	Causes []ErrorCause
}

func (e Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s: %s", e.Type, e.Title, e.Detail))

	for _, cause := range e.Causes {
		sb.WriteRune('\n')
		sb.WriteString(cause.String())
	}

	return sb.String()
}

type ErrorType int

const (
	ErrorBug ErrorType = iota + 1
	ErrorConflict
	ErrorNotFound
	ErrorProcessModel
	ErrorQuery
	ErrorValidation
)

func MapErrorType(s string) ErrorType {
	switch s {
	case "BUG":
		return ErrorBug
	case "CONFLICT":
		return ErrorConflict
	case "NOT_FOUND":
		return ErrorNotFound
	case "PROCESS_MODEL":
		return ErrorProcessModel
	case "QUERY":
		return ErrorQuery
	case "VALIDATION":
		return ErrorValidation
	default:
		return 0
	}
}

func (v ErrorType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v ErrorType) String() string {
	switch v {
	case ErrorBug:
		return "BUG"
	case ErrorConflict:
		return "CONFLICT"
	case ErrorNotFound:
		return "NOT_FOUND"
	case ErrorProcessModel:
		return "PROCESS_MODEL"
	case ErrorQuery:
		return "QUERY"
	case ErrorValidation:
		return "VALIDATION"
	default:
		return ""
	}
}

func (v *ErrorType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapErrorType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid error type data %s", s)
	}
	return nil
}

// An ErrorCause describes one concrete problem within a process model or a command.
type ErrorCause struct {
	Pointer string `json:"pointer"` // Pointer to the problematic node, edge or field.
	Type    string `json:"type"`    // Cause type - e.g. `node`, `edge`, `field`.
	Detail  string `json:"detail"`  // Human-readable description.
}

func (c ErrorCause) String() string {
	return fmt.Sprintf("%s: %s: %s", c.Pointer, c.Type, c.Detail)
}
