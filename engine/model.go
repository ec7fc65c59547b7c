package engine

import (
	"fmt"
	"time"

	"github.com/jvollmer/go-flow/definition"
)

// InstanceState describes possible process instance states.
//
// A running instance can become suspended, completed, terminated or error.
// A suspended instance can be resumed or terminated.
// Completed and terminated are terminal states.
type InstanceState int

const (
	InstanceCompleted InstanceState = iota + 1
	InstanceError
	InstanceRunning
	InstanceSuspended
	InstanceTerminated
)

func MapInstanceState(s string) InstanceState {
	switch s {
	case "COMPLETED":
		return InstanceCompleted
	case "ERROR":
		return InstanceError
	case "RUNNING":
		return InstanceRunning
	case "SUSPENDED":
		return InstanceSuspended
	case "TERMINATED":
		return InstanceTerminated
	default:
		return 0
	}
}

// IsEnded determines if the state is terminal.
func (v InstanceState) IsEnded() bool {
	return v == InstanceCompleted || v == InstanceTerminated
}

func (v InstanceState) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v InstanceState) String() string {
	switch v {
	case InstanceCompleted:
		return "COMPLETED"
	case InstanceError:
		return "ERROR"
	case InstanceRunning:
		return "RUNNING"
	case InstanceSuspended:
		return "SUSPENDED"
	case InstanceTerminated:
		return "TERMINATED"
	default:
		return ""
	}
}

func (v *InstanceState) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapInstanceState(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid instance state data %s", s)
	}
	return nil
}

// TokenState describes possible token states.
//
//   - [TokenActive]: the token is processed by execution waves
//   - [TokenWaiting]: the token is parked at a joining gateway
//   - [TokenCompleted]: the token reached an end node, was forked or was consumed by a join
//   - [TokenTerminated]: the token was terminated, e.g. due to a process instance termination
type TokenState int

const (
	TokenActive TokenState = iota + 1
	TokenCompleted
	TokenTerminated
	TokenWaiting
)

func MapTokenState(s string) TokenState {
	switch s {
	case "ACTIVE":
		return TokenActive
	case "COMPLETED":
		return TokenCompleted
	case "TERMINATED":
		return TokenTerminated
	case "WAITING":
		return TokenWaiting
	default:
		return 0
	}
}

func (v TokenState) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v TokenState) String() string {
	switch v {
	case TokenActive:
		return "ACTIVE"
	case TokenCompleted:
		return "COMPLETED"
	case TokenTerminated:
		return "TERMINATED"
	case TokenWaiting:
		return "WAITING"
	default:
		return ""
	}
}

func (v *TokenState) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapTokenState(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid token state data %s", s)
	}
	return nil
}

// ActivityState describes possible activity instance states.
type ActivityState int

const (
	ActivityActive ActivityState = iota + 1
	ActivityCompleted
	ActivitySkipped
	ActivityWaiting
)

func MapActivityState(s string) ActivityState {
	switch s {
	case "ACTIVE":
		return ActivityActive
	case "COMPLETED":
		return ActivityCompleted
	case "SKIPPED":
		return ActivitySkipped
	case "WAITING":
		return ActivityWaiting
	default:
		return 0
	}
}

func (v ActivityState) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v ActivityState) String() string {
	switch v {
	case ActivityActive:
		return "ACTIVE"
	case ActivityCompleted:
		return "COMPLETED"
	case ActivitySkipped:
		return "SKIPPED"
	case ActivityWaiting:
		return "WAITING"
	default:
		return ""
	}
}

func (v *ActivityState) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapActivityState(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid activity state data %s", s)
	}
	return nil
}

// TaskState describes possible task states.
type TaskState int

const (
	TaskCanceled TaskState = iota + 1
	TaskCompleted
	TaskCreated
	TaskLocked
	TaskSuspended
)

func MapTaskState(s string) TaskState {
	switch s {
	case "CANCELED":
		return TaskCanceled
	case "COMPLETED":
		return TaskCompleted
	case "CREATED":
		return TaskCreated
	case "LOCKED":
		return TaskLocked
	case "SUSPENDED":
		return TaskSuspended
	default:
		return 0
	}
}

func (v TaskState) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v TaskState) String() string {
	switch v {
	case TaskCanceled:
		return "CANCELED"
	case TaskCompleted:
		return "COMPLETED"
	case TaskCreated:
		return "CREATED"
	case TaskLocked:
		return "LOCKED"
	case TaskSuspended:
		return "SUSPENDED"
	default:
		return ""
	}
}

func (v *TaskState) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapTaskState(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid task state data %s", s)
	}
	return nil
}

// Process represents a deployed process definition.
// Once deployed, a process is never mutated - new versions are new processes.
type Process struct {
	Id int32 `json:"id" validate:"required"` // Process ID.

	DefinitionId string    `json:"definitionId" validate:"required"` // ID of the process definition within the model.
	Name         string    `json:"name,omitempty"`                   // Process name within the model.
	Version      string    `json:"version" validate:"required"`      // Process version.
	IsEnabled    bool      `json:"enabled"`                          // Determines if instances can be created.
	CreatedAt    time.Time `json:"createdAt" validate:"required"`    // Deployment time.
	CreatedBy    string    `json:"createdBy" validate:"required"`    // ID of the worker that deployed the process.
}

func (v Process) String() string {
	return fmt.Sprintf("%d:%s:%s", v.Id, v.DefinitionId, v.Version)
}

// ProcessCriteria specifies the results, returned by a process query.
type ProcessCriteria struct {
	Id int32 `json:"id,omitempty"` // Process filter.

	DefinitionId string `json:"definitionId,omitempty"` // Definition ID filter.
	Version      string `json:"version,omitempty"`      // Version filter.
}

// ProcessInstance is one execution of a deployed process.
type ProcessInstance struct {
	Id int32 `json:"id" validate:"required"` // Process instance ID.

	ParentId int32 `json:"parentId,omitempty"` // ID of the parent process instance.
	RootId   int32 `json:"rootId,omitempty"`   // ID of the root process instance.

	ProcessId int32 `json:"processId" validate:"required"` // ID of the deployed process.

	DefinitionId string         `json:"definitionId" validate:"required"` // ID of the process definition within the model.
	Version      string         `json:"version" validate:"required"`     // Process version.
	BusinessKey  string         `json:"businessKey,omitempty"`           // Key, used to correlate the instance with a business entity.
	CreatedAt    time.Time      `json:"createdAt" validate:"required"`   // Creation time.
	CreatedBy    string         `json:"createdBy" validate:"required"`   // ID of the worker or engine that created the instance.
	EndedAt      *time.Time     `json:"endedAt,omitempty"`               // End time - set when the instance is completed or terminated.
	StartedAt    *time.Time     `json:"startedAt,omitempty"`             // Start time.
	State        InstanceState  `json:"state" validate:"required"`       // Current state.
	Variables    map[string]any `json:"variables,omitempty"`             // Variable bag, visible to condition expressions.
	CurrentNodes []string       `json:"currentNodes,omitempty"`          // Cached IDs of nodes that are occupied by non-ended tokens.
}

func (v ProcessInstance) HasParent() bool {
	return v.ParentId != 0
}

func (v ProcessInstance) IsEnded() bool {
	return v.EndedAt != nil
}

func (v ProcessInstance) String() string {
	return fmt.Sprintf("%d:%s", v.Id, v.DefinitionId)
}

// ProcessInstanceCriteria specifies the results, returned by a process instance query.
type ProcessInstanceCriteria struct {
	Id int32 `json:"id,omitempty"` // Process instance filter.

	ParentId  int32 `json:"parentId,omitempty"`  // Parent instance filter.
	ProcessId int32 `json:"processId,omitempty"` // Process filter.

	BusinessKey  string          `json:"businessKey,omitempty"`                    // Business key filter.
	CreatedBy    string          `json:"createdBy,omitempty"`                      // Creator filter.
	DefinitionId string          `json:"definitionId,omitempty"`                   // Definition ID filter.
	States       []InstanceState `json:"states,omitempty" validate:"max=5,unique"` // States to include.
}

// A Token is the unit of control flow within a process instance.
//
// Tokens form a tree: a parallel or inclusive gateway fork produces one child
// token per taken edge and completes the forking token.
type Token struct {
	Id int32 `json:"id" validate:"required"` // Token ID.

	ProcessInstanceId int32 `json:"processInstanceId" validate:"required"` // ID of the enclosing process instance.

	ParentId int32   `json:"parentId,omitempty"` // ID of the parent token - set for forked tokens.
	ChildIds []int32 `json:"childIds,omitempty"` // IDs of child tokens, created at forks.

	NodeId    string         `json:"nodeId" validate:"required"`    // ID of the currently occupied node.
	State     TokenState     `json:"state" validate:"required"`     // Current state.
	Data      map[string]any `json:"data,omitempty"`                // Private data bag, cloned from the parent at fork time.
	CreatedAt time.Time      `json:"createdAt" validate:"required"` // Creation time.
	CreatedBy string         `json:"createdBy" validate:"required"` // ID of the engine that created the token.
	EndedAt   *time.Time     `json:"endedAt,omitempty"`             // End time - set when the token is completed or terminated.
}

func (v Token) HasParent() bool {
	return v.ParentId != 0
}

func (v Token) IsEnded() bool {
	return v.EndedAt != nil
}

func (v Token) String() string {
	return fmt.Sprintf("%d@%s", v.Id, v.NodeId)
}

// TokenCriteria specifies the results, returned by a token query.
type TokenCriteria struct {
	Id int32 `json:"id,omitempty"` // Token filter.

	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // Process instance filter.
	ParentId          int32 `json:"parentId,omitempty"`          // Parent token filter.

	NodeId string       `json:"nodeId,omitempty"`                         // Node filter.
	States []TokenState `json:"states,omitempty" validate:"max=4,unique"` // States to include.
}

// An ActivityInstance is an audit record of a unit of work performed at a
// node - distinct from the token that triggered it.
// Once completed, it is immutable except for appended result data.
type ActivityInstance struct {
	Id int32 `json:"id" validate:"required"` // Activity instance ID.

	ProcessInstanceId int32 `json:"processInstanceId" validate:"required"` // ID of the enclosing process instance.
	TokenId           int32 `json:"tokenId,omitempty"`                     // ID of the triggering token.

	NodeId    string              `json:"nodeId" validate:"required"`    // ID of the related node.
	Name      string              `json:"name,omitempty"`                // Node name within the model.
	Type      definition.NodeType `json:"type" validate:"required"`      // Node type.
	State     ActivityState       `json:"state" validate:"required"`     // Current state.
	CreatedAt time.Time           `json:"createdAt" validate:"required"` // Creation time.
	StartedAt *time.Time          `json:"startedAt,omitempty"`           // Start time.
	EndedAt   *time.Time          `json:"endedAt,omitempty"`             // End time.
	Duration  time.Duration       `json:"duration,omitempty"`            // End time minus start time - set when the activity ended.
	Executor  string              `json:"executor,omitempty"`            // ID of the worker that performed the work.
	Result    map[string]any      `json:"result,omitempty"`              // Arbitrary result data.
}

func (v ActivityInstance) IsEnded() bool {
	return v.EndedAt != nil
}

func (v ActivityInstance) String() string {
	return fmt.Sprintf("%d@%s", v.Id, v.NodeId)
}

// ActivityCriteria specifies the results, returned by an activity query.
type ActivityCriteria struct {
	Id int32 `json:"id,omitempty"` // Activity instance filter.

	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // Process instance filter.

	NodeId string          `json:"nodeId,omitempty"`                         // Node filter.
	States []ActivityState `json:"states,omitempty" validate:"max=4,unique"` // States to include.
}

// A ProcessEvent is an append-only audit log entry of a process instance.
// Events are never mutated or deleted.
type ProcessEvent struct {
	Id int32 `json:"id" validate:"required"` // Event ID.

	ProcessInstanceId int32 `json:"processInstanceId" validate:"required"` // ID of the enclosing process instance.

	Type      string         `json:"type" validate:"required"`      // Event type tag - e.g. `instance:created`.
	Data      map[string]any `json:"data,omitempty"`                // Arbitrary event data.
	CreatedAt time.Time      `json:"createdAt" validate:"required"` // Creation time.
}

func (v ProcessEvent) String() string {
	return fmt.Sprintf("%d:%s", v.Id, v.Type)
}

// EventCriteria specifies the results, returned by an event query.
// Events are always returned in insertion order.
type EventCriteria struct {
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // Process instance filter.

	Type string `json:"type,omitempty"` // Event type filter.
}

// A Task is a work item, created when a token enters a task node. It must be
// locked, executed and completed by an external task worker.
type Task struct {
	Id int32 `json:"id" validate:"required"` // Task ID.

	ProcessInstanceId  int32 `json:"processInstanceId" validate:"required"` // ID of the enclosing process instance.
	TokenId            int32 `json:"tokenId" validate:"required"`           // ID of the parked token.
	ActivityInstanceId int32 `json:"activityInstanceId,omitempty"`          // ID of the related activity instance.

	NodeId          string     `json:"nodeId" validate:"required"`    // ID of the related task node.
	Name            string     `json:"name,omitempty"`                // Node name within the model.
	Assignee        string     `json:"assignee,omitempty"`            // Assignee, taken from the task node.
	CandidateGroups []string   `json:"candidateGroups,omitempty"`     // Candidate groups, taken from the task node.
	State           TaskState  `json:"state" validate:"required"`     // Current state.
	CreatedAt       time.Time  `json:"createdAt" validate:"required"` // Creation time.
	CreatedBy       string     `json:"createdBy" validate:"required"` // ID of the engine that created the task.
	DueAt           time.Time  `json:"dueAt" validate:"required"`     // Point in time when the task can be locked by a worker.
	LockedAt        *time.Time `json:"lockedAt,omitempty"`            // Lock time.
	LockedBy        string     `json:"lockedBy,omitempty"`            // ID of the worker that locked the task.
	CompletedAt     *time.Time `json:"completedAt,omitempty"`         // Completion time.
	CompletedBy     string     `json:"completedBy,omitempty"`         // ID of the worker that completed the task.
}

func (v Task) IsCompleted() bool {
	return v.CompletedAt != nil
}

func (v Task) IsLocked() bool {
	return v.LockedAt != nil
}

func (v Task) String() string {
	return fmt.Sprintf("%d@%s", v.Id, v.NodeId)
}

// TaskCriteria specifies the results, returned by a task query.
type TaskCriteria struct {
	Id int32 `json:"id,omitempty"` // Task filter.

	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // Process instance filter.

	Assignee       string      `json:"assignee,omitempty"`                       // Assignee filter.
	CandidateGroup string      `json:"candidateGroup,omitempty"`                 // Candidate group filter.
	NodeId         string      `json:"nodeId,omitempty"`                         // Node filter.
	States         []TaskState `json:"states,omitempty" validate:"max=5,unique"` // States to include.
}

// An ExecutionTrace is an audit snapshot of one process instance - the
// principal debugging surface for a running or finished instance.
type ExecutionTrace struct {
	ProcessInstance ProcessInstance    `json:"processInstance"`
	Events          []ProcessEvent     `json:"events"`
	Activities      []ActivityInstance `json:"activities"`
	Tokens          []Token            `json:"tokens"`
}

// Stats aggregates process instance counts per state and the mean duration of
// completed process instances.
type Stats struct {
	ProcessCount int `json:"processCount"` // Number of deployed processes.

	CompletedCount  int `json:"completedCount"`
	ErrorCount      int `json:"errorCount"`
	RunningCount    int `json:"runningCount"`
	SuspendedCount  int `json:"suspendedCount"`
	TerminatedCount int `json:"terminatedCount"`

	MeanDuration time.Duration `json:"meanDuration"` // Mean duration of completed process instances.
}
