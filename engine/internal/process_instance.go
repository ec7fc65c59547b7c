package internal

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jvollmer/go-flow/engine"
)

type ProcessInstanceEntity struct {
	Id int32

	ParentId pgtype.Int4
	RootId   pgtype.Int4

	// Token of the parent instance that is parked at the subprocess node.
	ParentTokenId pgtype.Int4

	ProcessId int32

	BusinessKey  pgtype.Text
	CreatedAt    time.Time
	CreatedBy    string
	CurrentNodes pgtype.Text
	DefinitionId string
	EndedAt      pgtype.Timestamp
	StartedAt    pgtype.Timestamp
	State        engine.InstanceState
	Variables    pgtype.Text
	Version      string
}

func (e ProcessInstanceEntity) ProcessInstance() engine.ProcessInstance {
	return engine.ProcessInstance{
		Id: e.Id,

		ParentId: e.ParentId.Int32,
		RootId:   e.RootId.Int32,

		ProcessId: e.ProcessId,

		DefinitionId: e.DefinitionId,
		Version:      e.Version,
		BusinessKey:  e.BusinessKey.String,
		CreatedAt:    e.CreatedAt,
		CreatedBy:    e.CreatedBy,
		EndedAt:      timeOrNil(e.EndedAt),
		StartedAt:    timeOrNil(e.StartedAt),
		State:        e.State,
		Variables:    unmarshalVariables(e.Variables),
		CurrentNodes: unmarshalStrings(e.CurrentNodes),
	}
}

type ProcessInstanceRepository interface {
	Insert(*ProcessInstanceEntity) error
	Select(id int32) (*ProcessInstanceEntity, error)
	SelectByParent(parentId int32) ([]*ProcessInstanceEntity, error)
	Update(*ProcessInstanceEntity) error
	Delete(id int32) error

	Query(engine.ProcessInstanceCriteria, engine.QueryOptions) ([]engine.ProcessInstance, error)

	// Stats aggregates instance counts per state and the mean duration of
	// completed instances. The process count is left to the caller.
	Stats() (engine.Stats, error)
}

func selectProcessInstance(ctx Context, id int32, title string) (*ProcessInstanceEntity, error) {
	processInstance, err := ctx.ProcessInstances().Select(id)
	if err == pgx.ErrNoRows {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  title,
			Detail: fmt.Sprintf("process instance %d could not be found", id),
		}
	}
	if err != nil {
		return nil, err
	}
	return processInstance, nil
}

func CreateProcessInstance(ctx Context, cmd engine.CreateProcessInstanceCmd) (engine.ProcessInstance, error) {
	if err := validateCommand(cmd, "failed to create process instance"); err != nil {
		return engine.ProcessInstance{}, err
	}

	processInstance, err := createProcessInstance(ctx, cmd, nil)
	if err != nil {
		return engine.ProcessInstance{}, err
	}

	return processInstance.ProcessInstance(), nil
}

// createProcessInstance creates and starts a process instance, together with
// one token per start node. A non-nil parent token makes the created instance
// a subprocess instance of the token's process instance.
func createProcessInstance(ctx Context, cmd engine.CreateProcessInstanceCmd, parentToken *TokenEntity) (*ProcessInstanceEntity, error) {
	process, err := ctx.ProcessCache().GetOrCache(ctx, cmd.DefinitionId, cmd.Version)
	if err == pgx.ErrNoRows {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to create process instance",
			Detail: fmt.Sprintf("process %s:%s could not be found", cmd.DefinitionId, cmd.Version),
		}
	}
	if err != nil {
		return nil, err
	}

	if !process.IsEnabled {
		return nil, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to create process instance",
			Detail: fmt.Sprintf("process %s:%s is disabled", process.DefinitionId, process.Version),
		}
	}

	var variables pgtype.Text
	if len(cmd.Variables) != 0 {
		var err error
		if variables, err = marshalJSONText(cmd.Variables); err != nil {
			return nil, err
		}
	}

	processInstance := ProcessInstanceEntity{
		ProcessId: process.Id,

		BusinessKey:  pgtype.Text{String: cmd.BusinessKey, Valid: cmd.BusinessKey != ""},
		CreatedAt:    ctx.Time(),
		CreatedBy:    cmd.WorkerId,
		DefinitionId: process.DefinitionId,
		StartedAt:    pgtype.Timestamp{Time: ctx.Time(), Valid: true},
		State:        engine.InstanceRunning,
		Variables:    variables,
		Version:      process.Version,
	}

	if parentToken != nil {
		parent, err := ctx.ProcessInstances().Select(parentToken.ProcessInstanceId)
		if err != nil {
			return nil, err
		}

		processInstance.ParentId = pgtype.Int4{Int32: parent.Id, Valid: true}
		processInstance.ParentTokenId = pgtype.Int4{Int32: parentToken.Id, Valid: true}

		if parent.RootId.Valid {
			processInstance.RootId = parent.RootId
		} else {
			processInstance.RootId = pgtype.Int4{Int32: parent.Id, Valid: true}
		}
	}

	if err := ctx.ProcessInstances().Insert(&processInstance); err != nil {
		return nil, err
	}

	graph := process.graph
	for _, startNode := range graph.startNodes {
		token := TokenEntity{
			ProcessInstanceId: processInstance.Id,

			CreatedAt: ctx.Time(),
			CreatedBy: ctx.Options().EngineId,
			NodeId:    startNode.Id,
			State:     engine.TokenActive,
		}

		if err := ctx.Tokens().Insert(&token); err != nil {
			return nil, err
		}

		publishEvent(ctx, engine.EventTokenCreated, token.Token())
	}

	if err := insertEvent(ctx, processInstance.Id, engine.EventProcessStarted, map[string]any{
		"definitionId": processInstance.DefinitionId,
		"version":      processInstance.Version,
	}); err != nil {
		return nil, err
	}

	publishEvent(ctx, engine.EventProcessStarted, processInstance.ProcessInstance())

	return &processInstance, nil
}

func SuspendProcessInstance(ctx Context, cmd engine.SuspendProcessInstanceCmd) error {
	if err := validateCommand(cmd, "failed to suspend process instance"); err != nil {
		return err
	}

	processInstance, err := selectProcessInstance(ctx, cmd.Id, "failed to suspend process instance")
	if err != nil {
		return err
	}

	if processInstance.State == engine.InstanceSuspended {
		return nil
	}
	if processInstance.State != engine.InstanceRunning {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to suspend process instance",
			Detail: fmt.Sprintf("process instance %d is in state %s", processInstance.Id, processInstance.State),
		}
	}

	processInstance.State = engine.InstanceSuspended
	if err := ctx.ProcessInstances().Update(processInstance); err != nil {
		return err
	}

	if err := suspendTasks(ctx, processInstance.Id); err != nil {
		return err
	}

	if err := insertEvent(ctx, processInstance.Id, engine.EventProcessSuspended, map[string]any{
		"workerId": cmd.WorkerId,
	}); err != nil {
		return err
	}

	publishEvent(ctx, engine.EventProcessSuspended, processInstance.ProcessInstance())

	return nil
}

func ResumeProcessInstance(ctx Context, cmd engine.ResumeProcessInstanceCmd) error {
	if err := validateCommand(cmd, "failed to resume process instance"); err != nil {
		return err
	}

	processInstance, err := selectProcessInstance(ctx, cmd.Id, "failed to resume process instance")
	if err != nil {
		return err
	}

	if processInstance.State == engine.InstanceRunning {
		return nil
	}
	if processInstance.State != engine.InstanceSuspended {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to resume process instance",
			Detail: fmt.Sprintf("process instance %d is in state %s", processInstance.Id, processInstance.State),
		}
	}

	processInstance.State = engine.InstanceRunning
	if err := ctx.ProcessInstances().Update(processInstance); err != nil {
		return err
	}

	if err := resumeTasks(ctx, processInstance.Id); err != nil {
		return err
	}

	if err := insertEvent(ctx, processInstance.Id, engine.EventProcessResumed, map[string]any{
		"workerId": cmd.WorkerId,
	}); err != nil {
		return err
	}

	publishEvent(ctx, engine.EventProcessResumed, processInstance.ProcessInstance())

	return nil
}

func TerminateProcessInstance(ctx Context, cmd engine.TerminateProcessInstanceCmd) error {
	if err := validateCommand(cmd, "failed to terminate process instance"); err != nil {
		return err
	}

	processInstance, err := selectProcessInstance(ctx, cmd.Id, "failed to terminate process instance")
	if err != nil {
		return err
	}

	if processInstance.State.IsEnded() {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to terminate process instance",
			Detail: fmt.Sprintf("process instance %d is already ended", processInstance.Id),
		}
	}

	return terminateProcessInstance(ctx, processInstance, cmd.Reason)
}

// terminateProcessInstance terminates a process instance, its non-ended
// tokens and its subprocess instances. Instances are worked off a list, since
// a subprocess can spawn subprocesses itself.
func terminateProcessInstance(ctx Context, processInstance *ProcessInstanceEntity, reason string) error {
	worklist := []*ProcessInstanceEntity{processInstance}

	for len(worklist) != 0 {
		instance := worklist[0]
		worklist = worklist[1:]

		if instance.State.IsEnded() {
			continue
		}

		children, err := ctx.ProcessInstances().SelectByParent(instance.Id)
		if err != nil {
			return err
		}
		worklist = append(worklist, children...)

		tokens, err := ctx.Tokens().SelectByProcessInstance(instance.Id)
		if err != nil {
			return err
		}

		for _, token := range tokens {
			if token.State == engine.TokenCompleted || token.State == engine.TokenTerminated {
				continue
			}

			token.State = engine.TokenTerminated
			token.EndedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
			if err := ctx.Tokens().Update(token); err != nil {
				return err
			}
		}

		if err := skipActivities(ctx, instance.Id, reason); err != nil {
			return err
		}
		if err := cancelTasks(ctx, instance.Id); err != nil {
			return err
		}

		instance.State = engine.InstanceTerminated
		instance.EndedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
		instance.CurrentNodes = pgtype.Text{}
		if err := ctx.ProcessInstances().Update(instance); err != nil {
			return err
		}

		if err := insertEvent(ctx, instance.Id, engine.EventProcessTerminated, map[string]any{
			"reason": reason,
		}); err != nil {
			return err
		}

		publishEvent(ctx, engine.EventProcessTerminated, instance.ProcessInstance())
	}

	return nil
}

func DeleteProcessInstance(ctx Context, cmd engine.DeleteProcessInstanceCmd) error {
	processInstance, err := selectProcessInstance(ctx, cmd.Id, "failed to delete process instance")
	if err != nil {
		return err
	}

	if !processInstance.State.IsEnded() {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to delete process instance",
			Detail: fmt.Sprintf("process instance %d is not ended", processInstance.Id),
		}
	}

	worklist := []*ProcessInstanceEntity{processInstance}
	var ordered []*ProcessInstanceEntity

	for len(worklist) != 0 {
		instance := worklist[0]
		worklist = worklist[1:]

		children, err := ctx.ProcessInstances().SelectByParent(instance.Id)
		if err != nil {
			return err
		}

		worklist = append(worklist, children...)
		ordered = append(ordered, instance)
	}

	// delete children first
	for i := len(ordered) - 1; i >= 0; i-- {
		instance := ordered[i]

		if err := ctx.Tasks().DeleteByProcessInstance(instance.Id); err != nil {
			return err
		}
		if err := ctx.Activities().DeleteByProcessInstance(instance.Id); err != nil {
			return err
		}
		if err := ctx.Events().DeleteByProcessInstance(instance.Id); err != nil {
			return err
		}
		if err := ctx.Tokens().DeleteByProcessInstance(instance.Id); err != nil {
			return err
		}
		if err := ctx.ProcessInstances().Delete(instance.Id); err != nil {
			return err
		}
	}

	return nil
}

func GetProcessVariables(ctx Context, cmd engine.GetProcessVariablesCmd) (map[string]any, error) {
	processInstance, err := selectProcessInstance(ctx, cmd.ProcessInstanceId, "failed to get process variables")
	if err != nil {
		return nil, err
	}

	variables := unmarshalVariables(processInstance.Variables)
	if len(cmd.Names) == 0 {
		return variables, nil
	}

	selected := make(map[string]any, len(cmd.Names))
	for _, name := range cmd.Names {
		if value, ok := variables[name]; ok {
			selected[name] = value
		}
	}

	return selected, nil
}

func SetProcessVariables(ctx Context, cmd engine.SetProcessVariablesCmd) error {
	if err := validateCommand(cmd, "failed to set process variables"); err != nil {
		return err
	}

	processInstance, err := selectProcessInstance(ctx, cmd.ProcessInstanceId, "failed to set process variables")
	if err != nil {
		return err
	}

	if processInstance.State.IsEnded() {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to set process variables",
			Detail: fmt.Sprintf("process instance %d is already ended", processInstance.Id),
		}
	}

	if err := mergeVariables(ctx, processInstance, cmd.Variables); err != nil {
		return err
	}

	if err := insertEvent(ctx, processInstance.Id, engine.EventVariablesSet, map[string]any{
		"names":    variableNames(cmd.Variables),
		"workerId": cmd.WorkerId,
	}); err != nil {
		return err
	}

	publishEvent(ctx, engine.EventVariablesSet, processInstance.ProcessInstance())

	return nil
}

// mergeVariables shallow-merges variables into the variable bag of a process
// instance. A nil value removes the variable.
func mergeVariables(ctx Context, processInstance *ProcessInstanceEntity, variables map[string]any) error {
	if len(variables) == 0 {
		return nil
	}

	merged := unmarshalVariables(processInstance.Variables)
	if merged == nil {
		merged = make(map[string]any, len(variables))
	}

	for name, value := range variables {
		if value == nil {
			delete(merged, name)
		} else {
			merged[name] = value
		}
	}

	text, err := marshalJSONText(merged)
	if err != nil {
		return err
	}

	processInstance.Variables = text
	return ctx.ProcessInstances().Update(processInstance)
}

func variableNames(variables map[string]any) []string {
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	return names
}

func GetStats(ctx Context) (engine.Stats, error) {
	stats, err := ctx.ProcessInstances().Stats()
	if err != nil {
		return engine.Stats{}, err
	}

	processCount, err := ctx.Processes().Count()
	if err != nil {
		return engine.Stats{}, err
	}

	stats.ProcessCount = processCount
	return stats, nil
}
