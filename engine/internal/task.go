package internal

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jvollmer/go-flow/definition"
	"github.com/jvollmer/go-flow/engine"
)

type TaskEntity struct {
	Id int32

	ProcessInstanceId  int32
	TokenId            int32
	ActivityInstanceId pgtype.Int4

	Assignee        pgtype.Text
	CandidateGroups pgtype.Text
	CompletedAt     pgtype.Timestamp
	CompletedBy     pgtype.Text
	CreatedAt       time.Time
	CreatedBy       string
	DueAt           time.Time
	LockedAt        pgtype.Timestamp
	LockedBy        pgtype.Text
	Name            pgtype.Text
	NodeId          string
	State           engine.TaskState
}

func (e TaskEntity) Task() engine.Task {
	return engine.Task{
		Id: e.Id,

		ProcessInstanceId:  e.ProcessInstanceId,
		TokenId:            e.TokenId,
		ActivityInstanceId: e.ActivityInstanceId.Int32,

		NodeId:          e.NodeId,
		Name:            e.Name.String,
		Assignee:        e.Assignee.String,
		CandidateGroups: unmarshalStrings(e.CandidateGroups),
		State:           e.State,
		CreatedAt:       e.CreatedAt,
		CreatedBy:       e.CreatedBy,
		DueAt:           e.DueAt,
		LockedAt:        timeOrNil(e.LockedAt),
		LockedBy:        e.LockedBy.String,
		CompletedAt:     timeOrNil(e.CompletedAt),
		CompletedBy:     e.CompletedBy.String,
	}
}

type TaskRepository interface {
	Insert(*TaskEntity) error
	Select(id int32) (*TaskEntity, error)
	SelectByProcessInstance(processInstanceId int32) ([]*TaskEntity, error)
	Update(*TaskEntity) error
	DeleteByProcessInstance(processInstanceId int32) error

	Query(engine.TaskCriteria, engine.QueryOptions) ([]engine.Task, error)

	// Lock locks due tasks in state CREATED that match the command's
	// conditions and returns the locked entities.
	Lock(cmd engine.LockTasksCmd, lockedAt time.Time) ([]*TaskEntity, error)

	// Unlock unlocks uncompleted tasks that are locked by the command's
	// worker and returns the number of unlocked tasks.
	Unlock(cmd engine.UnlockTasksCmd) (int, error)
}

// selectTaskByToken selects the task the given token is parked at, or nil.
func selectTaskByToken(ctx Context, token *TokenEntity) (*TaskEntity, error) {
	tasks, err := ctx.Tasks().SelectByProcessInstance(token.ProcessInstanceId)
	if err != nil {
		return nil, err
	}

	var latest *TaskEntity
	for _, task := range tasks {
		if task.TokenId != token.Id || task.NodeId != token.NodeId {
			continue
		}
		if task.State == engine.TaskCanceled {
			continue
		}
		if latest == nil || task.Id > latest.Id {
			latest = task
		}
	}

	return latest, nil
}

// createTask creates a work item for a token that entered a task node.
func createTask(ctx Context, token *TokenEntity, node *definition.Node, activity *ActivityEntity) (*TaskEntity, error) {
	dueAt, err := evaluateDueAt(node, ctx.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate due date of node %s: %v", node.Id, err)
	}

	var candidateGroups pgtype.Text
	if len(node.CandidateGroups) != 0 {
		if candidateGroups, err = marshalJSONText(node.CandidateGroups); err != nil {
			return nil, err
		}
	}

	task := TaskEntity{
		ProcessInstanceId:  token.ProcessInstanceId,
		TokenId:            token.Id,
		ActivityInstanceId: pgtype.Int4{Int32: activity.Id, Valid: true},

		Assignee:        pgtype.Text{String: node.Assignee, Valid: node.Assignee != ""},
		CandidateGroups: candidateGroups,
		CreatedAt:       ctx.Time(),
		CreatedBy:       ctx.Options().EngineId,
		DueAt:           dueAt,
		Name:            pgtype.Text{String: node.Name, Valid: node.Name != ""},
		NodeId:          node.Id,
		State:           engine.TaskCreated,
	}

	if err := ctx.Tasks().Insert(&task); err != nil {
		return nil, err
	}

	if err := insertEvent(ctx, token.ProcessInstanceId, engine.EventTaskCreated, map[string]any{
		"nodeId": node.Id,
		"taskId": task.Id,
	}); err != nil {
		return nil, err
	}

	publishEvent(ctx, engine.EventTaskCreated, task.Task())
	return &task, nil
}

// CompleteTask completes a created or locked task and merges the task result
// into the process instance variables. The parked token is reactivated, so
// that a subsequent execution can continue it.
func CompleteTask(ctx Context, cmd engine.CompleteTaskCmd) (engine.Task, error) {
	if err := validateCommand(cmd, "failed to complete task"); err != nil {
		return engine.Task{}, err
	}

	task, err := ctx.Tasks().Select(cmd.Id)
	if err == pgx.ErrNoRows {
		return engine.Task{}, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to complete task",
			Detail: fmt.Sprintf("task %d could not be found", cmd.Id),
		}
	}
	if err != nil {
		return engine.Task{}, err
	}

	switch task.State {
	case engine.TaskCreated:
		// an unlocked task can be completed directly
	case engine.TaskLocked:
		if task.LockedBy.String != cmd.WorkerId {
			return engine.Task{}, engine.Error{
				Type:   engine.ErrorConflict,
				Title:  "failed to complete task",
				Detail: fmt.Sprintf("task %d is locked by worker %s", task.Id, task.LockedBy.String),
			}
		}
	default:
		return engine.Task{}, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to complete task",
			Detail: fmt.Sprintf("task %d is in state %s", task.Id, task.State),
		}
	}

	processInstance, err := selectProcessInstance(ctx, task.ProcessInstanceId, "failed to complete task")
	if err != nil {
		return engine.Task{}, err
	}

	if err := mergeVariables(ctx, processInstance, cmd.Variables); err != nil {
		return engine.Task{}, err
	}

	task.CompletedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
	task.CompletedBy = pgtype.Text{String: cmd.WorkerId, Valid: true}
	task.State = engine.TaskCompleted
	if err := ctx.Tasks().Update(task); err != nil {
		return engine.Task{}, err
	}

	if task.ActivityInstanceId.Valid {
		activity, err := ctx.Activities().Select(task.ActivityInstanceId.Int32)
		if err != nil {
			return engine.Task{}, err
		}
		if err := completeActivity(ctx, activity, cmd.WorkerId, cmd.Result); err != nil {
			return engine.Task{}, err
		}
	}

	token, err := ctx.Tokens().Select(task.TokenId)
	if err != nil {
		return engine.Task{}, err
	}

	if token.State == engine.TokenWaiting {
		token.State = engine.TokenActive
		if err := ctx.Tokens().Update(token); err != nil {
			return engine.Task{}, err
		}
	}

	if err := insertEvent(ctx, task.ProcessInstanceId, engine.EventTaskCompleted, map[string]any{
		"nodeId":   task.NodeId,
		"taskId":   task.Id,
		"workerId": cmd.WorkerId,
	}); err != nil {
		return engine.Task{}, err
	}

	publishEvent(ctx, engine.EventTaskCompleted, task.Task())
	return task.Task(), nil
}

func LockTasks(ctx Context, cmd engine.LockTasksCmd) ([]engine.Task, error) {
	if cmd.Limit == 0 {
		cmd.Limit = 1
	}

	if err := validateCommand(cmd, "failed to lock tasks"); err != nil {
		return nil, err
	}

	entities, err := ctx.Tasks().Lock(cmd, ctx.Time())
	if err != nil {
		return nil, err
	}

	tasks := make([]engine.Task, len(entities))
	for i, entity := range entities {
		tasks[i] = entity.Task()
	}

	return tasks, nil
}

func UnlockTasks(ctx Context, cmd engine.UnlockTasksCmd) (int, error) {
	if err := validateCommand(cmd, "failed to unlock tasks"); err != nil {
		return 0, err
	}

	return ctx.Tasks().Unlock(cmd)
}

func suspendTasks(ctx Context, processInstanceId int32) error {
	return updateTaskStates(ctx, processInstanceId, engine.TaskCreated, engine.TaskSuspended)
}

func resumeTasks(ctx Context, processInstanceId int32) error {
	return updateTaskStates(ctx, processInstanceId, engine.TaskSuspended, engine.TaskCreated)
}

func cancelTasks(ctx Context, processInstanceId int32) error {
	tasks, err := ctx.Tasks().SelectByProcessInstance(processInstanceId)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		switch task.State {
		case engine.TaskCreated, engine.TaskLocked, engine.TaskSuspended:
			task.State = engine.TaskCanceled
			if err := ctx.Tasks().Update(task); err != nil {
				return err
			}
		}
	}

	return nil
}

func updateTaskStates(ctx Context, processInstanceId int32, from engine.TaskState, to engine.TaskState) error {
	tasks, err := ctx.Tasks().SelectByProcessInstance(processInstanceId)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if task.State != from {
			continue
		}

		task.State = to
		if err := ctx.Tasks().Update(task); err != nil {
			return err
		}
	}

	return nil
}
