package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type taskRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

const taskColumns = `
	process_instance_id,
	token_id,
	activity_instance_id,
	assignee,
	candidate_groups,
	completed_at,
	completed_by,
	created_at,
	created_by,
	due_at,
	locked_at,
	locked_by,
	name,
	node_id,
	state
`

func (r taskRepository) Insert(entity *internal.TaskEntity) error {
	row := r.tx.QueryRow(r.txCtx, `
INSERT INTO task (`+taskColumns+`
) VALUES (
	$1,
	$2,
	$3,
	$4,
	$5,
	$6,
	$7,
	$8,
	$9,
	$10,
	$11,
	$12,
	$13,
	$14,
	$15
) RETURNING id
`,
		entity.ProcessInstanceId,
		entity.TokenId,
		entity.ActivityInstanceId,
		entity.Assignee,
		entity.CandidateGroups,
		entity.CompletedAt,
		entity.CompletedBy,
		entity.CreatedAt,
		entity.CreatedBy,
		entity.DueAt,
		entity.LockedAt,
		entity.LockedBy,
		entity.Name,
		entity.NodeId,
		entity.State.String(),
	)

	if err := row.Scan(&entity.Id); err != nil {
		return fmt.Errorf("failed to insert task %+v: %v", entity, err)
	}
	return nil
}

func (r taskRepository) Select(id int32) (*internal.TaskEntity, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT
	id,`+taskColumns+`
FROM
	task
WHERE
	id = $1
`, id)

	entity, err := scanTask(row)
	if err == pgx.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select task %d: %v", id, err)
	}
	return entity, nil
}

func (r taskRepository) SelectByProcessInstance(processInstanceId int32) ([]*internal.TaskEntity, error) {
	rows, err := r.tx.Query(r.txCtx, `
SELECT
	id,`+taskColumns+`
FROM
	task
WHERE
	process_instance_id = $1
ORDER BY id
`, processInstanceId)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks of process instance %d: %v", processInstanceId, err)
	}

	defer rows.Close()

	var results []*internal.TaskEntity
	for rows.Next() {
		entity, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}

	return results, nil
}

func (r taskRepository) Update(entity *internal.TaskEntity) error {
	_, err := r.tx.Exec(r.txCtx, `
UPDATE
	task
SET
	completed_at = $2,
	completed_by = $3,
	locked_at = $4,
	locked_by = $5,
	state = $6
WHERE
	id = $1
`,
		entity.Id,
		entity.CompletedAt,
		entity.CompletedBy,
		entity.LockedAt,
		entity.LockedBy,
		entity.State.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task %d: %v", entity.Id, err)
	}
	return nil
}

func (r taskRepository) DeleteByProcessInstance(processInstanceId int32) error {
	_, err := r.tx.Exec(r.txCtx, "DELETE FROM task WHERE process_instance_id = $1", processInstanceId)
	if err != nil {
		return fmt.Errorf("failed to delete tasks of process instance %d: %v", processInstanceId, err)
	}
	return nil
}

func (r taskRepository) Query(criteria engine.TaskCriteria, options engine.QueryOptions) ([]engine.Task, error) {
	sql := `
SELECT
	id,` + taskColumns + `
FROM
	task
`

	conditions, args := taskConditions(criteria.Id, criteria.ProcessInstanceId, criteria.Assignee, criteria.CandidateGroup, criteria.NodeId)
	if len(criteria.States) != 0 {
		conditions = append(conditions, fmt.Sprintf("state IN (%s)", joinTaskStates(criteria.States)))
	}

	rows, err := r.tx.Query(r.txCtx, sql+where(conditions)+orderAndPage(options), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %v", err)
	}

	defer rows.Close()

	var results []engine.Task
	for rows.Next() {
		entity, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity.Task())
	}

	return results, nil
}

func (r taskRepository) Lock(cmd engine.LockTasksCmd, lockedAt time.Time) ([]*internal.TaskEntity, error) {
	conditions, args := taskConditions(cmd.Id, cmd.ProcessInstanceId, cmd.Assignee, cmd.CandidateGroup, cmd.NodeId)

	args = append(args, lockedAt)
	conditions = append(conditions, fmt.Sprintf("due_at <= $%d", len(args)))
	conditions = append(conditions, "state = 'CREATED'")

	args = append(args, cmd.Limit)
	limit := fmt.Sprintf(" ORDER BY id LIMIT $%d FOR UPDATE SKIP LOCKED", len(args))

	args = append(args, lockedAt, cmd.WorkerId)

	rows, err := r.tx.Query(r.txCtx, fmt.Sprintf(`
UPDATE
	task
SET
	locked_at = $%d,
	locked_by = $%d,
	state = 'LOCKED'
WHERE
	id IN (SELECT id FROM task%s%s)
RETURNING
	id,%s
`, len(args)-1, len(args), where(conditions), limit, taskColumns), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock tasks: %v", err)
	}

	defer rows.Close()

	var results []*internal.TaskEntity
	for rows.Next() {
		entity, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}

	return results, nil
}

func (r taskRepository) Unlock(cmd engine.UnlockTasksCmd) (int, error) {
	sql := `
UPDATE
	task
SET
	locked_at = NULL,
	locked_by = NULL,
	state = 'CREATED'
WHERE
	state = 'LOCKED' AND locked_by = $1
`

	var args []any
	args = append(args, cmd.WorkerId)

	if cmd.ProcessInstanceId != 0 {
		args = append(args, cmd.ProcessInstanceId)
		sql = sql + fmt.Sprintf(" AND process_instance_id = $%d", len(args))
	}

	tag, err := r.tx.Exec(r.txCtx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to unlock tasks: %v", err)
	}
	return int(tag.RowsAffected()), nil
}

func taskConditions(id int32, processInstanceId int32, assignee string, candidateGroup string, nodeId string) ([]string, []any) {
	var conditions []string
	var args []any

	if id != 0 {
		args = append(args, id)
		conditions = append(conditions, fmt.Sprintf("id = $%d", len(args)))
	}
	if processInstanceId != 0 {
		args = append(args, processInstanceId)
		conditions = append(conditions, fmt.Sprintf("process_instance_id = $%d", len(args)))
	}
	if assignee != "" {
		args = append(args, assignee)
		conditions = append(conditions, fmt.Sprintf("assignee = $%d", len(args)))
	}
	if candidateGroup != "" {
		// candidate groups are stored as a JSON string array
		args = append(args, fmt.Sprintf(`%%%q%%`, candidateGroup))
		conditions = append(conditions, fmt.Sprintf("candidate_groups LIKE $%d", len(args)))
	}
	if nodeId != "" {
		args = append(args, nodeId)
		conditions = append(conditions, fmt.Sprintf("node_id = $%d", len(args)))
	}

	return conditions, args
}

func scanTask(row pgx.Row) (*internal.TaskEntity, error) {
	var entity internal.TaskEntity
	var state string

	if err := row.Scan(
		&entity.Id,
		&entity.ProcessInstanceId,
		&entity.TokenId,
		&entity.ActivityInstanceId,
		&entity.Assignee,
		&entity.CandidateGroups,
		&entity.CompletedAt,
		&entity.CompletedBy,
		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.DueAt,
		&entity.LockedAt,
		&entity.LockedBy,
		&entity.Name,
		&entity.NodeId,
		&state,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task row: %v", err)
	}

	entity.State = engine.MapTaskState(state)
	return &entity, nil
}
