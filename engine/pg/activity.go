package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/definition"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type activityRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

const activityColumns = `
	process_instance_id,
	token_id,
	created_at,
	ended_at,
	executor,
	name,
	node_id,
	result,
	started_at,
	state,
	type
`

func (r activityRepository) Insert(entity *internal.ActivityEntity) error {
	row := r.tx.QueryRow(r.txCtx, `
INSERT INTO activity (`+activityColumns+`
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
	$11
) RETURNING id
`,
		entity.ProcessInstanceId,
		entity.TokenId,
		entity.CreatedAt,
		entity.EndedAt,
		entity.Executor,
		entity.Name,
		entity.NodeId,
		entity.Result,
		entity.StartedAt,
		entity.State.String(),
		entity.Type.String(),
	)

	if err := row.Scan(&entity.Id); err != nil {
		return fmt.Errorf("failed to insert activity %+v: %v", entity, err)
	}
	return nil
}

func (r activityRepository) Select(id int32) (*internal.ActivityEntity, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT`+activityColumns+`
FROM
	activity
WHERE
	id = $1
`, id)

	var entity internal.ActivityEntity
	var state, nodeType string

	if err := row.Scan(
		&entity.ProcessInstanceId,
		&entity.TokenId,
		&entity.CreatedAt,
		&entity.EndedAt,
		&entity.Executor,
		&entity.Name,
		&entity.NodeId,
		&entity.Result,
		&entity.StartedAt,
		&state,
		&nodeType,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to select activity %d: %v", id, err)
	}

	entity.Id = id
	entity.State = engine.MapActivityState(state)
	entity.Type = definition.MapNodeType(nodeType)
	return &entity, nil
}

func (r activityRepository) SelectByProcessInstance(processInstanceId int32) ([]*internal.ActivityEntity, error) {
	rows, err := r.tx.Query(r.txCtx, `
SELECT
	id,`+activityColumns+`
FROM
	activity
WHERE
	process_instance_id = $1
ORDER BY id
`, processInstanceId)
	if err != nil {
		return nil, fmt.Errorf("failed to select activities of process instance %d: %v", processInstanceId, err)
	}

	defer rows.Close()

	var results []*internal.ActivityEntity
	for rows.Next() {
		entity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %v", err)
		}
		results = append(results, entity)
	}

	return results, nil
}

func (r activityRepository) Update(entity *internal.ActivityEntity) error {
	_, err := r.tx.Exec(r.txCtx, `
UPDATE
	activity
SET
	ended_at = $2,
	executor = $3,
	result = $4,
	started_at = $5,
	state = $6
WHERE
	id = $1
`,
		entity.Id,
		entity.EndedAt,
		entity.Executor,
		entity.Result,
		entity.StartedAt,
		entity.State.String(),
	)

	if err != nil {
		return fmt.Errorf("failed to update activity %+v: %v", entity, err)
	}
	return nil
}

func (r activityRepository) DeleteByProcessInstance(processInstanceId int32) error {
	_, err := r.tx.Exec(r.txCtx, "DELETE FROM activity WHERE process_instance_id = $1", processInstanceId)
	if err != nil {
		return fmt.Errorf("failed to delete activities of process instance %d: %v", processInstanceId, err)
	}
	return nil
}

func (r activityRepository) Query(criteria engine.ActivityCriteria, options engine.QueryOptions) ([]engine.ActivityInstance, error) {
	sql := `
SELECT
	id,` + activityColumns + `
FROM
	activity
`

	var conditions []string
	var args []any

	if criteria.Id != 0 {
		args = append(args, criteria.Id)
		conditions = append(conditions, fmt.Sprintf("id = $%d", len(args)))
	}
	if criteria.ProcessInstanceId != 0 {
		args = append(args, criteria.ProcessInstanceId)
		conditions = append(conditions, fmt.Sprintf("process_instance_id = $%d", len(args)))
	}
	if criteria.NodeId != "" {
		args = append(args, criteria.NodeId)
		conditions = append(conditions, fmt.Sprintf("node_id = $%d", len(args)))
	}
	if len(criteria.States) != 0 {
		conditions = append(conditions, fmt.Sprintf("state IN (%s)", joinActivityStates(criteria.States)))
	}

	rows, err := r.tx.Query(r.txCtx, sql+where(conditions)+orderAndPage(options), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %v", err)
	}

	defer rows.Close()

	var results []engine.ActivityInstance
	for rows.Next() {
		entity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %v", err)
		}
		results = append(results, entity.ActivityInstance())
	}

	return results, nil
}

func scanActivity(row pgx.Row) (*internal.ActivityEntity, error) {
	var entity internal.ActivityEntity
	var state, nodeType string

	if err := row.Scan(
		&entity.Id,
		&entity.ProcessInstanceId,
		&entity.TokenId,
		&entity.CreatedAt,
		&entity.EndedAt,
		&entity.Executor,
		&entity.Name,
		&entity.NodeId,
		&entity.Result,
		&entity.StartedAt,
		&state,
		&nodeType,
	); err != nil {
		return nil, err
	}

	entity.State = engine.MapActivityState(state)
	entity.Type = definition.MapNodeType(nodeType)
	return &entity, nil
}
