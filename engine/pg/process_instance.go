package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type processInstanceRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

const processInstanceColumns = `
	parent_id,
	root_id,
	parent_token_id,
	process_id,
	business_key,
	created_at,
	created_by,
	current_nodes,
	definition_id,
	ended_at,
	started_at,
	state,
	variables,
	version
`

func (r processInstanceRepository) Insert(entity *internal.ProcessInstanceEntity) error {
	row := r.tx.QueryRow(r.txCtx, `
INSERT INTO process_instance (`+processInstanceColumns+`
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
	$14
) RETURNING id
`,
		entity.ParentId,
		entity.RootId,
		entity.ParentTokenId,
		entity.ProcessId,
		entity.BusinessKey,
		entity.CreatedAt,
		entity.CreatedBy,
		entity.CurrentNodes,
		entity.DefinitionId,
		entity.EndedAt,
		entity.StartedAt,
		entity.State.String(),
		entity.Variables,
		entity.Version,
	)

	if err := row.Scan(&entity.Id); err != nil {
		return fmt.Errorf("failed to insert process instance %+v: %v", entity, err)
	}
	return nil
}

func (r processInstanceRepository) Select(id int32) (*internal.ProcessInstanceEntity, error) {
	// locked FOR UPDATE to serialize concurrent executions of the instance
	row := r.tx.QueryRow(r.txCtx, `
SELECT`+processInstanceColumns+`
FROM
	process_instance
WHERE
	id = $1
FOR UPDATE
`, id)

	entity, err := scanProcessInstance(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to select process instance %d: %v", id, err)
	}

	entity.Id = id
	return entity, nil
}

func (r processInstanceRepository) SelectByParent(parentId int32) ([]*internal.ProcessInstanceEntity, error) {
	rows, err := r.tx.Query(r.txCtx, `
SELECT
	id,`+processInstanceColumns+`
FROM
	process_instance
WHERE
	parent_id = $1
ORDER BY id
`, parentId)
	if err != nil {
		return nil, fmt.Errorf("failed to select process instances by parent %d: %v", parentId, err)
	}

	defer rows.Close()

	var results []*internal.ProcessInstanceEntity
	for rows.Next() {
		var id int32
		entity, err := scanProcessInstanceWithId(rows, &id)
		if err != nil {
			return nil, fmt.Errorf("failed to scan process instance row: %v", err)
		}

		entity.Id = id
		results = append(results, entity)
	}

	return results, nil
}

func (r processInstanceRepository) Update(entity *internal.ProcessInstanceEntity) error {
	_, err := r.tx.Exec(r.txCtx, `
UPDATE
	process_instance
SET
	current_nodes = $2,
	ended_at = $3,
	state = $4,
	variables = $5
WHERE
	id = $1
`,
		entity.Id,
		entity.CurrentNodes,
		entity.EndedAt,
		entity.State.String(),
		entity.Variables,
	)

	if err != nil {
		return fmt.Errorf("failed to update process instance %+v: %v", entity, err)
	}
	return nil
}

func (r processInstanceRepository) Delete(id int32) error {
	_, err := r.tx.Exec(r.txCtx, "DELETE FROM process_instance WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete process instance %d: %v", id, err)
	}
	return nil
}

func (r processInstanceRepository) Query(criteria engine.ProcessInstanceCriteria, options engine.QueryOptions) ([]engine.ProcessInstance, error) {
	sql := `
SELECT
	id,` + processInstanceColumns + `
FROM
	process_instance
`

	var conditions []string
	var args []any

	if criteria.Id != 0 {
		args = append(args, criteria.Id)
		conditions = append(conditions, fmt.Sprintf("id = $%d", len(args)))
	}
	if criteria.ParentId != 0 {
		args = append(args, criteria.ParentId)
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", len(args)))
	}
	if criteria.ProcessId != 0 {
		args = append(args, criteria.ProcessId)
		conditions = append(conditions, fmt.Sprintf("process_id = $%d", len(args)))
	}
	if criteria.BusinessKey != "" {
		args = append(args, criteria.BusinessKey)
		conditions = append(conditions, fmt.Sprintf("business_key = $%d", len(args)))
	}
	if criteria.CreatedBy != "" {
		args = append(args, criteria.CreatedBy)
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if criteria.DefinitionId != "" {
		args = append(args, criteria.DefinitionId)
		conditions = append(conditions, fmt.Sprintf("definition_id = $%d", len(args)))
	}
	if len(criteria.States) != 0 {
		conditions = append(conditions, fmt.Sprintf("state IN (%s)", joinInstanceStates(criteria.States)))
	}

	rows, err := r.tx.Query(r.txCtx, sql+where(conditions)+orderAndPage(options), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query process instances: %v", err)
	}

	defer rows.Close()

	var results []engine.ProcessInstance
	for rows.Next() {
		var id int32
		entity, err := scanProcessInstanceWithId(rows, &id)
		if err != nil {
			return nil, fmt.Errorf("failed to scan process instance row: %v", err)
		}

		entity.Id = id
		results = append(results, entity.ProcessInstance())
	}

	return results, nil
}

func (r processInstanceRepository) Stats() (engine.Stats, error) {
	rows, err := r.tx.Query(r.txCtx, `
SELECT
	state,
	COUNT(id),
	AVG(EXTRACT(EPOCH FROM (ended_at - started_at)))
FROM
	process_instance
GROUP BY
	state
`)
	if err != nil {
		return engine.Stats{}, fmt.Errorf("failed to query process instance stats: %v", err)
	}

	defer rows.Close()

	var stats engine.Stats
	for rows.Next() {
		var (
			state       string
			count       int
			meanSeconds *float64
		)

		if err := rows.Scan(&state, &count, &meanSeconds); err != nil {
			return engine.Stats{}, fmt.Errorf("failed to scan stats row: %v", err)
		}

		switch engine.MapInstanceState(state) {
		case engine.InstanceCompleted:
			stats.CompletedCount = count
			if meanSeconds != nil {
				stats.MeanDuration = time.Duration(*meanSeconds * float64(time.Second))
			}
		case engine.InstanceError:
			stats.ErrorCount = count
		case engine.InstanceRunning:
			stats.RunningCount = count
		case engine.InstanceSuspended:
			stats.SuspendedCount = count
		case engine.InstanceTerminated:
			stats.TerminatedCount = count
		}
	}

	return stats, nil
}

func scanProcessInstance(row pgx.Row) (*internal.ProcessInstanceEntity, error) {
	var entity internal.ProcessInstanceEntity
	var state string

	if err := row.Scan(
		&entity.ParentId,
		&entity.RootId,
		&entity.ParentTokenId,
		&entity.ProcessId,
		&entity.BusinessKey,
		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.CurrentNodes,
		&entity.DefinitionId,
		&entity.EndedAt,
		&entity.StartedAt,
		&state,
		&entity.Variables,
		&entity.Version,
	); err != nil {
		return nil, err
	}

	entity.State = engine.MapInstanceState(state)
	return &entity, nil
}

func scanProcessInstanceWithId(row pgx.Row, id *int32) (*internal.ProcessInstanceEntity, error) {
	var entity internal.ProcessInstanceEntity
	var state string

	if err := row.Scan(
		id,
		&entity.ParentId,
		&entity.RootId,
		&entity.ParentTokenId,
		&entity.ProcessId,
		&entity.BusinessKey,
		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.CurrentNodes,
		&entity.DefinitionId,
		&entity.EndedAt,
		&entity.StartedAt,
		&state,
		&entity.Variables,
		&entity.Version,
	); err != nil {
		return nil, err
	}

	entity.State = engine.MapInstanceState(state)
	return &entity, nil
}
