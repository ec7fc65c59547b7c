package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type eventRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r eventRepository) Insert(entity *internal.EventEntity) error {
	row := r.tx.QueryRow(r.txCtx, `
INSERT INTO event (
	process_instance_id,
	created_at,
	data,
	type
) VALUES (
	$1,
	$2,
	$3,
	$4
) RETURNING id
`,
		entity.ProcessInstanceId,
		entity.CreatedAt,
		entity.Data,
		entity.Type,
	)

	if err := row.Scan(&entity.Id); err != nil {
		return fmt.Errorf("failed to insert event %+v: %v", entity, err)
	}
	return nil
}

func (r eventRepository) SelectByProcessInstance(processInstanceId int32) ([]*internal.EventEntity, error) {
	rows, err := r.tx.Query(r.txCtx, `
SELECT
	id,
	process_instance_id,
	created_at,
	data,
	type
FROM
	event
WHERE
	process_instance_id = $1
ORDER BY id
`, processInstanceId)
	if err != nil {
		return nil, fmt.Errorf("failed to select events of process instance %d: %v", processInstanceId, err)
	}

	defer rows.Close()

	var results []*internal.EventEntity
	for rows.Next() {
		var entity internal.EventEntity
		if err := rows.Scan(
			&entity.Id,
			&entity.ProcessInstanceId,
			&entity.CreatedAt,
			&entity.Data,
			&entity.Type,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %v", err)
		}
		results = append(results, &entity)
	}

	return results, nil
}

func (r eventRepository) DeleteByProcessInstance(processInstanceId int32) error {
	_, err := r.tx.Exec(r.txCtx, "DELETE FROM event WHERE process_instance_id = $1", processInstanceId)
	if err != nil {
		return fmt.Errorf("failed to delete events of process instance %d: %v", processInstanceId, err)
	}
	return nil
}

func (r eventRepository) Query(criteria engine.EventCriteria, options engine.QueryOptions) ([]engine.ProcessEvent, error) {
	sql := `
SELECT
	id,
	process_instance_id,
	created_at,
	data,
	type
FROM
	event
`

	var conditions []string
	var args []any

	if criteria.ProcessInstanceId != 0 {
		args = append(args, criteria.ProcessInstanceId)
		conditions = append(conditions, fmt.Sprintf("process_instance_id = $%d", len(args)))
	}
	if criteria.Type != "" {
		args = append(args, criteria.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}

	rows, err := r.tx.Query(r.txCtx, sql+where(conditions)+orderAndPage(options), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %v", err)
	}

	defer rows.Close()

	var results []engine.ProcessEvent
	for rows.Next() {
		var entity internal.EventEntity
		if err := rows.Scan(
			&entity.Id,
			&entity.ProcessInstanceId,
			&entity.CreatedAt,
			&entity.Data,
			&entity.Type,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %v", err)
		}
		results = append(results, entity.ProcessEvent())
	}

	return results, nil
}
