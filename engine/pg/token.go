package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type tokenRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

const tokenColumns = `
	process_instance_id,
	parent_id,
	child_ids,
	created_at,
	created_by,
	data,
	ended_at,
	node_id,
	state
`

func (r tokenRepository) Insert(entity *internal.TokenEntity) error {
	row := r.tx.QueryRow(r.txCtx, `
INSERT INTO token (`+tokenColumns+`
) VALUES (
	$1,
	$2,
	$3,
	$4,
	$5,
	$6,
	$7,
	$8,
	$9
) RETURNING id
`,
		entity.ProcessInstanceId,
		entity.ParentId,
		entity.ChildIds,
		entity.CreatedAt,
		entity.CreatedBy,
		entity.Data,
		entity.EndedAt,
		entity.NodeId,
		entity.State.String(),
	)

	if err := row.Scan(&entity.Id); err != nil {
		return fmt.Errorf("failed to insert token %+v: %v", entity, err)
	}
	return nil
}

func (r tokenRepository) Select(id int32) (*internal.TokenEntity, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT`+tokenColumns+`
FROM
	token
WHERE
	id = $1
`, id)

	var entity internal.TokenEntity
	var state string

	if err := row.Scan(
		&entity.ProcessInstanceId,
		&entity.ParentId,
		&entity.ChildIds,
		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.Data,
		&entity.EndedAt,
		&entity.NodeId,
		&state,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to select token %d: %v", id, err)
	}

	entity.Id = id
	entity.State = engine.MapTokenState(state)
	return &entity, nil
}

func (r tokenRepository) SelectByProcessInstance(processInstanceId int32) ([]*internal.TokenEntity, error) {
	rows, err := r.tx.Query(r.txCtx, `
SELECT
	id,`+tokenColumns+`
FROM
	token
WHERE
	process_instance_id = $1
ORDER BY id
`, processInstanceId)
	if err != nil {
		return nil, fmt.Errorf("failed to select tokens of process instance %d: %v", processInstanceId, err)
	}

	defer rows.Close()

	var results []*internal.TokenEntity
	for rows.Next() {
		var entity internal.TokenEntity
		var state string

		if err := rows.Scan(
			&entity.Id,
			&entity.ProcessInstanceId,
			&entity.ParentId,
			&entity.ChildIds,
			&entity.CreatedAt,
			&entity.CreatedBy,
			&entity.Data,
			&entity.EndedAt,
			&entity.NodeId,
			&state,
		); err != nil {
			return nil, fmt.Errorf("failed to scan token row: %v", err)
		}

		entity.State = engine.MapTokenState(state)
		results = append(results, &entity)
	}

	return results, nil
}

func (r tokenRepository) Update(entity *internal.TokenEntity) error {
	_, err := r.tx.Exec(r.txCtx, `
UPDATE
	token
SET
	child_ids = $2,
	ended_at = $3,
	node_id = $4,
	state = $5
WHERE
	id = $1
`,
		entity.Id,
		entity.ChildIds,
		entity.EndedAt,
		entity.NodeId,
		entity.State.String(),
	)

	if err != nil {
		return fmt.Errorf("failed to update token %+v: %v", entity, err)
	}
	return nil
}

func (r tokenRepository) DeleteByProcessInstance(processInstanceId int32) error {
	_, err := r.tx.Exec(r.txCtx, "DELETE FROM token WHERE process_instance_id = $1", processInstanceId)
	if err != nil {
		return fmt.Errorf("failed to delete tokens of process instance %d: %v", processInstanceId, err)
	}
	return nil
}

func (r tokenRepository) Query(criteria engine.TokenCriteria, options engine.QueryOptions) ([]engine.Token, error) {
	sql := `
SELECT
	id,` + tokenColumns + `
FROM
	token
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
	if criteria.ParentId != 0 {
		args = append(args, criteria.ParentId)
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", len(args)))
	}
	if criteria.NodeId != "" {
		args = append(args, criteria.NodeId)
		conditions = append(conditions, fmt.Sprintf("node_id = $%d", len(args)))
	}
	if len(criteria.States) != 0 {
		conditions = append(conditions, fmt.Sprintf("state IN (%s)", joinTokenStates(criteria.States)))
	}

	rows, err := r.tx.Query(r.txCtx, sql+where(conditions)+orderAndPage(options), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %v", err)
	}

	defer rows.Close()

	var results []engine.Token
	for rows.Next() {
		var entity internal.TokenEntity
		var state string

		if err := rows.Scan(
			&entity.Id,
			&entity.ProcessInstanceId,
			&entity.ParentId,
			&entity.ChildIds,
			&entity.CreatedAt,
			&entity.CreatedBy,
			&entity.Data,
			&entity.EndedAt,
			&entity.NodeId,
			&state,
		); err != nil {
			return nil, fmt.Errorf("failed to scan token row: %v", err)
		}

		entity.State = engine.MapTokenState(state)
		results = append(results, entity.Token())
	}

	return results, nil
}
