package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type processRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r processRepository) Insert(entity *internal.ProcessEntity) error {
	row := r.tx.QueryRow(r.txCtx, `
INSERT INTO process (
	definition_id,
	model,
	model_md5,
	created_at,
	created_by,
	is_enabled,
	name,
	version
) VALUES (
	$1,
	$2,
	$3,
	$4,
	$5,
	$6,
	$7,
	$8
) ON CONFLICT (definition_id,version) DO NOTHING RETURNING id
`,
		entity.DefinitionId,
		entity.Model,
		entity.ModelMd5,
		entity.CreatedAt,
		entity.CreatedBy,
		entity.IsEnabled,
		entity.Name,
		entity.Version,
	)

	if err := row.Scan(&entity.Id); err != nil {
		if err == pgx.ErrNoRows { // indicates a conflict
			return err
		} else {
			return fmt.Errorf("failed to insert process %+v: %v", entity, err)
		}
	}

	return nil
}

func (r processRepository) Select(id int32) (*internal.ProcessEntity, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT
	definition_id,
	model,
	model_md5,
	created_at,
	created_by,
	is_enabled,
	name,
	version
FROM
	process
WHERE
	id = $1
`, id)

	var entity internal.ProcessEntity
	if err := row.Scan(
		&entity.DefinitionId,
		&entity.Model,
		&entity.ModelMd5,
		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.IsEnabled,
		&entity.Name,
		&entity.Version,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		} else {
			return nil, fmt.Errorf("failed to select process %d: %v", id, err)
		}
	}

	entity.Id = id

	return &entity, nil
}

func (r processRepository) SelectByDefinitionId(definitionId string, version string) (*internal.ProcessEntity, error) {
	sql := `
SELECT
	id,

	model,
	model_md5,
	created_at,
	created_by,
	is_enabled,
	name,
	version
FROM
	process
WHERE
	definition_id = $1
`

	args := []any{definitionId}
	if version != "" {
		sql = sql + " AND version = $2"
		args = append(args, version)
	} else {
		sql = sql + " ORDER BY id DESC LIMIT 1"
	}

	row := r.tx.QueryRow(r.txCtx, sql, args...)

	var entity internal.ProcessEntity
	if err := row.Scan(
		&entity.Id,

		&entity.Model,
		&entity.ModelMd5,
		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.IsEnabled,
		&entity.Name,
		&entity.Version,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		} else {
			return nil, fmt.Errorf("failed to select process %s:%s: %v", definitionId, version, err)
		}
	}

	entity.DefinitionId = definitionId

	return &entity, nil
}

func (r processRepository) Update(entity *internal.ProcessEntity) error {
	_, err := r.tx.Exec(r.txCtx, `
UPDATE
	process
SET
	is_enabled = $2
WHERE
	id = $1
`,
		entity.Id,
		entity.IsEnabled,
	)

	if err != nil {
		return fmt.Errorf("failed to update process %+v: %v", entity, err)
	}
	return nil
}

func (r processRepository) Count() (int, error) {
	row := r.tx.QueryRow(r.txCtx, "SELECT COUNT(id) FROM process")

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count processes: %v", err)
	}
	return count, nil
}

func (r processRepository) Query(criteria engine.ProcessCriteria, options engine.QueryOptions) ([]engine.Process, error) {
	sql := `
SELECT
	id,

	definition_id,
	created_at,
	created_by,
	is_enabled,
	name,
	version
FROM
	process
`

	var conditions []string
	var args []any

	if criteria.Id != 0 {
		args = append(args, criteria.Id)
		conditions = append(conditions, fmt.Sprintf("id = $%d", len(args)))
	}
	if criteria.DefinitionId != "" {
		args = append(args, criteria.DefinitionId)
		conditions = append(conditions, fmt.Sprintf("definition_id = $%d", len(args)))
	}
	if criteria.Version != "" {
		args = append(args, criteria.Version)
		conditions = append(conditions, fmt.Sprintf("version = $%d", len(args)))
	}

	rows, err := r.tx.Query(r.txCtx, sql+where(conditions)+orderAndPage(options), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query processes: %v", err)
	}

	defer rows.Close()

	var results []engine.Process
	for rows.Next() {
		var entity internal.ProcessEntity
		if err := rows.Scan(
			&entity.Id,

			&entity.DefinitionId,
			&entity.CreatedAt,
			&entity.CreatedBy,
			&entity.IsEnabled,
			&entity.Name,
			&entity.Version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan process row: %v", err)
		}

		results = append(results, entity.Process())
	}

	return results, nil
}
