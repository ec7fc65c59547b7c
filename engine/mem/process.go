package mem

import (
	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type processRepository struct {
	entities []internal.ProcessEntity
	sequence int32
}

func (r *processRepository) Insert(entity *internal.ProcessEntity) error {
	for _, e := range r.entities {
		if e.DefinitionId == entity.DefinitionId && e.Version == entity.Version {
			return pgx.ErrNoRows // indicates a conflict
		}
	}

	r.sequence++
	entity.Id = r.sequence
	r.entities = append(r.entities, *entity)
	return nil
}

func (r *processRepository) Select(id int32) (*internal.ProcessEntity, error) {
	for _, e := range r.entities {
		if e.Id == id {
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *processRepository) SelectByDefinitionId(definitionId string, version string) (*internal.ProcessEntity, error) {
	var latest *internal.ProcessEntity
	for i := range r.entities {
		e := r.entities[i]
		if e.DefinitionId != definitionId {
			continue
		}

		if version != "" {
			if e.Version == version {
				return &e, nil
			}
			continue
		}

		if latest == nil || e.Id > latest.Id {
			latest = &e
		}
	}

	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	return latest, nil
}

func (r *processRepository) Update(entity *internal.ProcessEntity) error {
	for i := range r.entities {
		if r.entities[i].Id == entity.Id {
			r.entities[i] = *entity
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *processRepository) Count() (int, error) {
	return len(r.entities), nil
}

func (r *processRepository) Query(c engine.ProcessCriteria, o engine.QueryOptions) ([]engine.Process, error) {
	var (
		offset int
		limit  int
	)

	results := make([]engine.Process, 0)
	for _, e := range r.entities {
		if c.Id != 0 && c.Id != e.Id {
			continue
		}
		if c.DefinitionId != "" && c.DefinitionId != e.DefinitionId {
			continue
		}
		if c.Version != "" && c.Version != e.Version {
			continue
		}

		if offset < o.Offset {
			offset++
			continue
		}

		results = append(results, e.Process())
		limit++

		if o.Limit > 0 && limit == o.Limit {
			break
		}
	}

	return results, nil
}
